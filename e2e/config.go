package e2e

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// MAILBOX_URL points at a running mailbox, the suite is skipped without it
	MailboxURL string `envconfig:"MAILBOX_URL"`
	AccessKey  string `envconfig:"MAILBOX_ACCESS_KEY"`
	// E2E_VERIFICATION_TOKEN must pass the deployed verifier, the Turnstile test keys accept the dummy token
	VerificationToken string        `envconfig:"E2E_VERIFICATION_TOKEN" default:"XXXX.DUMMY.TOKEN.XXXX"`
	Timeout           time.Duration `envconfig:"E2E_TIMEOUT" default:"10s"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
