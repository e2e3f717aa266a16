package main

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	URL       string `envconfig:"MAILBOX_URL" default:"http://localhost:8080"`
	AccessKey string `envconfig:"MAILBOX_ACCESS_KEY"`
	// MAILBOX_COLOURS enables colorized output
	Colours bool          `envconfig:"MAILBOX_COLOURS" default:"true"`
	Timeout time.Duration `envconfig:"MAILBOX_TIMEOUT" default:"15s"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
