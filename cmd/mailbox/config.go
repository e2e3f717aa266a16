package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	backendBadger   = "badger"
	backendRedis    = "redis"
	backendPostgres = "postgres"

	relayNone  = "none"
	relayHTTP  = "http"
	relayNATS  = "nats"
	relayKafka = "kafka"
)

type Config struct {
	Host            string        `env:"HOST,default=0.0.0.0"`
	Port            int           `env:"PORT,default=8080" validate:"min=1,max=65535"`
	LogLevel        string        `env:"LOG_LEVEL,default=INFO"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
	DebugPort       int           `env:"DEBUG_PORT,default=0" validate:"min=0,max=65535"`
	// TrustedProxies lists the IPs or CIDRs allowed to report the client address
	TrustedProxies  string        `env:"TRUSTED_PROXIES"`

	StoreBackend    string        `env:"STORE_BACKEND,default=badger" validate:"oneof=badger redis postgres"`
	CacheBackend    string        `env:"CACHE_BACKEND,default=badger" validate:"oneof=badger redis"`
	BadgerFilepath  string        `env:"BADGER_FILEPATH,default=./data/mailbox"`
	GCInterval      time.Duration `env:"GC_INTERVAL,default=5m" validate:"gt=0"`
	RedisAddr       string        `env:"REDIS_ADDR,default=localhost:6379"`
	RedisPassword   string        `env:"REDIS_PASSWORD"`
	RedisDB         int           `env:"REDIS_DB,default=0"`
	PostgresDSN     string        `env:"POSTGRES_DSN" validate:"required_if=StoreBackend postgres"`
	TakeMaxAttempts int           `env:"TAKE_MAX_ATTEMPTS,default=3" validate:"min=1"`
	TakeScanBatch   int           `env:"TAKE_SCAN_BATCH,default=100" validate:"min=1"`

	RateLimitWindow time.Duration `env:"RATE_LIMIT_WINDOW,default=3m" validate:"gt=0"`

	TurnstileSecretKey string        `env:"TURNSTILE_SECRET_KEY,required=true"`
	TurnstileVerifyURL string        `env:"TURNSTILE_VERIFY_URL"`
	VerifyTimeout      time.Duration `env:"VERIFY_TIMEOUT,default=5s"`

	ModerationPageURL     string        `env:"MODERATION_PAGE_URL,required=true" validate:"url"`
	ModerationCheckURL    string        `env:"MODERATION_CHECK_URL,required=true" validate:"url"`
	ModerationCheckType   string        `env:"MODERATION_CHECK_TYPE,default=text"`
	ModerationSessionTTL  time.Duration `env:"MODERATION_SESSION_TTL,default=30m" validate:"gt=0"`
	ModerationAuthRetries int           `env:"MODERATION_AUTH_RETRIES,default=1" validate:"min=0,max=3"`
	ModerationBlocklist   string        `env:"MODERATION_BLOCKLIST"`
	ModerationTimeout     time.Duration `env:"MODERATION_TIMEOUT,default=10s"`

	RelayKind      string        `env:"RELAY_KIND,default=none" validate:"oneof=none http nats kafka"`
	RelayURL       string        `env:"RELAY_URL" validate:"required_if=RelayKind http"`
	RelayAPIKey    string        `env:"RELAY_API_KEY"`
	RelayTimeout   time.Duration `env:"RELAY_TIMEOUT,default=10s"`
	NatsURL        string        `env:"NATS_URL" validate:"required_if=RelayKind nats"`
	NatsSubject    string        `env:"NATS_SUBJECT,default=mailbox.messages"`
	KafkaBrokers   string        `env:"KAFKA_BROKERS" validate:"required_if=RelayKind kafka"`
	KafkaTopic     string        `env:"KAFKA_TOPIC,default=mailbox.messages"`
	NotifyOnSubmit bool          `env:"NOTIFY_ON_SUBMIT,default=false"`

	AccessKeyHash string `env:"ACCESS_KEY_HASH,required=true"`
}

func (c Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return err
	}
	for _, proxy := range splitList(c.TrustedProxies) {
		if err := validate.Var(proxy, "ip|cidr"); err != nil {
			return fmt.Errorf("TRUSTED_PROXIES: %q is neither an IP nor a CIDR", proxy)
		}
	}
	return nil
}

func (c Config) uses(backend string) bool {
	return c.StoreBackend == backend || c.CacheBackend == backend
}

// splitList parses comma separated values, dropping blanks.
func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
