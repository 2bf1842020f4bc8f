package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

type Config struct {
	Port     int    `envconfig:"PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	SlackVerificationToken string `envconfig:"SLACK_VERIFICATION_TOKEN" required:"true"`
	SlackClientID          string `envconfig:"SLACK_CLIENT_ID"`
	SlackClientSecret      string `envconfig:"SLACK_CLIENT_SECRET"`
	SlackAPIURL            string `envconfig:"SLACK_API_URL" default:"https://slack.com/api/"`
	BaseURL                string `envconfig:"BASE_URL"`

	StoreBackend  string `envconfig:"STORE_BACKEND" default:"postgres"`
	DatabaseURL   string `envconfig:"DATABASE_URL"`
	RedisURL      string `envconfig:"REDIS_URL"`
	EncryptionKey string `envconfig:"ENCRYPTION_KEY"`

	BroadcastSchedule    string `envconfig:"BROADCAST_SCHEDULE" default:"0 10 * * FRI"`
	BroadcastTimezone    string `envconfig:"BROADCAST_TIMEZONE" default:"UTC"`
	BroadcastConcurrency int    `envconfig:"BROADCAST_CONCURRENCY" default:"1"`

	OTelEnabled bool `envconfig:"OTEL_ENABLED" default:"false"`
	OTelStdout  bool `envconfig:"OTEL_STDOUT" default:"false"`

	NgrokEnabled bool   `envconfig:"NGROK_ENABLED" default:"false"`
	NgrokDomain  string `envconfig:"NGROK_DOMAIN"`
}

// LoadEnv reads a local .env file outside of hosted environments. A missing
// file is not an error.
func LoadEnv() error {
	if os.Getenv("RAILWAY_ENVIRONMENT") != "" {
		return nil
	}
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("loading .env: %w", err)
	}
	return nil
}

// Load populates a Config from the environment and validates it.
func Load() (*Config, error) {
	if err := LoadEnv(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("processing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.SlackVerificationToken) == "" {
		return fmt.Errorf("SLACK_VERIFICATION_TOKEN is required")
	}

	switch c.StoreBackend {
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the %s backend", c.StoreBackend)
		}
	case BackendRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required for the %s backend", c.StoreBackend)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q: must be one of postgres, redis, memory", c.StoreBackend)
	}

	if c.EncryptionKey != "" && len(c.EncryptionKey) != 32 {
		return fmt.Errorf("ENCRYPTION_KEY must be 32 characters long for AES-256 encryption")
	}

	if c.BroadcastConcurrency < 1 {
		return fmt.Errorf("BROADCAST_CONCURRENCY must be at least 1")
	}

	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT %d is out of range", c.Port)
	}

	return nil
}

// RedirectURI is the OAuth redirect target registered with Slack, or empty
// when no public base URL is configured.
func (c *Config) RedirectURI() string {
	if c.BaseURL == "" {
		return ""
	}
	return strings.TrimRight(c.BaseURL, "/") + "/callback"
}
