// Package config centralises environment configuration for both
// processes.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config captures runtime configuration. Values come from RUNCLUB_*
// environment variables.
type Config struct {
	// HTTPAddress is the API listen address.
	HTTPAddress string `split_words:"true" default:":8080"`

	// MetricsAddress is the worker's Prometheus listen address.
	MetricsAddress string `split_words:"true" default:":9090"`

	// PostgresURL is the pgx pool connection string.
	PostgresURL string `required:"true" split_words:"true"`

	// KafkaBrokers is the comma-separated broker list.
	KafkaBrokers []string `required:"true" split_words:"true"`

	// WebhookTopic carries queued webhook jobs from the API to the worker.
	WebhookTopic string `split_words:"true" default:"strava_webhook_events"`

	// WebhookGroupID is the worker's consumer group.
	WebhookGroupID string `split_words:"true" default:"runclub-webhook-worker"`

	// StravaVerifyToken must match the token registered with the push
	// subscription; validation callbacks carrying anything else get a 403.
	StravaVerifyToken string `required:"true" split_words:"true"`

	// JWT verification for the interactive endpoints.
	JWTSecret string `split_words:"true" default:"dev-secret-change-me"`
	JWTIssuer string `split_words:"true" default:"runclub.identity"`

	// DevMode widens log level and switches to console output.
	DevMode bool `split_words:"true"`

	// ShutdownTimeout bounds graceful shutdown of either process.
	ShutdownTimeout time.Duration `split_words:"true" default:"15s"`
}

// Parse reads the environment into Config.
func Parse() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("runclub", &cfg); err != nil {
		return nil, fmt.Errorf("parse configuration: %w", err)
	}
	return &cfg, nil
}
