package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// Environment represents different deployment environments
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvProduction  Environment = "production"
)

// Config holds the configuration for the visit service.
// Environment variables are parsed from the MEDJOURNEE_ prefix.
type Config struct {
	Environment Environment `envconfig:"ENVIRONMENT" default:"development"`

	// HTTP Configuration
	HTTPPort int `envconfig:"HTTP_PORT" default:"8080"`

	// Storage
	DBDriver    string `envconfig:"DB_DRIVER" default:"sqlite"`
	PostgresDSN string `envconfig:"POSTGRES_DSN" default:""`
	SQLitePath  string `envconfig:"SQLITE_PATH" default:"medjournee.db"`

	// Summarization collaborator
	SummarizerURL            string `envconfig:"SUMMARIZER_URL" default:"http://localhost:8090"`
	SummarizerModel          string `envconfig:"SUMMARIZER_MODEL" default:"gpt-4"`
	SummarizerTimeoutSeconds int    `envconfig:"SUMMARIZER_TIMEOUT_SECONDS" default:"60"`
	SummarizerMaxRetries     int    `envconfig:"SUMMARIZER_MAX_RETRIES" default:"2"`

	// Speaker resolution
	MatchThreshold float64 `envconfig:"MATCH_THRESHOLD" default:"0.7"`

	// Session watchdog
	InactivityTimeoutSeconds int `envconfig:"INACTIVITY_TIMEOUT_SECONDS" default:"300"`
	WatchdogIntervalSeconds  int `envconfig:"WATCHDOG_INTERVAL_SECONDS" default:"30"`
}

// ResolveDefaults validates the selected DB driver and threshold bounds.
func (c *Config) ResolveDefaults() error {
	allowedDB := map[string]bool{"postgres": true, "sqlite": true}
	if !allowedDB[c.DBDriver] {
		return fmt.Errorf("unsupported DB_DRIVER: %s", c.DBDriver)
	}
	if c.DBDriver == "postgres" && c.PostgresDSN == "" {
		return fmt.Errorf("DB_DRIVER=postgres requires POSTGRES_DSN")
	}
	if c.MatchThreshold < 0 || c.MatchThreshold > 1 {
		return fmt.Errorf("MATCH_THRESHOLD must be within [0,1], got %v", c.MatchThreshold)
	}
	return nil
}

// New creates a new Config by parsing environment variables.
// Variables are prefixed with MEDJOURNEE_, e.g. MEDJOURNEE_HTTP_PORT.
func New() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("MEDJOURNEE", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.ResolveDefaults(); err != nil {
		return nil, err
	}

	log.Info().
		Str("environment", string(cfg.Environment)).
		Str("db_driver", cfg.DBDriver).
		Int("port", cfg.HTTPPort).
		Str("summarizer_url", cfg.SummarizerURL).
		Str("summarizer_model", cfg.SummarizerModel).
		Float64("match_threshold", cfg.MatchThreshold).
		Int("inactivity_timeout_s", cfg.InactivityTimeoutSeconds).
		Msg("Configuration loaded")

	return &cfg, nil
}

// NewForTesting creates a config specifically for testing.
func NewForTesting() *Config {
	return &Config{
		Environment:              EnvTesting,
		HTTPPort:                 8080,
		DBDriver:                 "sqlite",
		SQLitePath:               ":memory:",
		SummarizerURL:            "http://localhost:8090",
		SummarizerModel:          "gpt-4",
		SummarizerTimeoutSeconds: 5,
		SummarizerMaxRetries:     1,
		MatchThreshold:           0.7,
		InactivityTimeoutSeconds: 300,
		WatchdogIntervalSeconds:  30,
	}
}

// IsTesting returns true if the environment is set to testing
func (c *Config) IsTesting() bool {
	return c.Environment == EnvTesting
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// InactivityTimeout returns the watchdog cutoff as a duration.
func (c *Config) InactivityTimeout() time.Duration {
	return time.Duration(c.InactivityTimeoutSeconds) * time.Second
}

// WatchdogInterval returns the watchdog scan cadence as a duration.
func (c *Config) WatchdogInterval() time.Duration {
	return time.Duration(c.WatchdogIntervalSeconds) * time.Second
}

// SummarizerTimeout returns the collaborator call timeout as a duration.
func (c *Config) SummarizerTimeout() time.Duration {
	return time.Duration(c.SummarizerTimeoutSeconds) * time.Second
}
