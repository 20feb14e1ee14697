// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Static errors for configuration validation.
var (
	// ErrUnknownProvider is returned when VIDEO_PROVIDER is not recognized.
	ErrUnknownProvider = errors.New("config: unknown VIDEO_PROVIDER")
	// ErrRunwayAPIKeyRequired is returned when the runway provider is selected without RUNWAY_API_KEY.
	ErrRunwayAPIKeyRequired = errors.New("config: RUNWAY_API_KEY is required for the runway provider")
	// ErrVeoAPIKeyRequired is returned when the veo provider is selected without VEO_API_KEY.
	ErrVeoAPIKeyRequired = errors.New("config: VEO_API_KEY is required for the veo provider")
)

// Provider names accepted in VIDEO_PROVIDER.
const (
	ProviderMock   = "mock"
	ProviderRunway = "runway"
	ProviderVeo    = "veo"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port int `env:"PORT, default=8080" json:"port"`

	// Provider selection. Defaults to the mock provider so the service
	// runs without live credentials.
	Provider     string `env:"VIDEO_PROVIDER, default=mock" json:"provider"`
	RunwayAPIKey string `env:"RUNWAY_API_KEY" json:"-"` // Masked in JSON
	VeoAPIKey    string `env:"VEO_API_KEY" json:"-"`    // Masked in JSON
	VeoModel     string `env:"VEO_MODEL" json:"veo_model,omitempty"`

	// Orchestration settings
	PollIntervalSec int `env:"POLL_INTERVAL_SEC, default=3" json:"poll_interval_sec"`
	MaxPolls        int `env:"MAX_POLLS, default=200" json:"max_polls"`

	// Registry eviction settings
	RegistryTTLMin   int `env:"REGISTRY_TTL_MIN, default=30" json:"registry_ttl_min"`
	StallTimeoutMin  int `env:"STALL_TIMEOUT_MIN, default=60" json:"stall_timeout_min"`
	SweepIntervalMin int `env:"SWEEP_INTERVAL_MIN, default=5" json:"sweep_interval_min"`

	// Storage settings
	StorageDir string `env:"STORAGE_DIR" json:"storage_dir,omitempty"`

	// Optional S3 settings
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// PollInterval returns the poll cadence as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSec) * time.Second
}

// RegistryTTL returns the completed-entry retention as a duration.
func (c *Config) RegistryTTL() time.Duration {
	return time.Duration(c.RegistryTTLMin) * time.Minute
}

// StallTimeout returns the abandoned-entry retention as a duration.
func (c *Config) StallTimeout() time.Duration {
	return time.Duration(c.StallTimeoutMin) * time.Minute
}

// SweepInterval returns the sweep cadence as a duration.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalMin) * time.Minute
}

// Load reads configuration from environment variables using go-envconfig.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := envconfig.Process(context.Background(), cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration is consistent: the selected
// provider must be known and have its credentials present.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderMock:
	case ProviderRunway:
		if c.RunwayAPIKey == "" {
			return ErrRunwayAPIKeyRequired
		}
	case ProviderVeo:
		if c.VeoAPIKey == "" {
			return ErrVeoAPIKeyRequired
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownProvider, c.Provider)
	}
	return nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, Provider: %s, PollIntervalSec: %d, MaxPolls: %d, RegistryTTLMin: %d, StallTimeoutMin: %d, SweepIntervalMin: %d, StorageDir: %s, S3Bucket: %s, S3Region: %s, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.Provider,
		c.PollIntervalSec,
		c.MaxPolls,
		c.RegistryTTLMin,
		c.StallTimeoutMin,
		c.SweepIntervalMin,
		c.StorageDir,
		c.S3Bucket,
		c.S3Region,
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
