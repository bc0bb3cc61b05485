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

	"github.com/go-playground/validator/v10"
	"github.com/sethvargo/go-envconfig"
)

// Static errors for configuration validation.
var (
	// ErrInvalidLengths is returned when MAX_LENGTH_SEC does not exceed MIN_LENGTH_SEC
	// or either is out of range.
	ErrInvalidLengths = errors.New("config: MAX_LENGTH_SEC must be greater than MIN_LENGTH_SEC")
	// ErrInvalidConfig is returned for any other out-of-range setting.
	ErrInvalidConfig = errors.New("config: invalid configuration")
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port           int           `env:"PORT, default=8080" json:"port" validate:"min=1,max=65535"`
	AllowedOrigins []string      `env:"ALLOWED_ORIGINS, default=*" json:"allowed_origins" validate:"min=1"`
	ShutdownWait   time.Duration `env:"SHUTDOWN_TIMEOUT, default=10s" json:"shutdown_timeout" validate:"min=0"`

	// Storage settings
	OutputDir string `env:"OUTPUT_DIR, default=/tmp/pushtotalk" json:"output_dir" validate:"required"`

	// Recording policy
	MinLengthSec   int           `env:"MIN_LENGTH_SEC, default=2" json:"min_length_sec" validate:"min=0"`
	MaxLengthSec   int           `env:"MAX_LENGTH_SEC, default=15" json:"max_length_sec" validate:"gtfield=MinLengthSec"`
	CountdownSec   int           `env:"COUNTDOWN_SEC, default=3" json:"countdown_sec" validate:"min=0"`
	SampleInterval time.Duration `env:"SAMPLE_INTERVAL, default=200ms" json:"sample_interval" validate:"min=10ms"`

	// Recorder settings
	SampleRate int     `env:"SAMPLE_RATE, default=8000" json:"sample_rate" validate:"min=1000,max=48000"`
	ToneHz     float64 `env:"TONE_HZ, default=440" json:"tone_hz" validate:"gt=0"`

	// Optional Redis event publishing
	RedisAddr     string `env:"REDIS_ADDR" json:"redis_addr,omitempty"`
	RedisPassword string `env:"REDIS_PASSWORD" json:"-"` // Masked in JSON
	RedisDB       int    `env:"REDIS_DB, default=0" json:"redis_db" validate:"min=0"`
	RedisChannel  string `env:"REDIS_CHANNEL, default=pushtotalk:events" json:"redis_channel"`

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// RedisEnabled returns true if a Redis address is configured.
func (c *Config) RedisEnabled() bool {
	return c.RedisAddr != ""
}

// Load reads configuration from environment variables using go-envconfig
// and validates it.
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

// Validate checks that all settings are within range.
func (c *Config) Validate() error {
	err := validator.New().Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			if fe.Field() == "MinLengthSec" || fe.Field() == "MaxLengthSec" {
				return fmt.Errorf("%w: %s", ErrInvalidLengths, fe.Error())
			}
		}
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, err.Error())
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
		"Config{Port: %d, OutputDir: %s, MinLengthSec: %d, MaxLengthSec: %d, CountdownSec: %d, SampleInterval: %s, SampleRate: %d, ToneHz: %g, RedisAddr: %s, RedisDB: %d, RedisChannel: %s, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.OutputDir,
		c.MinLengthSec,
		c.MaxLengthSec,
		c.CountdownSec,
		c.SampleInterval,
		c.SampleRate,
		c.ToneHz,
		c.RedisAddr,
		c.RedisDB,
		c.RedisChannel,
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
