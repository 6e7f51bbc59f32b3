// Package config provides environment-driven configuration for trail.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/persistorai/trail/internal/retention"
)

// Secret wraps a sensitive string to prevent accidental logging or marshalling.
type Secret string

// String implements fmt.Stringer, returning a redacted placeholder.
func (s Secret) String() string { return "[REDACTED]" }

// GoString implements fmt.GoStringer, returning a redacted placeholder.
func (s Secret) GoString() string { return "[REDACTED]" }

// MarshalText implements encoding.TextMarshaler, returning a redacted placeholder.
func (s Secret) MarshalText() ([]byte, error) { return []byte("[REDACTED]"), nil }

// Value returns the underlying secret string.
func (s Secret) Value() string { return string(s) }

// Config holds all application configuration values.
type Config struct {
	DatabaseURL    Secret
	Port           string
	ListenHost     string
	CORSOrigins    []string
	LogLevel       string
	APIKey         Secret
	DBMaxConns     int
	SweepWorkers   int
	SweepQueueSize int
	LimitsFile     string

	// SweepSchedule is a cron expression for periodic sweeps of every item
	// type. Empty disables scheduled sweeps.
	SweepSchedule string

	// Retention is the resolved retention configuration.
	Retention retention.Settings

	// Warnings lists rejected retention values that fell back to unlimited.
	Warnings []string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL: Secret(envOrDefault("DATABASE_URL", "")),
		Port:        envOrDefault("PORT", "3040"),
		ListenHost:  envOrDefault("LISTEN_HOST", "127.0.0.1"),
		LogLevel:    envOrDefault("LOG_LEVEL", "info"),
		APIKey:      Secret(envOrDefault("API_KEY", "")),
		LimitsFile:  envOrDefault("TRAIL_LIMITS_FILE", ""),

		SweepSchedule: envOrDefault("TRAIL_SWEEP_SCHEDULE", ""),
	}

	var err error

	cfg.DBMaxConns, err = envInt("DB_MAX_CONNS", "21", 2, 200)
	if err != nil {
		return nil, err
	}

	cfg.SweepWorkers, err = envInt("SWEEP_WORKERS", "4", 1, 32)
	if err != nil {
		return nil, err
	}

	cfg.SweepQueueSize, err = envInt("SWEEP_QUEUE_SIZE", "64", 1, 10000)
	if err != nil {
		return nil, err
	}

	origins := envOrDefault("CORS_ORIGINS", "http://localhost:3002")
	cfg.CORSOrigins = strings.Split(origins, ",")

	for i, o := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(o)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	cfg.Retention, cfg.Warnings, err = LoadRetention(cfg.LimitsFile)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// Addr returns the listen address in host:port format.
func (c *Config) Addr() string {
	return c.ListenHost + ":" + c.Port
}

func envInt(key, fallback string, lo, hi int) (int, error) {
	n, err := strconv.Atoi(envOrDefault(key, fallback))
	if err != nil || n < lo || n > hi {
		return 0, fmt.Errorf("%s must be an integer between %d and %d", key, lo, hi)
	}

	return n, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}
