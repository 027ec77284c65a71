// Package config provides environment-backed configuration for the server
// and CLI.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/ozayn/signalmap/internal/wayback"
)

// Config holds runtime settings. Values come from the environment; an
// optional .env file is loaded by main() before this is read.
type Config struct {
	// Port the HTTP server listens on.
	Port int
	// DatabaseURL is the PostgreSQL connection string. Empty disables
	// persistence: jobs cannot run, but ad-hoc lookups still work.
	DatabaseURL string
	// WebOrigin is the allowed CORS origin for browser clients.
	WebOrigin string
	// MaxSnapshots caps how many captures a job samples by default.
	// Clamped to the sampler's hard ceiling.
	MaxSnapshots int
}

// Defaults.
const (
	DefaultPort         = 8080
	DefaultWebOrigin    = "http://localhost:3000"
	DefaultMaxSnapshots = 40
)

// FromEnv reads configuration from the environment.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:         DefaultPort,
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		WebOrigin:    DefaultWebOrigin,
		MaxSnapshots: DefaultMaxSnapshots,
	}

	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		cfg.Port = port
	}
	if v := os.Getenv("WEB_ORIGIN"); v != "" {
		cfg.WebOrigin = v
	}
	if v := os.Getenv("MAX_SNAPSHOTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid MAX_SNAPSHOTS %q: %w", v, err)
		}
		cfg.MaxSnapshots = n
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration has usable values.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config error: port %d out of range", c.Port)
	}
	if c.MaxSnapshots <= 0 {
		return fmt.Errorf("config error: max snapshots must be positive")
	}
	if c.MaxSnapshots > wayback.MaxSampleSize {
		return fmt.Errorf("config error: max snapshots %d exceeds limit %d", c.MaxSnapshots, wayback.MaxSampleSize)
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
