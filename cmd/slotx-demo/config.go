package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values for the demo configuration.
const (
	DefaultStoreDriver = "memory"
	DefaultInterval    = time.Second
	DefaultRunFor      = 10 * time.Second
)

// Config holds the demo settings parsed from the config file.
type Config struct {
	// Store selects the backing store the maintainer persists to.
	Store StoreConfig `yaml:"store"`

	// Interval is the period between maintenance ticks (default 1s).
	Interval time.Duration `yaml:"interval"`

	// RunFor is how long the demo runs before shutting down (default 10s).
	RunFor time.Duration `yaml:"run_for"`

	// LogLevel is one of: debug | info | warn | error.
	LogLevel string `yaml:"log_level"`
}

// StoreConfig selects and configures the backing store.
type StoreConfig struct {
	// Driver is one of: memory | sqlite | mysql | postgres.
	Driver string `yaml:"driver"`

	// DSN is the database connection string for SQL drivers.
	DSN string `yaml:"dsn"`
}

// LoadConfig reads and parses the config file at path. An empty path yields
// the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := defaults()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("demo config: read %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("demo config: parse yaml: %w", err)
	}
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("demo config: %w", err)
	}
	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Store:    StoreConfig{Driver: DefaultStoreDriver},
		Interval: DefaultInterval,
		RunFor:   DefaultRunFor,
		LogLevel: "info",
	}
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	switch cfg.Store.Driver {
	case "memory":
	case "sqlite", "mysql", "postgres":
		if cfg.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required for driver %q", cfg.Store.Driver)
		}
	default:
		return fmt.Errorf("store.driver %q unknown: want memory|sqlite|mysql|postgres", cfg.Store.Driver)
	}
	if cfg.Interval <= 0 {
		return fmt.Errorf("interval must be positive")
	}
	if cfg.RunFor <= 0 {
		return fmt.Errorf("run_for must be positive")
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "":
	default:
		return fmt.Errorf("log_level %q unknown: want debug|info|warn|error", cfg.LogLevel)
	}
	return nil
}
