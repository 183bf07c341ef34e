// Package config holds the validator service configuration.
package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"
)

// Config contains settings for the validation service.
type Config struct {
	// Addr is the listen address for the HTTP server.
	Addr string `yaml:"addr"`

	// DatabaseURL, when set, loads year deltas from postgres in addition
	// to the built-in catalogue.
	DatabaseURL string `yaml:"database_url"`

	// Workers bounds how many rules evaluate concurrently in one run.
	Workers int `yaml:"workers"`

	// RunTimeout cancels a validation run that takes longer than this.
	RunTimeout time.Duration `yaml:"run_timeout"`

	// DefaultYear is used when a request does not name a reporting year.
	// Zero means the latest configured year.
	DefaultYear int `yaml:"default_year"`

	// CatalogueFile optionally points at a YAML file of extra expression rules.
	CatalogueFile string `yaml:"catalogue_file"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Addr:       ":8080",
		Workers:    runtime.GOMAXPROCS(0),
		RunTimeout: 60 * time.Second,
	}
}

// FromEnv builds a configuration from Default, an optional YAML file named
// by VALIDATOR_CONFIG, and then environment variables, in that order.
func FromEnv() (Config, error) {
	cfg := Default()

	if path := os.Getenv("VALIDATOR_CONFIG"); path != "" {
		if err := LoadFile(path, &cfg); err != nil {
			return cfg, err
		}
	}

	if port := os.Getenv("PORT"); port != "" {
		cfg.Addr = ":" + port
	}
	if url := os.Getenv("DATABASE_URL"); url != "" {
		cfg.DatabaseURL = url
	}
	if v := os.Getenv("VALIDATOR_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid VALIDATOR_WORKERS %q: %w", v, err)
		}
		cfg.Workers = n
	}
	if v := os.Getenv("VALIDATOR_RUN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid VALIDATOR_RUN_TIMEOUT %q: %w", v, err)
		}
		cfg.RunTimeout = d
	}
	if v := os.Getenv("VALIDATOR_DEFAULT_YEAR"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid VALIDATOR_DEFAULT_YEAR %q: %w", v, err)
		}
		cfg.DefaultYear = n
	}
	if v := os.Getenv("VALIDATOR_CATALOGUE_FILE"); v != "" {
		cfg.CatalogueFile = v
	}

	return cfg, cfg.Validate()
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr is required")
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.RunTimeout <= 0 {
		return fmt.Errorf("run_timeout must be positive, got %s", c.RunTimeout)
	}
	if c.DefaultYear < 0 {
		return fmt.Errorf("default_year cannot be negative, got %d", c.DefaultYear)
	}
	return nil
}
