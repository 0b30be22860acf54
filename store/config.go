package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	toml "github.com/pelletier/go-toml/v2"
)

const defaultObserver = "slog"

// Config holds store initialization parameters.
type Config struct {
	// Observer names one or more registered observers, comma separated.
	Observer string `json:"observer,omitempty" toml:"observer" env:"STORE_OBSERVER"`
	// HistoryLimit bounds the retained commit history; negative disables it.
	HistoryLimit int `json:"history_limit,omitempty" toml:"history_limit" env:"STORE_HISTORY_LIMIT"`
	// SkipNoopNotify suppresses notification for commits that changed nothing.
	SkipNoopNotify bool `json:"skip_noop_notify,omitempty" toml:"skip_noop_notify" env:"STORE_SKIP_NOOP_NOTIFY"`
}

// DefaultConfig returns the default store configuration.
func DefaultConfig() Config {
	return Config{
		Observer:     defaultObserver,
		HistoryLimit: DefaultHistoryLimit,
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Observer != "" {
		c.Observer = source.Observer
	}
	if source.HistoryLimit != 0 {
		c.HistoryLimit = source.HistoryLimit
	}
	if source.SkipNoopNotify {
		c.SkipNoopNotify = true
	}
}

// ApplyEnv overlays STORE_* environment variables onto c. Unset variables
// leave the current values in place.
func (c *Config) ApplyEnv() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// LoadConfig reads a JSON or TOML (by .toml extension) config file, merges it
// with defaults, and returns the resulting Config.
func LoadConfig(filename string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var loaded Config
	if strings.EqualFold(filepath.Ext(filename), ".toml") {
		err = toml.Unmarshal(data, &loaded)
	} else {
		err = json.Unmarshal(data, &loaded)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Merge(&loaded)
	return &cfg, nil
}
