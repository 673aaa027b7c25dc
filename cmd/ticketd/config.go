package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/merklepass/merklepass/merkle"
)

// Config is the ticketd configuration, loadable from a YAML file and
// overridable by flags.
type Config struct {
	// DataDir holds snapshot.json (public) and tickets.cbor (private).
	DataDir string `yaml:"datadir"`

	// Depth is the Merkle tree depth used by `ticketd init`; capacity is
	// 2^depth tickets.
	Depth int `yaml:"depth"`

	// MaxAgeMs is the redemption validity window in milliseconds.
	MaxAgeMs int64 `yaml:"max_age_ms"`

	Log LogConfig `yaml:"log"`
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		DataDir:  "ticketd-data",
		Depth:    16,
		MaxAgeMs: 24 * 60 * 60 * 1000,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig reads a YAML config file merged over the defaults. An empty
// path returns the defaults unchanged.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration bounds.
func (c *Config) Validate() error {
	if c.Depth < 1 || c.Depth > merkle.MaxDepth {
		return fmt.Errorf("depth must be 1..%d, got %d", merkle.MaxDepth, c.Depth)
	}
	if c.MaxAgeMs < 0 {
		return fmt.Errorf("max_age_ms must be non-negative, got %d", c.MaxAgeMs)
	}
	if c.DataDir == "" {
		return fmt.Errorf("datadir must not be empty")
	}
	return nil
}
