// Package config handles reading and writing clarity.yaml.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kivo360/clarity/core"
)

// Config is the top-level structure for clarity.yaml.
type Config struct {
	Version int           `yaml:"version"`
	Engine  EngineConfig  `yaml:"engine"`
	Storage StorageConfig `yaml:"storage"`
	Logging LoggingConfig `yaml:"logging"`
}

// EngineConfig controls thought processing behaviour.
type EngineConfig struct {
	MaxConflictRetries   int `yaml:"max_conflict_retries"`
	DefaultTotalThoughts int `yaml:"default_total_thoughts"`
	SessionTTL           int `yaml:"session_ttl"` // seconds; 0 disables cleanup
}

// StorageConfig selects and configures the session/thought store backend.
type StorageConfig struct {
	Backend string `yaml:"backend"` // "memory" | "sqlite"
	DSN     string `yaml:"dsn"`     // sqlite only
}

// LoggingConfig controls structured log output.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug" | "info" | "warn" | "error"
	Format string `yaml:"format"` // "text" | "json"
}

// Backends supported by StorageConfig.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// ReadConfig reads a Config from the given path. Returns an error if the
// file is not found or the YAML is malformed.
func ReadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return &cfg, nil
}

// WriteConfig writes cfg to the given path.
func WriteConfig(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Engine: EngineConfig{
			MaxConflictRetries:   3,
			DefaultTotalThoughts: 5,
			SessionTTL:           0,
		},
		Storage: StorageConfig{
			Backend: BackendMemory,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks the config for values the engine cannot run with.
func (c *Config) Validate() error {
	if c.Engine.MaxConflictRetries < 1 {
		return core.NewValidationError("engine.max_conflict_retries", "must be at least 1")
	}
	if c.Engine.DefaultTotalThoughts < 1 {
		return core.NewValidationError("engine.default_total_thoughts", "must be at least 1")
	}
	if c.Engine.SessionTTL < 0 {
		return core.NewValidationError("engine.session_ttl", "must not be negative")
	}
	switch c.Storage.Backend {
	case BackendMemory:
	case BackendSQLite:
		if c.Storage.DSN == "" {
			return core.NewValidationError("storage.dsn", "required for the sqlite backend")
		}
	default:
		return core.NewValidationError("storage.backend", fmt.Sprintf("unknown backend %q", c.Storage.Backend))
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return core.NewValidationError("logging.level", fmt.Sprintf("unknown level %q", c.Logging.Level))
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return core.NewValidationError("logging.format", fmt.Sprintf("unknown format %q", c.Logging.Format))
	}
	return nil
}
