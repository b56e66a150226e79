// Package config loads schemalens configuration from YAML with environment
// overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config holds all schemalens configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`

	// Prompt assembly
	Prompt PromptConfig `yaml:"prompt"`

	// Persisted state
	Persist PersistConfig `yaml:"persist"`

	// Metrics
	Metrics MetricsConfig `yaml:"metrics"`
}

// PromptConfig configures the prompt assembler.
type PromptConfig struct {
	SectionHeaders    bool `yaml:"section_headers"`
	RenderProjections bool `yaml:"render_projections"` // schemas without a summarizer contribute their llm fields
	MaxChars          int  `yaml:"max_chars"`          // 0 = no limit
}

// PersistConfig configures the state store.
type PersistConfig struct {
	DatabasePath string `yaml:"database_path"`
	SnapshotDir  string `yaml:"snapshot_dir"`
}

// MetricsConfig configures metric reporting.
type MetricsConfig struct {
	Dump bool `yaml:"dump"` // print metrics to stderr when a command finishes
}

// envOverrides are the environment variables that win over the file.
type envOverrides struct {
	DatabasePath   string `env:"SCHEMALENS_DB"`
	LogLevel       string `env:"SCHEMALENS_LOG_LEVEL"`
	Debug          *bool  `env:"SCHEMALENS_DEBUG"`
	LogJSON        *bool  `env:"SCHEMALENS_LOG_JSON"`
	PromptMaxChars *int   `env:"SCHEMALENS_PROMPT_MAX_CHARS"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "schemalens",
		Version: "0.3.0",

		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},

		Prompt: PromptConfig{
			SectionHeaders:    true,
			RenderProjections: true,
		},

		Persist: PersistConfig{
			DatabasePath: "data/world.db",
			SnapshotDir:  "data/snapshots",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. Environment overrides apply in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	if o.DatabasePath != "" {
		c.Persist.DatabasePath = o.DatabasePath
	}
	if o.LogLevel != "" {
		c.Logging.Level = o.LogLevel
	}
	if o.Debug != nil {
		c.Logging.DebugMode = *o.Debug
	}
	if o.LogJSON != nil {
		if *o.LogJSON {
			c.Logging.Format = "json"
		} else {
			c.Logging.Format = "text"
		}
	}
	if o.PromptMaxChars != nil {
		c.Prompt.MaxChars = *o.PromptMaxChars
	}
	return nil
}

// ValidLogLevels lists the accepted logging levels.
var ValidLogLevels = []string{"debug", "info", "warn", "error"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validLevel := false
	for _, l := range ValidLogLevels {
		if c.Logging.Level == l {
			validLevel = true
			break
		}
	}
	if !validLevel {
		return fmt.Errorf("invalid log level: %s (valid: %v)", c.Logging.Level, ValidLogLevels)
	}

	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return fmt.Errorf("invalid log format: %s (valid: text, json)", c.Logging.Format)
	}

	if err := c.Logging.validateCategories(); err != nil {
		return err
	}

	if c.Prompt.MaxChars < 0 {
		return fmt.Errorf("prompt max_chars must not be negative, got %d", c.Prompt.MaxChars)
	}

	if c.Persist.DatabasePath == "" {
		return fmt.Errorf("persist database_path is empty")
	}

	return nil
}
