package config

import (
	"fmt"
	"strings"

	"schemalens/internal/logging"
)

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level      string          `yaml:"level" json:"level,omitempty"`           // debug, info, warn, error
	Format     string          `yaml:"format" json:"format,omitempty"`         // json, text
	DebugMode  bool            `yaml:"debug_mode" json:"debug_mode,omitempty"` // Master toggle - false = warnings and errors only
	Categories map[string]bool `yaml:"categories" json:"categories,omitempty"` // Per-category toggles
}

// validateCategories rejects category toggles that name no logger.
func (c *LoggingConfig) validateCategories() error {
	known := make(map[string]bool)
	names := make([]string, 0, len(logging.AllCategories()))
	for _, cat := range logging.AllCategories() {
		known[string(cat)] = true
		names = append(names, string(cat))
	}
	for name := range c.Categories {
		if !known[name] {
			return fmt.Errorf("unknown log category: %s (valid: %s)", name, strings.Join(names, ", "))
		}
	}
	return nil
}

// LoggerConfig converts to the logging package's configuration.
func (c *LoggingConfig) LoggerConfig() logging.Config {
	return logging.Config{
		DebugMode:  c.DebugMode,
		Level:      c.Level,
		JSONFormat: c.Format == "json",
		Categories: c.Categories,
	}
}
