package config

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/leapstack-labs/sqlshade/pkg/sqlshade"
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.TemplatesDir == "" {
		return fmt.Errorf("templates_dir is required")
	}
	if _, err := sqlshade.ParseStyle(c.Style); err != nil {
		return fmt.Errorf("invalid style %q: must be one of positional, named (or list, dict)", c.Style)
	}
	if !slices.Contains(ValidOutputs, c.OutputFormat) {
		return fmt.Errorf("invalid output %q: must be one of %s", c.OutputFormat, strings.Join(ValidOutputs, ", "))
	}
	if !slices.Contains(ValidLogLevels, strings.ToLower(c.LogLevel)) {
		return fmt.Errorf("invalid log_level %q: must be one of %s", c.LogLevel, strings.Join(ValidLogLevels, ", "))
	}
	if c.CacheSize <= 0 {
		return fmt.Errorf("cache_size must be positive, got %d", c.CacheSize)
	}
	return nil
}

// ParamStyle returns the configured bind marker style.
func (c *Config) ParamStyle() sqlshade.Style {
	style, err := sqlshade.ParseStyle(c.Style)
	if err != nil {
		return sqlshade.Positional
	}
	return style
}

// ValidateDirectories checks if required directories exist.
func (c *Config) ValidateDirectories() error {
	if _, err := os.Stat(c.TemplatesDir); os.IsNotExist(err) {
		return fmt.Errorf("templates directory does not exist: %s\nHint: Create the directory or use --templates-dir to specify a different path", c.TemplatesDir)
	}
	return nil
}
