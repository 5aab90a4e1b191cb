package config

import (
	"fmt"
	"log/slog"
	"os"
)

// Log output formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

const (
	EnvLogLevel  = "LABRECON_LOG_LEVEL"
	EnvLogFormat = "LABRECON_LOG_FORMAT"
)

// LoggingConfig controls the process-wide slog handler.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// SlogLevel returns Level as a slog.Level. Finalize guarantees it parses.
func (c *LoggingConfig) SlogLevel() slog.Level {
	var lvl slog.Level
	lvl.UnmarshalText([]byte(c.Level))
	return lvl
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *LoggingConfig) Finalize() error {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = LogFormatText
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Level = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		c.Format = v
	}

	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Level)); err != nil {
		return fmt.Errorf("invalid level %q", c.Level)
	}
	if c.Format != LogFormatText && c.Format != LogFormatJSON {
		return fmt.Errorf("unsupported format %q", c.Format)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay.
func (c *LoggingConfig) Merge(overlay *LoggingConfig) {
	if overlay.Level != "" {
		c.Level = overlay.Level
	}
	if overlay.Format != "" {
		c.Format = overlay.Format
	}
}
