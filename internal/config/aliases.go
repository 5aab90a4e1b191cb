package config

import (
	"fmt"
	"os"
	"strconv"
)

// Alias sources.
const (
	AliasSourceDatabase = "database"
	AliasSourceFile     = "file"
	AliasSourceNone     = "none"
)

const (
	EnvAliasesSource = "LABRECON_ALIASES_SOURCE"
	EnvAliasesFile   = "LABRECON_ALIASES_FILE"
	EnvAliasesWatch  = "LABRECON_ALIASES_WATCH"
)

// AliasesConfig selects where runs read procedure aliases from.
type AliasesConfig struct {
	Source string `toml:"source"`
	File   string `toml:"file"`
	// Watch reloads the alias file when it changes on disk.
	Watch *bool `toml:"watch"`
}

// WatchEnabled reports whether file changes should be followed.
func (c *AliasesConfig) WatchEnabled() bool {
	return c.Watch != nil && *c.Watch
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *AliasesConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *AliasesConfig) Merge(overlay *AliasesConfig) {
	if overlay.Source != "" {
		c.Source = overlay.Source
	}
	if overlay.File != "" {
		c.File = overlay.File
	}
	if overlay.Watch != nil {
		c.Watch = overlay.Watch
	}
}

func (c *AliasesConfig) loadDefaults() {
	if c.Source == "" {
		c.Source = AliasSourceDatabase
	}
	if c.Watch == nil {
		watch := true
		c.Watch = &watch
	}
}

func (c *AliasesConfig) loadEnv() {
	if v := os.Getenv(EnvAliasesSource); v != "" {
		c.Source = v
	}
	if v := os.Getenv(EnvAliasesFile); v != "" {
		c.File = v
	}
	if v := os.Getenv(EnvAliasesWatch); v != "" {
		if watch, err := strconv.ParseBool(v); err == nil {
			c.Watch = &watch
		}
	}
}

func (c *AliasesConfig) validate() error {
	switch c.Source {
	case AliasSourceDatabase, AliasSourceNone:
	case AliasSourceFile:
		if c.File == "" {
			return fmt.Errorf("file required for the file alias source")
		}
	default:
		return fmt.Errorf("unsupported alias source %q", c.Source)
	}
	return nil
}
