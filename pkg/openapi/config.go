package openapi

import (
	"fmt"
	"os"
	"strings"
)

const (
	defaultTitle       = "labrecon API"
	defaultDescription = "Reconciles laboratory billing extracts and keeps the results for review."
	defaultPath        = "/openapi.json"
)

// Config holds the document metadata and the path it is served at,
// relative to the API base path.
type Config struct {
	Title       string `toml:"title"`
	Description string `toml:"description"`
	Path        string `toml:"path"`
}

// ConfigEnv names the environment variables that override Config.
type ConfigEnv struct {
	Title       string
	Description string
	Path        string
}

// Finalize applies defaults and environment variable overrides, then checks
// that Path is absolute.
func (c *Config) Finalize(env *ConfigEnv) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	if !strings.HasPrefix(c.Path, "/") {
		return fmt.Errorf("path must start with /: %q", c.Path)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	for dst, src := range map[*string]string{
		&c.Title:       overlay.Title,
		&c.Description: overlay.Description,
		&c.Path:        overlay.Path,
	} {
		if src != "" {
			*dst = src
		}
	}
}

func (c *Config) loadDefaults() {
	if c.Title == "" {
		c.Title = defaultTitle
	}
	if c.Description == "" {
		c.Description = defaultDescription
	}
	if c.Path == "" {
		c.Path = defaultPath
	}
}

func (c *Config) loadEnv(env *ConfigEnv) {
	for dst, name := range map[*string]string{
		&c.Title:       env.Title,
		&c.Description: env.Description,
		&c.Path:        env.Path,
	} {
		if name == "" {
			continue
		}
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
}
