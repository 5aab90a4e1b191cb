// Package config loads the service configuration from config.toml, an
// optional config.<env>.toml overlay and LABRECON_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/labrecon/pkg/database"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvLabreconEnv             = "LABRECON_ENV"
	EnvLabreconShutdownTimeout = "LABRECON_SHUTDOWN_TIMEOUT"
	EnvLabreconVersion         = "LABRECON_VERSION"
)

var databaseEnv = &database.Env{
	Driver:          "LABRECON_DB_DRIVER",
	Path:            "LABRECON_DB_PATH",
	Host:            "LABRECON_DB_HOST",
	Port:            "LABRECON_DB_PORT",
	Name:            "LABRECON_DB_NAME",
	User:            "LABRECON_DB_USER",
	Password:        "LABRECON_DB_PASSWORD",
	SSLMode:         "LABRECON_DB_SSL_MODE",
	MaxOpenConns:    "LABRECON_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "LABRECON_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "LABRECON_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "LABRECON_DB_CONN_TIMEOUT",
}

// Config is the root configuration for the labrecon service.
type Config struct {
	Server          ServerConfig    `toml:"server"`
	Database        database.Config `toml:"database"`
	API             APIConfig       `toml:"api"`
	Engine          EngineConfig    `toml:"engine"`
	Aliases         AliasesConfig   `toml:"aliases"`
	Logging         LoggingConfig   `toml:"logging"`
	ShutdownTimeout string          `toml:"shutdown_timeout"`
	Version         string          `toml:"version"`
}

// Env returns the LABRECON_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvLabreconEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	return parseDuration(c.ShutdownTimeout)
}

// Load builds the configuration in three layers: config.toml when present,
// then config.<LABRECON_ENV>.toml when present, then environment variables.
// Defaults fill whatever the layers leave empty.
func Load() (*Config, error) {
	cfg, err := readOptional(BaseConfigFile)
	if err != nil {
		return nil, err
	}

	if env := os.Getenv(EnvLabreconEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		overlay, err := readOptional(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}
	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Server.Merge(&overlay.Server)
	c.Database.Merge(&overlay.Database)
	c.API.Merge(&overlay.API)
	c.Engine.Merge(&overlay.Engine)
	c.Aliases.Merge(&overlay.Aliases)
	c.Logging.Merge(&overlay.Logging)
}

func (c *Config) finalize() error {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
	if v := os.Getenv(EnvLabreconShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvLabreconVersion); v != "" {
		c.Version = v
	}
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}

	sections := []struct {
		name     string
		finalize func() error
	}{
		{"server", c.Server.Finalize},
		{"database", func() error { return c.Database.Finalize(databaseEnv) }},
		{"api", c.API.Finalize},
		{"engine", c.Engine.Finalize},
		{"aliases", c.Aliases.Finalize},
		{"logging", c.Logging.Finalize},
	}
	for _, s := range sections {
		if err := s.finalize(); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}
	return nil
}

// readOptional decodes path into a Config. A missing file yields an empty
// Config so defaults and the environment can supply everything.
func readOptional(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}
