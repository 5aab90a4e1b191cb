package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	EnvServerHost            = "LABRECON_SERVER_HOST"
	EnvServerPort            = "LABRECON_SERVER_PORT"
	EnvServerReadTimeout     = "LABRECON_SERVER_READ_TIMEOUT"
	EnvServerWriteTimeout    = "LABRECON_SERVER_WRITE_TIMEOUT"
	EnvServerIdleTimeout     = "LABRECON_SERVER_IDLE_TIMEOUT"
	EnvServerShutdownTimeout = "LABRECON_SERVER_SHUTDOWN_TIMEOUT"
)

// ServerConfig holds HTTP server parameters. Timeouts are Go duration
// strings; a run over a large month can take a while to upload, so the read
// and write timeouts are generous.
type ServerConfig struct {
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	ReadTimeout     string `toml:"read_timeout"`
	WriteTimeout    string `toml:"write_timeout"`
	IdleTimeout     string `toml:"idle_timeout"`
	ShutdownTimeout string `toml:"shutdown_timeout"`
}

type durationSetting struct {
	name  string
	value *string
	def   string
	env   string
}

func (c *ServerConfig) durations() []durationSetting {
	return []durationSetting{
		{"read_timeout", &c.ReadTimeout, "2m", EnvServerReadTimeout},
		{"write_timeout", &c.WriteTimeout, "5m", EnvServerWriteTimeout},
		{"idle_timeout", &c.IdleTimeout, "2m", EnvServerIdleTimeout},
		{"shutdown_timeout", &c.ShutdownTimeout, "30s", EnvServerShutdownTimeout},
	}
}

// Addr returns the host:port listen address.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ReadTimeoutDuration returns ReadTimeout as a time.Duration.
func (c *ServerConfig) ReadTimeoutDuration() time.Duration { return parseDuration(c.ReadTimeout) }

// WriteTimeoutDuration returns WriteTimeout as a time.Duration.
func (c *ServerConfig) WriteTimeoutDuration() time.Duration { return parseDuration(c.WriteTimeout) }

// IdleTimeoutDuration returns IdleTimeout as a time.Duration.
func (c *ServerConfig) IdleTimeoutDuration() time.Duration { return parseDuration(c.IdleTimeout) }

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *ServerConfig) ShutdownTimeoutDuration() time.Duration {
	return parseDuration(c.ShutdownTimeout)
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *ServerConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *ServerConfig) Merge(overlay *ServerConfig) {
	if overlay.Host != "" {
		c.Host = overlay.Host
	}
	if overlay.Port != 0 {
		c.Port = overlay.Port
	}

	from := overlay.durations()
	for i, d := range c.durations() {
		if v := *from[i].value; v != "" {
			*d.value = v
		}
	}
}

func (c *ServerConfig) loadDefaults() {
	if c.Host == "" {
		c.Host = "0.0.0.0"
	}
	if c.Port == 0 {
		c.Port = 8080
	}
	for _, d := range c.durations() {
		if *d.value == "" {
			*d.value = d.def
		}
	}
}

func (c *ServerConfig) loadEnv() {
	if v := os.Getenv(EnvServerHost); v != "" {
		c.Host = v
	}
	if v := os.Getenv(EnvServerPort); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Port = port
		}
	}
	for _, d := range c.durations() {
		if v := os.Getenv(d.env); v != "" {
			*d.value = v
		}
	}
}

func (c *ServerConfig) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	for _, d := range c.durations() {
		if _, err := time.ParseDuration(*d.value); err != nil {
			return fmt.Errorf("invalid %s: %w", d.name, err)
		}
	}
	return nil
}

func parseDuration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}
