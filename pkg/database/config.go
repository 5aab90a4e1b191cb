package database

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Supported drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config describes one results database. PostgreSQL reads the host fields,
// SQLite reads Path.
type Config struct {
	Driver          string `toml:"driver"`
	Path            string `toml:"path"`
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	Name            string `toml:"name"`
	User            string `toml:"user"`
	Password        string `toml:"password"`
	SSLMode         string `toml:"ssl_mode"`
	MaxOpenConns    int    `toml:"max_open_conns"`
	MaxIdleConns    int    `toml:"max_idle_conns"`
	ConnMaxLifetime string `toml:"conn_max_lifetime"`
	ConnTimeout     string `toml:"conn_timeout"`
}

// Env names the environment variables that override Config fields. Empty
// names are skipped.
type Env struct {
	Driver          string
	Path            string
	Host            string
	Port            string
	Name            string
	User            string
	Password        string
	SSLMode         string
	MaxOpenConns    string
	MaxIdleConns    string
	ConnMaxLifetime string
	ConnTimeout     string
}

// ConnMaxLifetimeDuration returns ConnMaxLifetime parsed; Finalize has
// already rejected invalid values.
func (c *Config) ConnMaxLifetimeDuration() time.Duration {
	d, _ := time.ParseDuration(c.ConnMaxLifetime)
	return d
}

// ConnTimeoutDuration returns ConnTimeout parsed.
func (c *Config) ConnTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ConnTimeout)
	return d
}

// DriverName returns the database/sql driver registered for Driver.
func (c *Config) DriverName() string {
	if c.Driver == DriverSQLite {
		return "sqlite"
	}
	return "pgx"
}

// Dsn returns the connection string for the configured driver. SQLite
// connections enable WAL, foreign keys and a busy timeout so concurrent
// writers wait instead of failing immediately.
func (c *Config) Dsn() string {
	if c.Driver == DriverSQLite {
		return "file:" + c.Path +
			"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	}
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.Host, c.Port, c.Name, c.User, c.Password, c.SSLMode,
	)
}

// Finalize applies environment overrides, then defaults, then validation.
// Overrides come first so a driver picked through the environment still gets
// its own pool default.
func (c *Config) Finalize(env *Env) error {
	if env != nil {
		c.loadEnv(env)
	}
	c.loadDefaults()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	for _, f := range c.stringFields(overlay) {
		if *f.src != "" {
			*f.dst = *f.src
		}
	}
	for _, f := range c.intFields(overlay) {
		if *f.src != 0 {
			*f.dst = *f.src
		}
	}
}

type stringField struct{ dst, src *string }

type intField struct{ dst, src *int }

func (c *Config) stringFields(o *Config) []stringField {
	return []stringField{
		{&c.Driver, &o.Driver},
		{&c.Path, &o.Path},
		{&c.Host, &o.Host},
		{&c.Name, &o.Name},
		{&c.User, &o.User},
		{&c.Password, &o.Password},
		{&c.SSLMode, &o.SSLMode},
		{&c.ConnMaxLifetime, &o.ConnMaxLifetime},
		{&c.ConnTimeout, &o.ConnTimeout},
	}
}

func (c *Config) intFields(o *Config) []intField {
	return []intField{
		{&c.Port, &o.Port},
		{&c.MaxOpenConns, &o.MaxOpenConns},
		{&c.MaxIdleConns, &o.MaxIdleConns},
	}
}

func (c *Config) loadDefaults() {
	setDefault(&c.Driver, DriverPostgres)
	setDefault(&c.Host, "localhost")
	setDefault(&c.SSLMode, "disable")
	setDefault(&c.ConnMaxLifetime, "15m")
	setDefault(&c.ConnTimeout, "5s")

	if c.Port == 0 {
		c.Port = 5432
	}
	if c.MaxOpenConns == 0 {
		// SQLite serializes writers; one connection avoids SQLITE_BUSY churn.
		c.MaxOpenConns = 25
		if c.Driver == DriverSQLite {
			c.MaxOpenConns = 1
		}
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = 5
	}
}

func (c *Config) loadEnv(env *Env) {
	strs := map[string]*string{
		env.Driver:          &c.Driver,
		env.Path:            &c.Path,
		env.Host:            &c.Host,
		env.Name:            &c.Name,
		env.User:            &c.User,
		env.Password:        &c.Password,
		env.SSLMode:         &c.SSLMode,
		env.ConnMaxLifetime: &c.ConnMaxLifetime,
		env.ConnTimeout:     &c.ConnTimeout,
	}
	for name, dst := range strs {
		if v := getenv(name); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		env.Port:         &c.Port,
		env.MaxOpenConns: &c.MaxOpenConns,
		env.MaxIdleConns: &c.MaxIdleConns,
	}
	for name, dst := range ints {
		if n, err := strconv.Atoi(getenv(name)); err == nil {
			*dst = n
		}
	}
}

func (c *Config) validate() error {
	switch c.Driver {
	case DriverPostgres:
		if c.Name == "" {
			return fmt.Errorf("name required")
		}
		if c.User == "" {
			return fmt.Errorf("user required")
		}
	case DriverSQLite:
		if c.Path == "" {
			return fmt.Errorf("path required for sqlite driver")
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedDriver, c.Driver)
	}
	if _, err := time.ParseDuration(c.ConnMaxLifetime); err != nil {
		return fmt.Errorf("invalid conn_max_lifetime: %w", err)
	}
	if _, err := time.ParseDuration(c.ConnTimeout); err != nil {
		return fmt.Errorf("invalid conn_timeout: %w", err)
	}
	return nil
}

func setDefault(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}

// getenv treats an empty variable name as unset.
func getenv(name string) string {
	if name == "" {
		return ""
	}
	return os.Getenv(name)
}
