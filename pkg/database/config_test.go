package database_test

import (
	"strings"
	"testing"
	"time"

	"github.com/JaimeStill/labrecon/pkg/database"
)

func TestFinalizeDefaults(t *testing.T) {
	cfg := database.Config{Name: "labrecon", User: "labrecon"}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	tests := []struct {
		name     string
		got      any
		expected any
	}{
		{"driver", cfg.Driver, database.DriverPostgres},
		{"host", cfg.Host, "localhost"},
		{"port", cfg.Port, 5432},
		{"ssl_mode", cfg.SSLMode, "disable"},
		{"max_open_conns", cfg.MaxOpenConns, 25},
		{"max_idle_conns", cfg.MaxIdleConns, 5},
		{"conn_max_lifetime", cfg.ConnMaxLifetime, "15m"},
		{"conn_timeout", cfg.ConnTimeout, "5s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("got %v, want %v", tt.got, tt.expected)
			}
		})
	}
}

func TestFinalizeSQLiteDefaults(t *testing.T) {
	cfg := database.Config{Driver: database.DriverSQLite, Path: "labrecon.db"}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	if cfg.MaxOpenConns != 1 {
		t.Errorf("max_open_conns = %d, want 1 for sqlite", cfg.MaxOpenConns)
	}
	if cfg.DriverName() != "sqlite" {
		t.Errorf("DriverName() = %q, want sqlite", cfg.DriverName())
	}
}

func TestFinalizeEnvOverrides(t *testing.T) {
	t.Setenv("TEST_DB_DRIVER", "postgres")
	t.Setenv("TEST_DB_HOST", "remotehost")
	t.Setenv("TEST_DB_PORT", "5433")
	t.Setenv("TEST_DB_NAME", "envdb")
	t.Setenv("TEST_DB_USER", "envuser")
	t.Setenv("TEST_DB_PASSWORD", "envpass")
	t.Setenv("TEST_DB_SSL_MODE", "require")
	t.Setenv("TEST_DB_MAX_OPEN", "50")
	t.Setenv("TEST_DB_TIMEOUT", "10s")

	env := &database.Env{
		Driver:       "TEST_DB_DRIVER",
		Host:         "TEST_DB_HOST",
		Port:         "TEST_DB_PORT",
		Name:         "TEST_DB_NAME",
		User:         "TEST_DB_USER",
		Password:     "TEST_DB_PASSWORD",
		SSLMode:      "TEST_DB_SSL_MODE",
		MaxOpenConns: "TEST_DB_MAX_OPEN",
		ConnTimeout:  "TEST_DB_TIMEOUT",
	}

	cfg := database.Config{}
	if err := cfg.Finalize(env); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	tests := []struct {
		name     string
		got      any
		expected any
	}{
		{"driver", cfg.Driver, "postgres"},
		{"host", cfg.Host, "remotehost"},
		{"port", cfg.Port, 5433},
		{"name", cfg.Name, "envdb"},
		{"user", cfg.User, "envuser"},
		{"password", cfg.Password, "envpass"},
		{"ssl_mode", cfg.SSLMode, "require"},
		{"max_open_conns", cfg.MaxOpenConns, 50},
		{"conn_timeout", cfg.ConnTimeout, "10s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("got %v, want %v", tt.got, tt.expected)
			}
		})
	}
}

func TestFinalizeSQLitePathFromEnv(t *testing.T) {
	t.Setenv("TEST_DB_DRIVER", "sqlite")
	t.Setenv("TEST_DB_PATH", "/var/lib/labrecon/results.db")

	cfg := database.Config{}
	if err := cfg.Finalize(&database.Env{Driver: "TEST_DB_DRIVER", Path: "TEST_DB_PATH"}); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	want := "file:/var/lib/labrecon/results.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	if got := cfg.Dsn(); got != want {
		t.Errorf("Dsn() = %q, want %q", got, want)
	}
	if cfg.MaxOpenConns != 1 {
		t.Errorf("max_open_conns = %d, want 1 for a driver chosen by env", cfg.MaxOpenConns)
	}
}

func TestFinalizeValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     database.Config
		wantErr string
	}{
		{"missing name", database.Config{User: "labrecon"}, "name required"},
		{"missing user", database.Config{Name: "labrecon"}, "user required"},
		{"sqlite missing path", database.Config{Driver: "sqlite"}, "path required"},
		{"unknown driver", database.Config{Driver: "oracle"}, "unsupported database driver"},
		{
			"invalid conn_max_lifetime",
			database.Config{Name: "labrecon", User: "labrecon", ConnMaxLifetime: "bad"},
			"invalid conn_max_lifetime",
		},
		{
			"invalid conn_timeout",
			database.Config{Name: "labrecon", User: "labrecon", ConnTimeout: "bad"},
			"invalid conn_timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Finalize(nil)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestMerge(t *testing.T) {
	base := database.Config{
		Driver: "postgres",
		Host:   "localhost",
		Port:   5432,
		Name:   "basedb",
		User:   "baseuser",
	}

	base.Merge(&database.Config{Driver: "sqlite", Path: "local.db", Port: 5433})

	if base.Driver != "sqlite" || base.Path != "local.db" {
		t.Errorf("driver/path = %s/%s, want sqlite/local.db", base.Driver, base.Path)
	}
	if base.Port != 5433 {
		t.Errorf("port: got %d, want 5433", base.Port)
	}
	if base.User != "baseuser" {
		t.Errorf("user should remain baseuser, got %s", base.User)
	}

	base.Merge(&database.Config{})
	if base.Host != "localhost" {
		t.Errorf("zero overlay changed host to %q", base.Host)
	}
}

func TestPostgresDsn(t *testing.T) {
	cfg := database.Config{
		Host:     "localhost",
		Port:     5432,
		Name:     "labrecon",
		User:     "labrecon",
		Password: "secret",
		SSLMode:  "disable",
	}

	want := "host=localhost port=5432 dbname=labrecon user=labrecon password=secret sslmode=disable"
	if got := cfg.Dsn(); got != want {
		t.Errorf("dsn:\ngot  %s\nwant %s", got, want)
	}
}

func TestDurationParsers(t *testing.T) {
	cfg := database.Config{ConnMaxLifetime: "15m", ConnTimeout: "5s"}

	if d := cfg.ConnMaxLifetimeDuration(); d != 15*time.Minute {
		t.Errorf("conn_max_lifetime: got %v, want 15m", d)
	}
	if d := cfg.ConnTimeoutDuration(); d != 5*time.Second {
		t.Errorf("conn_timeout: got %v, want 5s", d)
	}
}
