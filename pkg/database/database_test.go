package database_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/JaimeStill/labrecon/pkg/database"
	"github.com/JaimeStill/labrecon/pkg/lifecycle"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewPostgresIsLazy(t *testing.T) {
	cfg := database.Config{
		Driver:          database.DriverPostgres,
		Host:            "localhost",
		Port:            5432,
		Name:            "labrecon",
		User:            "labrecon",
		SSLMode:         "disable",
		MaxOpenConns:    42,
		MaxIdleConns:    7,
		ConnMaxLifetime: "10m",
		ConnTimeout:     "3s",
	}

	sys, err := database.New(&cfg, discard())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	conn := sys.Connection()
	defer conn.Close()

	if sys.Driver() != database.DriverPostgres {
		t.Errorf("Driver() = %q, want postgres", sys.Driver())
	}
	if got := conn.Stats().MaxOpenConnections; got != 42 {
		t.Errorf("MaxOpenConnections = %d, want 42", got)
	}
}

func TestSQLiteLifecycle(t *testing.T) {
	cfg := database.Config{
		Driver: database.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "labrecon.db"),
	}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	sys, err := database.New(&cfg, discard())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	lc := lifecycle.New()
	if err := sys.Start(lc); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := lc.WaitForStartup(); err != nil {
		t.Fatalf("WaitForStartup() error = %v", err)
	}

	var mode string
	if err := sys.Connection().QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}

	var fk int
	if err := sys.Connection().QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatalf("foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Errorf("foreign_keys = %d, want 1", fk)
	}

	if err := lc.Shutdown(5 * time.Second); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	if err := sys.Check(context.Background()); !errors.Is(err, database.ErrNotReady) {
		t.Errorf("Check() after shutdown = %v, want ErrNotReady", err)
	}
}
