package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/golang-migrate/migrate/v4"

	"github.com/JaimeStill/labrecon/internal/config"
	"github.com/JaimeStill/labrecon/internal/schema"
	"github.com/JaimeStill/labrecon/pkg/database"
)

func main() {
	var (
		driver  = flag.String("driver", "", "Database driver (postgres or sqlite); defaults to config")
		path    = flag.String("path", "", "SQLite database file; defaults to config")
		up      = flag.Bool("up", false, "Run all up migrations")
		down    = flag.Bool("down", false, "Run all down migrations")
		steps   = flag.Int("steps", 0, "Number of migrations (positive=up, negative=down)")
		version = flag.Bool("version", false, "Print current migration version")
		force   = flag.Int("force", -1, "Force set version (use with caution)")
	)
	flag.Parse()

	forceSet := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "force" {
			forceSet = true
		}
	})

	cfg, err := databaseConfig(*driver, *path)
	if err != nil {
		log.Fatalf("failed to load database config: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	db, err := database.New(cfg, logger)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Connection().Close()

	ctx := context.Background()
	if err := db.Check(ctx); err != nil {
		log.Fatalf("database unavailable: %v", err)
	}

	m, err := schema.New(ctx, db.Connection(), cfg.Driver)
	if err != nil {
		log.Fatalf("failed to create migrator: %v", err)
	}
	defer m.Close()

	switch {
	case *version:
		v, dirty, err := m.Version()
		if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
			log.Fatalf("failed to get version: %v", err)
		}
		fmt.Printf("version: %d, dirty: %v\n", v, dirty)
	case forceSet:
		if err := m.Force(*force); err != nil {
			log.Fatalf("failed to force version: %v", err)
		}
		fmt.Printf("forced to version %d\n", *force)
	case *up:
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatalf("failed to run up migrations: %v", err)
		}
		fmt.Println("migrations applied successfully")
	case *down:
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatalf("failed to run down migrations: %v", err)
		}
		fmt.Println("migrations reverted successfully")
	case *steps != 0:
		if err := m.Steps(*steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatalf("failed to run migrations: %v", err)
		}
		fmt.Printf("applied %d migration steps\n", *steps)
	default:
		fmt.Println("usage: migrate [-driver postgres|sqlite] [-path file.db] [-up|-down|-steps N|-version|-force N]")
		flag.PrintDefaults()
	}
}

// databaseConfig resolves connection settings from config.toml and
// LABRECON_DB_* variables, with flags taking precedence. A sqlite path flag
// alone is enough to migrate a local result store.
func databaseConfig(driver, path string) (*database.Config, error) {
	if path != "" && (driver == "" || driver == database.DriverSQLite) {
		cfg := &database.Config{Driver: database.DriverSQLite, Path: path}
		if err := cfg.Finalize(nil); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	full, err := config.Load()
	if err != nil {
		return nil, err
	}
	cfg := full.Database
	if driver != "" && driver != cfg.Driver {
		cfg.Driver = driver
		if err := cfg.Finalize(nil); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}
