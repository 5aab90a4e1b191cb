// Package schema embeds the SQL migrations for each supported database driver
// and applies them with golang-migrate.
package schema

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed postgres/*.sql sqlite/*.sql
var migrations embed.FS

// ErrUnsupportedDriver is returned for drivers without embedded migrations.
var ErrUnsupportedDriver = errors.New("no migrations for driver")

// Migrator wraps a golang-migrate instance bound to an open database.
// Close releases migrate's resources without closing the shared *sql.DB.
type Migrator struct {
	*migrate.Migrate
	release func() error
}

// Close releases the dedicated connection held for postgres migrations.
func (m *Migrator) Close() error {
	if m.release != nil {
		return m.release()
	}
	return nil
}

// New binds the embedded migrations for driver ("postgres" or "sqlite") to db.
func New(ctx context.Context, db *sql.DB, driver string) (*Migrator, error) {
	source, err := iofs.New(migrations, driver)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDriver, driver)
	}

	var (
		target  database.Driver
		release func() error
	)

	switch driver {
	case "postgres":
		conn, err := db.Conn(ctx)
		if err != nil {
			return nil, fmt.Errorf("acquire migration connection: %w", err)
		}
		target, err = postgres.WithConnection(ctx, conn, &postgres.Config{})
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("postgres migration driver: %w", err)
		}
		release = target.Close
	case "sqlite":
		target, err = sqlite.WithInstance(db, &sqlite.Config{})
		if err != nil {
			return nil, fmt.Errorf("sqlite migration driver: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDriver, driver)
	}

	m, err := migrate.NewWithInstance("iofs", source, driver, target)
	if err != nil {
		if release != nil {
			release()
		}
		return nil, fmt.Errorf("create migrator: %w", err)
	}

	return &Migrator{Migrate: m, release: release}, nil
}

// Up applies all pending migrations. An up-to-date schema is not an error.
func Up(ctx context.Context, db *sql.DB, driver string) error {
	m, err := New(ctx, db, driver)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
