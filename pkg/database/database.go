// Package database opens the results database (PostgreSQL through pgx or
// SQLite through modernc) and ties its connection pool to the process
// lifecycle.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/JaimeStill/labrecon/pkg/lifecycle"
)

// System owns one connection pool.
type System interface {
	Connection() *sql.DB
	// Driver is DriverPostgres or DriverSQLite.
	Driver() string
	// Check pings within the configured connect timeout. Failures wrap
	// ErrNotReady.
	Check(ctx context.Context) error
	// Start pings on startup and closes the pool on shutdown.
	Start(lc *lifecycle.Coordinator) error
}

type pool struct {
	db      *sql.DB
	driver  string
	timeout time.Duration
	logger  *slog.Logger
}

// New configures a pool from cfg. sql.Open does not dial, so nothing touches
// the server until Check or Start.
func New(cfg *Config, logger *slog.Logger) (System, error) {
	db, err := sql.Open(cfg.DriverName(), cfg.Dsn())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetimeDuration())

	return &pool{
		db:      db,
		driver:  cfg.Driver,
		timeout: cfg.ConnTimeoutDuration(),
		logger:  logger.With("system", "database", "driver", cfg.Driver),
	}, nil
}

func (p *pool) Connection() *sql.DB { return p.db }

func (p *pool) Driver() string { return p.driver }

func (p *pool) Check(ctx context.Context) error {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	if err := p.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrNotReady, err)
	}
	return nil
}

func (p *pool) Start(lc *lifecycle.Coordinator) error {
	lc.OnStartup("database", p.connect)
	lc.OnShutdown("database", p.close)
	return nil
}

func (p *pool) connect(ctx context.Context) error {
	if err := p.Check(ctx); err != nil {
		p.logger.Error("database unreachable", "error", err)
		return err
	}
	stats := p.db.Stats()
	p.logger.Info("database connected", "max_open", stats.MaxOpenConnections)
	return nil
}

func (p *pool) close(context.Context) error {
	if err := p.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	p.logger.Info("database closed")
	return nil
}
