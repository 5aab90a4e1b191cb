// Package infrastructure assembles the process-wide dependencies every
// domain system receives: the lifecycle coordinator, the logger and the
// results database.
package infrastructure

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/JaimeStill/labrecon/internal/config"
	"github.com/JaimeStill/labrecon/pkg/database"
	"github.com/JaimeStill/labrecon/pkg/lifecycle"
	"github.com/JaimeStill/labrecon/pkg/query"
)

// Infrastructure is built once per process and shared by the domain systems.
type Infrastructure struct {
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger
	Database  database.System
}

// New wires the dependencies described by cfg without opening any
// connection; Start does that.
func New(cfg *config.Config) (*Infrastructure, error) {
	logger := NewLogger(&cfg.Logging, os.Stderr)

	db, err := database.New(&cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}

	return &Infrastructure{
		Lifecycle: lifecycle.New(),
		Logger:    logger,
		Database:  db,
	}, nil
}

// NewLogger builds the slog logger selected by cfg, writing to w.
func NewLogger(cfg *config.LoggingConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.Format == config.LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Dialect returns the SQL dialect of the configured database driver.
func (i *Infrastructure) Dialect() query.Dialect {
	return query.DialectFor(i.Database.Driver())
}

// Start hands the database to the lifecycle coordinator, which connects it
// during startup and closes it on shutdown.
func (i *Infrastructure) Start() error {
	if err := i.Database.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("database start failed: %w", err)
	}
	return nil
}
