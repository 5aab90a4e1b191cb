package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/JaimeStill/labrecon/internal/config"
	"github.com/JaimeStill/labrecon/internal/infrastructure"
	"github.com/JaimeStill/labrecon/internal/schema"
	"github.com/JaimeStill/labrecon/pkg/database"
)

// Server owns the process: infrastructure, mounted modules and the listener.
type Server struct {
	infra  *infrastructure.Infrastructure
	http   *httpServer
	logger *slog.Logger
	// autoMigrate applies pending migrations at startup. Only SQLite does
	// this; PostgreSQL schemas are managed with cmd/migrate.
	autoMigrate bool
}

func NewServer(cfg *config.Config) (*Server, error) {
	infra, err := infrastructure.New(cfg)
	if err != nil {
		return nil, err
	}

	modules, err := NewModules(infra, cfg)
	if err != nil {
		return nil, err
	}
	router := buildRouter(infra.Lifecycle)
	modules.Mount(router)

	logger := infra.Logger.With("system", "server")
	logger.Info("server initialized", "addr", cfg.Server.Addr(), "database", cfg.Database.Driver)

	return &Server{
		infra:       infra,
		http:        newHTTPServer(&cfg.Server, router, infra.Logger),
		logger:      logger,
		autoMigrate: cfg.Database.Driver == database.DriverSQLite,
	}, nil
}

// Start registers every subsystem with the lifecycle coordinator and begins
// serving. Readiness flips once all startup hooks succeed.
func (s *Server) Start() error {
	if err := s.infra.Start(); err != nil {
		return err
	}
	if s.autoMigrate {
		s.infra.Lifecycle.OnStartup("schema", s.migrate)
	}
	if err := s.http.Start(s.infra.Lifecycle); err != nil {
		return err
	}

	go func() {
		if err := s.infra.Lifecycle.WaitForStartup(); err != nil {
			s.logger.Error("startup failed", "error", err)
			return
		}
		s.logger.Info("all subsystems ready")
	}()
	return nil
}

func (s *Server) migrate(ctx context.Context) error {
	if err := schema.Up(ctx, s.infra.Database.Connection(), s.infra.Database.Driver()); err != nil {
		return err
	}
	s.logger.Info("schema up to date")
	return nil
}

func (s *Server) Shutdown(timeout time.Duration) error {
	s.logger.Info("initiating shutdown", "timeout", timeout)
	return s.infra.Lifecycle.Shutdown(timeout)
}
