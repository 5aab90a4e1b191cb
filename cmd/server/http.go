package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/JaimeStill/labrecon/internal/config"
	"github.com/JaimeStill/labrecon/pkg/lifecycle"
)

type httpServer struct {
	srv     *http.Server
	logger  *slog.Logger
	drain   time.Duration
	stopped chan struct{}
}

func newHTTPServer(cfg *config.ServerConfig, handler http.Handler, logger *slog.Logger) *httpServer {
	return &httpServer{
		srv: &http.Server{
			Addr:         cfg.Addr(),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeoutDuration(),
			WriteTimeout: cfg.WriteTimeoutDuration(),
			IdleTimeout:  cfg.IdleTimeoutDuration(),
			ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
		},
		logger:  logger.With("system", "http"),
		drain:   cfg.ShutdownTimeoutDuration(),
		stopped: make(chan struct{}),
	}
}

// Start binds the listen address before returning so a port already in use
// fails startup instead of surfacing later in a log line.
func (s *httpServer) Start(lc *lifecycle.Coordinator) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.srv.Addr, err)
	}

	go func() {
		defer close(s.stopped)
		s.logger.Info("server listening", "addr", ln.Addr().String())
		if err := s.srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server stopped", "error", err)
		}
	}()

	lc.OnShutdown("http", s.shutdown)
	return nil
}

func (s *httpServer) shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.drain)
	defer cancel()

	s.logger.Info("draining connections", "timeout", s.drain)
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	<-s.stopped
	s.logger.Info("server shutdown complete")
	return nil
}
