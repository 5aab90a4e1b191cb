// Package api assembles the API module with all domain systems and route registration.
package api

import (
	"net/http"

	"github.com/JaimeStill/labrecon/internal/config"
	"github.com/JaimeStill/labrecon/internal/infrastructure"
	"github.com/JaimeStill/labrecon/pkg/middleware"
	"github.com/JaimeStill/labrecon/pkg/module"
)

// NewModule creates the API module with all domain handlers and middleware.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) (*module.Module, error) {
	runtime := NewRuntime(cfg, infra)
	domain, err := NewDomain(runtime)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	if err := registerRoutes(mux, domain, runtime); err != nil {
		return nil, err
	}

	m := module.New(cfg.API.BasePath, mux)
	m.Use(middleware.Logger(runtime.Infrastructure.Logger))
	m.Use(middleware.CORS(&cfg.API.CORS))
	m.Use(middleware.MaxBytes(cfg.API.MaxRequestSizeBytes()))

	return m, nil
}
