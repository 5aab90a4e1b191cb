package api

import (
	"github.com/JaimeStill/labrecon/internal/config"
	"github.com/JaimeStill/labrecon/internal/engine"
	"github.com/JaimeStill/labrecon/internal/infrastructure"
	"github.com/JaimeStill/labrecon/pkg/openapi"
	"github.com/JaimeStill/labrecon/pkg/pagination"
)

// Runtime extends Infrastructure with API-specific configuration.
type Runtime struct {
	*infrastructure.Infrastructure
	Pagination pagination.Config
	Thresholds engine.Thresholds
	Aliases    config.AliasesConfig
	OpenAPI    openapi.Config
	BasePath   string
	Version    string
}

// NewRuntime creates an API runtime with a module-scoped logger.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) *Runtime {
	return &Runtime{
		Infrastructure: &infrastructure.Infrastructure{
			Lifecycle: infra.Lifecycle,
			Logger:    infra.Logger.With("module", "api"),
			Database:  infra.Database,
		},
		Pagination: cfg.API.Pagination,
		Thresholds: cfg.Engine.Thresholds(),
		Aliases:    cfg.Aliases,
		OpenAPI:    cfg.API.OpenAPI,
		BasePath:   cfg.API.BasePath,
		Version:    cfg.Version,
	}
}
