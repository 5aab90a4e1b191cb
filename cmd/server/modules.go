package main

import (
	"encoding/json"
	"net/http"

	"github.com/JaimeStill/labrecon/internal/api"
	"github.com/JaimeStill/labrecon/internal/config"
	"github.com/JaimeStill/labrecon/internal/infrastructure"
	"github.com/JaimeStill/labrecon/pkg/lifecycle"
	"github.com/JaimeStill/labrecon/pkg/module"
)

// Modules holds the mounted HTTP modules of the service.
type Modules struct {
	API *module.Module
}

func NewModules(infra *infrastructure.Infrastructure, cfg *config.Config) (*Modules, error) {
	apiModule, err := api.NewModule(cfg, infra)
	if err != nil {
		return nil, err
	}
	return &Modules{API: apiModule}, nil
}

func (m *Modules) Mount(router *module.Router) {
	router.Mount(m.API)
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}

func buildRouter(ready lifecycle.ReadinessChecker) *module.Router {
	router := module.NewRouter()

	router.HandleNative("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, "ok")
	})

	router.HandleNative("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if !ready.Ready() {
			writeStatus(w, http.StatusServiceUnavailable, "not ready")
			return
		}
		writeStatus(w, http.StatusOK, "ready")
	})

	return router
}
