package api

import (
	"net/http"

	"github.com/JaimeStill/labrecon/pkg/openapi"
	"github.com/JaimeStill/labrecon/pkg/routes"
)

func registerRoutes(mux *http.ServeMux, domain *Domain, runtime *Runtime) error {
	groups := []routes.Group{domain.Reconciliations.Handler().Routes()}

	switch {
	case domain.Aliases != nil:
		groups = append(groups, domain.Aliases.Handler().Routes())
	case domain.AliasFile != nil:
		groups = append(groups, newAliasFileHandler(domain.AliasFile, runtime.Logger).routes())
	}

	routes.Register(mux, groups...)

	spec, err := openapi.MarshalJSON(buildSpec(&runtime.OpenAPI, runtime.Version, runtime.BasePath, groups))
	if err != nil {
		return err
	}
	mux.HandleFunc("GET "+runtime.OpenAPI.Path, openapi.ServeSpec(spec))

	runtime.Logger.Debug("routes registered", "patterns", routes.Patterns(groups...))
	return nil
}
