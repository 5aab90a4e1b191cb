package api

import (
	"log/slog"
	"net/http"

	"github.com/JaimeStill/labrecon/internal/aliases"
	"github.com/JaimeStill/labrecon/pkg/handlers"
	"github.com/JaimeStill/labrecon/pkg/routes"
)

// aliasFileHandler exposes a read-only alias file source. Editing happens in
// the file itself.
type aliasFileHandler struct {
	source *aliases.FileSource
	logger *slog.Logger
}

func newAliasFileHandler(source *aliases.FileSource, logger *slog.Logger) *aliasFileHandler {
	return &aliasFileHandler{
		source: source,
		logger: logger.With("handler", "aliases-file"),
	}
}

func (h *aliasFileHandler) routes() routes.Group {
	return routes.Group{
		Prefix: "/aliases",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/snapshot", Handler: h.snapshot},
			{Method: "POST", Pattern: "/reload", Handler: h.reload},
			{Method: "PUT", Pattern: "", Handler: h.readOnly},
			{Method: "DELETE", Pattern: "/{alias}", Handler: h.readOnly},
		},
	}
}

func (h *aliasFileHandler) snapshot(w http.ResponseWriter, r *http.Request) {
	s, err := h.source.Snapshot(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusServiceUnavailable, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, aliases.SnapshotView{
		Digest:  s.Digest(),
		Entries: s.Entries(),
	})
}

func (h *aliasFileHandler) reload(w http.ResponseWriter, r *http.Request) {
	if err := h.source.Reload(); err != nil {
		handlers.RespondError(w, h.logger, http.StatusUnprocessableEntity, err)
		return
	}
	h.snapshot(w, r)
}

func (h *aliasFileHandler) readOnly(w http.ResponseWriter, r *http.Request) {
	handlers.RespondError(w, h.logger, aliases.MapHTTPStatus(aliases.ErrReadOnly), aliases.ErrReadOnly)
}
