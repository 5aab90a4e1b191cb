package aliases

import (
	"log/slog"
	"net/http"

	"github.com/JaimeStill/labrecon/pkg/handlers"
	"github.com/JaimeStill/labrecon/pkg/pagination"
	"github.com/JaimeStill/labrecon/pkg/routes"
)

// Handler provides HTTP endpoints for alias management.
type Handler struct {
	sys        System
	logger     *slog.Logger
	pagination pagination.Config
}

// SearchRequest combines pagination and filter criteria for the search endpoint.
type SearchRequest struct {
	pagination.PageRequest
	Filters
}

// NewHandler creates a Handler with the given system, logger, and pagination config.
func NewHandler(sys System, logger *slog.Logger, pagination pagination.Config) *Handler {
	return &Handler{
		sys:        sys,
		logger:     logger.With("handler", "aliases"),
		pagination: pagination,
	}
}

// Routes returns the route group definition for alias endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/aliases",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List},
			{Method: "GET", Pattern: "/snapshot", Handler: h.Snapshot},
			{Method: "POST", Pattern: "/search", Handler: h.Search},
			{Method: "PUT", Pattern: "", Handler: h.Upsert},
			{Method: "DELETE", Pattern: "/{alias}", Handler: h.Delete},
		},
	}
}

// List returns a paginated list of aliases.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)
	filters := FiltersFromQuery(r.URL.Query())

	result, err := h.sys.List(r.Context(), page, filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Search accepts a JSON body with pagination and filter criteria.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	req.PageRequest.Normalize(h.pagination)

	result, err := h.sys.List(r.Context(), req.PageRequest, req.Filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Snapshot returns the effective, chain-flattened alias table and its digest.
func (h *Handler) Snapshot(w http.ResponseWriter, r *http.Request) {
	s, err := h.sys.Snapshot(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusServiceUnavailable, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, SnapshotView{
		Digest:  s.Digest(),
		Entries: s.Entries(),
	})
}

// Upsert creates or replaces an alias from an UpsertCommand body.
func (h *Handler) Upsert(w http.ResponseWriter, r *http.Request) {
	var cmd UpsertCommand
	if err := handlers.DecodeJSON(r, &cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	a, err := h.sys.Upsert(r.Context(), cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, a)
}

// Delete removes an alias. The path value is folded before lookup.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.sys.Delete(r.Context(), r.PathValue("alias")); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
