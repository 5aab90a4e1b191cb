package api

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/JaimeStill/labrecon/pkg/openapi"
	"github.com/JaimeStill/labrecon/pkg/routes"
)

var pathParam = regexp.MustCompile(`\{([a-z]+)\}`)

func success(description, schema string) map[int]*openapi.Response {
	return map[int]*openapi.Response{http.StatusOK: openapi.ResponseJSON(description, schema)}
}

func withErrors(responses map[int]*openapi.Response, statuses ...int) map[int]*openapi.Response {
	names := map[int]string{
		http.StatusBadRequest:         "BadRequest",
		http.StatusNotFound:           "NotFound",
		http.StatusMethodNotAllowed:   "MethodNotAllowed",
		http.StatusConflict:           "Conflict",
		http.StatusServiceUnavailable: "ServiceUnavailable",
	}
	for _, s := range statuses {
		responses[s] = openapi.ResponseRef(names[s])
	}
	return responses
}

// operations documents every route the API can register, keyed by mux
// pattern relative to the base path.
var operations = map[string]*openapi.Operation{
	"POST /reconciliations": {
		Summary:     "Run a reconciliation",
		Description: "Runs the engine over both row sets and stores the result. Identical input returns the stored record with 200.",
		Tags:        []string{"reconciliations"},
		RequestBody: openapi.RequestBodyJSON("RunCommand", true),
		Responses: withErrors(map[int]*openapi.Response{
			http.StatusCreated: openapi.ResponseJSON("Stored reconciliation", "Reconciliation"),
			http.StatusOK:      openapi.ResponseJSON("Existing reconciliation with the same content", "Reconciliation"),
		}, http.StatusBadRequest, http.StatusServiceUnavailable),
	},
	"GET /reconciliations": {
		Summary: "List reconciliations",
		Tags:    []string{"reconciliations"},
		Parameters: []*openapi.Parameter{
			openapi.QueryParam("page", "integer", "Page number", false),
			openapi.QueryParam("page_size", "integer", "Results per page", false),
			openapi.QueryParam("search", "string", "Name search", false),
			openapi.QueryParam("sort", "string", "Sort fields", false),
			openapi.QueryParam("status", "string", "completed (default) or archived", false),
			openapi.QueryParam("outcome", "string", "OK, WARNING or CRITICAL", false),
			openapi.QueryParam("degraded", "boolean", "Runs without an alias table", false),
		},
		Responses: success("Page of reconciliation summaries", "ReconciliationPage"),
	},
	"POST /reconciliations/search": {
		Summary:     "Search reconciliations",
		Tags:        []string{"reconciliations"},
		RequestBody: openapi.RequestBodyJSON("PageRequest", true),
		Responses:   withErrors(success("Page of reconciliation summaries", "ReconciliationPage"), http.StatusBadRequest),
	},
	"GET /reconciliations/{id}": {
		Summary:   "Get a reconciliation with its result",
		Tags:      []string{"reconciliations"},
		Responses: withErrors(success("Reconciliation", "Reconciliation"), http.StatusBadRequest, http.StatusNotFound),
	},
	"POST /reconciliations/{id}/divergences/{ref}/resolve": {
		Summary:     "Resolve a divergence",
		Description: "Marks one divergence as resolved. Resolution is one-way.",
		Tags:        []string{"reconciliations"},
		RequestBody: openapi.RequestBodyJSON("ResolveCommand", false),
		Responses: withErrors(success("Reconciliation", "Reconciliation"),
			http.StatusBadRequest, http.StatusNotFound, http.StatusConflict, http.StatusServiceUnavailable),
	},
	"POST /reconciliations/{id}/archive": {
		Summary: "Archive a reconciliation",
		Tags:    []string{"reconciliations"},
		Responses: withErrors(success("Reconciliation", "Reconciliation"),
			http.StatusBadRequest, http.StatusNotFound, http.StatusConflict, http.StatusServiceUnavailable),
	},
	"GET /aliases": {
		Summary:   "List procedure aliases",
		Tags:      []string{"aliases"},
		Responses: success("Page of aliases", "AliasPage"),
	},
	"POST /aliases/search": {
		Summary:     "Search procedure aliases",
		Tags:        []string{"aliases"},
		RequestBody: openapi.RequestBodyJSON("PageRequest", true),
		Responses:   withErrors(success("Page of aliases", "AliasPage"), http.StatusBadRequest),
	},
	"GET /aliases/snapshot": {
		Summary:   "Get the alias snapshot runs will use",
		Tags:      []string{"aliases"},
		Responses: withErrors(success("Alias snapshot", "SnapshotView"), http.StatusServiceUnavailable),
	},
	"POST /aliases/reload": {
		Summary:   "Reload the alias file",
		Tags:      []string{"aliases"},
		Responses: success("Alias snapshot", "SnapshotView"),
	},
	"PUT /aliases": {
		Summary:     "Create or replace an alias",
		Tags:        []string{"aliases"},
		RequestBody: openapi.RequestBodyJSON("Alias", true),
		Responses:   withErrors(success("Alias", "Alias"), http.StatusBadRequest, http.StatusMethodNotAllowed),
	},
	"DELETE /aliases/{alias}": {
		Summary: "Delete an alias",
		Tags:    []string{"aliases"},
		Responses: withErrors(map[int]*openapi.Response{
			http.StatusNoContent: {Description: "Deleted"},
		}, http.StatusNotFound, http.StatusMethodNotAllowed),
	},
}

func domainSchemas() map[string]*openapi.Schema {
	str := func(desc string) *openapi.Schema { return &openapi.Schema{Type: "string", Description: desc} }
	money := func(desc string) *openapi.Schema {
		return &openapi.Schema{Type: "string", Description: desc, Example: "1234.56"}
	}
	page := func(item string) *openapi.Schema {
		return &openapi.Schema{
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"data":        {Type: "array", Items: openapi.SchemaRef(item)},
				"total":       {Type: "integer"},
				"page":        {Type: "integer"},
				"page_size":   {Type: "integer"},
				"total_pages": {Type: "integer"},
			},
		}
	}
	rawRow := &openapi.Schema{
		Type: "object",
		Properties: map[string]*openapi.Schema{
			"patient":    str("Patient name as billed"),
			"procedure":  str("Procedure name as billed"),
			"amount":     {Description: "Amount as text (1.234,56 or 1234.56) or number"},
			"unit_count": {Type: "integer", Description: "Units billed; 0 means 1"},
			"line":       {Type: "integer", Description: "Source line for anomaly reports"},
		},
	}

	return map[string]*openapi.Schema{
		"RunCommand": {
			Type:     "object",
			Required: []string{"source_a", "source_b"},
			Properties: map[string]*openapi.Schema{
				"name":     str("Display name; defaults to a timestamp"),
				"source_a": {Type: "array", Items: rawRow},
				"source_b": {Type: "array", Items: rawRow},
				"thresholds": {
					Type: "object",
					Properties: map[string]*openapi.Schema{
						"amount_tolerance":            money("Per-procedure tolerance"),
						"critical_residual_threshold": money("Residual above which the run is CRITICAL"),
						"large_divergence_threshold":  money("Divergence impact above which the run is CRITICAL"),
					},
				},
			},
		},
		"ResolveCommand": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"notes":       str("Why the divergence is acceptable"),
				"resolved_by": str("Reviewer"),
			},
		},
		"Reconciliation": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":           {Type: "string", Format: "uuid"},
				"name":         str(""),
				"content_key":  {Type: "string", Description: "SHA-256 of canonical input, alias digest and thresholds", Pattern: "^[0-9a-f]{64}$"},
				"status":       {Type: "string", Enum: []any{"completed", "archived"}},
				"outcome":      {Type: "string", Enum: []any{"OK", "WARNING", "CRITICAL"}},
				"total_a":      money("Total of source A"),
				"total_b":      money("Total of source B"),
				"degraded":     {Type: "boolean", Description: "Run used an empty alias table"},
				"created_at":   {Type: "string", Format: "date-time"},
				"updated_at":   {Type: "string", Format: "date-time"},
				"result":       {Type: "object", Description: "Full engine result with resolutions applied"},
				"deduplicated": {Type: "boolean"},
			},
		},
		"ReconciliationPage": page("Reconciliation"),
		"Alias": {
			Type:     "object",
			Required: []string{"alias", "canonical"},
			Properties: map[string]*openapi.Schema{
				"alias":      str("Spelling found in extracts"),
				"canonical":  str("Canonical procedure name"),
				"updated_at": {Type: "string", Format: "date-time"},
			},
		},
		"AliasPage": page("Alias"),
		"SnapshotView": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"digest":  str("SHA-256 of the folded entries"),
				"entries": {Type: "object", Description: "Folded alias to canonical name"},
			},
		},
	}
}

// buildSpec documents the registered routes. Path parameters are derived
// from the mux patterns.
func buildSpec(cfg *openapi.Config, version, basePath string, groups []routes.Group) *openapi.Spec {
	spec := openapi.NewSpec(cfg.Title, version)
	spec.SetDescription(cfg.Description)
	spec.AddServer(basePath)
	spec.Components.AddSchemas(domainSchemas())

	for _, pattern := range routes.Patterns(groups...) {
		method, path, _ := strings.Cut(pattern, " ")

		op, ok := operations[pattern]
		if !ok {
			op = &openapi.Operation{Summary: pattern, Responses: map[int]*openapi.Response{}}
		}

		doc := *op
		doc.Parameters = append([]*openapi.Parameter(nil), op.Parameters...)
		for _, m := range pathParam.FindAllStringSubmatch(path, -1) {
			format := ""
			if m[1] == "id" {
				format = "uuid"
			}
			doc.Parameters = append(doc.Parameters, openapi.PathParam(m[1], "", format))
		}
		spec.AddOperation(method, path, &doc)
	}

	return spec
}
