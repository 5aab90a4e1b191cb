package module

import (
	"maps"
	"net/http"
	"slices"
	"strings"
)

// Router sends each request to the module owning its first path segment.
// Requests no module owns go to a plain ServeMux.
type Router struct {
	modules  map[string]*Module
	fallback *http.ServeMux
}

// NewRouter returns a Router with no modules.
func NewRouter() *Router {
	return &Router{modules: map[string]*Module{}, fallback: http.NewServeMux()}
}

// Mount attaches m at its prefix, replacing any module already there.
func (r *Router) Mount(m *Module) {
	r.modules[m.prefix] = m
}

// HandleNative registers a route on the fallback mux, for endpoints such as
// probes that live outside every module.
func (r *Router) HandleNative(pattern string, handler http.HandlerFunc) {
	r.fallback.HandleFunc(pattern, handler)
}

// Prefixes lists mounted prefixes in sorted order.
func (r *Router) Prefixes() []string {
	return slices.Sorted(maps.Keys(r.modules))
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if p := req.URL.Path; len(p) > 1 {
		req.URL.Path = strings.TrimSuffix(p, "/")
	}

	segment, _, _ := strings.Cut(strings.TrimPrefix(req.URL.Path, "/"), "/")
	if m, ok := r.modules["/"+segment]; ok {
		m.Serve(w, req)
		return
	}
	r.fallback.ServeHTTP(w, req)
}
