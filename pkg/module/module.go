// Package module mounts self-contained HTTP modules under single-level path
// prefixes, each with its own middleware stack.
package module

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/JaimeStill/labrecon/pkg/middleware"
)

var errPrefix = errors.New("module prefix must be a single segment like /api")

// Module serves an inner router below a fixed prefix. The inner router sees
// paths with the prefix removed.
type Module struct {
	prefix string
	inner  http.Handler
	stack  middleware.System

	build   sync.Once
	handler http.Handler
}

// New creates a Module mounted at prefix. It panics when prefix is not a
// single segment with a leading slash, since that is a wiring mistake.
func New(prefix string, router http.Handler) *Module {
	if strings.Count(prefix, "/") != 1 || !strings.HasPrefix(prefix, "/") || len(prefix) < 2 {
		panic(fmt.Errorf("%w: %q", errPrefix, prefix))
	}
	return &Module{prefix: prefix, inner: router, stack: middleware.New()}
}

// Prefix returns the mount prefix.
func (m *Module) Prefix() string { return m.prefix }

// Use appends mw to the module stack. Calls after the first request are
// ignored because the stack is frozen then.
func (m *Module) Use(mw func(http.Handler) http.Handler) {
	m.stack.Use(mw)
}

// Handler returns the inner router wrapped by the module stack.
func (m *Module) Handler() http.Handler {
	m.build.Do(func() {
		m.handler = m.stack.Apply(m.inner)
	})
	return m.handler
}

// Serve removes the prefix from the request path and dispatches it.
func (m *Module) Serve(w http.ResponseWriter, req *http.Request) {
	inner := req.Clone(req.Context())
	inner.URL.Path = strings.TrimPrefix(req.URL.Path, m.prefix)
	if inner.URL.Path == "" {
		inner.URL.Path = "/"
	}
	inner.URL.RawPath = ""
	m.Handler().ServeHTTP(w, inner)
}
