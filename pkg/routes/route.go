// Package routes declares HTTP routes as data so domain handlers can be
// registered on a mux and listed at startup.
package routes

import "net/http"

// Route binds an HTTP method and pattern to a handler.
type Route struct {
	Method  string
	Pattern string
	Handler http.HandlerFunc
}

// String renders the route as a ServeMux pattern ("GET /items/{id}").
func (r Route) String() string {
	return r.Method + " " + r.Pattern
}
