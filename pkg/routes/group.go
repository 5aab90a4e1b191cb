package routes

import "net/http"

// Group organizes routes under a common prefix. Children inherit the prefix.
type Group struct {
	Prefix   string
	Routes   []Route
	Children []Group
}

// Register adds all routes from the given groups to the mux.
func Register(mux *http.ServeMux, groups ...Group) {
	walk(groups, func(r Route) {
		mux.HandleFunc(r.String(), r.Handler)
	})
}

// Patterns returns the full mux pattern of every route in registration order.
func Patterns(groups ...Group) []string {
	var out []string
	walk(groups, func(r Route) {
		out = append(out, r.String())
	})
	return out
}

func walk(groups []Group, fn func(Route)) {
	for _, group := range groups {
		walkGroup("", group, fn)
	}
}

func walkGroup(parentPrefix string, group Group, fn func(Route)) {
	fullPrefix := parentPrefix + group.Prefix
	for _, route := range group.Routes {
		route.Pattern = fullPrefix + route.Pattern
		fn(route)
	}
	for _, child := range group.Children {
		walkGroup(fullPrefix, child, fn)
	}
}
