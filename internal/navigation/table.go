// Package navigation declares the client-visible paths of the front-end and
// the view each one resolves to.
package navigation

import (
	"fmt"
	"strings"
)

// View identifiers bound by the stock routes.
const (
	DashboardView = "DashboardView"
	HistoryView   = "HistoryView"
)

// Route binds one path to a view, or redirects it elsewhere.
//
// Path segments written as {name} capture a parameter. When Props is set the
// captured parameters are forwarded to the view; otherwise they are dropped.
type Route struct {
	Path     string `json:"path"`
	Name     string `json:"name,omitempty"`
	View     string `json:"view,omitempty"`
	Redirect string `json:"redirect,omitempty"`
	Props    bool   `json:"props,omitempty"`
}

// IsRedirect reports whether the route redirects instead of rendering.
func (r Route) IsRedirect() bool { return r.Redirect != "" }

// Table is an ordered, immutable route table. The first matching route wins.
type Table struct {
	routes   []Route
	patterns []pattern
	byName   map[string]int
}

// NewTable validates routes and builds a table. Redirect targets given as a
// bare name ("dashboard") are resolved against the root ("/dashboard").
func NewTable(routes ...Route) (*Table, error) {
	t := &Table{
		routes:   make([]Route, 0, len(routes)),
		patterns: make([]pattern, 0, len(routes)),
		byName:   make(map[string]int, len(routes)),
	}
	seen := make(map[string]struct{}, len(routes))

	for i, r := range routes {
		if !strings.HasPrefix(r.Path, "/") {
			return nil, fmt.Errorf("%w: route %d: path %q must start with /", ErrInvalidRoute, i, r.Path)
		}
		p, err := compile(r.Path)
		if err != nil {
			return nil, fmt.Errorf("%w: route %d: %w", ErrInvalidRoute, i, err)
		}
		if _, dup := seen[p.key]; dup {
			return nil, fmt.Errorf("%w: duplicate path %q", ErrInvalidRoute, r.Path)
		}
		seen[p.key] = struct{}{}

		switch {
		case r.View == "" && r.Redirect == "":
			return nil, fmt.Errorf("%w: %q binds neither a view nor a redirect", ErrInvalidRoute, r.Path)
		case r.View != "" && r.Redirect != "":
			return nil, fmt.Errorf("%w: %q binds both a view and a redirect", ErrInvalidRoute, r.Path)
		}
		if r.Redirect != "" && !strings.HasPrefix(r.Redirect, "/") {
			r.Redirect = "/" + r.Redirect
		}
		if r.Name != "" {
			if _, dup := t.byName[r.Name]; dup {
				return nil, fmt.Errorf("%w: duplicate name %q", ErrInvalidRoute, r.Name)
			}
			t.byName[r.Name] = len(t.routes)
		}
		t.routes = append(t.routes, r)
		t.patterns = append(t.patterns, p)
	}

	for _, r := range t.routes {
		if !r.IsRedirect() {
			continue
		}
		target, ok := t.match(normalize(r.Redirect))
		if !ok || t.routes[target].IsRedirect() {
			return nil, fmt.Errorf("%w: %q redirects to %q which binds no view", ErrInvalidRoute, r.Path, r.Redirect)
		}
	}
	return t, nil
}

// Default returns the current production table: the root redirects to the
// dashboard, which is the only view.
func Default() *Table {
	t, err := NewTable(defaultRoutes()...)
	if err != nil {
		panic(err)
	}
	return t
}

// WithHistory returns the production table plus the history view, which
// receives the vehicle id from the path.
func WithHistory() *Table {
	routes := append(defaultRoutes(), Route{
		Path:  "/history/{id}",
		Name:  "History",
		View:  HistoryView,
		Props: true,
	})
	t, err := NewTable(routes...)
	if err != nil {
		panic(err)
	}
	return t
}

func defaultRoutes() []Route {
	return []Route{
		{Path: "/", Redirect: "dashboard"},
		{Path: "/dashboard", Name: "Dashboard", View: DashboardView},
	}
}

// Routes returns a copy of the table in declaration order.
func (t *Table) Routes() []Route {
	out := make([]Route, len(t.routes))
	copy(out, t.routes)
	return out
}

// Lookup returns the route registered under name.
func (t *Table) Lookup(name string) (Route, bool) {
	i, ok := t.byName[name]
	if !ok {
		return Route{}, false
	}
	return t.routes[i], true
}

// DefaultPath returns where the root path redirects, or "/" when the table
// has no root redirect.
func (t *Table) DefaultPath() string {
	for _, r := range t.routes {
		if r.Path == "/" && r.IsRedirect() {
			return r.Redirect
		}
	}
	return "/"
}

// Views returns the distinct view identifiers bound by the table.
func (t *Table) Views() []string {
	seen := make(map[string]struct{}, len(t.routes))
	var out []string
	for _, r := range t.routes {
		if r.View == "" {
			continue
		}
		if _, ok := seen[r.View]; ok {
			continue
		}
		seen[r.View] = struct{}{}
		out = append(out, r.View)
	}
	return out
}
