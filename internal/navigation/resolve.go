package navigation

import (
	"fmt"
	"strings"

	"github.com/okian/fleetview/pkg/metrics"
)

// Resolution outcomes recorded in metrics.
const (
	outcomeView     = "view"
	outcomeRedirect = "redirect"
	outcomeMiss     = "miss"
	unmatchedRoute  = "unmatched"
)

// Match is the result of resolving a path.
type Match struct {
	Route Route
	// Params holds captured path parameters; nil unless Route.Props is set.
	Params map[string]string
	// RedirectTo is set when Route is a redirect.
	RedirectTo string
}

// Resolve finds the first route matching path. Redirects are reported, not
// followed. A trailing slash is ignored.
func (t *Table) Resolve(path string) (Match, error) {
	path = normalize(path)
	i, ok := t.match(path)
	if !ok {
		metrics.RecordRouteResolution(unmatchedRoute, outcomeMiss)
		return Match{}, fmt.Errorf("%w: %s", ErrNoRoute, path)
	}
	r := t.routes[i]
	if r.IsRedirect() {
		metrics.RecordRouteResolution(routeLabel(r), outcomeRedirect)
		return Match{Route: r, RedirectTo: r.Redirect}, nil
	}

	m := Match{Route: r}
	if r.Props {
		m.Params = t.patterns[i].capture(path)
	}
	metrics.RecordRouteResolution(routeLabel(r), outcomeView)
	return m, nil
}

func (t *Table) match(path string) (int, bool) {
	for i, p := range t.patterns {
		if p.matches(path) {
			return i, true
		}
	}
	return 0, false
}

func routeLabel(r Route) string {
	if r.Name != "" {
		return r.Name
	}
	return r.Path
}

func normalize(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "/"
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			return "/"
		}
	}
	return path
}

// pattern is a compiled route path.
type pattern struct {
	segments []segment
	// key identifies the path shape for duplicate detection: /a/{x} and /a/{y} collide.
	key string
}

type segment struct {
	literal string
	param   string
}

func compile(path string) (pattern, error) {
	path = normalize(path)
	if path == "/" {
		return pattern{key: "/"}, nil
	}
	parts := strings.Split(strings.TrimPrefix(path, "/"), "/")
	p := pattern{segments: make([]segment, len(parts))}
	keys := make([]string, len(parts))
	names := make(map[string]struct{}, len(parts))
	for i, part := range parts {
		switch {
		case part == "":
			return pattern{}, fmt.Errorf("empty segment in %q", path)
		case strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}"):
			name := part[1 : len(part)-1]
			if name == "" {
				return pattern{}, fmt.Errorf("unnamed parameter in %q", path)
			}
			if _, dup := names[name]; dup {
				return pattern{}, fmt.Errorf("parameter %q repeated in %q", name, path)
			}
			names[name] = struct{}{}
			p.segments[i] = segment{param: name}
			keys[i] = "{}"
		case strings.ContainsAny(part, "{}"):
			return pattern{}, fmt.Errorf("malformed segment %q in %q", part, path)
		default:
			p.segments[i] = segment{literal: part}
			keys[i] = part
		}
	}
	p.key = "/" + strings.Join(keys, "/")
	return p, nil
}

func (p pattern) matches(path string) bool {
	if len(p.segments) == 0 {
		return path == "/"
	}
	parts := strings.Split(strings.TrimPrefix(path, "/"), "/")
	if len(parts) != len(p.segments) {
		return false
	}
	for i, s := range p.segments {
		if parts[i] == "" {
			return false
		}
		if s.param == "" && s.literal != parts[i] {
			return false
		}
	}
	return true
}

func (p pattern) capture(path string) map[string]string {
	params := make(map[string]string)
	parts := strings.Split(strings.TrimPrefix(path, "/"), "/")
	for i, s := range p.segments {
		if s.param != "" && i < len(parts) {
			params[s.param] = parts[i]
		}
	}
	return params
}
