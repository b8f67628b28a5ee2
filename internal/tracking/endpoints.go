// Package tracking is the access layer for the remote vehicle/GPS tracking API.
//
// Every exported call issues exactly one POST to a fixed endpoint URL and
// returns the response body untouched. Failures are logged once and handed
// back to the caller; nothing is retried, cached or substituted.
package tracking

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Endpoint is the logical name of one remote resource.
type Endpoint string

// Known endpoints. Each one is used by exactly one Client method.
const (
	LatestRecord      Endpoint = "latest_record"
	LatestRecordByID  Endpoint = "latest_record_by_id"
	Vehicle           Endpoint = "vehicle"
	VehicleByCategory Endpoint = "vehicle_by_category"
)

// DefaultBaseURL is the production tracking API root.
const DefaultBaseURL = "https://apigps.findingoillosses.com/api/"

var knownEndpoints = []Endpoint{LatestRecord, LatestRecordByID, Vehicle, VehicleByCategory} //nolint:gochecknoglobals // fixed set

var defaultPaths = map[string]string{ //nolint:gochecknoglobals // fixed set
	string(LatestRecord):      "latestRecords",
	string(LatestRecordByID):  "latestRecordById",
	string(Vehicle):           "vehicle",
	string(VehicleByCategory): "vehicleByCategory",
}

// KnownEndpoints returns every endpoint name the client serves.
func KnownEndpoints() []Endpoint {
	out := make([]Endpoint, len(knownEndpoints))
	copy(out, knownEndpoints)
	return out
}

// ParseEndpoint maps a name to an Endpoint.
func ParseEndpoint(name string) (Endpoint, error) {
	e := Endpoint(strings.ToLower(strings.TrimSpace(name)))
	for _, k := range knownEndpoints {
		if k == e {
			return e, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownEndpoint, name)
}

// Endpoints is an immutable mapping from endpoint name to absolute URL.
// The zero value has no URLs; build one with NewEndpoints or ResolveEndpoints.
type Endpoints struct {
	urls map[Endpoint]string
}

// NewEndpoints validates and copies urls. Every known endpoint must be present
// and map to an absolute http or https URL.
func NewEndpoints(urls map[Endpoint]string) (Endpoints, error) {
	out := make(map[Endpoint]string, len(knownEndpoints))
	for key, raw := range urls {
		name, err := ParseEndpoint(string(key))
		if err != nil {
			return Endpoints{}, err
		}
		if err := checkURL(raw); err != nil {
			return Endpoints{}, fmt.Errorf("%w: %s: %w", ErrInvalidEndpoint, name, err)
		}
		out[name] = raw
	}
	for _, name := range knownEndpoints {
		if _, ok := out[name]; !ok {
			return Endpoints{}, fmt.Errorf("%w: %s is not configured", ErrInvalidEndpoint, name)
		}
	}
	return Endpoints{urls: out}, nil
}

// ResolveEndpoints resolves each path against base. Paths are relative
// references; an absolute URL in paths replaces the base for that endpoint.
// Names missing from paths fall back to the default paths.
func ResolveEndpoints(base string, paths map[string]string) (Endpoints, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return Endpoints{}, fmt.Errorf("%w: base url: %w", ErrInvalidEndpoint, err)
	}
	if !baseURL.IsAbs() {
		return Endpoints{}, fmt.Errorf("%w: base url %q is not absolute", ErrInvalidEndpoint, base)
	}
	// Without a trailing slash the last path segment would be replaced.
	if !strings.HasSuffix(baseURL.Path, "/") {
		baseURL.Path += "/"
	}

	merged := make(map[string]string, len(defaultPaths))
	for name, p := range defaultPaths {
		merged[name] = p
	}
	for name, p := range paths {
		merged[name] = p
	}

	urls := make(map[Endpoint]string, len(merged))
	for name, p := range merged {
		e, err := ParseEndpoint(name)
		if err != nil {
			return Endpoints{}, err
		}
		ref, err := url.Parse(strings.TrimSpace(p))
		if err != nil {
			return Endpoints{}, fmt.Errorf("%w: %s: %w", ErrInvalidEndpoint, name, err)
		}
		urls[e] = baseURL.ResolveReference(ref).String()
	}
	return NewEndpoints(urls)
}

// DefaultEndpoints returns the production endpoint URLs.
func DefaultEndpoints() Endpoints {
	e, err := ResolveEndpoints(DefaultBaseURL, nil)
	if err != nil {
		panic(err)
	}
	return e
}

// URL returns the URL bound to name.
func (e Endpoints) URL(name Endpoint) (string, bool) {
	u, ok := e.urls[name]
	return u, ok
}

// All returns a copy of the endpoint map.
func (e Endpoints) All() map[Endpoint]string {
	out := make(map[Endpoint]string, len(e.urls))
	for k, v := range e.urls {
		out[k] = v
	}
	return out
}

// String lists the endpoints in name order.
func (e Endpoints) String() string {
	names := make([]string, 0, len(e.urls))
	for k := range e.urls {
		names = append(names, string(k))
	}
	sort.Strings(names)
	var b strings.Builder
	for i, n := range names {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(n)
		b.WriteString("=")
		b.WriteString(e.urls[Endpoint(n)])
	}
	return b.String()
}

func checkURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host in %q", raw)
	}
	return nil
}
