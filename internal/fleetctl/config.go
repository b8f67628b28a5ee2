// Package fleetctl implements the operator CLI: direct calls to the tracking
// API and inspection of the navigation table.
package fleetctl

import (
	"io"
	"time"
)

// Commands understood by Run.
const (
	CmdLatest            = "latest"
	CmdLatestByID        = "latest-by-id"
	CmdVehicle           = "vehicle"
	CmdVehicleByCategory = "vehicle-by-category"
	CmdAll               = "all"
	CmdRoutes            = "routes"
	CmdResolve           = "resolve"
)

// Config holds one CLI invocation.
type Config struct {
	Command  string        // Command to run
	BaseURL  string        // Overrides api_base_url when set
	ID       string        // Vehicle id for latest-by-id
	Category string        // Category for vehicle-by-category
	Data     string        // Raw JSON payload; replaces the id/category body
	Path     string        // Path for resolve
	Timeout  time.Duration // Per-call timeout; zero keeps the configured one
	History  bool          // Include the history view in routes/resolve
	Verbose  bool          // Enable debug logging
	Out      io.Writer     // Destination for results
}

// callResult is the outcome of one tracking call.
type callResult struct {
	Endpoint string
	Body     []byte
	Err      error
	Duration time.Duration
}
