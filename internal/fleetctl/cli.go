package fleetctl

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jessevdk/go-flags"

	"github.com/okian/fleetview/pkg/logger"
)

// Options are the flags every command accepts.
type Options struct {
	BaseURL  string        `short:"b" long:"base" description:"Override the tracking API base URL"`
	ID       string        `long:"id" description:"Vehicle id for latest-by-id"`
	Category string        `long:"category" description:"Category for vehicle-by-category"`
	Data     string        `short:"d" long:"data" description:"Raw JSON payload sent as is"`
	Path     string        `short:"p" long:"path" description:"Path to resolve"`
	Timeout  time.Duration `short:"t" long:"timeout" description:"Per-call timeout"`
	History  bool          `long:"history" description:"Include the history view"`
	Verbose  bool          `short:"v" long:"verbose" description:"Enable debug logging"`
}

// ParseArgs reads "<command> [options]" into a Config. Options may appear
// before or after the command.
func ParseArgs(args []string, out io.Writer) (*Config, error) {
	var opts Options
	rest, err := flags.NewParser(&opts, flags.None).ParseArgs(args)
	if err != nil {
		return nil, err
	}
	switch len(rest) {
	case 0:
		return nil, fmt.Errorf("%w: none given", ErrUnknownCommand)
	case 1:
	default:
		return nil, fmt.Errorf("unexpected arguments: %v", rest[1:])
	}
	return &Config{
		Command:  rest[0],
		BaseURL:  opts.BaseURL,
		ID:       opts.ID,
		Category: opts.Category,
		Data:     opts.Data,
		Path:     opts.Path,
		Timeout:  opts.Timeout,
		History:  opts.History,
		Verbose:  opts.Verbose,
		Out:      out,
	}, nil
}

// SetupLogging initializes the global logger. Tool output goes to Out, logs
// go to stdout at warn level unless verbose.
func SetupLogging(verbose bool) error {
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	level := "warn"
	if verbose {
		level = "debug"
	}
	return logger.SetLevelString(level)
}

// ShowHelp prints usage information for fleetctl.
func ShowHelp(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	_, _ = io.WriteString(w, `fleetctl
========

Operator tool for the vehicle tracking API and the fleetview navigation table.

Usage:
  fleetctl <command> [options]

Commands:
  latest                      Latest record for every vehicle
  latest-by-id --id ID        Latest record for one vehicle
  vehicle                     Vehicle listing
  vehicle-by-category --category C
                              Vehicles in one category
  all                         Call all four endpoints concurrently
  routes                      Print the navigation table
  resolve --path P            Resolve a path against the navigation table

Options:
  -b, --base string
        Override the tracking API base URL (FLEETVIEW_API_BASE_URL)
  -d, --data string
        Raw JSON payload for latest-by-id and vehicle-by-category
  -t, --timeout duration
        Per-call timeout (default from request_timeout_ms)
      --history
        Include the /history/{id} view in routes and resolve
  -v, --verbose
        Enable debug logging

Configuration is read the same way as the server: defaults, then the YAML
file named by FLEETVIEW_CONFIG, then FLEETVIEW_* environment variables.

Examples:
  fleetctl latest
  fleetctl latest-by-id --id 42
  fleetctl vehicle-by-category -d '{"category":"tanker"}'
  fleetctl all --base http://localhost:8081/api/
  fleetctl resolve --history --path /history/42
`)
}
