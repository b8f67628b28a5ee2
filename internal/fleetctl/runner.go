package fleetctl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/okian/fleetview/internal/config"
	"github.com/okian/fleetview/internal/navigation"
	"github.com/okian/fleetview/internal/tracking"
	"github.com/okian/fleetview/pkg/logger"
)

// callFunc is one bound tracking call.
type callFunc func(ctx context.Context) (tracking.Result, error)

// Run executes the command in cfg.
func Run(ctx context.Context, cfg *Config) error {
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}

	settings, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if cfg.BaseURL != "" {
		settings.APIBaseURL = cfg.BaseURL
	}
	if cfg.History {
		settings.HistoryView = true
	}

	switch cfg.Command {
	case CmdRoutes:
		return printRoutes(cfg.Out, tableFor(settings))
	case CmdResolve:
		return resolvePath(cfg.Out, tableFor(settings), cfg.Path)
	case CmdLatest, CmdLatestByID, CmdVehicle, CmdVehicleByCategory, CmdAll:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, cfg.Command)
	}

	client, err := newClient(settings, cfg.Timeout)
	if err != nil {
		return err
	}

	if cfg.Command == CmdAll {
		return callAll(ctx, cfg, client)
	}

	call, err := bind(cfg, client, cfg.Command, true)
	if err != nil {
		return err
	}
	res := invoke(ctx, cfg.Command, call)
	if res.Err != nil {
		return res.Err
	}
	return writeBody(cfg.Out, res.Body)
}

func tableFor(settings *config.Config) *navigation.Table {
	if settings.HistoryView {
		return navigation.WithHistory()
	}
	return navigation.Default()
}

func newClient(settings *config.Config, timeout time.Duration) (*tracking.Client, error) {
	endpoints, err := tracking.ResolveEndpoints(settings.APIBaseURL, settings.Endpoints)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = settings.RequestTimeout()
	}
	return tracking.NewClient(endpoints,
		tracking.WithLogger(logger.Get().Named("tracking")),
		tracking.WithTimeout(timeout),
		tracking.WithUserAgent(settings.UserAgent),
	), nil
}

// bind maps a command to its tracking call. With strict set, the payload
// commands require --id, --category or --data.
func bind(cfg *Config, client *tracking.Client, command string, strict bool) (callFunc, error) {
	switch command {
	case CmdLatest:
		return client.LatestRecord, nil
	case CmdVehicle:
		return client.Vehicle, nil
	case CmdLatestByID:
		payload, err := payloadFor(cfg.Data, "id", cfg.ID, strict)
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context) (tracking.Result, error) {
			return client.LatestRecordByID(ctx, payload)
		}, nil
	case CmdVehicleByCategory:
		payload, err := payloadFor(cfg.Data, "category", cfg.Category, strict)
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context) (tracking.Result, error) {
			return client.VehicleByCategory(ctx, payload)
		}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, command)
}

// payloadFor prefers raw --data, then {key: value}. Without either it returns
// nil, or ErrMissingFlag when strict.
func payloadFor(data, key, value string, strict bool) (any, error) {
	switch {
	case data != "":
		if !json.Valid([]byte(data)) {
			return nil, ErrInvalidPayload
		}
		return json.RawMessage(data), nil
	case value != "":
		return map[string]string{key: value}, nil
	case strict:
		return nil, fmt.Errorf("%w: --%s or --data", ErrMissingFlag, key)
	}
	return nil, nil
}

func invoke(ctx context.Context, name string, call callFunc) callResult {
	start := time.Now()
	body, err := call(ctx)
	res := callResult{Endpoint: name, Body: body, Err: err, Duration: time.Since(start)}
	logger.Get().Debug(ctx, "call finished",
		logger.String("command", name),
		logger.Duration("duration", res.Duration),
		logger.Int("bytes", len(body)),
	)
	return res
}

// callAll runs the four calls concurrently and prints them in a fixed order.
func callAll(ctx context.Context, cfg *Config, client *tracking.Client) error {
	commands := []string{CmdLatest, CmdLatestByID, CmdVehicle, CmdVehicleByCategory}
	calls := make([]callFunc, len(commands))
	for i, command := range commands {
		call, err := bind(cfg, client, command, false)
		if err != nil {
			return err
		}
		calls[i] = call
	}

	results := make([]callResult, len(commands))
	var wg sync.WaitGroup
	for i := range commands {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = invoke(ctx, commands[i], calls[i])
		}(i)
	}
	wg.Wait()

	var errs []error
	for _, res := range results {
		if res.Err != nil {
			errs = append(errs, res.Err)
			_, _ = fmt.Fprintf(cfg.Out, "== %s failed (%s): %v\n", res.Endpoint, res.Duration.Round(time.Millisecond), res.Err)
			continue
		}
		_, _ = fmt.Fprintf(cfg.Out, "== %s (%s)\n", res.Endpoint, res.Duration.Round(time.Millisecond))
		if err := writeBody(cfg.Out, res.Body); err != nil {
			return err
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrCallsFailed, errors.Join(errs...))
	}
	return nil
}

func writeBody(w io.Writer, body []byte) error {
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func printRoutes(w io.Writer, table *navigation.Table) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "PATH\tNAME\tTARGET\tPROPS")
	for _, r := range table.Routes() {
		target := r.View
		if r.IsRedirect() {
			target = "-> " + r.Redirect
		}
		name := r.Name
		if name == "" {
			name = "-"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%t\n", r.Path, name, target, r.Props)
	}
	return tw.Flush()
}

type resolution struct {
	Path       string            `json:"path"`
	Route      navigation.Route  `json:"route"`
	RedirectTo string            `json:"redirect_to,omitempty"`
	Params     map[string]string `json:"params,omitempty"`
}

func resolvePath(w io.Writer, table *navigation.Table, path string) error {
	if path == "" {
		return fmt.Errorf("%w: --path", ErrMissingFlag)
	}
	m, err := table.Resolve(path)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(resolution{Path: path, Route: m.Route, RedirectTo: m.RedirectTo, Params: m.Params})
}
