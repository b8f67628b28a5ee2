package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/okian/fleetview/internal/adapters/http/api"
	"github.com/okian/fleetview/internal/adapters/http/site"
	"github.com/okian/fleetview/internal/adapters/http/swagger"
	app "github.com/okian/fleetview/internal/app"
	"github.com/okian/fleetview/internal/config"
	"github.com/okian/fleetview/internal/navigation"
	"github.com/okian/fleetview/internal/tracking"
	"github.com/okian/fleetview/pkg/logger"
	"github.com/okian/fleetview/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	loggerInstance := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		loggerInstance.Error(ctx, "failed to load config", logger.Error(err))
		return
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := configureMetrics(cfg); err != nil {
		loggerInstance.Error(ctx, "failed to configure metrics", logger.Error(err))
		return
	}

	svc, err := newService(cfg, loggerInstance)
	if err != nil {
		loggerInstance.Error(ctx, "failed to build service", logger.Error(err))
		return
	}
	if err := svc.Start(ctx); err != nil {
		loggerInstance.Error(ctx, "failed to start service", logger.Error(err))
		return
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx)

	router, err := newRouter(ctx, svc)
	if err != nil {
		loggerInstance.Error(ctx, "failed to register routes", logger.Error(err))
		return
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		loggerInstance.Info(ctx, "starting HTTP server",
			logger.String("addr", cfg.Addr),
			logger.Bool("history_view", cfg.HistoryView),
			logger.Bool("metrics_enabled", cfg.MetricsEnabled),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			loggerInstance.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped")
}

// configureMetrics swaps in a disabled manager when metrics are turned off.
// Its collectors live on a throwaway registry so /healthz keeps serving the
// process registry untouched.
func configureMetrics(cfg *config.Config) error {
	if cfg.MetricsEnabled {
		return nil
	}
	return metrics.Use(metrics.NewManager(
		metrics.WithMetricsEnabled(false),
		metrics.WithPrometheusRegistry(prometheus.NewRegistry()),
	))
}

// newService builds the tracking client and navigation table from cfg.
func newService(cfg *config.Config, log logger.Logger) (*app.Service, error) {
	endpoints, err := tracking.ResolveEndpoints(cfg.APIBaseURL, cfg.Endpoints)
	if err != nil {
		return nil, fmt.Errorf("resolve endpoints: %w", err)
	}
	client := tracking.NewClient(endpoints,
		tracking.WithLogger(log.Named("tracking")),
		tracking.WithTimeout(cfg.RequestTimeout()),
		tracking.WithUserAgent(cfg.UserAgent),
	)

	table := navigation.Default()
	if cfg.HistoryView {
		table = navigation.WithHistory()
	}

	return app.New(
		app.WithLogger(log),
		app.WithTracker(client),
		app.WithTable(table),
		app.WithLiveInterval(cfg.LiveInterval()),
	), nil
}

// newRouter mounts the JSON API, the docs, the live channel and the page
// shell. The shell goes last so its routes never shadow the others.
func newRouter(ctx context.Context, svc *app.Service) (*mux.Router, error) {
	r := mux.NewRouter()

	api.NewServer(svc.Tracker(), svc.Table(), svc).Register(ctx, r)
	swagger.Register(ctx, r)
	r.Handle("/ws/latest", svc.Hub())

	if err := site.Register(ctx, r, svc.Table()); err != nil {
		return nil, err
	}
	return r, nil
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
