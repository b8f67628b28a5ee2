// Package service composes the tracking client, the navigation table and the
// live channel into one lifecycle-managed unit.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/okian/fleetview/internal/live"
	"github.com/okian/fleetview/internal/navigation"
	"github.com/okian/fleetview/internal/tracking"
	"github.com/okian/fleetview/pkg/logger"
	"github.com/okian/fleetview/pkg/metrics"
)

// Tracker is the access-layer surface the service and its adapters consume.
type Tracker interface {
	LatestRecord(ctx context.Context) (tracking.Result, error)
	LatestRecordByID(ctx context.Context, payload any) (tracking.Result, error)
	Vehicle(ctx context.Context) (tracking.Result, error)
	VehicleByCategory(ctx context.Context, payload any) (tracking.Result, error)
}

// Service owns the shared components of the front-end.
type Service struct {
	mu sync.RWMutex

	tracker      Tracker
	table        *navigation.Table
	hub          *live.Hub
	liveInterval time.Duration

	started   bool
	startedAt time.Time
	cancel    context.CancelFunc
	done      chan struct{}

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTracker sets the access layer.
func WithTracker(t Tracker) Option {
	return func(s *Service) {
		if t != nil {
			s.tracker = t
		}
	}
}

// WithTable sets the navigation table.
func WithTable(t *navigation.Table) Option {
	return func(s *Service) {
		if t != nil {
			s.table = t
		}
	}
}

// WithLiveInterval sets the live poll period. Zero disables polling.
func WithLiveInterval(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.liveInterval = d
		}
	}
}

// New constructs a Service. Without WithTracker it talks to the production
// endpoints; without WithTable it serves navigation.Default().
func New(opts ...Option) *Service {
	s := &Service{
		liveInterval: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Nop()
	}
	if s.tracker == nil {
		s.tracker = tracking.NewClient(tracking.DefaultEndpoints(), tracking.WithLogger(s.logger.Named("tracking")))
	}
	if s.table == nil {
		s.table = navigation.Default()
	}
	s.hub = live.NewHub(s.logger.Named("live"))
	return s
}

// Tracker returns the access layer.
func (s *Service) Tracker() Tracker { return s.tracker }

// Table returns the navigation table.
func (s *Service) Table() *navigation.Table { return s.table }

// Hub returns the live websocket hub.
func (s *Service) Hub() *live.Hub { return s.hub }

// Start launches the live poller. Calling Start twice is a no-op.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	pollCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	poller := live.NewPoller(s.tracker.LatestRecord, s.hub, s.liveInterval, s.logger.Named("poller"))
	go func(done chan struct{}) {
		defer close(done)
		poller.Run(pollCtx)
	}(s.done)

	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "fleetview service started",
		logger.Int("routes", len(s.table.Routes())),
		logger.Duration("liveInterval", s.liveInterval),
	)
	return nil
}

// Stop halts the poller and disconnects live clients.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.cancel()
	<-s.done
	s.hub.Close()

	s.started = false
	s.logger.Info(context.Background(), "fleetview service stopped")
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":        s.started,
		"routes":         len(s.table.Routes()),
		"views":          s.table.Views(),
		"liveClients":    s.hub.Len(),
		"liveIntervalMs": s.liveInterval.Milliseconds(),
		"metricsEnabled": metrics.Enabled(),
	}
	if c, ok := s.tracker.(*tracking.Client); ok {
		endpoints := make(map[string]string)
		for name, u := range c.Endpoints().All() {
			endpoints[string(name)] = u
		}
		stats["endpoints"] = endpoints
	}
	if s.started {
		stats["uptimeSeconds"] = int(time.Since(s.startedAt).Seconds())
	}
	return stats
}
