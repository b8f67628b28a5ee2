// Package metrics provides Prometheus metrics for the fleetview service.
package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Upstream error kinds.
const (
	KindTransport = "transport"
	KindStatus    = "status"
	KindRead      = "read"
)

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Upstream tracking API
	upstreamRequests      *prometheus.CounterVec
	upstreamLatency       *prometheus.HistogramVec
	upstreamErrors        *prometheus.CounterVec
	upstreamResponseBytes *prometheus.HistogramVec

	// Navigation
	routeResolutions *prometheus.CounterVec

	// Live channel
	liveClients    prometheus.Gauge
	liveBroadcasts prometheus.Counter
	livePollErrors prometheus.Counter

	// Inbound HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByEndpoint *prometheus.CounterVec
	errorRateByType     *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var (
	customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // process-wide registry
	globalManager  atomic.Pointer[Manager]    //nolint:gochecknoglobals // swapped by Use
)

func init() { //nolint:gochecknoinits // default manager bound to the custom registry
	globalManager.Store(NewManager(WithPrometheusRegistry(customRegistry)))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "fleetview",
		subsystem:        "frontend",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

// Use replaces the manager behind the package-level helpers.
func Use(m *Manager) error {
	if m == nil {
		return ErrNotInitialized
	}
	globalManager.Store(m)
	return nil
}

// Enabled reports whether the manager records observations.
func (m *Manager) Enabled() bool { return m.enabled }

func (m *Manager) name(base string) string {
	if m.metricPrefix == "" {
		return base
	}
	return m.metricPrefix + "_" + base
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.upstreamRequests = auto.NewCounterVec(
		m.counterOpts("upstream_requests_total", "Requests issued to the tracking API by endpoint and outcome"),
		[]string{"endpoint", "outcome"},
	)
	m.upstreamLatency = auto.NewHistogramVec(
		m.histogramOpts("upstream_latency_milliseconds", "Tracking API round-trip latency in milliseconds", m.histogramBuckets),
		[]string{"endpoint"},
	)
	m.upstreamErrors = auto.NewCounterVec(
		m.counterOpts("upstream_errors_total", "Failed tracking API calls by endpoint and kind"),
		[]string{"endpoint", "kind"},
	)
	m.upstreamResponseBytes = auto.NewHistogramVec(
		m.histogramOpts("upstream_response_bytes", "Size of tracking API response bodies",
			prometheus.ExponentialBuckets(256, 4, 8)),
		[]string{"endpoint"},
	)

	m.routeResolutions = auto.NewCounterVec(
		m.counterOpts("route_resolutions_total", "Navigation table resolutions by route and outcome"),
		[]string{"route", "outcome"},
	)

	m.liveClients = auto.NewGauge(m.gaugeOpts("live_clients", "Connected live websocket clients"))
	m.liveBroadcasts = auto.NewCounter(m.counterOpts("live_broadcasts_total", "Latest-record payloads pushed to live clients"))
	m.livePollErrors = auto.NewCounter(m.counterOpts("live_poll_errors_total", "Failed live poll ticks"))

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets),
		[]string{"endpoint", "method", "status_code"},
	)
	m.errorRateByEndpoint = auto.NewCounterVec(
		m.counterOpts("errors_by_endpoint_total", "HTTP errors by endpoint, method and type"),
		[]string{"endpoint", "method", "error_type"},
	)
	m.errorRateByType = auto.NewCounterVec(
		m.counterOpts("errors_by_type_total", "HTTP errors by type and severity"),
		[]string{"error_type", "severity"},
	)

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "System memory usage in bytes"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(m.histogramOpts("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}))
}

// Enabled reports whether the active manager records observations.
func Enabled() bool { return current() != nil }

func current() *Manager {
	m := globalManager.Load()
	if m == nil || !m.enabled {
		return nil
	}
	return m
}

// RecordUpstreamRequest counts one tracking API call.
func RecordUpstreamRequest(endpoint, outcome string) {
	if m := current(); m != nil {
		m.upstreamRequests.WithLabelValues(endpoint, outcome).Inc()
	}
}

// RecordUpstreamLatency records round-trip latency in milliseconds.
func RecordUpstreamLatency(endpoint string, latencyMs float64) {
	if m := current(); m != nil {
		m.upstreamLatency.WithLabelValues(endpoint).Observe(latencyMs)
	}
}

// RecordUpstreamError counts a failed call by kind (transport, status, read).
func RecordUpstreamError(endpoint, kind string) {
	if m := current(); m != nil {
		m.upstreamErrors.WithLabelValues(endpoint, kind).Inc()
	}
}

// RecordUpstreamResponseSize observes the size of a successful response body.
func RecordUpstreamResponseSize(endpoint string, size int) {
	if m := current(); m != nil {
		m.upstreamResponseBytes.WithLabelValues(endpoint).Observe(float64(size))
	}
}

// RecordRouteResolution counts one navigation table lookup.
func RecordRouteResolution(route, outcome string) {
	if m := current(); m != nil {
		m.routeResolutions.WithLabelValues(route, outcome).Inc()
	}
}

// UpdateLiveClients sets the number of connected live clients.
func UpdateLiveClients(count int) {
	if m := current(); m != nil {
		m.liveClients.Set(float64(count))
	}
}

// RecordLiveBroadcast counts one push to live clients.
func RecordLiveBroadcast() {
	if m := current(); m != nil {
		m.liveBroadcasts.Inc()
	}
}

// RecordLivePollError counts one failed poll tick.
func RecordLivePollError() {
	if m := current(); m != nil {
		m.livePollErrors.Inc()
	}
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if m := current(); m != nil {
		m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	}
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if m := current(); m != nil {
		m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
	}
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if m := current(); m != nil {
		m.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
	}
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	if m := current(); m != nil {
		m.errorRateByType.WithLabelValues(errorType, severity).Inc()
	}
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	if m := current(); m != nil {
		m.systemMemoryUsage.Set(float64(bytes))
	}
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	if m := current(); m != nil {
		m.systemGoroutineCount.Set(float64(count))
	}
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	if m := current(); m != nil {
		m.systemGCPauseTime.Observe(pauseMs)
	}
}

// GetRegistry returns the custom Prometheus registry used by the default manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
