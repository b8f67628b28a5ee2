// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New returns a Config populated with defaults.
// - Load layers a YAML file and environment variables on top of the defaults.
// - Validation failures wrap ErrInvalidConfig; source failures wrap ErrLoadConfig.
package config

import (
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// APIBaseURL is the base every relative endpoint path is resolved against.
	APIBaseURL string `koanf:"api_base_url"`

	// Endpoints maps logical endpoint names to paths (relative to APIBaseURL)
	// or absolute URLs.
	Endpoints map[string]string `koanf:"endpoints"`

	// RequestTimeoutMS bounds each tracking API call. Zero leaves the
	// transport default in place.
	RequestTimeoutMS int `koanf:"request_timeout_ms"`

	// UserAgent is sent on every tracking API call.
	UserAgent string `koanf:"user_agent"`

	// LiveIntervalMS is the live poller period. Zero disables the poller.
	LiveIntervalMS int `koanf:"live_interval_ms"`

	// HistoryView adds the /history/{id} route to the navigation table.
	HistoryView bool `koanf:"history_view"`

	// MetricsEnabled turns Prometheus recording on. When false the
	// package-level recorders become no-ops.
	MetricsEnabled bool `koanf:"metrics_enabled"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:   "info",
		Addr:       ":9080",
		APIBaseURL: "https://apigps.findingoillosses.com/api/",
		Endpoints: map[string]string{
			"latest_record":       "latestRecords",
			"latest_record_by_id": "latestRecordById",
			"vehicle":             "vehicle",
			"vehicle_by_category": "vehicleByCategory",
		},
		RequestTimeoutMS: 0,
		UserAgent:        "fleetview/1.0",
		LiveIntervalMS:   10_000,
		HistoryView:      false,
		MetricsEnabled:   true,
	}
}

// RequestTimeout returns RequestTimeoutMS as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}

// LiveInterval returns LiveIntervalMS as a duration.
func (c *Config) LiveInterval() time.Duration {
	return time.Duration(c.LiveIntervalMS) * time.Millisecond
}
