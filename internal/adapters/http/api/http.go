// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/okian/fleetview/internal/navigation"
	"github.com/okian/fleetview/internal/tracking"
)

// Tracker is the access-layer surface the pass-through handlers call.
type Tracker interface {
	LatestRecord(ctx context.Context) (tracking.Result, error)
	LatestRecordByID(ctx context.Context, payload any) (tracking.Result, error)
	Vehicle(ctx context.Context) (tracking.Result, error)
	VehicleByCategory(ctx context.Context, payload any) (tracking.Result, error)
}

// Server wires HTTP routes for the JSON API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	routesHandler   *RoutesHandler
	trackingHandler *TrackingHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(tracker Tracker, table *navigation.Table, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		routesHandler:   NewRoutesHandler(table),
		trackingHandler: NewTrackingHandler(tracker),
	}
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(_ context.Context, r *mux.Router) {
	if r == nil {
		panic("router is nil")
	}
	r.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	r.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	r.HandleFunc("/routes", MetricsMiddleware(s.routesHandler.HandleRoutes, "routes"))

	r.HandleFunc("/api/latest-record", MetricsMiddleware(s.trackingHandler.HandleLatestRecord, "latest_record"))
	r.HandleFunc("/api/latest-record/by-id", MetricsMiddleware(s.trackingHandler.HandleLatestRecordByID, "latest_record_by_id"))
	r.HandleFunc("/api/vehicle", MetricsMiddleware(s.trackingHandler.HandleVehicle, "vehicle"))
	r.HandleFunc("/api/vehicle/by-category", MetricsMiddleware(s.trackingHandler.HandleVehicleByCategory, "vehicle_by_category"))
}

type errorResponse struct {
	Code           string `json:"code"`
	Message        string `json:"message"`
	UpstreamStatus int    `json:"upstream_status,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

func methodNotAllowed(w http.ResponseWriter, allow string) {
	w.Header().Set("Allow", allow)
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
}
