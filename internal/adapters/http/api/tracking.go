package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/okian/fleetview/internal/tracking"
)

// maxPayloadBytes bounds the request body forwarded upstream.
const maxPayloadBytes = 1 << 20

// TrackingHandler exposes the access layer as same-origin POST endpoints.
// Each request makes exactly one upstream call and the body is relayed as is.
type TrackingHandler struct {
	tracker Tracker
}

// NewTrackingHandler creates a new tracking handler.
func NewTrackingHandler(tracker Tracker) *TrackingHandler {
	return &TrackingHandler{tracker: tracker}
}

// HandleLatestRecord handles POST /api/latest-record.
func (h *TrackingHandler) HandleLatestRecord(w http.ResponseWriter, r *http.Request) {
	h.relay(w, r, func(ctx context.Context, _ any) (tracking.Result, error) {
		return h.tracker.LatestRecord(ctx)
	})
}

// HandleLatestRecordByID handles POST /api/latest-record/by-id.
func (h *TrackingHandler) HandleLatestRecordByID(w http.ResponseWriter, r *http.Request) {
	h.relay(w, r, h.tracker.LatestRecordByID)
}

// HandleVehicle handles POST /api/vehicle.
func (h *TrackingHandler) HandleVehicle(w http.ResponseWriter, r *http.Request) {
	h.relay(w, r, func(ctx context.Context, _ any) (tracking.Result, error) {
		return h.tracker.Vehicle(ctx)
	})
}

// HandleVehicleByCategory handles POST /api/vehicle/by-category.
func (h *TrackingHandler) HandleVehicleByCategory(w http.ResponseWriter, r *http.Request) {
	h.relay(w, r, h.tracker.VehicleByCategory)
}

func (h *TrackingHandler) relay(w http.ResponseWriter, r *http.Request, call func(context.Context, any) (tracking.Result, error)) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	payload, err := readPayload(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	res, err := call(r.Context(), payload)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res)
}

// readPayload returns the body as json.RawMessage, or nil when empty.
func readPayload(w http.ResponseWriter, r *http.Request) (any, error) {
	if r.Body == nil {
		return nil, nil
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayloadBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	return json.RawMessage(body), nil
}

func writeUpstreamError(w http.ResponseWriter, err error) {
	resp := errorResponse{
		Code:    "upstream_error",
		Message: fmt.Sprintf("%v: %v", ErrUpstream, err),
	}
	var se *tracking.StatusError
	if errors.As(err, &se) {
		resp.UpstreamStatus = se.StatusCode
	}
	writeJSON(w, http.StatusBadGateway, resp)
}
