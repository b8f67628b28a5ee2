package tracking

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/okian/fleetview/pkg/logger"
	"github.com/okian/fleetview/pkg/metrics"
)

// Headers sent on every call.
const (
	HeaderRequestID = "X-Request-ID"
	acceptHeader    = "application/json, text/plain, */*"
	jsonContentType = "application/json"
	defaultAgent    = "fleetview/1.0"
)

// Result is a response body exactly as the remote service sent it.
type Result []byte

// Decode interprets r as JSON into T. The client never decodes on its own;
// callers that know an endpoint's schema use this at their edge.
func Decode[T any](r Result) (T, error) {
	var v T
	if err := json.Unmarshal(r, &v); err != nil {
		return v, fmt.Errorf("decode %T: %w", v, err)
	}
	return v, nil
}

// Client calls the tracking API. It holds no per-call state, so one Client
// may be shared by any number of goroutines.
type Client struct {
	endpoints Endpoints
	doer      Doer
	logger    logger.Logger
	timeout   time.Duration
	userAgent string
}

// NewClient builds a Client for endpoints.
func NewClient(endpoints Endpoints, opts ...Option) *Client {
	c := &Client{
		endpoints: endpoints,
		logger:    logger.Nop(),
		userAgent: defaultAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.doer == nil {
		c.doer = &http.Client{Timeout: c.timeout}
	}
	return c
}

// Endpoints returns the endpoint table the client was built with.
func (c *Client) Endpoints() Endpoints { return c.endpoints }

// LatestRecord fetches the latest record of every tracked unit.
func (c *Client) LatestRecord(ctx context.Context) (Result, error) {
	return c.post(ctx, LatestRecord, nil)
}

// LatestRecordByID fetches the latest record filtered by the id carried in payload.
func (c *Client) LatestRecordByID(ctx context.Context, payload any) (Result, error) {
	return c.post(ctx, LatestRecordByID, payload)
}

// Vehicle fetches vehicle data.
func (c *Client) Vehicle(ctx context.Context) (Result, error) {
	return c.post(ctx, Vehicle, nil)
}

// VehicleByCategory fetches vehicle data filtered by the category carried in payload.
func (c *Client) VehicleByCategory(ctx context.Context, payload any) (Result, error) {
	return c.post(ctx, VehicleByCategory, payload)
}

func (c *Client) post(ctx context.Context, name Endpoint, payload any) (Result, error) {
	target, ok := c.endpoints.URL(name)
	if !ok {
		return nil, c.fail(ctx, name, "", "", "", fmt.Errorf("%w: %s", ErrUnknownEndpoint, name))
	}
	requestID := uuid.NewString()

	req, err := c.newRequest(ctx, target, requestID, payload)
	if err != nil {
		return nil, c.fail(ctx, name, target, requestID, "", err)
	}

	start := time.Now()
	resp, err := c.doer.Do(req)
	metrics.RecordUpstreamLatency(string(name), float64(time.Since(start).Microseconds())/1000)
	if err != nil {
		return nil, c.fail(ctx, name, target, requestID, metrics.KindTransport, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.fail(ctx, name, target, requestID, metrics.KindRead, err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, c.fail(ctx, name, target, requestID, metrics.KindStatus,
			&StatusError{StatusCode: resp.StatusCode, Body: body})
	}

	metrics.RecordUpstreamRequest(string(name), "success")
	metrics.RecordUpstreamResponseSize(string(name), len(body))
	return Result(body), nil
}

func (c *Client) newRequest(ctx context.Context, target, requestID string, payload any) (*http.Request, error) {
	body, hasBody, err := encodePayload(payload)
	if err != nil {
		return nil, err
	}
	var reader io.Reader
	if hasBody {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(HeaderRequestID, requestID)
	if hasBody {
		req.Header.Set("Content-Type", jsonContentType)
	}
	return req, nil
}

// encodePayload forwards raw bytes untouched and JSON-encodes anything else.
// A nil payload or empty raw bytes mean no body.
func encodePayload(payload any) ([]byte, bool, error) {
	switch p := payload.(type) {
	case nil:
		return nil, false, nil
	case json.RawMessage:
		return p, len(p) > 0, nil
	case []byte:
		return p, len(p) > 0, nil
	default:
		b, err := json.Marshal(p)
		if err != nil {
			return nil, false, fmt.Errorf("%w: %w", ErrEncodePayload, err)
		}
		return b, true, nil
	}
}

// fail logs one entry for the failed call and wraps cause. An empty kind marks
// a failure that never reached the remote service.
func (c *Client) fail(ctx context.Context, name Endpoint, target, requestID, kind string, cause error) error {
	if kind != "" {
		metrics.RecordUpstreamRequest(string(name), "failure")
		metrics.RecordUpstreamError(string(name), kind)
	}
	c.logger.Error(ctx, "tracking request failed",
		logger.String("endpoint", string(name)),
		logger.String("url", target),
		logger.String("request_id", requestID),
		logger.Error(cause),
	)
	return &RequestError{Endpoint: name, URL: target, RequestID: requestID, Err: cause}
}
