package tracking

import (
	"errors"
	"fmt"
)

// Sentinel kinds for the access layer.
var (
	ErrUnknownEndpoint  = errors.New("unknown endpoint")
	ErrInvalidEndpoint  = errors.New("invalid endpoint")
	ErrUnexpectedStatus = errors.New("unexpected status")
	ErrEncodePayload    = errors.New("encode payload failed")
)

// StatusError reports a non-2xx response. Body holds whatever the remote sent.
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.StatusCode)
}

// Is matches ErrUnexpectedStatus.
func (e *StatusError) Is(target error) bool {
	return target == ErrUnexpectedStatus
}

// RequestError is the single failure kind returned by Client calls. Err is
// the original cause: a transport error, a *StatusError or a body read error.
type RequestError struct {
	Endpoint  Endpoint
	URL       string
	RequestID string
	Err       error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("tracking %s: %v", e.Endpoint, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}
