package fleetctl

import "errors"

// Sentinel kinds for CLI errors.
var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrMissingFlag    = errors.New("missing required flag")
	ErrInvalidPayload = errors.New("invalid --data payload")
	ErrCallsFailed    = errors.New("one or more calls failed")
)
