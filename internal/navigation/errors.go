package navigation

import "errors"

// Sentinel kinds for navigation errors.
var (
	ErrInvalidRoute = errors.New("invalid route")
	ErrNoRoute      = errors.New("no route")
)
