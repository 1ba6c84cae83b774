package platform

import "errors"

// Sentinel kinds for platform client errors.
var (
	ErrNotFound    = errors.New("not found")
	ErrUnavailable = errors.New("platform unavailable")
)
