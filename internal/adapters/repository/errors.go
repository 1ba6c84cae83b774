package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound     = errors.New("member not found")
	ErrInvalidLimit = errors.New("invalid limit")
)
