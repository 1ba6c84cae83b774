package config

import "errors"

// Errors reported by Load, matchable with errors.Is.
var (
	ErrLoadConfig    = errors.New("load config failed")
	ErrInvalidConfig = errors.New("invalid config")
)
