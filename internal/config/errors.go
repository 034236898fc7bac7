package config

import "errors"

// Sentinel kinds for configuration errors; callers match with
// errors.Is. Configuration problems are fatal at startup, never
// defaulted over.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
)
