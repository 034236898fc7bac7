package interp

import "errors"

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrGridMissing   = errors.New("interpolation grid missing or empty")
	ErrGridMalformed = errors.New("interpolation grid malformed")
)
