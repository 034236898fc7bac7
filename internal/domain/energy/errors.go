package energy

import "errors"

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrGammaOutOfRange = errors.New("gamma outside cached grid range")
	ErrEmptyGrid       = errors.New("energy SoB grid is empty")
)
