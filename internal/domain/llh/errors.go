package llh

import "errors"

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	// ErrNumericalDomain flags an evaluation that left the domain of
	// the log-likelihood (log1p argument at or below -1, or a NaN).
	// It must never be confused with a genuinely low test statistic.
	ErrNumericalDomain = errors.New("numerical domain error in likelihood evaluation")

	// ErrNoEnergyModel is returned when the engine is configured to
	// use energy information but the season carries no SoB grid.
	ErrNoEnergyModel = errors.New("season has no energy SoB grid")
)
