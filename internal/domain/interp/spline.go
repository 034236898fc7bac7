package interp

import (
	"fmt"

	gi "gonum.org/v1/gonum/interp"
)

// Spline1D evaluates a pre-fit one-dimensional spline from its knot
// points. Queries are clamped to the knot range; the knots are an
// external collaborator and already cover the physical domain.
type Spline1D struct {
	spline gi.AkimaSpline
	xmin   float64
	xmax   float64
}

// NewSpline1D fits an Akima spline through the given knots.
func NewSpline1D(xs, ys []float64) (*Spline1D, error) {
	if len(xs) == 0 {
		return nil, fmt.Errorf("spline knots: %w", ErrGridMissing)
	}
	// Akima panics below two knots rather than returning an error.
	if len(xs) < 2 {
		return nil, fmt.Errorf("spline knots: need at least 2, got %d: %w", len(xs), ErrGridMalformed)
	}
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("spline knots: %d xs vs %d ys: %w", len(xs), len(ys), ErrGridMalformed)
	}
	var s Spline1D
	if err := s.spline.Fit(xs, ys); err != nil {
		return nil, fmt.Errorf("fitting spline knots: %w", err)
	}
	s.xmin = xs[0]
	s.xmax = xs[len(xs)-1]
	return &s, nil
}

// Eval returns the spline value at x.
func (s *Spline1D) Eval(x float64) float64 {
	if x < s.xmin {
		x = s.xmin
	}
	if x > s.xmax {
		x = s.xmax
	}
	return s.spline.Predict(x)
}
