// Package minimize fits a bounded objective with a quasi-Newton method
// and falls back to an exhaustive grid scan when the fit stalls. The
// two-tier policy guards against local minima and stalled gradients
// without silently returning an invalid fit.
package minimize

import (
	"math"

	"github.com/oscillare/flarehunt/internal/domain/model"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/optimize"
)

// Convergence flags recorded per trial.
const (
	FlagConverged = 0 // quasi-Newton fit converged
	FlagFallback  = 1 // quasi-Newton stalled, brute-force grid used
)

// Grid points per dimension for the brute-force fallback.
const bruteGridPoints = 20

// Keeps the bound transform away from the logistic asymptotes.
const boundMargin = 1e-9

// Objective is a scalar function of the bounded parameter vector.
// Errors abort the fit; they signal numerical domain violations, not
// unfavorable function values.
type Objective func(x []float64) (float64, error)

// Result is the outcome of one bounded fit.
type Result struct {
	X    []float64
	F    float64
	Flag int
}

// Option configures a fit.
type Option func(*settings)

type settings struct {
	candidates [][]float64
}

// WithCandidate adds an extra parameter vector to evaluate alongside
// the fit; the best of fit and candidates wins. The orchestrator uses
// this to pin the exact zero-signal boundary, which the smooth bound
// transform can only approach asymptotically.
func WithCandidate(x []float64) Option {
	return func(s *settings) {
		s.candidates = append(s.candidates, x)
	}
}

// Minimize fits the objective inside the given box bounds, starting
// from x0. Non-convergence of the quasi-Newton stage is recovered via
// the grid fallback and reported through the result flag; objective
// errors are returned as-is.
func Minimize(f Objective, x0 []float64, bounds []model.Bound, opts ...Option) (Result, error) {
	var cfg settings
	for _, opt := range opts {
		opt(&cfg)
	}

	best, err := lbfgsStage(f, x0, bounds)
	if err != nil {
		return Result{}, err
	}
	if best.Flag != FlagConverged {
		brute, err := bruteStage(f, bounds)
		if err != nil {
			return Result{}, err
		}
		if brute.F < best.F || math.IsNaN(best.F) {
			best = Result{X: brute.X, F: brute.F, Flag: best.Flag}
		}
	}

	for _, cand := range cfg.candidates {
		v, err := f(cand)
		if err != nil {
			return Result{}, err
		}
		if v < best.F || math.IsNaN(best.F) {
			best.X = append([]float64(nil), cand...)
			best.F = v
		}
	}
	return best, nil
}

// lbfgsStage runs LBFGS with finite-difference gradients on the
// unbounded transform of the parameter space.
func lbfgsStage(f Objective, x0 []float64, bounds []model.Bound) (Result, error) {
	var domainErr error

	objective := func(y []float64) float64 {
		x := fromUnbounded(y, bounds)
		v, err := f(x)
		if err != nil {
			if domainErr == nil {
				domainErr = err
			}
			return math.Inf(1)
		}
		return v
	}
	problem := optimize.Problem{
		Func: objective,
		Grad: func(grad, y []float64) {
			fd.Gradient(grad, objective, y, nil)
		},
	}

	y0 := toUnbounded(x0, bounds)
	res, optErr := optimize.Minimize(problem, y0, nil, &optimize.LBFGS{})
	if domainErr != nil {
		return Result{}, domainErr
	}

	flag := FlagConverged
	if optErr != nil || res == nil || math.IsNaN(res.F) || math.IsInf(res.F, 0) {
		flag = FlagFallback
	}

	out := Result{Flag: flag}
	if res != nil {
		out.X = fromUnbounded(res.X, bounds)
		out.F = res.F
	} else {
		out.X = append([]float64(nil), x0...)
		out.F = math.Inf(1)
	}
	return out, nil
}

// bruteStage scans a regular grid over the bounds, endpoints included.
func bruteStage(f Objective, bounds []model.Bound) (Result, error) {
	dims := len(bounds)
	x := make([]float64, dims)
	best := Result{F: math.Inf(1), Flag: FlagFallback}

	var scan func(dim int) error
	scan = func(dim int) error {
		if dim == dims {
			v, err := f(x)
			if err != nil {
				return err
			}
			if v < best.F {
				best.F = v
				best.X = append([]float64(nil), x...)
			}
			return nil
		}
		b := bounds[dim]
		for i := 0; i < bruteGridPoints; i++ {
			x[dim] = b.Lo + (b.Hi-b.Lo)*float64(i)/float64(bruteGridPoints-1)
			if err := scan(dim + 1); err != nil {
				return err
			}
		}
		return nil
	}
	if err := scan(0); err != nil {
		return Result{}, err
	}
	return best, nil
}

// toUnbounded maps box-constrained parameters onto the real line via
// the logit transform.
func toUnbounded(x []float64, bounds []model.Bound) []float64 {
	y := make([]float64, len(x))
	for i, b := range bounds {
		frac := (x[i] - b.Lo) / (b.Hi - b.Lo)
		if frac < boundMargin {
			frac = boundMargin
		}
		if frac > 1-boundMargin {
			frac = 1 - boundMargin
		}
		y[i] = math.Log(frac / (1 - frac))
	}
	return y
}

// fromUnbounded inverts toUnbounded with the logistic function.
func fromUnbounded(y []float64, bounds []model.Bound) []float64 {
	x := make([]float64, len(y))
	for i, b := range bounds {
		x[i] = b.Lo + (b.Hi-b.Lo)/(1+math.Exp(-y[i]))
	}
	return x
}
