// Package results aggregates trial batches into background
// test-statistic summaries and sensitivity estimates.
package results

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Fraction of signal trials that must exceed the background median for
// a flux scale to count as detected.
const sensitivityThreshold = 0.95

// ErrNoTrials is returned when a summary is requested over an empty batch.
var ErrNoTrials = errors.New("no trials to summarize")

// ParamStats summarizes one fitted parameter across a batch.
type ParamStats struct {
	Name   string
	Mean   float64
	Median float64
	Std    float64
}

// Aggregate computes per-parameter statistics. vals[i] holds the
// fitted values of parameter i across all trials.
func Aggregate(names []string, vals [][]float64) ([]ParamStats, error) {
	if len(vals) == 0 || len(vals[0]) == 0 {
		return nil, ErrNoTrials
	}
	out := make([]ParamStats, len(vals))
	for i, v := range vals {
		out[i] = ParamStats{
			Name:   names[i],
			Mean:   stat.Mean(v, nil),
			Median: median(v),
			Std:    stat.StdDev(v, nil),
		}
	}
	return out, nil
}

// BackgroundSummary describes the null test-statistic distribution.
type BackgroundSummary struct {
	N                    int
	Median               float64
	Mean                 float64
	Std                  float64
	UnderfluctuationFrac float64 // fraction of trials with TS <= 0
}

// SummarizeBackground reduces a background-only TS sample. The TS
// distribution is truncated at zero, so the underfluctuation fraction
// is reported alongside the moments.
func SummarizeBackground(ts []float64) (BackgroundSummary, error) {
	if len(ts) == 0 {
		return BackgroundSummary{}, ErrNoTrials
	}
	under := 0
	for _, v := range ts {
		if v <= 0 {
			under++
		}
	}
	return BackgroundSummary{
		N:                    len(ts),
		Median:               median(ts),
		Mean:                 stat.Mean(ts, nil),
		Std:                  stat.StdDev(ts, nil),
		UnderfluctuationFrac: float64(under) / float64(len(ts)),
	}, nil
}

// FractionOver returns the fraction of ts values strictly above the
// threshold.
func FractionOver(ts []float64, threshold float64) float64 {
	if len(ts) == 0 {
		return 0
	}
	n := 0
	for _, v := range ts {
		if v > threshold {
			n++
		}
	}
	return float64(n) / float64(len(ts))
}

// BatchRunner produces the TS sample of one signal-injected batch at
// the given flux scale.
type BatchRunner func(ctx context.Context, scale float64) ([]float64, error)

// SensitivityResult is the outcome of the iterative scale search.
type SensitivityResult struct {
	Scale        float64
	FractionOver float64
	Converged    bool
	Steps        int
}

// Sensitivity searches for the injection scale at which the fraction
// of signal trials above the background median crosses the 95%
// threshold. The scale is bracketed by decade steps and then refined
// by log-linear interpolation.
func Sensitivity(ctx context.Context, run BatchRunner, bkgMedian, startScale float64, maxSteps int) (SensitivityResult, error) {
	if startScale <= 0 {
		return SensitivityResult{}, fmt.Errorf("start scale must be positive, got %v", startScale)
	}

	type bracketPoint struct {
		scale float64
		frac  float64
	}
	var lo, hi *bracketPoint

	scale := startScale
	steps := 0
	res := SensitivityResult{}

	for steps < maxSteps {
		steps++
		ts, err := run(ctx, scale)
		if err != nil {
			return SensitivityResult{}, fmt.Errorf("sensitivity batch at scale %v: %w", scale, err)
		}
		frac := FractionOver(ts, bkgMedian)
		res = SensitivityResult{Scale: scale, FractionOver: frac, Steps: steps}

		p := &bracketPoint{scale: scale, frac: frac}
		if frac < sensitivityThreshold {
			if lo == nil || p.scale > lo.scale {
				lo = p
			}
		} else {
			if hi == nil || p.scale < hi.scale {
				hi = p
			}
		}

		switch {
		case lo == nil:
			scale /= 10
		case hi == nil:
			scale *= 10
		default:
			// Bracketed: log-interpolate toward the threshold.
			if math.Abs(frac-sensitivityThreshold) < 0.01 {
				res.Converged = true
				return res, nil
			}
			t := (sensitivityThreshold - lo.frac) / (hi.frac - lo.frac)
			if t < 0.05 {
				t = 0.05
			}
			if t > 0.95 {
				t = 0.95
			}
			scale = math.Exp(math.Log(lo.scale) + t*(math.Log(hi.scale)-math.Log(lo.scale)))
		}
	}
	return res, nil
}

func median(v []float64) float64 {
	sorted := append([]float64(nil), v...)
	sort.Float64s(sorted)
	return stat.Quantile(0.5, stat.Empirical, sorted, nil)
}
