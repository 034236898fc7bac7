// Package energy precomputes per-event energy signal-over-background
// ratios on a spectral-index grid and re-weights continuously between
// grid points with a local second-order Taylor expansion. The spline
// lookup is paid once per trial; the Taylor estimate is what the
// minimizer evaluates hundreds of times per fit.
package energy

import (
	"fmt"
	"math"

	"github.com/oscillare/flarehunt/internal/domain/interp"
	"github.com/oscillare/flarehunt/internal/domain/model"
)

// Cache maps quantized spectral-index grid points to per-event
// log(SoB) arrays for one season/trial. Keys are integer multiples of
// the grid precision, never raw floats.
type Cache struct {
	precision float64
	logSoB    map[int][]float64
	n         int // events per array
}

// gridKey quantizes gamma onto the grid index.
func gridKey(gamma, precision float64) int {
	return int(math.Round(gamma / precision))
}

// NewCache evaluates the pre-fit log(SoB) energy tables for every
// coincident event at every gamma grid point.
func NewCache(events model.Events, grid model.EnergySoBGrid) (*Cache, error) {
	if len(grid.Gammas) == 0 || grid.Precision <= 0 {
		return nil, ErrEmptyGrid
	}
	c := &Cache{
		precision: grid.Precision,
		logSoB:    make(map[int][]float64, len(grid.Gammas)),
		n:         len(events),
	}
	for gi, gamma := range grid.Gammas {
		g2d, err := interp.NewGrid2D(grid.LogEBins, grid.SinDecBins, grid.Tables[gi])
		if err != nil {
			return nil, fmt.Errorf("energy SoB table for gamma=%v: %w", gamma, err)
		}
		vals := make([]float64, len(events))
		for i, ev := range events {
			vals[i] = g2d.Eval(ev.LogE, ev.SinDec)
		}
		c.logSoB[gridKey(gamma, grid.Precision)] = vals
	}
	return c, nil
}

// Len returns the number of events covered by each cached array.
func (c *Cache) Len() int { return c.n }

// EstimateWeights returns exp(log SoB) per event for the given gamma.
// An exact grid point returns the cached values directly; anything
// between grid points uses a second-order Taylor expansion of log(SoB)
// around the nearest grid point, with finite-difference derivative
// estimates from the two neighbors. Gammas whose neighbors fall off
// the cached grid are a configuration error, never extrapolated.
func (c *Cache) EstimateWeights(gamma float64) ([]float64, error) {
	k1 := gridKey(gamma, c.precision)
	g1 := float64(k1) * c.precision

	s1, ok := c.logSoB[k1]
	if !ok {
		return nil, fmt.Errorf("gamma=%v (nearest grid point %v): %w", gamma, g1, ErrGammaOutOfRange)
	}

	// Exact grid hit: no approximation.
	if gamma == g1 {
		out := make([]float64, len(s1))
		for i, v := range s1 {
			out[i] = math.Exp(v)
		}
		return out, nil
	}

	s0, ok0 := c.logSoB[k1-1]
	s2, ok2 := c.logSoB[k1+1]
	if !ok0 || !ok2 {
		return nil, fmt.Errorf("gamma=%v lacks grid neighbors around %v: %w", gamma, g1, ErrGammaOutOfRange)
	}

	dg := c.precision
	x := gamma - g1
	out := make([]float64, len(s1))
	for i := range s1 {
		d2 := (s0[i] - 2*s1[i] + s2[i]) / (2 * dg * dg)
		d1 := (s2[i] - s0[i]) / (2 * dg)
		out[i] = math.Exp(d2*x*x + d1*x + s1[i])
	}
	return out, nil
}
