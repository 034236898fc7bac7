// Package interp provides the interpolation primitives used by the
// acceptance and energy models: a 2-D bilinear grid and a 1-D spline
// evaluated from pre-fit knots.
package interp

import (
	"fmt"
	"sort"
)

// Grid2D is a bilinear interpolation over a rectangular grid. Both
// axes must be strictly ascending. Queries outside the grid clamp to
// the nearest edge; the grid owners treat out-of-range parameters as
// configuration errors before evaluation.
type Grid2D struct {
	xs   []float64
	ys   []float64
	vals [][]float64 // [x][y]
}

// NewGrid2D validates the axes and value table and builds a grid.
func NewGrid2D(xs, ys []float64, vals [][]float64) (*Grid2D, error) {
	if len(xs) < 2 || len(ys) < 2 {
		return nil, fmt.Errorf("grid axes need at least two points: %w", ErrGridMissing)
	}
	if !sort.Float64sAreSorted(xs) || !sort.Float64sAreSorted(ys) {
		return nil, fmt.Errorf("grid axes must be ascending: %w", ErrGridMalformed)
	}
	if len(vals) != len(xs) {
		return nil, fmt.Errorf("value table has %d rows, want %d: %w", len(vals), len(xs), ErrGridMalformed)
	}
	for i, row := range vals {
		if len(row) != len(ys) {
			return nil, fmt.Errorf("value row %d has %d columns, want %d: %w", i, len(row), len(ys), ErrGridMalformed)
		}
	}
	return &Grid2D{xs: xs, ys: ys, vals: vals}, nil
}

// Eval returns the bilinear interpolation value at (x, y).
func (g *Grid2D) Eval(x, y float64) float64 {
	i, tx := locate(g.xs, x)
	j, ty := locate(g.ys, y)

	v00 := g.vals[i][j]
	v10 := g.vals[i+1][j]
	v01 := g.vals[i][j+1]
	v11 := g.vals[i+1][j+1]

	return v00*(1-tx)*(1-ty) + v10*tx*(1-ty) + v01*(1-tx)*ty + v11*tx*ty
}

// locate finds the cell index and the fractional position of v within
// it, clamping to the grid edges.
func locate(axis []float64, v float64) (int, float64) {
	n := len(axis)
	if v <= axis[0] {
		return 0, 0
	}
	if v >= axis[n-1] {
		return n - 2, 1
	}
	i := sort.SearchFloat64s(axis, v)
	if axis[i] > v {
		i--
	}
	if i > n-2 {
		i = n - 2
	}
	return i, (v - axis[i]) / (axis[i+1] - axis[i])
}
