// Package acceptance models the interpolated detector exposure of one
// season as a function of source declination and spectral index.
package acceptance

import (
	"fmt"

	"github.com/oscillare/flarehunt/internal/domain/interp"
	"github.com/oscillare/flarehunt/internal/domain/model"
)

// Model is a 2-D linear interpolation of the season exposure table.
// Missing or malformed grids are a fatal configuration error at
// construction; they are never defaulted.
type Model struct {
	grid         *interp.Grid2D
	layout       model.ParamLayout
	defaultGamma float64
}

// New builds the acceptance model for one season.
func New(grid model.AcceptanceGrid, layout model.ParamLayout, defaultGamma float64) (*Model, error) {
	g, err := interp.NewGrid2D(grid.DecBins, grid.GammaBins, grid.Values)
	if err != nil {
		return nil, fmt.Errorf("acceptance grid: %w", err)
	}
	return &Model{grid: g, layout: layout, defaultGamma: defaultGamma}, nil
}

// Acceptance returns the detector exposure for the source under the
// current trial parameters. When gamma is not a free fit parameter the
// season's configured default is used; otherwise gamma is the last
// entry of the parameter vector.
func (m *Model) Acceptance(src model.Source, params []float64) float64 {
	gamma, ok := m.layout.Gamma(params)
	if !ok {
		gamma = m.defaultGamma
	}
	return m.grid.Eval(src.Dec, gamma)
}
