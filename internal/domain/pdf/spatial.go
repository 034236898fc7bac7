// Package pdf provides the spatial and temporal probability densities
// entering the per-event signal-over-background weights.
package pdf

import (
	"fmt"
	"math"

	"github.com/oscillare/flarehunt/internal/domain/interp"
	"github.com/oscillare/flarehunt/internal/domain/model"
)

// AngularDistance returns the great-circle distance between two sky
// positions in radians. The haversine form stays accurate at small
// separations, where the acos of a cosine product loses precision and
// the Gaussian signal PDF is most sensitive.
func AngularDistance(ra1, dec1, ra2, dec2 float64) float64 {
	sinDec := math.Sin((dec2 - dec1) / 2)
	sinRA := math.Sin((ra2 - ra1) / 2)
	h := sinDec*sinDec + math.Cos(dec1)*math.Cos(dec2)*sinRA*sinRA
	if h > 1 {
		h = 1
	}
	return 2 * math.Asin(math.Sqrt(h))
}

// SignalSpatial evaluates the signal spatial PDF for each event: a 2-D
// Gaussian in the angular distance to the source, with per-event width
// taken from the event's reconstruction uncertainty.
func SignalSpatial(src model.Source, events model.Events) []float64 {
	out := make([]float64, len(events))
	for i, ev := range events {
		d := AngularDistance(ev.RA, ev.Dec, src.RA, src.Dec)
		s2 := ev.Sigma * ev.Sigma
		out[i] = 1 / (2 * math.Pi * s2) * math.Exp(-0.5*d*d/s2)
	}
	return out
}

// BackgroundSpatial evaluates the background spatial PDF from a spline
// pre-fit to the sin(declination) distribution of the scrambled data.
type BackgroundSpatial struct {
	spline *interp.Spline1D
}

// NewBackgroundSpatial builds the background PDF from spline knots.
func NewBackgroundSpatial(knots model.SplineKnots) (*BackgroundSpatial, error) {
	s, err := interp.NewSpline1D(knots.X, knots.Y)
	if err != nil {
		return nil, fmt.Errorf("background sin(dec) spline: %w", err)
	}
	return &BackgroundSpatial{spline: s}, nil
}

// Eval returns exp(spline(sinDec)) / 2pi for each event.
func (b *BackgroundSpatial) Eval(events model.Events) []float64 {
	out := make([]float64, len(events))
	for i, ev := range events {
		out[i] = math.Exp(b.spline.Eval(ev.SinDec)) / (2 * math.Pi)
	}
	return out
}
