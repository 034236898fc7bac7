package pdf

import (
	"math"

	"github.com/oscillare/flarehunt/internal/domain/model"
)

// FixedWindowTimePDF is a top-hat temporal PDF over an explicit
// (start, end) interval, independent of any per-source window. The
// flare search builds one per candidate window.
type FixedWindowTimePDF struct {
	season model.Season
	start  float64
	end    float64
}

// NewFixedWindow clips the window to the season and returns its PDF.
func NewFixedWindow(season model.Season, start, end float64) *FixedWindowTimePDF {
	start = math.Max(start, season.StartMJD)
	end = math.Min(end, season.EndMJD)
	if end < start {
		end = start
	}
	return &FixedWindowTimePDF{season: season, start: start, end: end}
}

// Bounds returns the clipped window.
func (p *FixedWindowTimePDF) Bounds() (float64, float64) {
	return p.start, p.end
}

func (p *FixedWindowTimePDF) SignalF(t float64, _ model.Source) float64 {
	if p.end == p.start || t <= p.start || t >= p.end {
		return 0
	}
	return 1 / (p.end - p.start)
}

func (p *FixedWindowTimePDF) BackgroundF(t float64, _ model.Source) float64 {
	if t < p.season.StartMJD || t > p.season.EndMJD {
		return 0
	}
	return 1 / p.season.Livetime()
}

func (p *FixedWindowTimePDF) FlareTimeMask(_ model.Source) (float64, float64) {
	return p.start, p.end
}

func (p *FixedWindowTimePDF) EffectiveInjectionTime(_ model.Source) float64 {
	return p.end - p.start
}
