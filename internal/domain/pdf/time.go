package pdf

import (
	"fmt"
	"math"

	"github.com/oscillare/flarehunt/internal/domain/model"
)

// Temporal PDF kinds accepted by NewTimePDF.
const (
	TimeSteady   = "steady"
	TimeBox      = "box"
	TimeGaussian = "gaussian"
)

// TimePDF is the capability set the likelihood engine needs from a
// temporal model. The engine never depends on a specific variant.
type TimePDF interface {
	// SignalF is the signal time PDF at t for the given source.
	SignalF(t float64, src model.Source) float64
	// BackgroundF is the background time PDF at t, assumed uniform
	// over the season.
	BackgroundF(t float64, src model.Source) float64
	// FlareTimeMask returns the active time window for the source.
	FlareTimeMask(src model.Source) (start, end float64)
	// EffectiveInjectionTime returns the equivalent live duration in
	// days during which the source is active within the season.
	EffectiveInjectionTime(src model.Source) float64
}

// TimeSpec selects and parameterizes a temporal PDF.
type TimeSpec struct {
	Kind string `koanf:"kind" yaml:"kind"`
	// SigmaDays is the width of the gaussian flare profile.
	SigmaDays float64 `koanf:"sigma_days" yaml:"sigma_days,omitempty"`
}

// NewTimePDF builds the temporal PDF named by spec for one season.
func NewTimePDF(spec TimeSpec, season model.Season) (TimePDF, error) {
	switch spec.Kind {
	case TimeSteady:
		return &SteadyTimePDF{season: season}, nil
	case TimeBox:
		return &BoxTimePDF{season: season}, nil
	case TimeGaussian:
		if spec.SigmaDays <= 0 {
			return nil, fmt.Errorf("gaussian time pdf needs sigma_days > 0, got %v", spec.SigmaDays)
		}
		return &GaussianTimePDF{season: season, sigma: spec.SigmaDays}, nil
	default:
		return nil, fmt.Errorf("unknown time pdf kind %q", spec.Kind)
	}
}

// SteadyTimePDF models constant emission over the whole season. The
// signal and background terms cancel in the likelihood ratio.
type SteadyTimePDF struct {
	season model.Season
}

func (p *SteadyTimePDF) SignalF(t float64, _ model.Source) float64 {
	if t < p.season.StartMJD || t > p.season.EndMJD {
		return 0
	}
	return 1 / p.season.Livetime()
}

func (p *SteadyTimePDF) BackgroundF(t float64, src model.Source) float64 {
	return p.SignalF(t, src)
}

func (p *SteadyTimePDF) FlareTimeMask(_ model.Source) (float64, float64) {
	return p.season.StartMJD, p.season.EndMJD
}

func (p *SteadyTimePDF) EffectiveInjectionTime(_ model.Source) float64 {
	return p.season.Livetime()
}

// BoxTimePDF models a top-hat flare over the source's own window.
// Sources without a window fall back to the full season.
type BoxTimePDF struct {
	season model.Season
}

// window returns the source flare window clipped to the season.
func (p *BoxTimePDF) window(src model.Source) (float64, float64) {
	start, end := src.StartMJD, src.EndMJD
	if !src.HasWindow() {
		start, end = p.season.StartMJD, p.season.EndMJD
	}
	start = math.Max(start, p.season.StartMJD)
	end = math.Min(end, p.season.EndMJD)
	if end < start {
		end = start
	}
	return start, end
}

func (p *BoxTimePDF) SignalF(t float64, src model.Source) float64 {
	start, end := p.window(src)
	if t <= start || t >= end || end == start {
		return 0
	}
	return 1 / (end - start)
}

func (p *BoxTimePDF) BackgroundF(t float64, _ model.Source) float64 {
	if t < p.season.StartMJD || t > p.season.EndMJD {
		return 0
	}
	return 1 / p.season.Livetime()
}

func (p *BoxTimePDF) FlareTimeMask(src model.Source) (float64, float64) {
	return p.window(src)
}

func (p *BoxTimePDF) EffectiveInjectionTime(src model.Source) float64 {
	start, end := p.window(src)
	return end - start
}

// GaussianTimePDF models a gaussian flare profile centered on the
// source window midpoint (season midpoint for window-less sources).
type GaussianTimePDF struct {
	season model.Season
	sigma  float64 // days
}

// The mask spans this many sigma either side of the flare center.
const gaussianMaskWidth = 4.0

func (p *GaussianTimePDF) center(src model.Source) float64 {
	if src.HasWindow() {
		return 0.5 * (src.StartMJD + src.EndMJD)
	}
	return 0.5 * (p.season.StartMJD + p.season.EndMJD)
}

func (p *GaussianTimePDF) SignalF(t float64, src model.Source) float64 {
	c := p.center(src)
	z := (t - c) / p.sigma
	return 1 / (math.Sqrt(2*math.Pi) * p.sigma) * math.Exp(-0.5*z*z)
}

func (p *GaussianTimePDF) BackgroundF(t float64, _ model.Source) float64 {
	if t < p.season.StartMJD || t > p.season.EndMJD {
		return 0
	}
	return 1 / p.season.Livetime()
}

func (p *GaussianTimePDF) FlareTimeMask(src model.Source) (float64, float64) {
	c := p.center(src)
	start := math.Max(c-gaussianMaskWidth*p.sigma, p.season.StartMJD)
	end := math.Min(c+gaussianMaskWidth*p.sigma, p.season.EndMJD)
	return start, end
}

func (p *GaussianTimePDF) EffectiveInjectionTime(src model.Source) float64 {
	c := p.center(src)
	lo := (p.season.StartMJD - c) / (math.Sqrt2 * p.sigma)
	hi := (p.season.EndMJD - c) / (math.Sqrt2 * p.sigma)
	coverage := 0.5 * (math.Erf(hi) - math.Erf(lo))
	return math.Sqrt(2*math.Pi) * p.sigma * coverage
}
