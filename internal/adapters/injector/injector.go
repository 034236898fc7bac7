// Package injector generates pseudo-experiment datasets: background
// scrambles of a season's events, optionally with signal events
// injected around each catalog source at a given flux scale.
package injector

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/oscillare/flarehunt/internal/domain/acceptance"
	"github.com/oscillare/flarehunt/internal/domain/model"
	"github.com/oscillare/flarehunt/internal/domain/pdf"
)

// Sampler is the contract the trial orchestrator consumes. One
// pseudo-experiment per call; trials share no state beyond the
// sampler's own RNG.
type Sampler interface {
	// CreateDataset returns one pseudo-experiment at the given
	// injection scale (0 = background only).
	CreateDataset(scale float64) model.Events
	// ExpectedInjection returns the summed expected signal count at
	// unit scale, for batch reporting.
	ExpectedInjection() float64
}

// Default injection settings.
const (
	defaultInjectionSigma = 1 * math.Pi / 180 // 1 degree
	defaultGamma          = model.DefaultGamma
)

// Injector scrambles a season's data and injects signal on top.
type Injector struct {
	season  model.Season
	sources model.Catalog
	timePDF pdf.TimePDF
	acc     *acceptance.Model
	rng     *rand.Rand

	gamma       float64
	injSigma    float64
	refExpected map[string]float64 // per-source expectation at unit scale
}

// Option applies a configuration option to the Injector.
type Option func(*Injector)

// WithSeed fixes the scramble RNG seed.
func WithSeed(seed int64) Option {
	return func(in *Injector) {
		in.rng = rand.New(rand.NewSource(seed)) //nolint:gosec // statistical sampling, not cryptographic
	}
}

// WithGamma sets the injection spectral index.
func WithGamma(gamma float64) Option {
	return func(in *Injector) {
		if gamma > 0 {
			in.gamma = gamma
		}
	}
}

// WithTimePDF sets the injection temporal model. Without one, signal
// times are drawn uniformly over the season.
func WithTimePDF(t pdf.TimePDF) Option {
	return func(in *Injector) {
		in.timePDF = t
	}
}

// WithInjectionSigma sets the angular smearing width for injected
// events.
func WithInjectionSigma(sigma float64) Option {
	return func(in *Injector) {
		if sigma > 0 {
			in.injSigma = sigma
		}
	}
}

// New builds an injector for one season. The acceptance grid is
// required; a missing grid is a configuration error.
func New(season model.Season, sources model.Catalog, opts ...Option) (*Injector, error) {
	in := &Injector{
		season:   season,
		sources:  sources,
		gamma:    defaultGamma,
		injSigma: defaultInjectionSigma,
		rng:      rand.New(rand.NewSource(1)), //nolint:gosec // statistical sampling, not cryptographic
	}
	for _, opt := range opts {
		opt(in)
	}

	// Injection always weights with a fixed gamma.
	acc, err := acceptance.New(season.Acceptance, model.ParamLayout{NSources: len(sources)}, in.gamma)
	if err != nil {
		return nil, fmt.Errorf("injector for season %s: %w", season.Name, err)
	}
	in.acc = acc
	in.computeReferenceExpectations()
	return in, nil
}

// computeReferenceExpectations fixes the per-source expected signal
// count at unit scale: the catalog-normalized product of acceptance,
// distance weight, and effective injection time. The absolute
// flux-to-count conversion lives upstream; scale is calibrated so that
// scale = 1 injects one expected event across the whole catalog.
func (in *Injector) computeReferenceExpectations() {
	in.refExpected = make(map[string]float64, len(in.sources))
	raw := make([]float64, len(in.sources))
	total := 0.0
	for j, src := range in.sources {
		w := in.acc.Acceptance(src, nil) * src.DistanceWeight * in.effectiveTime(src)
		raw[j] = w
		total += w
	}
	for j, src := range in.sources {
		if total > 0 {
			in.refExpected[src.Name] = raw[j] / total
		} else {
			in.refExpected[src.Name] = 0
		}
	}
}

func (in *Injector) effectiveTime(src model.Source) float64 {
	if in.timePDF != nil {
		return in.timePDF.EffectiveInjectionTime(src)
	}
	return in.season.Livetime()
}

// ExpectedInjection returns the catalog-summed expectation at unit scale.
func (in *Injector) ExpectedInjection() float64 {
	total := 0.0
	for _, v := range in.refExpected {
		total += v
	}
	return total
}

// CreateDataset returns one pseudo-experiment: a background scramble
// of the season's events plus Poisson-fluctuated signal injection when
// scale > 0.
func (in *Injector) CreateDataset(scale float64) model.Events {
	out := in.scramble()
	if scale <= 0 {
		return out
	}
	for _, src := range in.sources {
		mean := scale * in.refExpected[src.Name]
		n := poisson(in.rng, mean)
		for i := 0; i < n; i++ {
			out = append(out, in.injectEvent(src))
		}
	}
	return out
}

// scramble randomizes right ascension and arrival time of every event,
// preserving declination, uncertainty, and energy.
func (in *Injector) scramble() model.Events {
	out := make(model.Events, len(in.season.Events))
	for i, ev := range in.season.Events {
		ev.RA = in.rng.Float64() * 2 * math.Pi
		ev.Time = in.season.StartMJD + in.rng.Float64()*in.season.Livetime()
		out[i] = ev
	}
	return out
}

// injectEvent draws one signal event around the source position.
func (in *Injector) injectEvent(src model.Source) model.Event {
	// Gaussian smearing in local tangent-plane coordinates.
	dx := in.rng.NormFloat64() * in.injSigma
	dy := in.rng.NormFloat64() * in.injSigma

	dec := src.Dec + dy
	if dec > math.Pi/2 {
		dec = math.Pi - dec
	}
	if dec < -math.Pi/2 {
		dec = -math.Pi - dec
	}
	ra := math.Mod(src.RA+dx/math.Cos(src.Dec)+2*math.Pi, 2*math.Pi)

	// Energy proxy and per-event uncertainty are resampled from the
	// season's own events so injected signal shares the detector's
	// calibration.
	logE, sigma := in.injSigma, in.injSigma
	if len(in.season.Events) > 0 {
		tmpl := in.season.Events[in.rng.Intn(len(in.season.Events))]
		logE, sigma = tmpl.LogE, tmpl.Sigma
	}

	return model.Event{
		RA:     ra,
		Dec:    dec,
		Sigma:  sigma,
		LogE:   logE,
		Time:   in.sampleTime(src),
		SinDec: math.Sin(dec),
	}
}

// sampleTime draws an arrival time from the injection temporal model
// by rejection sampling over its active window.
func (in *Injector) sampleTime(src model.Source) float64 {
	if in.timePDF == nil {
		return in.season.StartMJD + in.rng.Float64()*in.season.Livetime()
	}
	start, end := in.timePDF.FlareTimeMask(src)
	if end <= start {
		return start
	}

	// Envelope: the maximum of the PDF over a coarse scan of the window.
	const scanPoints = 64
	fmax := 0.0
	for i := 0; i <= scanPoints; i++ {
		t := start + (end-start)*float64(i)/scanPoints
		if v := in.timePDF.SignalF(t, src); v > fmax {
			fmax = v
		}
	}
	if fmax <= 0 {
		return start + in.rng.Float64()*(end-start)
	}

	for i := 0; i < 1000; i++ {
		t := start + in.rng.Float64()*(end-start)
		if in.rng.Float64()*fmax <= in.timePDF.SignalF(t, src) {
			return t
		}
	}
	return start + in.rng.Float64()*(end-start)
}

// poisson draws from a Poisson distribution; the normal approximation
// takes over for large means.
func poisson(rng *rand.Rand, mean float64) int {
	if mean <= 0 {
		return 0
	}
	if mean > 30 {
		n := int(math.Round(mean + math.Sqrt(mean)*rng.NormFloat64()))
		if n < 0 {
			n = 0
		}
		return n
	}
	l := math.Exp(-mean)
	k := 0
	p := 1.0
	for {
		p *= rng.Float64()
		if p <= l {
			return k
		}
		k++
	}
}
