// Package llh implements the unbinned log-likelihood-ratio test
// statistic for one season against a source catalog. A fresh objective
// closure is built per pseudo-experiment; the closure is then queried
// repeatedly by the minimizer until the fit converges.
package llh

import (
	"fmt"
	"math"
	"sort"

	"github.com/oscillare/flarehunt/internal/domain/coincidence"
	"github.com/oscillare/flarehunt/internal/domain/energy"
	"github.com/oscillare/flarehunt/internal/domain/model"
	"github.com/oscillare/flarehunt/internal/domain/pdf"
)

// Config fixes the shape of the likelihood at construction time.
// Optional components are explicit here: a nil TimePDF means no
// temporal model, and UseEnergy gates the energy term. The engine's
// arithmetic never depends on field presence at runtime.
type Config struct {
	TimePDF      pdf.TimePDF
	UseEnergy    bool
	DefaultGamma float64
	Layout       model.ParamLayout
}

// Objective evaluates the season's test statistic for a trial
// parameter vector and the per-source weight column assigned to this
// season by the orchestrator.
type Objective func(params []float64, weights []float64) (float64, error)

// Engine holds the per-season read-only state of the likelihood.
type Engine struct {
	season  model.Season
	sources model.Catalog
	bkg     *pdf.BackgroundSpatial
	cfg     Config
}

// New builds the likelihood engine for one season. Malformed or
// missing PDF inputs are fatal here, never deferred to evaluation.
func New(season model.Season, sources model.Catalog, cfg Config) (*Engine, error) {
	bkg, err := pdf.NewBackgroundSpatial(season.BackgroundSpline)
	if err != nil {
		return nil, fmt.Errorf("season %s: %w", season.Name, err)
	}
	if cfg.UseEnergy && !season.EnergySoBEnabled {
		return nil, fmt.Errorf("season %s: %w", season.Name, ErrNoEnergyModel)
	}
	return &Engine{season: season, sources: sources, bkg: bkg, cfg: cfg}, nil
}

// Season returns the season this engine evaluates.
func (e *Engine) Season() model.Season { return e.season }

// TimePDF returns the configured temporal model, nil when absent.
func (e *Engine) TimePDF() pdf.TimePDF { return e.cfg.TimePDF }

// SelectCoincident applies the spatio-temporal pre-filter for the
// given sources.
func (e *Engine) SelectCoincident(events model.Events, sources model.Catalog) []bool {
	return coincidence.Select(events, sources, e.cfg.TimePDF)
}

// signalPDF returns the signal space(-time) PDF values per event.
func (e *Engine) signalPDF(src model.Source, events model.Events, timePDF pdf.TimePDF) []float64 {
	vals := pdf.SignalSpatial(src, events)
	if timePDF != nil {
		for i, ev := range events {
			vals[i] *= timePDF.SignalF(ev.Time, src)
		}
	}
	return vals
}

// backgroundPDF returns the background space(-time) PDF values per event.
func (e *Engine) backgroundPDF(src model.Source, events model.Events, timePDF pdf.TimePDF) []float64 {
	vals := e.bkg.Eval(events)
	if timePDF != nil {
		for i, ev := range events {
			vals[i] *= timePDF.BackgroundF(ev.Time, src)
		}
	}
	return vals
}

// sobSpacetime builds the per-source signal-over-background array over
// the coincident events.
func (e *Engine) sobSpacetime(sources model.Catalog, events model.Events, timePDF pdf.TimePDF) [][]float64 {
	out := make([][]float64, len(sources))
	for j, src := range sources {
		sig := e.signalPDF(src, events, timePDF)
		bkg := e.backgroundPDF(src, events, timePDF)
		row := make([]float64, len(events))
		for i := range row {
			row[i] = sig[i] / bkg[i]
		}
		out[j] = row
	}
	return out
}

// CreateLLHFunction builds the test-statistic closure for one
// pseudo-experiment dataset: coincidence selection, spacetime SoB
// arrays, and the per-trial energy cache.
func (e *Engine) CreateLLHFunction(events model.Events) (Objective, error) {
	mask := e.SelectCoincident(events, e.sources)
	coincident := events.Masked(mask)

	nAll := len(events)
	nCoinc := len(coincident)

	sobSpacetime := e.sobSpacetime(e.sources, coincident, e.cfg.TimePDF)

	var cache *energy.Cache
	var fixedEnergy []float64
	if e.cfg.UseEnergy {
		var err error
		cache, err = energy.NewCache(coincident, e.season.EnergySoB)
		if err != nil {
			return nil, fmt.Errorf("season %s: %w", e.season.Name, err)
		}
		// With a fixed gamma the cache collapses to one weight array.
		if !e.cfg.Layout.FitGamma {
			fixedEnergy, err = cache.EstimateWeights(e.cfg.DefaultGamma)
			if err != nil {
				return nil, fmt.Errorf("season %s: %w", e.season.Name, err)
			}
		}
	}

	return func(params, weights []float64) (float64, error) {
		sobEnergy, err := e.energyWeights(params, cache, fixedEnergy)
		if err != nil {
			return 0, err
		}
		return e.testStatistic(params, weights, nCoinc, nAll, sobSpacetime, sobEnergy)
	}, nil
}

// energyWeights resolves the per-event energy SoB weights for the
// current parameter vector; nil means unit weights.
func (e *Engine) energyWeights(params []float64, cache *energy.Cache, fixed []float64) ([]float64, error) {
	if !e.cfg.UseEnergy {
		return nil, nil
	}
	if !e.cfg.Layout.FitGamma {
		return fixed, nil
	}
	gamma, _ := e.cfg.Layout.Gamma(params)
	return cache.EstimateWeights(gamma)
}

// testStatistic evaluates twice the log-likelihood ratio against the
// background-only hypothesis. Vetoed events enter through the
// closed-form second term, each assumed to contribute SoB = 0; this
// avoids iterating the (vastly larger) non-coincident sample.
func (e *Engine) testStatistic(params, weights []float64, nCoinc, nAll int, sobSpacetime [][]float64, sobEnergy []float64) (float64, error) {
	ns := e.cfg.Layout.NS(params)
	n := float64(nAll)

	llhValue := 0.0
	for j := range sobSpacetime {
		nj := ns[j] * weights[j]

		vetoArg := -nj / n
		if vetoArg <= -1 {
			return 0, fmt.Errorf("veto term log1p(%v) for n_j=%v, n_all=%d: %w", vetoArg, nj, nAll, ErrNumericalDomain)
		}

		for i, sob := range sobSpacetime[j] {
			if sobEnergy != nil {
				sob *= sobEnergy[i]
			}
			arg := nj * (sob - 1) / n
			if arg <= -1 {
				return 0, fmt.Errorf("signal term log1p(%v) for n_j=%v: %w", arg, nj, ErrNumericalDomain)
			}
			llhValue += math.Log1p(arg)
		}

		llhValue += float64(nAll-nCoinc) * math.Log1p(vetoArg)
	}

	ts := 2 * llhValue
	if math.IsNaN(ts) || math.IsInf(ts, 0) {
		return 0, fmt.Errorf("test statistic %v: %w", ts, ErrNumericalDomain)
	}
	return ts, nil
}

// CreateWindowFunction builds a test-statistic closure restricted to a
// candidate flare window for a single source. The events passed in are
// the source's coincident sample across the season; nAll is the full
// season size so the veto term keeps accounting for everything
// outside. The window itself supplies the temporal terms.
func (e *Engine) CreateWindowFunction(events model.Events, src model.Source, tStart, tEnd float64, nAll int) (Objective, int, error) {
	window := pdf.NewFixedWindow(e.season, tStart, tEnd)

	inWindow := make(model.Events, 0, len(events))
	for _, ev := range events {
		if ev.Time >= tStart && ev.Time <= tEnd {
			inWindow = append(inWindow, ev)
		}
	}

	sobSpacetime := e.sobSpacetime(model.Catalog{src}, inWindow, window)

	var cache *energy.Cache
	var fixedEnergy []float64
	if e.cfg.UseEnergy {
		var err error
		cache, err = energy.NewCache(inWindow, e.season.EnergySoB)
		if err != nil {
			return nil, 0, fmt.Errorf("season %s: %w", e.season.Name, err)
		}
		if !e.cfg.Layout.FitGamma {
			fixedEnergy, err = cache.EstimateWeights(e.cfg.DefaultGamma)
			if err != nil {
				return nil, 0, fmt.Errorf("season %s: %w", e.season.Name, err)
			}
		}
	}

	nIn := len(inWindow)
	f := func(params, weights []float64) (float64, error) {
		sobEnergy, err := e.energyWeights(params, cache, fixedEnergy)
		if err != nil {
			return 0, err
		}
		return e.testStatistic(params, weights, nIn, nAll, sobSpacetime, sobEnergy)
	}
	return f, nIn, nil
}

// SignificantTimes ranks the source's coincident events by spatial
// signal-over-background and returns the arrival times of the top
// maxK, sorted ascending. This bounds the O(k^2) flare pair
// enumeration; the criterion is a heuristic, not a fixed algorithm.
func (e *Engine) SignificantTimes(events model.Events, src model.Source, maxK int) []float64 {
	type scored struct {
		time  float64
		score float64
	}
	sig := pdf.SignalSpatial(src, events)
	bkg := e.bkg.Eval(events)

	ranked := make([]scored, len(events))
	for i, ev := range events {
		ranked[i] = scored{time: ev.Time, score: sig[i] / bkg[i]}
	}
	sort.Slice(ranked, func(a, b int) bool { return ranked[a].score > ranked[b].score })

	if maxK > 0 && len(ranked) > maxK {
		ranked = ranked[:maxK]
	}
	times := make([]float64, len(ranked))
	for i, r := range ranked {
		times[i] = r.time
	}
	sort.Float64s(times)
	return times
}
