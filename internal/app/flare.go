package app

import (
	"context"
	"math"
	"sort"

	"github.com/oscillare/flarehunt/internal/domain/llh"
	"github.com/oscillare/flarehunt/internal/domain/minimize"
	"github.com/oscillare/flarehunt/internal/domain/model"
	"github.com/oscillare/flarehunt/pkg/logger"
)

// FlareSearch fits each source independently over every candidate time
// window spanned by pairs of its most signal-like events, marginalizes
// each window's test statistic against the maximum flare duration, and
// reports the best window found.
type FlareSearch struct {
	*Search

	// longest allowed flare, days; caps windows and normalizes the
	// marginalization term.
	maxFlare float64
}

// NewFlareSearch wraps the shared state in the flare handler. A
// non-positive MaxFlareDays defaults to the full span covered by the
// seasons.
func NewFlareSearch(s *Search) *FlareSearch {
	maxFlare := s.cfg.MaxFlareDays
	if maxFlare <= 0 {
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, u := range s.units {
			lo = math.Min(lo, u.season.StartMJD)
			hi = math.Max(hi, u.season.EndMJD)
		}
		maxFlare = hi - lo
	}
	return &FlareSearch{Search: s, maxFlare: maxFlare}
}

// sourceFit is the best marginalized window found for one source.
type sourceFit struct {
	ts     float64
	params []float64
	flag   int
	start  float64
	end    float64
}

// RunTrial draws one dataset per season and runs the per-source window
// scan. The trial's TS is the best marginalized TS over all sources.
func (h *FlareSearch) RunTrial(ctx context.Context, scale float64) (TrialResult, error) {
	datasets := make([]model.Events, len(h.units))
	for i, u := range h.units {
		datasets[i] = u.sampler.CreateDataset(scale)
	}

	best := TrialResult{TS: 0, Params: h.zeroSignal(), Flag: minimize.FlagConverged}
	windows := 0
	for _, src := range h.sources {
		fit, scanned, err := h.fitSource(ctx, src, datasets)
		if err != nil {
			return TrialResult{}, err
		}
		windows += scanned
		if fit.ts > best.TS {
			best = TrialResult{TS: fit.ts, Params: fit.params, Flag: fit.flag}
		}
	}
	h.met.RecordFlareWindows(windows)

	h.log.Debug(ctx, "flare trial fit",
		logger.Float64("ts", best.TS),
		logger.Int("windows", windows))
	return best, nil
}

// fitSource scans every candidate window of one source and returns the
// best marginalized fit together with the number of windows minimized.
func (h *FlareSearch) fitSource(ctx context.Context, src model.Source, datasets []model.Events) (sourceFit, int, error) {
	coincident := make([]model.Events, len(h.units))
	for i, u := range h.units {
		mask := u.engine.SelectCoincident(datasets[i], model.Catalog{src})
		coincident[i] = datasets[i].Masked(mask)
	}

	times := h.significantTimes(src, coincident)
	best := sourceFit{ts: 0, params: h.zeroSignal(), flag: minimize.FlagConverged}

	scanned := 0
	for _, w := range windowCandidates(times, h.cfg.MinFlareDays, h.maxFlare) {
		if err := ctx.Err(); err != nil {
			return sourceFit{}, scanned, err
		}
		fit, ferr := h.fitWindow(src, coincident, datasets, w[0], w[1])
		if ferr != nil {
			return sourceFit{}, scanned, ferr
		}
		scanned++
		if fit.ts > best.ts {
			best = fit
		}
	}
	return best, scanned, nil
}

// windowCandidates enumerates every (start, end) pair of significant
// times whose span is strictly longer than minLen and at most maxLen.
// times must be ascending.
func windowCandidates(times []float64, minLen, maxLen float64) [][2]float64 {
	var out [][2]float64
	for a := 0; a < len(times); a++ {
		for b := a + 1; b < len(times); b++ {
			length := times[b] - times[a]
			if length <= minLen || length > maxLen {
				continue
			}
			out = append(out, [2]float64{times[a], times[b]})
		}
	}
	return out
}

// windowPart is one season's share of a candidate window fit: its
// objective and the window length clipped to the season span.
type windowPart struct {
	obj     llh.Objective
	unit    *seasonUnit
	overlap float64
}

// fitWindow minimizes the summed per-season window objectives for one
// candidate (start, end) interval and applies the marginalization term
// that compares windows of unequal length on an equal footing.
func (h *FlareSearch) fitWindow(src model.Source, coincident []model.Events, datasets []model.Events, start, end float64) (sourceFit, error) {
	parts := make([]windowPart, 0, len(h.units))
	for i := range h.units {
		u := &h.units[i]
		overlap := math.Min(end, u.season.EndMJD) - math.Max(start, u.season.StartMJD)
		if overlap <= 0 {
			continue
		}
		obj, _, err := u.engine.CreateWindowFunction(coincident[i], src, start, end, len(datasets[i]))
		if err != nil {
			return sourceFit{}, err
		}
		parts = append(parts, windowPart{obj: obj, unit: u, overlap: overlap})
	}
	if len(parts) == 0 {
		return sourceFit{ts: 0, params: h.zeroSignal(), flag: minimize.FlagConverged, start: start, end: end}, nil
	}

	// The pooled n_s splits across seasons by clipped window length
	// times acceptance, normalized to sum 1. Acceptance depends on the
	// fitted spectral index, so the split is rebuilt per evaluation.
	weights := make([]float64, len(parts))
	negTS := func(params []float64) (float64, error) {
		wsum := 0.0
		for i, p := range parts {
			weights[i] = p.overlap * p.unit.acc.Acceptance(src, params)
			wsum += weights[i]
		}
		total := 0.0
		for i, p := range parts {
			w := weights[i]
			if wsum > 0 {
				w /= wsum
			}
			ts, err := p.obj(params, []float64{w})
			if err != nil {
				return 0, err
			}
			total += ts
		}
		return -total, nil
	}

	res, err := minimize.Minimize(negTS, h.layout.Defaults(), h.layout.Bounds(),
		minimize.WithCandidate(h.zeroSignal()))
	if err != nil {
		return sourceFit{}, err
	}

	ts := -res.F + 2*math.Log((end-start)/h.maxFlare)
	return sourceFit{ts: ts, params: res.X, flag: res.Flag, start: start, end: end}, nil
}

// significantTimes merges the per-season significant event times for
// one source into a single ascending list of window edge candidates.
func (h *FlareSearch) significantTimes(src model.Source, coincident []model.Events) []float64 {
	var times []float64
	for i, u := range h.units {
		times = append(times, u.engine.SignificantTimes(coincident[i], src, h.cfg.MaxSignificantTimes)...)
	}
	sort.Float64s(times)
	return times
}

// RunTrials runs a batch of flare trials on the worker pool.
func (h *FlareSearch) RunTrials(ctx context.Context, n int, scale float64) (BatchSummary, error) {
	return runBatch(ctx, h.Search, h, n, scale)
}

var _ Handler = (*FlareSearch)(nil)
