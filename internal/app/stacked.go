package app

import (
	"context"

	"github.com/oscillare/flarehunt/internal/domain/llh"
	"github.com/oscillare/flarehunt/internal/domain/minimize"
	"github.com/oscillare/flarehunt/pkg/logger"
)

// StackedSearch fits a single stacked test statistic across all seasons
// and sources, with the per-season signal share set by the weight
// matrix.
type StackedSearch struct {
	*Search
}

// NewStackedSearch wraps the shared state in the stacked handler.
func NewStackedSearch(s *Search) *StackedSearch {
	return &StackedSearch{Search: s}
}

// RunTrial draws one pseudo-experiment dataset per season, builds the
// per-season objectives, and fits the summed test statistic.
func (h *StackedSearch) RunTrial(ctx context.Context, scale float64) (TrialResult, error) {
	objectives := make([]llh.Objective, len(h.units))
	for i, u := range h.units {
		events := u.sampler.CreateDataset(scale)
		obj, err := u.engine.CreateLLHFunction(events)
		if err != nil {
			return TrialResult{}, err
		}
		objectives[i] = obj
	}

	// The fit minimizes the negated stacked TS. The weight matrix is
	// rebuilt for each evaluation because it depends on gamma.
	negTS := func(params []float64) (float64, error) {
		w := h.weightMatrix(params)
		total := 0.0
		for i, obj := range objectives {
			ts, err := obj(params, w.RawRowView(i))
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
		return TrialResult{}, err
	}

	h.log.Debug(ctx, "stacked trial fit",
		logger.Float64("ts", -res.F),
		logger.Int("flag", res.Flag))
	return TrialResult{TS: -res.F, Params: res.X, Flag: res.Flag}, nil
}

// RunTrials runs a batch of stacked trials on the worker pool.
func (h *StackedSearch) RunTrials(ctx context.Context, n int, scale float64) (BatchSummary, error) {
	return runBatch(ctx, h.Search, h, n, scale)
}

var _ Handler = (*StackedSearch)(nil)
