package app

import (
	"context"
	"errors"

	"github.com/oscillare/flarehunt/internal/adapters/repository"
	"github.com/oscillare/flarehunt/internal/results"
	"github.com/oscillare/flarehunt/pkg/logger"
)

// UnblindResult is the single fit of the (possibly mock) unblinded
// dataset, with its place in the persisted background distribution.
type UnblindResult struct {
	TS     float64
	Params []float64
	Flag   int

	// PValue is the fraction of persisted background trials at or
	// above TS; valid only when PValueKnown is set. It is unknown when
	// the store holds no background batches yet.
	PValue      float64
	PValueKnown bool
}

// Unblinder runs exactly one trial against real (or mock-scrambled)
// data through the wrapped handler and scores it against the stored
// background-only distribution. The samplers behind the handler decide
// whether the dataset is truly unblinded.
type Unblinder struct {
	handler Handler
	store   repository.Store
	log     logger.Logger
}

// NewUnblinder wires a handler to a results store.
func NewUnblinder(h Handler, store repository.Store, log logger.Logger) *Unblinder {
	if log == nil {
		log = logger.Get().Named("unblind")
	}
	return &Unblinder{handler: h, store: store, log: log}
}

// Unblind fits the unblinded dataset once. Injection scale is always
// zero; the data is whatever the samplers return.
func (u *Unblinder) Unblind(ctx context.Context) (UnblindResult, error) {
	trial, err := u.handler.RunTrial(ctx, 0)
	if err != nil {
		return UnblindResult{}, err
	}
	out := UnblindResult{TS: trial.TS, Params: trial.Params, Flag: trial.Flag}

	bkg, err := u.store.BackgroundTS(ctx)
	switch {
	case errors.Is(err, repository.ErrNoBackground):
		u.log.Warn(ctx, "no background trials persisted, p-value not available",
			logger.Float64("ts", out.TS))
		return out, nil
	case err != nil:
		return UnblindResult{}, err
	}

	out.PValue = results.FractionOver(bkg, out.TS)
	out.PValueKnown = true
	u.log.Info(ctx, "unblinding complete",
		logger.Float64("ts", out.TS),
		logger.Float64("p_value", out.PValue),
		logger.Int("background_trials", len(bkg)))
	return out, nil
}
