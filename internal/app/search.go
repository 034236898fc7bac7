// Package app orchestrates pseudo-experiment trials: it wires the
// per-season likelihood engines, injectors, and the bounded minimizer,
// and aggregates batches of fits into summaries.
package app

import (
	"context"
	"fmt"

	"github.com/oscillare/flarehunt/internal/adapters/injector"
	"github.com/oscillare/flarehunt/internal/config"
	"github.com/oscillare/flarehunt/internal/domain/acceptance"
	"github.com/oscillare/flarehunt/internal/domain/llh"
	"github.com/oscillare/flarehunt/internal/domain/model"
	"github.com/oscillare/flarehunt/internal/domain/pdf"
	"github.com/oscillare/flarehunt/pkg/logger"
	"github.com/oscillare/flarehunt/pkg/metrics"
	"gonum.org/v1/gonum/mat"
)

// Mode selects the minimization-handler strategy. The set is closed;
// configuration picks one at construction and it never changes.
type Mode int

const (
	ModeStacked Mode = iota
	ModeFlare
	ModeUnblindStacked
	ModeUnblindFlare
)

// ParseMode maps a configuration string onto a Mode.
func ParseMode(flareSearch, unblind bool) Mode {
	switch {
	case flareSearch && unblind:
		return ModeUnblindFlare
	case flareSearch:
		return ModeFlare
	case unblind:
		return ModeUnblindStacked
	default:
		return ModeStacked
	}
}

// String returns the persisted batch-mode label.
func (m Mode) String() string {
	switch m {
	case ModeFlare:
		return "flare"
	case ModeUnblindStacked:
		return "unblind_stacked"
	case ModeUnblindFlare:
		return "unblind_flare"
	default:
		return "stacked"
	}
}

// TrialResult is one recorded pseudo-experiment fit.
type TrialResult struct {
	TS     float64
	Params []float64
	Flag   int
}

// Handler runs single trials and trial batches. Stacked and flare
// searches implement it; the unblinder wraps one of them.
type Handler interface {
	RunTrial(ctx context.Context, scale float64) (TrialResult, error)
	RunTrials(ctx context.Context, n int, scale float64) (BatchSummary, error)
}

// seasonUnit groups the per-season collaborators.
type seasonUnit struct {
	season  model.Season
	engine  *llh.Engine
	acc     *acceptance.Model
	sampler injector.Sampler
}

// Search holds the read-only state shared by every trial of a batch.
type Search struct {
	units   []seasonUnit
	sources model.Catalog
	layout  model.ParamLayout
	cfg     config.SearchConfig

	workers int
	log     logger.Logger
	met     *metrics.Manager
}

// Option applies a configuration option to the Search.
type Option func(*Search)

// WithWorkers sets the number of parallel trial workers.
func WithWorkers(n int) Option {
	return func(s *Search) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Search) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMetrics sets a custom metrics manager.
func WithMetrics(m *metrics.Manager) Option {
	return func(s *Search) {
		if m != nil {
			s.met = m
		}
	}
}

// NewSearch builds the shared trial state: one likelihood engine and
// acceptance model per season, plus the provided dataset samplers
// (one per season, in season order). PDF and grid problems are fatal
// here.
func NewSearch(seasons []model.Season, sources model.Catalog, cfg config.SearchConfig, samplers []injector.Sampler, opts ...Option) (*Search, error) {
	if len(seasons) == 0 {
		return nil, fmt.Errorf("%w: no seasons", config.ErrInvalidConfig)
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("%w: empty source catalog", config.ErrInvalidConfig)
	}
	if len(samplers) != len(seasons) {
		return nil, fmt.Errorf("%w: %d samplers for %d seasons", config.ErrInvalidConfig, len(samplers), len(seasons))
	}
	// Flare fits run per source with a single pooled n_s, so the two
	// options cannot compose.
	if cfg.FlareSearch && cfg.FitWeights {
		return nil, fmt.Errorf("%w: flare search fits sources independently, fit_weights does not apply", config.ErrInvalidConfig)
	}

	layout := model.ParamLayout{
		NSources:   len(sources),
		FitWeights: cfg.FitWeights,
		FitGamma:   cfg.FitGamma,
	}

	s := &Search{
		sources: sources,
		layout:  layout,
		cfg:     cfg,
		workers: 1,
		log:     logger.Get().Named("search"),
		met:     metrics.Get(),
	}
	for _, opt := range opts {
		opt(s)
	}

	for i, season := range seasons {
		var timePDF pdf.TimePDF
		if cfg.TimePDF.Kind != "" {
			var err error
			timePDF, err = pdf.NewTimePDF(cfg.TimePDF, season)
			if err != nil {
				return nil, fmt.Errorf("season %s: %w", season.Name, err)
			}
		}

		engine, err := llh.New(season, sources, llh.Config{
			TimePDF:      timePDF,
			UseEnergy:    cfg.UseEnergy,
			DefaultGamma: cfg.DefaultGamma,
			Layout:       layout,
		})
		if err != nil {
			return nil, err
		}

		acc, err := acceptance.New(season.Acceptance, layout, cfg.DefaultGamma)
		if err != nil {
			return nil, fmt.Errorf("season %s: %w", season.Name, err)
		}

		s.units = append(s.units, seasonUnit{
			season:  season,
			engine:  engine,
			acc:     acc,
			sampler: samplers[i],
		})
	}
	return s, nil
}

// NewHandler picks the minimization strategy for the mode. The unblind
// modes reuse the same handlers; what makes a run unblinded is the
// samplers wired into the Search, not the fit.
func NewHandler(mode Mode, s *Search) Handler {
	switch mode {
	case ModeFlare, ModeUnblindFlare:
		return NewFlareSearch(s)
	default:
		return NewStackedSearch(s)
	}
}

// Layout exposes the parameter layout for reporting.
func (s *Search) Layout() model.ParamLayout { return s.layout }

// ParamNames returns printable parameter names.
func (s *Search) ParamNames() []string { return s.layout.Names(s.sources) }

// ExpectedInjection sums the samplers' unit-scale expectations.
func (s *Search) ExpectedInjection() float64 {
	total := 0.0
	for _, u := range s.units {
		total += u.sampler.ExpectedInjection()
	}
	return total
}

// weightMatrix builds the normalized expected-signal-fraction matrix
// indexed by (season, source) for the current parameter vector. It is
// recomputed on every objective evaluation because the acceptance
// depends on the trial's gamma.
func (s *Search) weightMatrix(params []float64) *mat.Dense {
	w := mat.NewDense(len(s.units), len(s.sources), nil)
	total := 0.0
	for i, u := range s.units {
		for j, src := range s.sources {
			effTime := u.season.Livetime()
			if tp := u.engine.TimePDF(); tp != nil {
				effTime = tp.EffectiveInjectionTime(src)
			}
			v := u.acc.Acceptance(src, params) * src.DistanceWeight * effTime
			w.Set(i, j, v)
			total += v
		}
	}
	if total > 0 {
		w.Scale(1/total, w)
	}
	return w
}

// zeroSignal returns the parameter vector with every n_s pinned to the
// zero-signal boundary. The minimizer evaluates it as an extra
// candidate so null trials can land on TS = 0 exactly.
func (s *Search) zeroSignal() []float64 {
	p := s.layout.Defaults()
	for i := 0; i < len(p); i++ {
		p[i] = 0
	}
	if s.layout.FitGamma {
		p[len(p)-1] = s.cfg.DefaultGamma
	}
	return p
}
