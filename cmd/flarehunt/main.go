// flarehunt runs unbinned likelihood point-source and flare searches:
// pseudo-experiment trial batches, sensitivity scans, and unblinding of
// real datasets against persisted background distributions.
package main

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/oscillare/flarehunt/internal/adapters/dataset"
	"github.com/oscillare/flarehunt/internal/adapters/injector"
	"github.com/oscillare/flarehunt/internal/adapters/repository"
	"github.com/oscillare/flarehunt/internal/app"
	"github.com/oscillare/flarehunt/internal/config"
	"github.com/oscillare/flarehunt/internal/domain/model"
	"github.com/oscillare/flarehunt/internal/domain/pdf"
	"github.com/oscillare/flarehunt/internal/results"
	"github.com/oscillare/flarehunt/pkg/logger"
	"github.com/oscillare/flarehunt/pkg/metrics"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cliApp := &cli.App{
		Name:  "flarehunt",
		Usage: "unbinned likelihood point-source and flare analysis",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "configuration file (YAML)"},
		},
		Commands: []*cli.Command{
			trialsCommand(),
			sensitivityCommand(),
			unblindCommand(),
			simulateCommand(),
		},
	}

	if err := cliApp.RunContext(ctx, os.Args); err != nil {
		logger.Get().Error(ctx, "command failed", logger.Error(err))
		os.Exit(1)
	}
}

// loadConfig loads and validates configuration, then initializes the
// process-wide logger and metrics endpoint.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		return nil, err
	}
	if cfg.MetricsAddr != "" {
		go serveMetrics(c.Context, cfg.MetricsAddr)
	}
	return cfg, nil
}

func serveMetrics(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Get().Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Get().Warn(ctx, "metrics listener stopped", logger.Error(err))
	}
}

// loadInputs reads the seasons and the source catalog named by the
// configuration.
func loadInputs(cfg *config.Config) ([]model.Season, model.Catalog, error) {
	seasons := make([]model.Season, 0, len(cfg.SeasonPaths))
	for _, p := range cfg.SeasonPaths {
		season, err := dataset.LoadSeason(p)
		if err != nil {
			return nil, nil, err
		}
		seasons = append(seasons, season)
	}
	sources, err := dataset.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		return nil, nil, err
	}
	return seasons, sources, nil
}

// buildSamplers wires one dataset sampler per season. Trial batches use
// injectors; unblinding uses fixed-seed mock scrambles or the raw data.
func buildSamplers(cfg *config.Config, seasons []model.Season, sources model.Catalog, mode app.Mode, mock bool) ([]injector.Sampler, error) {
	samplers := make([]injector.Sampler, len(seasons))
	for i, season := range seasons {
		switch {
		case mode == app.ModeUnblindStacked || mode == app.ModeUnblindFlare:
			if mock {
				samplers[i] = injector.NewMockUnblinded(season, cfg.Injection.Seed)
			} else {
				samplers[i] = injector.NewTrueUnblinded(season)
			}
		default:
			opts := []injector.Option{
				injector.WithSeed(cfg.Injection.Seed + int64(i)),
				injector.WithGamma(cfg.Injection.Gamma),
				injector.WithInjectionSigma(cfg.Injection.SigmaDeg * radPerDeg),
			}
			if cfg.Injection.TimePDF.Kind != "" {
				tp, err := pdf.NewTimePDF(cfg.Injection.TimePDF, season)
				if err != nil {
					return nil, fmt.Errorf("injection time pdf for season %s: %w", season.Name, err)
				}
				opts = append(opts, injector.WithTimePDF(tp))
			}
			inj, err := injector.New(season, sources, opts...)
			if err != nil {
				return nil, err
			}
			samplers[i] = inj
		}
	}
	return samplers, nil
}

const radPerDeg = math.Pi / 180

// buildHandler assembles the full trial pipeline for the mode.
func buildHandler(cfg *config.Config, mode app.Mode, mock bool) (app.Handler, *app.Search, error) {
	seasons, sources, err := loadInputs(cfg)
	if err != nil {
		return nil, nil, err
	}
	samplers, err := buildSamplers(cfg, seasons, sources, mode, mock)
	if err != nil {
		return nil, nil, err
	}
	search, err := app.NewSearch(seasons, sources, cfg.Search, samplers,
		app.WithWorkers(cfg.Workers))
	if err != nil {
		return nil, nil, err
	}
	return app.NewHandler(mode, search), search, nil
}

func trialsCommand() *cli.Command {
	return &cli.Command{
		Name:  "trials",
		Usage: "run a batch of pseudo-experiment trials and persist it",
		Flags: []cli.Flag{
			&cli.Float64Flag{Name: "scale", Usage: "signal injection scale (0 = background only)"},
			&cli.IntFlag{Name: "n", Usage: "number of trials (overrides config)"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			scale := cfg.Scale
			if c.IsSet("scale") {
				scale = c.Float64("scale")
			}
			n := cfg.Trials
			if c.IsSet("n") {
				n = c.Int("n")
			}

			mode := app.ParseMode(cfg.Search.FlareSearch, false)
			handler, search, err := buildHandler(cfg, mode, false)
			if err != nil {
				return err
			}

			summary, err := handler.RunTrials(c.Context, n, scale)
			if err != nil {
				return err
			}
			if summary.Suspect {
				logger.Get().Warn(c.Context, "every trial needed the brute-force fallback, check the likelihood configuration")
			}

			if err := persistBatch(c.Context, cfg, mode, summary); err != nil {
				return err
			}
			return printBatch(search, summary)
		},
	}
}

func persistBatch(ctx context.Context, cfg *config.Config, mode app.Mode, summary app.BatchSummary) error {
	store, err := repository.Open(cfg.ResultsDB)
	if err != nil {
		return err
	}
	defer store.Close()

	batch := repository.Batch{
		ID:    uuid.New().String(),
		Scale: summary.Scale,
		Mode:  mode.String(),
	}
	for _, t := range summary.Trials {
		batch.Trials = append(batch.Trials, repository.Trial{TS: t.TS, Params: t.Params, Flag: t.Flag})
	}
	return store.SaveBatch(ctx, batch)
}

func printBatch(search *app.Search, summary app.BatchSummary) error {
	fmt.Printf("trials: %d  scale: %g\n", len(summary.Trials), summary.Scale)
	fmt.Printf("median TS: %.4f  mean TS: %.4f\n", summary.MedianTS, summary.MeanTS)
	fmt.Printf("converged: %d  fallback: %d\n", summary.Converged, summary.FellBack)

	stats, err := results.Aggregate(search.ParamNames(), transpose(summary.ParamValues()))
	if err != nil {
		return err
	}
	for _, s := range stats {
		fmt.Printf("%-16s mean %.4f  median %.4f  std %.4f\n", s.Name, s.Mean, s.Median, s.Std)
	}
	return nil
}

// transpose flips trial-major parameter vectors into parameter-major
// columns for aggregation.
func transpose(rows [][]float64) [][]float64 {
	if len(rows) == 0 {
		return nil
	}
	cols := make([][]float64, len(rows[0]))
	for j := range cols {
		col := make([]float64, len(rows))
		for i := range rows {
			col[i] = rows[i][j]
		}
		cols[j] = col
	}
	return cols
}

func sensitivityCommand() *cli.Command {
	return &cli.Command{
		Name:  "sensitivity",
		Usage: "iterate injection scales until 95% of signal trials beat the background median",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "max-steps", Value: 15, Usage: "maximum scale iterations"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			mode := app.ParseMode(cfg.Search.FlareSearch, false)
			handler, _, err := buildHandler(cfg, mode, false)
			if err != nil {
				return err
			}

			store, err := repository.Open(cfg.ResultsDB)
			if err != nil {
				return err
			}
			defer store.Close()

			bkgTS, err := store.BackgroundTS(c.Context)
			if err != nil {
				return fmt.Errorf("sensitivity needs persisted background trials, run `flarehunt trials --scale 0` first: %w", err)
			}
			bkg, err := results.SummarizeBackground(bkgTS)
			if err != nil {
				return err
			}

			run := func(ctx context.Context, scale float64) ([]float64, error) {
				summary, err := handler.RunTrials(ctx, cfg.Trials, scale)
				if err != nil {
					return nil, err
				}
				if err := persistBatch(ctx, cfg, mode, summary); err != nil {
					return nil, err
				}
				return summary.TSValues(), nil
			}

			res, err := results.Sensitivity(c.Context, run, bkg.Median, cfg.Scale, c.Int("max-steps"))
			if err != nil {
				return err
			}
			fmt.Printf("background median TS: %.4f over %d trials\n", bkg.Median, bkg.N)
			fmt.Printf("sensitivity scale: %g (fraction over: %.3f, steps: %d, converged: %v)\n",
				res.Scale, res.FractionOver, res.Steps, res.Converged)
			return nil
		},
	}
}

func unblindCommand() *cli.Command {
	return &cli.Command{
		Name:  "unblind",
		Usage: "fit the unblinded dataset once and score it against the background distribution",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "mock", Usage: "scramble with a fixed seed instead of fitting the raw data"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			mode := app.ParseMode(cfg.Search.FlareSearch, true)
			handler, search, err := buildHandler(cfg, mode, c.Bool("mock"))
			if err != nil {
				return err
			}

			store, err := repository.Open(cfg.ResultsDB)
			if err != nil {
				return err
			}
			defer store.Close()

			res, err := app.NewUnblinder(handler, store, nil).Unblind(c.Context)
			if err != nil {
				return err
			}

			fmt.Printf("TS: %.4f\n", res.TS)
			for i, name := range search.ParamNames() {
				fmt.Printf("%-16s %.4f\n", name, res.Params[i])
			}
			if res.PValueKnown {
				fmt.Printf("p-value: %.4f\n", res.PValue)
			} else {
				fmt.Println("p-value: not available (no background trials persisted)")
			}
			return nil
		},
	}
}

func simulateCommand() *cli.Command {
	return &cli.Command{
		Name:  "simulate",
		Usage: "generate a synthetic source catalog",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "n", Value: 10, Usage: "number of sources"},
			&cli.Float64Flag{Name: "start-mjd", Value: 55000, Usage: "span start (MJD)"},
			&cli.Float64Flag{Name: "end-mjd", Value: 55365, Usage: "span end (MJD)"},
			&cli.Float64Flag{Name: "window-days", Usage: "per-source flare window length, 0 = steady"},
			&cli.Int64Flag{Name: "seed", Value: 1, Usage: "RNG seed"},
			&cli.StringFlag{Name: "out", Value: "catalog.yaml", Usage: "output path"},
		},
		Action: func(c *cli.Context) error {
			cat, err := dataset.SimulateCatalog(c.Int("n"), c.Float64("start-mjd"), c.Float64("end-mjd"),
				c.Float64("window-days"), c.Int64("seed"))
			if err != nil {
				return err
			}
			if err := dataset.SaveCatalog(c.String("out"), cat); err != nil {
				return err
			}
			fmt.Printf("wrote %d sources to %s\n", len(cat), c.String("out"))
			return nil
		},
	}
}
