package app_test

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/oscillare/flarehunt/internal/adapters/injector"
	"github.com/oscillare/flarehunt/internal/app"
	"github.com/oscillare/flarehunt/internal/config"
	"github.com/oscillare/flarehunt/internal/domain/model"
	"github.com/oscillare/flarehunt/internal/domain/pdf"
	. "github.com/smartystreets/goconvey/convey"
)

// testSeason builds a season with a flat sky, a flat acceptance table,
// and n uniform background events.
func testSeason(n int, seed int64) model.Season {
	season := model.Season{
		Name:     "sim",
		StartMJD: 55000,
		EndMJD:   55100,
		Acceptance: model.AcceptanceGrid{
			DecBins:   []float64{-math.Pi / 2, math.Pi / 2},
			GammaBins: []float64{1, 4},
			Values:    [][]float64{{1, 1}, {1, 1}},
		},
		BackgroundSpline: model.SplineKnots{
			X: []float64{-1, -0.5, 0, 0.5, 1},
			Y: []float64{0, 0, 0, 0, 0},
		},
	}
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // deterministic fixture
	for i := 0; i < n; i++ {
		dec := math.Asin(2*rng.Float64() - 1)
		season.Events = append(season.Events, model.Event{
			RA:     rng.Float64() * 2 * math.Pi,
			Dec:    dec,
			SinDec: math.Sin(dec),
			Sigma:  0.015,
			LogE:   3,
			Time:   season.StartMJD + rng.Float64()*season.Livetime(),
		})
	}
	return season
}

func testCatalog() model.Catalog {
	return model.Catalog{{
		Name: "src0", RA: 1, Dec: 0.3, DistanceWeight: 1,
		StartMJD: 55020, EndMJD: 55040,
	}}
}

func buildSearch(t *testing.T, cfg config.SearchConfig, season model.Season, cat model.Catalog) *app.Search {
	t.Helper()
	inj, err := injector.New(season, cat, injector.WithSeed(7))
	if err != nil {
		t.Fatalf("building injector: %v", err)
	}
	search, err := app.NewSearch([]model.Season{season}, cat, cfg, []injector.Sampler{inj},
		app.WithWorkers(2))
	if err != nil {
		t.Fatalf("building search: %v", err)
	}
	return search
}

func TestParseMode(t *testing.T) {
	Convey("Given the mode selectors", t, func() {
		So(app.ParseMode(false, false), ShouldEqual, app.ModeStacked)
		So(app.ParseMode(true, false), ShouldEqual, app.ModeFlare)
		So(app.ParseMode(false, true), ShouldEqual, app.ModeUnblindStacked)
		So(app.ParseMode(true, true), ShouldEqual, app.ModeUnblindFlare)

		Convey("Then each mode has a distinct label", func() {
			So(app.ModeStacked.String(), ShouldEqual, "stacked")
			So(app.ModeFlare.String(), ShouldEqual, "flare")
			So(app.ModeUnblindStacked.String(), ShouldEqual, "unblind_stacked")
			So(app.ModeUnblindFlare.String(), ShouldEqual, "unblind_flare")
		})
	})
}

func TestNewSearch(t *testing.T) {
	season := testSeason(100, 1)
	cat := testCatalog()

	Convey("Given incompatible search options", t, func() {
		inj, err := injector.New(season, cat)
		So(err, ShouldBeNil)

		_, err = app.NewSearch([]model.Season{season}, cat,
			config.SearchConfig{FlareSearch: true, FitWeights: true, DefaultGamma: 2,
				TimePDF: pdf.TimeSpec{Kind: pdf.TimeBox}, MinFlareDays: 1},
			[]injector.Sampler{inj})

		Convey("Then construction is rejected", func() {
			So(err, ShouldNotBeNil)
		})
	})

	Convey("Given mismatched samplers", t, func() {
		_, err := app.NewSearch([]model.Season{season}, cat,
			config.SearchConfig{DefaultGamma: 2}, nil)

		Convey("Then construction is rejected", func() {
			So(err, ShouldNotBeNil)
		})
	})
}

func TestStackedSearch(t *testing.T) {
	cfg := config.SearchConfig{DefaultGamma: 2}
	search := buildSearch(t, cfg, testSeason(300, 2), testCatalog())
	handler := app.NewHandler(app.ModeStacked, search)
	ctx := context.Background()

	Convey("Given background-only trials", t, func() {
		summary, err := handler.RunTrials(ctx, 20, 0)
		So(err, ShouldBeNil)

		Convey("Then every trial is recorded in order", func() {
			So(len(summary.Trials), ShouldEqual, 20)
			So(summary.Converged+summary.FellBack, ShouldEqual, 20)
		})

		Convey("Then the test statistic never goes negative", func() {
			for _, trial := range summary.Trials {
				So(trial.TS, ShouldBeGreaterThanOrEqualTo, 0)
			}
			So(summary.MedianTS, ShouldBeGreaterThanOrEqualTo, 0)
		})

		Convey("Then fitted parameters respect the bounds", func() {
			for _, trial := range summary.Trials {
				So(trial.Params[0], ShouldBeBetweenOrEqual, model.MinNS, model.MaxNS)
			}
		})
	})

	Convey("Given a heavy signal injection", t, func() {
		bkg, err := handler.RunTrial(ctx, 0)
		So(err, ShouldBeNil)
		sig, err := handler.RunTrial(ctx, 30)
		So(err, ShouldBeNil)

		Convey("Then the injected trial fits a larger statistic", func() {
			So(sig.TS, ShouldBeGreaterThan, bkg.TS)
			So(sig.Params[0], ShouldBeGreaterThan, 0)
		})
	})
}

func TestFlareSearch(t *testing.T) {
	cfg := config.SearchConfig{
		DefaultGamma:        2,
		FlareSearch:         true,
		TimePDF:             pdf.TimeSpec{Kind: pdf.TimeBox},
		MinFlareDays:        1,
		MaxFlareDays:        50,
		MaxSignificantTimes: 20,
	}
	search := buildSearch(t, cfg, testSeason(200, 3), testCatalog())
	handler := app.NewHandler(app.ModeFlare, search)
	ctx := context.Background()

	Convey("Given a background-only flare trial", t, func() {
		trial, err := handler.RunTrial(ctx, 0)
		So(err, ShouldBeNil)

		Convey("Then the marginalized statistic stays non-negative", func() {
			So(trial.TS, ShouldBeGreaterThanOrEqualTo, 0)
		})
	})

	Convey("Given a flare injected into the source window", t, func() {
		inj, err := injector.New(testSeason(200, 3), testCatalog(),
			injector.WithSeed(11),
			injector.WithTimePDF(mustTimePDF(t, pdf.TimeSpec{Kind: pdf.TimeBox}, testSeason(200, 3))))
		So(err, ShouldBeNil)

		flareSearch, err := app.NewSearch([]model.Season{testSeason(200, 3)}, testCatalog(), cfg,
			[]injector.Sampler{inj}, app.WithWorkers(1))
		So(err, ShouldBeNil)

		trial, err := app.NewHandler(app.ModeFlare, flareSearch).RunTrial(ctx, 25)
		So(err, ShouldBeNil)

		Convey("Then the flare is found with a positive statistic", func() {
			So(trial.TS, ShouldBeGreaterThan, 0)
		})
	})
}

func mustTimePDF(t *testing.T, spec pdf.TimeSpec, season model.Season) pdf.TimePDF {
	t.Helper()
	p, err := pdf.NewTimePDF(spec, season)
	if err != nil {
		t.Fatalf("building time pdf: %v", err)
	}
	return p
}
