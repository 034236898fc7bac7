package app_test

import (
	"context"
	"testing"

	"github.com/oscillare/flarehunt/internal/app"
	"github.com/oscillare/flarehunt/internal/config"
	. "github.com/smartystreets/goconvey/convey"
)

// TestNullDistribution is the canonical whole-engine regression: one
// season of 1000 scrambled background events, one source, no injection.
// The null TS distribution is truncated at zero with a large fraction
// of trials landing exactly on the boundary.
func TestNullDistribution(t *testing.T) {
	if testing.Short() {
		t.Skip("batch of 100 fits")
	}

	search := buildSearch(t, config.SearchConfig{DefaultGamma: 2}, testSeason(1000, 4), testCatalog())
	handler := app.NewHandler(app.ModeStacked, search)

	summary, err := handler.RunTrials(context.Background(), 100, 0)
	if err != nil {
		t.Fatalf("running null batch: %v", err)
	}

	Convey("Given 100 zero-injection trials", t, func() {
		Convey("Then the median TS sits at the boundary", func() {
			So(summary.MedianTS, ShouldBeGreaterThanOrEqualTo, 0)
			So(summary.MedianTS, ShouldBeLessThan, 1)
		})

		Convey("Then a large fraction of trials is exactly zero", func() {
			exact := 0
			for _, trial := range summary.Trials {
				if trial.TS == 0 {
					exact++
				}
			}
			So(exact, ShouldBeGreaterThan, 20)
		})

		Convey("Then no trial goes negative", func() {
			for _, trial := range summary.Trials {
				So(trial.TS, ShouldBeGreaterThanOrEqualTo, 0)
			}
		})
	})
}
