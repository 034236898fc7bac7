package injector_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/oscillare/flarehunt/internal/adapters/injector"
	"github.com/oscillare/flarehunt/internal/domain/model"
	"github.com/oscillare/flarehunt/internal/domain/pdf"
	. "github.com/smartystreets/goconvey/convey"
)

func testSeason(n int) model.Season {
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
			X: []float64{-1, 0, 1},
			Y: []float64{0, 0, 0},
		},
	}
	rng := rand.New(rand.NewSource(42)) //nolint:gosec // deterministic fixture
	for i := 0; i < n; i++ {
		dec := math.Asin(2*rng.Float64() - 1)
		season.Events = append(season.Events, model.Event{
			RA:     rng.Float64() * 2 * math.Pi,
			Dec:    dec,
			SinDec: math.Sin(dec),
			Sigma:  0.01,
			LogE:   3.5,
			Time:   season.StartMJD + rng.Float64()*season.Livetime(),
		})
	}
	return season
}

func TestInjector(t *testing.T) {
	season := testSeason(100)
	cat := model.Catalog{
		{Name: "a", RA: 1, Dec: 0.3, DistanceWeight: 1},
		{Name: "b", RA: 4, Dec: -0.5, DistanceWeight: 3},
	}

	Convey("Given an injector over a two-source catalog", t, func() {
		inj, err := injector.New(season, cat, injector.WithSeed(5))
		So(err, ShouldBeNil)

		Convey("Then the unit-scale expectation is normalized to one event", func() {
			So(inj.ExpectedInjection(), ShouldAlmostEqual, 1, 1e-12)
		})

		Convey("When drawing a background-only dataset", func() {
			events := inj.CreateDataset(0)

			Convey("Then the sample size is preserved", func() {
				So(len(events), ShouldEqual, 100)
			})

			Convey("Then declinations and energies survive the scramble", func() {
				So(events[0].Dec, ShouldEqual, season.Events[0].Dec)
				So(events[0].LogE, ShouldEqual, season.Events[0].LogE)
			})

			Convey("Then right ascensions and times are redrawn in range", func() {
				for _, ev := range events {
					So(ev.RA, ShouldBeBetweenOrEqual, 0, 2*math.Pi)
					So(ev.Time, ShouldBeBetweenOrEqual, season.StartMJD, season.EndMJD)
				}
			})
		})

		Convey("When injecting at a large scale", func() {
			events := inj.CreateDataset(200)
			injected := events[100:]

			Convey("Then the injected count fluctuates around the scale", func() {
				So(len(injected), ShouldBeBetween, 120, 280)
			})

			Convey("Then injected events cluster near the sources", func() {
				for _, ev := range injected {
					dA := pdf.AngularDistance(ev.RA, ev.Dec, cat[0].RA, cat[0].Dec)
					dB := pdf.AngularDistance(ev.RA, ev.Dec, cat[1].RA, cat[1].Dec)
					So(math.Min(dA, dB), ShouldBeLessThan, 6*math.Pi/180)
				}
			})
		})
	})

	Convey("Given a box temporal injection model", t, func() {
		src := model.Source{Name: "flare", RA: 1, Dec: 0.3, DistanceWeight: 1,
			StartMJD: 55020, EndMJD: 55030}
		timePDF, err := pdf.NewTimePDF(pdf.TimeSpec{Kind: pdf.TimeBox}, season)
		So(err, ShouldBeNil)

		inj, err := injector.New(season, model.Catalog{src},
			injector.WithSeed(9), injector.WithTimePDF(timePDF))
		So(err, ShouldBeNil)

		Convey("When injecting heavily", func() {
			events := inj.CreateDataset(100)
			injected := events[100:]

			Convey("Then every signal time falls inside the flare window", func() {
				So(len(injected), ShouldBeGreaterThan, 0)
				for _, ev := range injected {
					So(ev.Time, ShouldBeBetweenOrEqual, src.StartMJD, src.EndMJD)
				}
			})
		})
	})
}

func TestUnblindedSamplers(t *testing.T) {
	season := testSeason(50)

	Convey("Given a mock-unblinded sampler", t, func() {
		mock := injector.NewMockUnblinded(season, 17)

		Convey("Then repeated draws are identical", func() {
			a := mock.CreateDataset(0)
			b := mock.CreateDataset(123)
			So(a, ShouldResemble, b)
		})

		Convey("Then the scramble moved the right ascensions", func() {
			a := mock.CreateDataset(0)
			moved := 0
			for i := range a {
				if a[i].RA != season.Events[i].RA {
					moved++
				}
			}
			So(moved, ShouldBeGreaterThan, 40)
		})
	})

	Convey("Given a true-unblinded sampler", t, func() {
		raw := injector.NewTrueUnblinded(season)

		Convey("Then the data passes through untouched", func() {
			So(raw.CreateDataset(0), ShouldResemble, season.Events)
		})
	})
}
