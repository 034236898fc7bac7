package pdf_test

import (
	"math"
	"testing"

	"github.com/oscillare/flarehunt/internal/domain/model"
	"github.com/oscillare/flarehunt/internal/domain/pdf"
	. "github.com/smartystreets/goconvey/convey"
)

func testSeason() model.Season {
	return model.Season{Name: "test", StartMJD: 55000, EndMJD: 55100}
}

func TestAngularDistance(t *testing.T) {
	Convey("Given sky positions", t, func() {
		Convey("Then coincident points have zero distance", func() {
			So(pdf.AngularDistance(1.2, 0.4, 1.2, 0.4), ShouldAlmostEqual, 0, 1e-12)
		})

		Convey("Then antipodal points on the equator are pi apart", func() {
			So(pdf.AngularDistance(0, 0, math.Pi, 0), ShouldAlmostEqual, math.Pi, 1e-12)
		})

		Convey("Then the distance is symmetric", func() {
			a := pdf.AngularDistance(0.3, 0.2, 2.9, -0.8)
			b := pdf.AngularDistance(2.9, -0.8, 0.3, 0.2)
			So(a, ShouldAlmostEqual, b, 1e-12)
		})

		Convey("Then pole separation equals the declination difference", func() {
			So(pdf.AngularDistance(0, math.Pi/2, 3, 0), ShouldAlmostEqual, math.Pi/2, 1e-9)
		})

		Convey("Then tiny separations keep full precision", func() {
			const d = 1e-7
			So(pdf.AngularDistance(0.5, 0.3, 0.5, 0.3+d), ShouldAlmostEqual, d, 1e-15)
		})
	})
}

func TestSignalSpatial(t *testing.T) {
	Convey("Given a source and events with known uncertainties", t, func() {
		src := model.Source{RA: 1, Dec: 0.2}
		sigma := 0.01

		Convey("When the event sits on the source", func() {
			vals := pdf.SignalSpatial(src, model.Events{{RA: 1, Dec: 0.2, Sigma: sigma}})

			Convey("Then the PDF peaks at 1/(2 pi sigma^2)", func() {
				So(vals[0], ShouldAlmostEqual, 1/(2*math.Pi*sigma*sigma), 1e-6)
			})
		})

		Convey("When the event is one sigma away", func() {
			vals := pdf.SignalSpatial(src, model.Events{{RA: 1, Dec: 0.2 + sigma, Sigma: sigma}})

			Convey("Then the PDF drops by exp(-1/2)", func() {
				peak := 1 / (2 * math.Pi * sigma * sigma)
				So(vals[0], ShouldAlmostEqual, peak*math.Exp(-0.5), 1e-4)
			})
		})

		Convey("When the event is far away", func() {
			vals := pdf.SignalSpatial(src, model.Events{{RA: 1 + math.Pi, Dec: -0.2, Sigma: sigma}})

			Convey("Then the PDF is negligible", func() {
				So(vals[0], ShouldBeLessThan, 1e-300)
			})
		})
	})
}

func TestBackgroundSpatial(t *testing.T) {
	Convey("Given a flat log-density spline", t, func() {
		bkg, err := pdf.NewBackgroundSpatial(model.SplineKnots{
			X: []float64{-1, -0.5, 0, 0.5, 1},
			Y: []float64{0, 0, 0, 0, 0},
		})
		So(err, ShouldBeNil)

		Convey("Then the PDF is uniform at 1/2pi", func() {
			vals := bkg.Eval(model.Events{{SinDec: 0.3}, {SinDec: -0.9}})
			So(vals[0], ShouldAlmostEqual, 1/(2*math.Pi), 1e-9)
			So(vals[1], ShouldAlmostEqual, 1/(2*math.Pi), 1e-9)
		})
	})
}

func TestTimePDFs(t *testing.T) {
	season := testSeason()
	windowed := model.Source{Name: "flare", StartMJD: 55020, EndMJD: 55030}
	steadySrc := model.Source{Name: "steady"}

	Convey("Given the steady model", t, func() {
		p, err := pdf.NewTimePDF(pdf.TimeSpec{Kind: pdf.TimeSteady}, season)
		So(err, ShouldBeNil)

		Convey("Then signal and background densities cancel", func() {
			So(p.SignalF(55050, steadySrc), ShouldAlmostEqual, p.BackgroundF(55050, steadySrc), 1e-12)
		})

		Convey("Then the effective injection time is the livetime", func() {
			So(p.EffectiveInjectionTime(steadySrc), ShouldAlmostEqual, 100, 1e-12)
		})
	})

	Convey("Given the box model", t, func() {
		p, err := pdf.NewTimePDF(pdf.TimeSpec{Kind: pdf.TimeBox}, season)
		So(err, ShouldBeNil)

		Convey("Then the signal density is flat inside the source window", func() {
			So(p.SignalF(55025, windowed), ShouldAlmostEqual, 0.1, 1e-12)
			So(p.SignalF(55050, windowed), ShouldEqual, 0)
		})

		Convey("Then a window-less source spans the season", func() {
			start, end := p.FlareTimeMask(steadySrc)
			So(start, ShouldEqual, season.StartMJD)
			So(end, ShouldEqual, season.EndMJD)
		})

		Convey("Then windows are clipped to the season", func() {
			clipped := model.Source{Name: "edge", StartMJD: 54990, EndMJD: 55010}
			So(p.EffectiveInjectionTime(clipped), ShouldAlmostEqual, 10, 1e-12)
		})
	})

	Convey("Given the gaussian model", t, func() {
		p, err := pdf.NewTimePDF(pdf.TimeSpec{Kind: pdf.TimeGaussian, SigmaDays: 2}, season)
		So(err, ShouldBeNil)

		Convey("Then the profile peaks at the window midpoint", func() {
			peak := p.SignalF(55025, windowed)
			So(peak, ShouldAlmostEqual, 1/(math.Sqrt(2*math.Pi)*2), 1e-9)
			So(p.SignalF(55027, windowed), ShouldBeLessThan, peak)
		})

		Convey("Then a flare deep inside the season has full coverage", func() {
			So(p.EffectiveInjectionTime(windowed), ShouldAlmostEqual, math.Sqrt(2*math.Pi)*2, 1e-6)
		})

		Convey("Then a non-positive width is rejected", func() {
			_, err := pdf.NewTimePDF(pdf.TimeSpec{Kind: pdf.TimeGaussian}, season)
			So(err, ShouldNotBeNil)
		})
	})

	Convey("Given an unknown kind", t, func() {
		_, err := pdf.NewTimePDF(pdf.TimeSpec{Kind: "sawtooth"}, season)

		Convey("Then construction fails", func() {
			So(err, ShouldNotBeNil)
		})
	})
}

func TestFixedWindow(t *testing.T) {
	season := testSeason()

	Convey("Given a window inside the season", t, func() {
		w := pdf.NewFixedWindow(season, 55010, 55020)

		Convey("Then density is uniform strictly inside", func() {
			So(w.SignalF(55015, model.Source{}), ShouldAlmostEqual, 0.1, 1e-12)
			So(w.SignalF(55010, model.Source{}), ShouldEqual, 0)
			So(w.SignalF(55025, model.Source{}), ShouldEqual, 0)
		})
	})

	Convey("Given a window reaching past the season", t, func() {
		w := pdf.NewFixedWindow(season, 55090, 55200)
		start, end := w.Bounds()

		Convey("Then it is clipped", func() {
			So(start, ShouldEqual, 55090)
			So(end, ShouldEqual, 55100)
		})
	})

	Convey("Given an inverted window", t, func() {
		w := pdf.NewFixedWindow(season, 55030, 55010)

		Convey("Then it collapses to zero length", func() {
			So(w.EffectiveInjectionTime(model.Source{}), ShouldEqual, 0)
		})
	})
}
