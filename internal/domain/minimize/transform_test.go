package minimize

import (
	"testing"

	"github.com/oscillare/flarehunt/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestBoundTransformRoundTrip(t *testing.T) {
	bounds := []model.Bound{{Lo: 0, Hi: 1000}, {Lo: 1, Hi: 4}}

	Convey("Given interior points", t, func() {
		x := []float64{37.5, 2.2}
		back := fromUnbounded(toUnbounded(x, bounds), bounds)

		Convey("Then the transform round-trips", func() {
			So(back[0], ShouldAlmostEqual, x[0], 1e-6)
			So(back[1], ShouldAlmostEqual, x[1], 1e-9)
		})
	})

	Convey("Given points on the bounds", t, func() {
		y := toUnbounded([]float64{0, 4}, bounds)
		back := fromUnbounded(y, bounds)

		Convey("Then the margin keeps them finite and in range", func() {
			So(y[0], ShouldNotEqual, 0)
			So(back[0], ShouldBeBetweenOrEqual, 0, 1000)
			So(back[1], ShouldBeBetweenOrEqual, 1, 4)
		})
	})

	Convey("Given any unbounded input", t, func() {
		back := fromUnbounded([]float64{-1e9, 1e9}, bounds)

		Convey("Then the image stays inside the box", func() {
			So(back[0], ShouldBeBetweenOrEqual, 0, 1000)
			So(back[1], ShouldBeBetweenOrEqual, 1, 4)
		})
	})
}
