// Package coincidence pre-filters a season's events down to the subset
// plausibly associated with at least one catalog source.
package coincidence

import (
	"math"

	"github.com/oscillare/flarehunt/internal/domain/model"
	"github.com/oscillare/flarehunt/internal/domain/pdf"
)

// Half width of the declination band around each source.
var bandHalfWidth = 5 * math.Pi / 180

// RADistance returns the right-ascension separation with wraparound at
// 0/2pi, always in [0, pi].
func RADistance(ra1, ra2 float64) float64 {
	// math.Mod keeps the sign of the dividend; shift into [0, 2pi)
	// before recentering.
	d := math.Mod(ra1-ra2+math.Pi, 2*math.Pi)
	if d < 0 {
		d += 2 * math.Pi
	}
	return math.Abs(d - math.Pi)
}

// Select returns a mask admitting each event that is spatially and
// (when a temporal model is configured) temporally coincident with at
// least one source. timePDF may be nil when no temporal model is
// configured, in which case no time cut is applied. Pure function of
// its inputs; an empty catalog yields an all-false mask.
func Select(events model.Events, sources model.Catalog, timePDF pdf.TimePDF) []bool {
	mask := make([]bool, len(events))

	for _, src := range sources {
		// Declination band of +/- 5 degrees, clipped to the poles.
		minDec := math.Max(-math.Pi/2, src.Dec-bandHalfWidth)
		maxDec := math.Min(math.Pi/2, src.Dec+bandHalfWidth)

		// Scale the right-ascension window by the smaller cos(dec) of
		// the band edges so the box area stays roughly constant. A
		// window wider than the sky becomes a full-sky cut.
		cosFactor := math.Min(math.Cos(minDec), math.Cos(maxDec))
		dPhi := math.Min(2*math.Pi, 2*bandHalfWidth/cosFactor)
		fullSky := dPhi == 2*math.Pi

		var tStart, tEnd float64
		if timePDF != nil {
			tStart, tEnd = timePDF.FlareTimeMask(src)
		}

		for i, ev := range events {
			if mask[i] {
				continue
			}
			if !(ev.Dec > minDec && ev.Dec < maxDec) {
				continue
			}
			// A saturated window admits everything; the strict cut
			// would still drop events at exactly pi separation.
			if !fullSky && !(RADistance(ev.RA, src.RA) < dPhi/2) {
				continue
			}
			if timePDF != nil && !(ev.Time > tStart && ev.Time < tEnd) {
				continue
			}
			mask[i] = true
		}
	}

	return mask
}

// Count returns the number of admitted events in a mask.
func Count(mask []bool) int {
	n := 0
	for _, ok := range mask {
		if ok {
			n++
		}
	}
	return n
}
