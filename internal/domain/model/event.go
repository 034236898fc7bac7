// Package model contains domain models passed between layers.
package model

// Event represents a single reconstructed neutrino candidate.
// All angles are in radians and times are MJD days. Events are
// immutable once loaded.
type Event struct {
	RA     float64 // right ascension [0, 2pi)
	Dec    float64 // declination [-pi/2, pi/2]
	Sigma  float64 // angular reconstruction uncertainty
	LogE   float64 // log10 of the reconstructed energy proxy
	Time   float64 // arrival time (MJD)
	SinDec float64 // cached sin(Dec)
}

// Events is an ordered event sequence belonging to one season.
type Events []Event

// Times returns the arrival times of all events, in slice order.
func (e Events) Times() []float64 {
	out := make([]float64, len(e))
	for i, ev := range e {
		out[i] = ev.Time
	}
	return out
}

// Masked returns the subset of events admitted by mask. The mask must
// have the same length as the event sequence.
func (e Events) Masked(mask []bool) Events {
	out := make(Events, 0, len(e))
	for i, ev := range e {
		if mask[i] {
			out = append(out, ev)
		}
	}
	return out
}
