package model

// Source is a candidate astrophysical neutrino source. Identity is by
// name; the catalog has no required ordering.
type Source struct {
	Name string `yaml:"name"`

	// Position in radians.
	RA  float64 `yaml:"ra"`
	Dec float64 `yaml:"dec"`

	// DistanceWeight is the relative expected-flux weight of this
	// source within the catalog (e.g. from luminosity distance).
	DistanceWeight float64 `yaml:"distance_weight"`

	// Optional flare search window bounds (MJD). Zero values mean the
	// source carries no window of its own and the season bounds apply.
	StartMJD float64 `yaml:"start_mjd,omitempty"`
	EndMJD   float64 `yaml:"end_mjd,omitempty"`
}

// HasWindow reports whether the source defines its own time window.
func (s Source) HasWindow() bool {
	return s.EndMJD > s.StartMJD
}

// Catalog is a collection of candidate sources.
type Catalog []Source
