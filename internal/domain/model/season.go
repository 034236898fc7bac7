package model

// AcceptanceGrid holds the serialized detector exposure table for one
// season, tabulated over declination and spectral index.
type AcceptanceGrid struct {
	DecBins   []float64   `yaml:"dec_bins"`   // radians, ascending
	GammaBins []float64   `yaml:"gamma_bins"` // spectral index, ascending
	Values    [][]float64 `yaml:"values"`     // [dec][gamma]
}

// SplineKnots holds the knot points of a pre-fit one dimensional
// spline, consumed read-only.
type SplineKnots struct {
	X []float64 `yaml:"x"`
	Y []float64 `yaml:"y"`
}

// EnergySoBGrid holds pre-fit log(signal/background) energy tables,
// one 2-D table per spectral-index grid point.
type EnergySoBGrid struct {
	// Precision is the gamma grid spacing. Gammas must be integer
	// multiples of it.
	Precision float64   `yaml:"precision"`
	Gammas    []float64 `yaml:"gammas"`

	LogEBins   []float64 `yaml:"log_e_bins"`
	SinDecBins []float64 `yaml:"sin_dec_bins"`

	// Tables is indexed [gamma][logE][sinDec] and stores log(SoB).
	Tables [][][]float64 `yaml:"tables"`
}

// Season is a named dataset partition. It owns its events exclusively;
// seasons are combined only at the weighting stage.
type Season struct {
	Name     string  `yaml:"name"`
	StartMJD float64 `yaml:"start_mjd"`
	EndMJD   float64 `yaml:"end_mjd"`

	Acceptance       AcceptanceGrid `yaml:"acceptance"`
	BackgroundSpline SplineKnots    `yaml:"background_spline"`

	// EnergySoB is present only when the season carries an energy
	// model; Enabled distinguishes an absent model from an empty one.
	EnergySoB        EnergySoBGrid `yaml:"energy_sob"`
	EnergySoBEnabled bool          `yaml:"energy_sob_enabled"`

	Events Events `yaml:"-"`
}

// Livetime returns the season length in days.
func (s Season) Livetime() float64 {
	return s.EndMJD - s.StartMJD
}
