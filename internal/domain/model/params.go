package model

// Parameter bounds shared by every fit.
const (
	MinNS    = 0.0
	MaxNS    = 1000.0
	MinGamma = 1.0
	MaxGamma = 4.0

	DefaultNS    = 1.0
	DefaultGamma = 2.0
)

// Bound is a closed interval constraint on one fit parameter.
type Bound struct {
	Lo float64
	Hi float64
}

// ParamLayout fixes the length and interpretation of a parameter
// vector at construction time: one n_s per source when weights are
// fit (pooled otherwise), plus a trailing gamma when gamma is fit.
type ParamLayout struct {
	NSources   int
	FitWeights bool
	FitGamma   bool
}

// Len returns the parameter vector length for this layout.
func (l ParamLayout) Len() int {
	n := 1
	if l.FitWeights {
		n = l.NSources
	}
	if l.FitGamma {
		n++
	}
	return n
}

// Defaults returns the initial parameter vector.
func (l ParamLayout) Defaults() []float64 {
	p := make([]float64, 0, l.Len())
	for i := 0; i < l.nsCount(); i++ {
		p = append(p, DefaultNS)
	}
	if l.FitGamma {
		p = append(p, DefaultGamma)
	}
	return p
}

// Bounds returns the box constraints matching Defaults.
func (l ParamLayout) Bounds() []Bound {
	b := make([]Bound, 0, l.Len())
	for i := 0; i < l.nsCount(); i++ {
		b = append(b, Bound{Lo: MinNS, Hi: MaxNS})
	}
	if l.FitGamma {
		b = append(b, Bound{Lo: MinGamma, Hi: MaxGamma})
	}
	return b
}

// Names returns a printable name per parameter, using the given source
// names when weights are fit independently.
func (l ParamLayout) Names(sources Catalog) []string {
	names := make([]string, 0, l.Len())
	if l.FitWeights {
		for _, src := range sources {
			names = append(names, "n_s ("+src.Name+")")
		}
	} else {
		names = append(names, "n_s")
	}
	if l.FitGamma {
		names = append(names, "gamma")
	}
	return names
}

// NS returns the signal-strength entries of params. When weights are
// pooled the single shared value is replicated per source.
func (l ParamLayout) NS(params []float64) []float64 {
	out := make([]float64, l.NSources)
	if l.FitWeights {
		copy(out, params[:l.NSources])
		return out
	}
	for i := range out {
		out[i] = params[0]
	}
	return out
}

// Gamma returns the trailing spectral index and whether it is present.
func (l ParamLayout) Gamma(params []float64) (float64, bool) {
	if !l.FitGamma {
		return 0, false
	}
	return params[len(params)-1], true
}

func (l ParamLayout) nsCount() int {
	if l.FitWeights {
		return l.NSources
	}
	return 1
}
