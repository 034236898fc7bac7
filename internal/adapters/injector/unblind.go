package injector

import (
	"math"
	"math/rand"

	"github.com/oscillare/flarehunt/internal/domain/model"
)

// MockUnblinded returns a fixed-seed background scramble regardless of
// the requested scale. It stands in for real data during analysis
// dry-runs so an "unblinding" exercises the full pipeline without
// looking at the sky.
type MockUnblinded struct {
	season model.Season
	seed   int64
}

// NewMockUnblinded builds a mock-unblinded sampler with a fixed seed.
func NewMockUnblinded(season model.Season, seed int64) *MockUnblinded {
	return &MockUnblinded{season: season, seed: seed}
}

func (m *MockUnblinded) CreateDataset(_ float64) model.Events {
	rng := rand.New(rand.NewSource(m.seed)) //nolint:gosec // statistical sampling, not cryptographic
	out := make(model.Events, len(m.season.Events))
	for i, ev := range m.season.Events {
		ev.RA = rng.Float64() * 2 * math.Pi
		ev.Time = m.season.StartMJD + rng.Float64()*m.season.Livetime()
		out[i] = ev
	}
	return out
}

func (m *MockUnblinded) ExpectedInjection() float64 { return 0 }

// TrueUnblinded passes the season's real events through untouched.
// Only the unblind command constructs one.
type TrueUnblinded struct {
	season model.Season
}

// NewTrueUnblinded builds a pass-through sampler over real data.
func NewTrueUnblinded(season model.Season) *TrueUnblinded {
	return &TrueUnblinded{season: season}
}

func (t *TrueUnblinded) CreateDataset(_ float64) model.Events {
	out := make(model.Events, len(t.season.Events))
	copy(out, t.season.Events)
	return out
}

func (t *TrueUnblinded) ExpectedInjection() float64 { return 0 }
