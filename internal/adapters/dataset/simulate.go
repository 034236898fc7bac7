package dataset

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/oscillare/flarehunt/internal/domain/model"
)

// SimulateCatalog generates a synthetic source catalog: positions
// uniform on the sphere (uniform RA, uniform sin(dec)), unit distance
// weights, and reference flare windows drawn uniformly over the given
// MJD span. Useful for null tests and pipeline checks.
func SimulateCatalog(n int, startMJD, endMJD float64, windowDays float64, seed int64) (model.Catalog, error) {
	if n <= 0 {
		return nil, fmt.Errorf("catalog size must be positive, got %d", n)
	}
	if endMJD <= startMJD {
		return nil, fmt.Errorf("catalog span: end MJD %v not after start %v", endMJD, startMJD)
	}
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // synthetic catalog, not cryptographic

	cat := make(model.Catalog, n)
	for i := range cat {
		ref := startMJD + rng.Float64()*(endMJD-startMJD)
		src := model.Source{
			Name:           fmt.Sprintf("src%d", i),
			RA:             rng.Float64() * 2 * math.Pi,
			Dec:            math.Asin(2*rng.Float64() - 1),
			DistanceWeight: 1,
		}
		if windowDays > 0 {
			src.StartMJD = math.Max(startMJD, ref-windowDays/2)
			src.EndMJD = math.Min(endMJD, ref+windowDays/2)
		}
		cat[i] = src
	}
	return cat, nil
}
