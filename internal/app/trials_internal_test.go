package app

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/oscillare/flarehunt/pkg/logger"
	"github.com/oscillare/flarehunt/pkg/metrics"
	. "github.com/smartystreets/goconvey/convey"
)

// failOnceHandler fails exactly one trial with its root error; every
// other trial blocks until the batch is cancelled and then reports the
// context error, like a real fit interrupted mid-minimization.
type failOnceHandler struct {
	rootErr error
	once    sync.Once
}

func (h *failOnceHandler) RunTrial(ctx context.Context, _ float64) (TrialResult, error) {
	failed := false
	h.once.Do(func() { failed = true })
	if failed {
		return TrialResult{}, h.rootErr
	}
	<-ctx.Done()
	return TrialResult{}, ctx.Err()
}

func (h *failOnceHandler) RunTrials(context.Context, int, float64) (BatchSummary, error) {
	return BatchSummary{}, nil
}

func TestRunBatchRootCauseError(t *testing.T) {
	rootErr := errors.New("energy grid out of range")
	h := &failOnceHandler{rootErr: rootErr}
	s := &Search{workers: 2, log: logger.Get().Named("test"), met: metrics.Get()}

	_, err := runBatch(context.Background(), s, h, 8, 0)

	Convey("Given a batch where one trial fails and cancels the rest", t, func() {
		Convey("Then the root cause is returned, not a sibling cancellation", func() {
			So(errors.Is(err, rootErr), ShouldBeTrue)
			So(errors.Is(err, context.Canceled), ShouldBeFalse)
		})
	})
}
