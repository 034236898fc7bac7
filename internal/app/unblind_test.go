package app_test

import (
	"context"
	"testing"

	"github.com/oscillare/flarehunt/internal/adapters/repository"
	"github.com/oscillare/flarehunt/internal/app"
	. "github.com/smartystreets/goconvey/convey"
)

// fixedHandler always fits the same result.
type fixedHandler struct {
	result app.TrialResult
}

func (f *fixedHandler) RunTrial(context.Context, float64) (app.TrialResult, error) {
	return f.result, nil
}

func (f *fixedHandler) RunTrials(context.Context, int, float64) (app.BatchSummary, error) {
	return app.BatchSummary{}, nil
}

// memStore serves a canned background distribution.
type memStore struct {
	background []float64
}

func (s *memStore) SaveBatch(context.Context, repository.Batch) error { return nil }

func (s *memStore) TrialsAtScale(context.Context, float64) ([]repository.Trial, error) {
	return nil, nil
}

func (s *memStore) BackgroundTS(context.Context) ([]float64, error) {
	if len(s.background) == 0 {
		return nil, repository.ErrNoBackground
	}
	return s.background, nil
}

func (s *memStore) Scales(context.Context) ([]float64, error) { return nil, nil }

func (s *memStore) Close() error { return nil }

func TestUnblinder(t *testing.T) {
	ctx := context.Background()
	handler := &fixedHandler{result: app.TrialResult{TS: 4.5, Params: []float64{2.1}}}

	Convey("Given a persisted background distribution", t, func() {
		store := &memStore{background: []float64{0, 0, 1, 2, 3, 5, 6, 8, 9, 10}}
		res, err := app.NewUnblinder(handler, store, nil).Unblind(ctx)
		So(err, ShouldBeNil)

		Convey("Then the fit is scored against it", func() {
			So(res.TS, ShouldEqual, 4.5)
			So(res.PValueKnown, ShouldBeTrue)
			So(res.PValue, ShouldEqual, 0.5)
		})
	})

	Convey("Given an empty results store", t, func() {
		res, err := app.NewUnblinder(handler, &memStore{}, nil).Unblind(ctx)
		So(err, ShouldBeNil)

		Convey("Then the fit succeeds but the p-value is unavailable", func() {
			So(res.TS, ShouldEqual, 4.5)
			So(res.PValueKnown, ShouldBeFalse)
		})
	})
}
