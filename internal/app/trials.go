package app

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/oscillare/flarehunt/internal/domain/minimize"
	"github.com/oscillare/flarehunt/pkg/logger"
	"gonum.org/v1/gonum/stat"
)

// BatchSummary aggregates one batch of pseudo-experiment fits.
type BatchSummary struct {
	Scale  float64
	Trials []TrialResult

	MeanTS   float64
	MedianTS float64

	// Converged and FellBack count trials per minimizer flag.
	Converged int
	FellBack  int

	// Suspect is set when every trial of the batch needed the
	// brute-force fallback, which usually means a misconfigured
	// likelihood rather than a hard objective.
	Suspect bool

	PeakMemoryBytes uint64
}

// TSValues extracts the test statistics of the batch in trial order.
func (b BatchSummary) TSValues() []float64 {
	out := make([]float64, len(b.Trials))
	for i, t := range b.Trials {
		out[i] = t.TS
	}
	return out
}

// ParamValues extracts the fitted parameter vectors in trial order.
func (b BatchSummary) ParamValues() [][]float64 {
	out := make([][]float64, len(b.Trials))
	for i, t := range b.Trials {
		out[i] = t.Params
	}
	return out
}

// runBatch executes n independent trials on a bounded worker pool.
// Trials write into preassigned slots, so the batch is reproducible in
// ordering regardless of scheduling. The first trial error cancels the
// remainder.
func runBatch(ctx context.Context, s *Search, h Handler, n int, scale float64) (BatchSummary, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	trials := make([]TrialResult, n)
	indices := make(chan int)

	// The error that triggered cancellation; later trials fail with
	// context.Canceled and must not mask it.
	var (
		errOnce  sync.Once
		firstErr error
	)

	var wg sync.WaitGroup
	for w := 0; w < s.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indices {
				start := time.Now()
				res, err := h.RunTrial(ctx, scale)
				if err != nil {
					errOnce.Do(func() {
						firstErr = err
						cancel()
					})
					return
				}
				trials[i] = res
				s.met.RecordTrial(time.Since(start).Seconds(), res.Flag != minimize.FlagConverged)
			}
		}()
	}

feed:
	for i := 0; i < n; i++ {
		select {
		case indices <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(indices)
	wg.Wait()

	if firstErr != nil {
		return BatchSummary{}, firstErr
	}
	if err := ctx.Err(); err != nil {
		return BatchSummary{}, err
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	summary := summarize(trials, scale, mem.HeapAlloc)
	s.met.RecordBatch(summary.PeakMemoryBytes)
	s.log.Info(ctx, "batch complete",
		logger.Int("trials", n),
		logger.Float64("scale", scale),
		logger.Float64("median_ts", summary.MedianTS),
		logger.Int("fallbacks", summary.FellBack))
	return summary, nil
}

func summarize(trials []TrialResult, scale float64, peakMem uint64) BatchSummary {
	b := BatchSummary{Scale: scale, Trials: trials, PeakMemoryBytes: peakMem}

	ts := b.TSValues()
	sorted := append([]float64(nil), ts...)
	stat.SortWeighted(sorted, nil)

	b.MeanTS = stat.Mean(ts, nil)
	b.MedianTS = stat.Quantile(0.5, stat.Empirical, sorted, nil)

	for _, t := range trials {
		if t.Flag == minimize.FlagConverged {
			b.Converged++
		} else {
			b.FellBack++
		}
	}
	b.Suspect = len(trials) > 0 && b.Converged == 0
	return b
}
