// Package repository persists trial batches so sensitivity and
// unblinding runs can consume test-statistic distributions produced by
// earlier (possibly cluster-distributed) batches.
package repository

import (
	"context"
	"time"
)

// Trial is one recorded pseudo-experiment fit.
type Trial struct {
	TS     float64
	Params []float64
	Flag   int
}

// Batch is a group of trials run at one injection scale.
type Batch struct {
	ID        string
	Scale     float64
	Mode      string
	CreatedAt time.Time
	Trials    []Trial
}

// Store provides append-only access to persisted trial results.
type Store interface {
	// SaveBatch persists a batch and all of its trials atomically.
	SaveBatch(ctx context.Context, b Batch) error

	// TrialsAtScale returns all persisted trials with the given
	// injection scale, across batches.
	TrialsAtScale(ctx context.Context, scale float64) ([]Trial, error)

	// BackgroundTS returns the test statistics of all persisted
	// background-only (scale = 0) trials. ErrNoBackground when none
	// exist.
	BackgroundTS(ctx context.Context) ([]float64, error)

	// Scales lists the distinct injection scales present.
	Scales(ctx context.Context) ([]float64, error)

	Close() error
}
