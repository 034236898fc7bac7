package repository

import "errors"

// Sentinel kinds for result-store errors.
var (
	ErrNoBackground = errors.New("no background trials persisted")
	ErrNotFound     = errors.New("batch not found")
)
