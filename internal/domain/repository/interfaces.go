package repository

import (
	"context"

	"SweepLab/internal/domain/models"
)

// ResultSink persists or forwards the results of a finished run.
type ResultSink interface {
	Name() string
	Write(ctx context.Context, runID string, results []models.StrategyResult) error
}

// ResultCache memoizes sweep results by request fingerprint. Acquire marks a
// fingerprint as being computed; it returns false if another run holds it.
type ResultCache interface {
	Get(ctx context.Context, key string) ([]models.StrategyResult, bool, error)
	Set(ctx context.Context, key string, results []models.StrategyResult) error
	Acquire(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

type Metrics interface {
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordCombinations(outcome string, n int)
	RecordResults(n int)
	SetProgress(runID string, ratio float64)
	ClearProgress(runID string)
}
