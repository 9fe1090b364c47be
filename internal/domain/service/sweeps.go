package service

import (
	"context"

	"SweepLab/internal/domain/models"
)

// SweepJobs runs sweeps asynchronously and exposes their state.
type SweepJobs interface {
	Submit(ctx context.Context, req models.SweepRequest) (string, error)
	Get(id string) (models.JobView, error)
	Results(id string) ([]models.StrategyResult, error)
	Cancel(id string) error
	// Subscribe streams progress until the job reaches a terminal state, then
	// closes the channel. The returned func unsubscribes early.
	Subscribe(id string) (<-chan models.JobView, func(), error)
}
