package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SweepLab/internal/domain/models"
	"SweepLab/pkg/logger"
)

func TestSweepRequestHandler(t *testing.T) {
	var gotID string
	var gotReq models.SweepRequest
	runner := runnerFunc(func(_ context.Context, runID string, req models.SweepRequest, _ *ProgressCounter) (*models.SweepReport, error) {
		gotID, gotReq = runID, req
		return &models.SweepReport{RunID: runID}, nil
	})
	metrics := newFakeMetrics()
	h := NewSweepRequestHandler("sweep.requests", runner, metrics, logger.Nop())
	assert.Equal(t, "sweep.requests", h.Topic())

	require.NoError(t, h.Handle(context.Background(), []byte(`{"run_id":"r-9","request":{"symbol":"ZN","interval_min":3,"interval_max":9}}`)))
	assert.Equal(t, "r-9", gotID)
	assert.Equal(t, "ZN", gotReq.Symbol)
	assert.Equal(t, uint64(9), gotReq.IntervalMax)

	require.NoError(t, h.Handle(context.Background(), []byte(`{"request":{}}`)))
	assert.Len(t, gotID, 36)

	assert.Error(t, h.Handle(context.Background(), []byte(`not json`)))
	assert.Equal(t, 1, metrics.errors["consumer_unmarshal"])
}

func TestSweepRequestHandlerErrors(t *testing.T) {
	dup := runnerFunc(func(context.Context, string, models.SweepRequest, *ProgressCounter) (*models.SweepReport, error) {
		return nil, models.ErrSweepInProgress
	})
	assert.NoError(t, NewSweepRequestHandler("t", dup, nil, nil).Handle(context.Background(), []byte(`{}`)))

	failing := runnerFunc(func(context.Context, string, models.SweepRequest, *ProgressCounter) (*models.SweepReport, error) {
		return nil, models.InPhase(models.PhaseSweep, models.ErrNoResults)
	})
	err := NewSweepRequestHandler("t", failing, nil, nil).Handle(context.Background(), []byte(`{"run_id":"x"}`))
	assert.ErrorIs(t, err, models.ErrNoResults)
}
