package usecase

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SweepLab/internal/domain/models"
	drepo "SweepLab/internal/domain/repository"
	"SweepLab/pkg/logger"
)

type memSeries struct {
	samples []models.Sample
	err     error
	last    drepo.SeriesQuery
}

func (m *memSeries) LoadSeries(_ context.Context, q drepo.SeriesQuery) ([]models.Sample, error) {
	m.last = q
	return m.samples, m.err
}

type memEvents struct{ events []models.Event }

func (m memEvents) LoadEvents(context.Context) ([]models.Event, error) { return m.events, nil }

type memSink struct {
	mu     sync.Mutex
	writes map[string][]models.StrategyResult
	err    error
}

func (m *memSink) Name() string { return "mem" }

func (m *memSink) Write(_ context.Context, runID string, rs []models.StrategyResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.writes == nil {
		m.writes = map[string][]models.StrategyResult{}
	}
	m.writes[runID] = rs
	return nil
}

type memCache struct {
	mu     sync.Mutex
	data   map[string][]models.StrategyResult
	locked map[string]bool
}

func newMemCache() *memCache {
	return &memCache{data: map[string][]models.StrategyResult{}, locked: map[string]bool{}}
}

func (c *memCache) Get(_ context.Context, key string) ([]models.StrategyResult, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rs, ok := c.data[key]
	return rs, ok, nil
}

func (c *memCache) Set(_ context.Context, key string, rs []models.StrategyResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = rs
	return nil
}

func (c *memCache) Acquire(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.locked[key] {
		return false, nil
	}
	c.locked[key] = true
	return true, nil
}

func (c *memCache) Release(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.locked, key)
	return nil
}

func walkSamples(t *testing.T, days int) []models.Sample {
	s := randomWalk(t, days)
	out := make([]models.Sample, s.Len())
	for i := range out {
		out[i] = models.Sample{Timestamp: s.Times[i], Value: s.Values[i]}
	}
	return out
}

func smallRequest() models.SweepRequest {
	return models.SweepRequest{
		Symbol:      "ZN",
		IntervalMin: 2,
		IntervalMax: 10,
		StartFrom:   "08:00:00",
		StartTo:     "08:20:00",
		SessionEnd:  "08:45:00",
	}
}

func TestNormalizeRequestDefaults(t *testing.T) {
	var req models.SweepRequest
	require.NoError(t, NormalizeRequest(context.Background(), &req))
	assert.Equal(t, uint64(2), req.IntervalMin)
	assert.Equal(t, uint64(59), req.IntervalMax)
	assert.Equal(t, "08:00:00", req.StartFrom)
	assert.Equal(t, "10:30:00", req.StartTo)
	assert.Equal(t, "17:00:00", req.SessionEnd)
	assert.Equal(t, "last_start_wins", req.Pairing)
	assert.Equal(t, "fail_fast", req.FailurePolicy)
	assert.Equal(t, "mask", req.Events.Mode)

	bad := models.SweepRequest{IntervalMin: 10, IntervalMax: 5}
	assert.ErrorIs(t, NormalizeRequest(context.Background(), &bad), models.ErrInvalidRequest)

	bad = models.SweepRequest{Pairing: "random"}
	assert.ErrorIs(t, NormalizeRequest(context.Background(), &bad), models.ErrInvalidRequest)
}

func TestBuildConfiguration(t *testing.T) {
	svc := NewSweepService(ServiceConfig{Threads: 3}, &memSeries{}, nil, nil, nil, nil, logger.Nop())
	req := models.SweepRequest{}
	require.NoError(t, NormalizeRequest(context.Background(), &req))

	cfg, err := svc.BuildConfiguration(req)
	require.NoError(t, err)
	assert.Len(t, cfg.Intervals, 58)
	assert.Len(t, cfg.StartTimes, 151)
	assert.Equal(t, 3, cfg.ThreadCount)
	assert.Equal(t, models.MustClock("17:00:00"), cfg.SessionEnd)

	single := NewSweepService(ServiceConfig{SingleThreaded: true, Threads: 8}, &memSeries{}, nil, nil, nil, nil, nil)
	req.Threads = 16
	cfg, err = single.BuildConfiguration(req)
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.ThreadCount)

	req.StartTo = "07:00:00"
	_, err = svc.BuildConfiguration(req)
	assert.ErrorIs(t, err, models.ErrInvalidRequest)
}

func TestOversizedGridRejected(t *testing.T) {
	req := models.SweepRequest{StartStep: math.MaxUint64}
	assert.ErrorIs(t, NormalizeRequest(context.Background(), &req), models.ErrInvalidRequest)

	req = models.SweepRequest{IntervalMax: 1441}
	assert.ErrorIs(t, NormalizeRequest(context.Background(), &req), models.ErrInvalidRequest)

	// requests that skipped normalization still must not panic
	svc := NewSweepService(ServiceConfig{Threads: 1}, &memSeries{}, nil, nil, nil, nil, logger.Nop())
	raw := smallRequest()
	raw.IntervalStep = 1
	raw.StartStep = math.MaxUint64
	cfg, err := svc.BuildConfiguration(raw)
	require.NoError(t, err)
	assert.Equal(t, []models.ClockTime{models.MustClock("08:00:00")}, cfg.StartTimes)

	raw.IntervalMax = math.MaxUint64
	_, err = svc.BuildConfiguration(raw)
	assert.ErrorIs(t, err, models.ErrInvalidRequest)

	raw = smallRequest()
	raw.IntervalMin, raw.IntervalMax, raw.IntervalStep, raw.StartStep = 1, 1440, 1, 1
	raw.StartFrom, raw.StartTo = "00:00:00", "23:59:00"
	cfg, err = svc.BuildConfiguration(raw)
	require.NoError(t, err)
	assert.Equal(t, MaxCombinations, len(cfg.Intervals)*len(cfg.StartTimes))

	raw.StartTo = "24:00:00"
	_, err = svc.BuildConfiguration(raw)
	assert.ErrorIs(t, err, models.ErrInvalidRequest)
}

func TestExecuteWritesSinksAndCaches(t *testing.T) {
	series := &memSeries{samples: walkSamples(t, 20)}
	sink := &memSink{}
	rc := newMemCache()
	svc := NewSweepService(ServiceConfig{Threads: 2, Field: "close"}, series, nil, []drepo.ResultSink{sink}, rc, nil, logger.Nop())

	req := smallRequest()
	req.From = "2021-01-05"
	req.To = "2021-01-20"
	report, err := svc.Execute(context.Background(), "run-1", req, nil)
	require.NoError(t, err)
	assert.False(t, report.Cached)
	assert.NotEmpty(t, report.Results)
	assert.Equal(t, report.Results, sink.writes["run-1"])
	assert.Equal(t, "close", series.last.Field)
	assert.Equal(t, time.Date(2021, 1, 21, 0, 0, 0, 0, time.UTC), series.last.To)

	again, err := svc.Execute(context.Background(), "run-2", req, nil)
	require.NoError(t, err)
	assert.True(t, again.Cached)
	assert.Equal(t, report.Results, again.Results)
	assert.Equal(t, report.Results, sink.writes["run-2"], "cached results still reach the sinks")
}

func TestExecuteRejectsConcurrentDuplicate(t *testing.T) {
	rc := newMemCache()
	req := smallRequest()
	require.NoError(t, NormalizeRequest(context.Background(), &req))
	_, err := rc.Acquire(context.Background(), Fingerprint(req))
	require.NoError(t, err)

	svc := NewSweepService(ServiceConfig{}, &memSeries{samples: walkSamples(t, 5)}, nil, nil, rc, nil, nil)
	_, err = svc.Execute(context.Background(), "dup", smallRequest(), nil)
	assert.ErrorIs(t, err, models.ErrSweepInProgress)
}

func TestExecutePhases(t *testing.T) {
	boom := errors.New("disk gone")

	svc := NewSweepService(ServiceConfig{}, &memSeries{err: boom}, nil, nil, nil, nil, nil)
	_, err := svc.Execute(context.Background(), "r", smallRequest(), nil)
	var pe *models.PhaseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, models.PhaseIngestion, pe.Phase)
	assert.ErrorIs(t, err, boom)

	req := smallRequest()
	req.SessionEnd = "08:00:00"
	svc = NewSweepService(ServiceConfig{}, &memSeries{samples: walkSamples(t, 5)}, nil, nil, nil, nil, nil)
	_, err = svc.Execute(context.Background(), "r", req, nil)
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, models.PhaseSweep, pe.Phase)
	assert.ErrorIs(t, err, models.ErrNoResults)

	svc = NewSweepService(ServiceConfig{}, &memSeries{samples: walkSamples(t, 10)}, nil,
		[]drepo.ResultSink{&memSink{err: boom}}, nil, nil, nil)
	_, err = svc.Execute(context.Background(), "r", smallRequest(), nil)
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, models.PhaseOutput, pe.Phase)
}

func TestExecuteEventWindow(t *testing.T) {
	samples := walkSamples(t, 20)
	events := memEvents{events: []models.Event{
		{ID: "1", Start: time.Date(2021, 1, 6, 8, 30, 0, 0, time.UTC), Impact: models.ImpactHigh, Currency: "USD"},
		{ID: "2", Start: time.Date(2021, 1, 12, 8, 30, 0, 0, time.UTC), Impact: models.ImpactHigh, Currency: "USD"},
		{ID: "3", Start: time.Date(2021, 1, 14, 8, 30, 0, 0, time.UTC), Impact: models.ImpactLow, Currency: "USD"},
	}}

	req := smallRequest()
	req.Events = models.EventWindow{Enabled: true, Impacts: []int{3}, BackDays: 1, FwdDays: 1}

	svc := NewSweepService(ServiceConfig{Threads: 2}, &memSeries{samples: samples}, events, nil, nil, nil, nil)
	masked, err := svc.Execute(context.Background(), "mask", req, nil)
	require.NoError(t, err)
	assert.Equal(t, len(samples), masked.Samples)
	for _, r := range masked.Results {
		// two events, three window days each
		assert.LessOrEqual(t, r.NObs, 6)
	}

	req.Events.Mode = "filter"
	filtered, err := svc.Execute(context.Background(), "filter", req, nil)
	require.NoError(t, err)
	assert.Equal(t, 6*60, filtered.Samples)

	noEvents := NewSweepService(ServiceConfig{}, &memSeries{samples: samples}, nil, nil, nil, nil, nil)
	_, err = noEvents.Execute(context.Background(), "r", req, nil)
	var pe *models.PhaseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, models.PhaseIngestion, pe.Phase)
}
