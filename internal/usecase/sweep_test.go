package usecase

import (
	"context"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SweepLab/internal/domain/models"
	"SweepLab/internal/services/segments"
	"SweepLab/internal/services/vector"
	"SweepLab/pkg/logger"
)

type fakeMetrics struct {
	mu           sync.Mutex
	errors       map[string]int
	combinations map[string]int
	results      int
	progress     map[string]float64
	cleared      []string
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{errors: map[string]int{}, combinations: map[string]int{}, progress: map[string]float64{}}
}

func (m *fakeMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[kind]++
}

func (m *fakeMetrics) RecordLatency(string, float64) {}

func (m *fakeMetrics) RecordCombinations(outcome string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.combinations[outcome] += n
}

func (m *fakeMetrics) RecordResults(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results += n
}

func (m *fakeMetrics) SetProgress(runID string, ratio float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.progress[runID] = ratio
}

func (m *fakeMetrics) ClearProgress(runID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleared = append(m.cleared, runID)
}

// randomWalk builds 08:00..08:59 minute bars over days business days.
func randomWalk(t *testing.T, days int) *models.Series {
	t.Helper()
	rng := rand.New(rand.NewPCG(7, 11))
	var samples []models.Sample
	v := 100.0
	day := time.Date(2021, 1, 4, 0, 0, 0, 0, time.UTC)
	for d := 0; d < days; d++ {
		for m := range 60 {
			v += rng.NormFloat64()
			samples = append(samples, models.Sample{
				Timestamp: day.Add(8*time.Hour + time.Duration(m)*time.Minute),
				Value:     v,
			})
		}
		day = day.AddDate(0, 0, 1)
	}
	s, err := models.NewSeries(samples)
	require.NoError(t, err)
	return s
}

func sweepConfig(threads int) SweepConfiguration {
	return SweepConfiguration{
		Intervals:      models.IntervalRange(2, 20, 1),
		StartTimes:     models.TimeRange(models.MustClock("08:00:00"), models.MustClock("08:30:00"), 1),
		ThreadCount:    threads,
		SessionEnd:     models.MustClock("08:40:00"),
		Pairing:        segments.LastStartWins,
		FailurePolicy:  FailFast,
		ProgressStride: 50,
	}
}

func byKey(rs []models.StrategyResult) []models.StrategyResult {
	out := slices.Clone(rs)
	slices.SortFunc(out, func(a, b models.StrategyResult) int { return strings.Compare(a.Key(), b.Key()) })
	return out
}

func TestPartition(t *testing.T) {
	intervals := models.IntervalRange(2, 59, 1)
	chunks := Partition(intervals, 4)
	require.Len(t, chunks, 4)
	assert.Equal(t, []int{15, 15, 14, 14}, []int{len(chunks[0]), len(chunks[1]), len(chunks[2]), len(chunks[3])})
	assert.Equal(t, intervals, slices.Concat(chunks...))

	chunks = Partition([]uint64{1, 2}, 3)
	assert.Len(t, chunks, 3)
	assert.Empty(t, chunks[2])
}

func TestSweepSingleAndMultiThreadedAgree(t *testing.T) {
	series := randomWalk(t, 30)

	single, err := NewSweeper(logger.Nop(), nil).Run(context.Background(), series, sweepConfig(1), nil)
	require.NoError(t, err)

	for _, threads := range []int{2, 3, 8, 32} {
		multi, err := NewSweeper(logger.Nop(), nil).Run(context.Background(), series, sweepConfig(threads), nil)
		require.NoError(t, err)
		assert.Equal(t, byKey(single), byKey(multi), "threads=%d", threads)
	}
}

func TestSweepResultInvariants(t *testing.T) {
	series := randomWalk(t, 30)
	cfg := sweepConfig(4)
	metrics := newFakeMetrics()

	results, err := NewSweeper(logger.Nop(), metrics).Run(context.Background(), series, cfg, nil)
	require.NoError(t, err)
	require.NotEmpty(t, results)

	keys := make(map[string]struct{}, len(results))
	for _, r := range results {
		assert.Less(t, r.EndTime, cfg.SessionEnd)
		assert.True(t, vector.IsNormal(r.Sharpe), r.Key())
		assert.Greater(t, r.NObs, 1)
		assert.LessOrEqual(t, r.MaxDrawup, r.MaxDrawdown)
		keys[r.Key()] = struct{}{}
	}
	assert.Len(t, keys, len(results))

	total := 0
	for _, n := range metrics.combinations {
		total += n
	}
	assert.Equal(t, cfg.Combinations(), total)
	assert.Positive(t, metrics.combinations[string(OutcomeSession)])
	assert.Equal(t, len(results), metrics.results)
}

func TestSweepProgressGaugeKeyedByRun(t *testing.T) {
	series := randomWalk(t, 5)
	metrics := newFakeMetrics()
	sweeper := NewSweeper(logger.Nop(), metrics)

	// one worker each, so the last gauge write is the final increment
	a, b := sweepConfig(1), sweepConfig(1)
	a.RunID, b.RunID = "run-a", "run-b"
	a.ProgressStride, b.ProgressStride = 1, 1
	_, err := sweeper.Run(context.Background(), series, a, nil)
	require.NoError(t, err)
	_, err = sweeper.Run(context.Background(), series, b, nil)
	require.NoError(t, err)

	assert.InDelta(t, 1, metrics.progress["run-a"], 1e-9)
	assert.InDelta(t, 1, metrics.progress["run-b"], 1e-9)
	assert.NotContains(t, metrics.progress, "")
	assert.Equal(t, []string{"run-a", "run-b"}, metrics.cleared)
}

func TestSweepProgressCountsEveryCombination(t *testing.T) {
	series := randomWalk(t, 5)
	cfg := sweepConfig(3)

	var last models.ProgressSnapshot
	var mu sync.Mutex
	progress := NewProgressCounter(logger.Nop(), cfg.ProgressStride, func(s models.ProgressSnapshot) {
		mu.Lock()
		defer mu.Unlock()
		last = s
	})

	_, err := NewSweeper(logger.Nop(), nil).Run(context.Background(), series, cfg, progress)
	require.NoError(t, err)
	assert.Equal(t, uint64(cfg.Combinations()), progress.Snapshot().Done)
	assert.Equal(t, uint64(cfg.Combinations()), last.Done)
}

func TestSweepEmptyIsError(t *testing.T) {
	series := randomWalk(t, 5)
	cfg := sweepConfig(2)
	cfg.SessionEnd = models.MustClock("08:00:00")

	_, err := NewSweeper(logger.Nop(), nil).Run(context.Background(), series, cfg, nil)
	assert.ErrorIs(t, err, models.ErrNoResults)
}

func TestSweepConditionLengthMismatch(t *testing.T) {
	series := randomWalk(t, 2)
	cfg := sweepConfig(1)
	cfg.ContextConditions = [][]bool{make([]bool, 3)}

	_, err := NewSweeper(logger.Nop(), nil).Run(context.Background(), series, cfg, nil)
	assert.ErrorIs(t, err, models.ErrLengthMismatch)
}

func TestSweepContextConditionsAreApplied(t *testing.T) {
	series := randomWalk(t, 10)
	cfg := sweepConfig(2)

	none := make([]bool, series.Len())
	cfg.ContextConditions = [][]bool{none}
	_, err := NewSweeper(logger.Nop(), nil).Run(context.Background(), series, cfg, nil)
	assert.ErrorIs(t, err, models.ErrNoResults)

	all := make([]bool, series.Len())
	for i := range all {
		all[i] = true
	}
	cfg.ContextConditions = [][]bool{all, all}
	withMask, err := NewSweeper(logger.Nop(), nil).Run(context.Background(), series, cfg, nil)
	require.NoError(t, err)

	cfg.ContextConditions = nil
	without, err := NewSweeper(logger.Nop(), nil).Run(context.Background(), series, cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, byKey(without), byKey(withMask))
}

func TestSweepCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, policy := range []FailurePolicy{FailFast, BestEffort} {
		cfg := sweepConfig(4)
		cfg.FailurePolicy = policy
		_, err := NewSweeper(logger.Nop(), nil).Run(ctx, randomWalk(t, 3), cfg, nil)
		assert.ErrorIs(t, err, context.Canceled, policy.String())
	}
}

func TestSweepWorkerPanicPolicies(t *testing.T) {
	series := randomWalk(t, 3)
	// more clocks than values makes every evaluation index out of range
	broken := &models.Series{
		Times:  series.Times,
		Values: series.Values[:10],
		Clocks: series.Clocks,
	}

	cfg := sweepConfig(3)
	metrics := newFakeMetrics()
	_, err := NewSweeper(logger.Nop(), metrics).Run(context.Background(), broken, cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")
	assert.Positive(t, metrics.errors["sweep_worker"])

	cfg.FailurePolicy = BestEffort
	_, err = NewSweeper(logger.Nop(), nil).Run(context.Background(), broken, cfg, nil)
	assert.ErrorIs(t, err, models.ErrNoResults)
}

func TestParseFailurePolicy(t *testing.T) {
	p, err := ParseFailurePolicy("")
	require.NoError(t, err)
	assert.Equal(t, FailFast, p)

	p, err = ParseFailurePolicy("best_effort")
	require.NoError(t, err)
	assert.Equal(t, BestEffort, p)

	_, err = ParseFailurePolicy("retry")
	assert.Error(t, err)
}
