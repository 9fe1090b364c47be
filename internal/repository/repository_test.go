package repository

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SweepLab/internal/domain/models"
	drepo "SweepLab/internal/domain/repository"
	"SweepLab/internal/services/features"
	"SweepLab/pkg/cache"
	pkgkafka "SweepLab/pkg/kafka"
)

func sampleResults(n int) []models.StrategyResult {
	out := make([]models.StrategyResult, n)
	for i := range out {
		out[i] = models.StrategyResult{
			Interval:  uint64(i + 2),
			StartTime: models.MustClock("08:00:00"),
			EndTime:   models.MustClock("08:00:00").AddMinutes(uint64(i + 2)),
			Sharpe:    float64(i) + 0.5,
			NObs:      i + 3,
		}
	}
	return out
}

func TestSeriesQuery(t *testing.T) {
	from := time.Date(2021, 1, 4, 8, 0, 30, 0, time.UTC)
	to := time.Date(2021, 1, 5, 0, 0, 0, 0, time.UTC)
	q, args := seriesQuery("sweeplab", "ES", drepo.TF1m, features.FieldHigh, from, to)
	assert.Equal(t, "SELECT bucket, high FROM sweeplab.candles_1m FINAL WHERE symbol = ? AND bucket >= ? AND bucket < ? ORDER BY bucket ASC", q)
	require.Len(t, args, 3)
	assert.Equal(t, time.Date(2021, 1, 4, 8, 0, 0, 0, time.UTC), args[1])

	q, args = seriesQuery("sweeplab", "ES", drepo.TF5m, features.FieldClose, time.Time{}, time.Time{})
	assert.Equal(t, "SELECT bucket, close FROM sweeplab.candles_5m FINAL WHERE symbol = ? ORDER BY bucket ASC", q)
	assert.Equal(t, []any{"ES"}, args)
}

func TestInsertResults(t *testing.T) {
	q, args := insertResults("sweeplab.sweep_results", "run-1", sampleResults(2))
	assert.True(t, strings.HasPrefix(q, "INSERT INTO sweeplab.sweep_results (run_id, interval_min"))
	assert.Equal(t, 2, strings.Count(q, "(?, ?, ?, ?, ?, ?, ?, ?)"))
	require.Len(t, args, 16)
	assert.Equal(t, "run-1", args[0])
	assert.Equal(t, uint64(2), args[1])
	assert.Equal(t, "08:02:00", args[3])
	assert.Equal(t, uint32(3), args[7])
}

type capturePublisher struct {
	batches [][]pkgkafka.Message
	topic   string
	err     error
}

func (c *capturePublisher) PublishBatch(_ context.Context, topic string, msgs []pkgkafka.Message) error {
	c.topic = topic
	c.batches = append(c.batches, msgs)
	return c.err
}

func TestKafkaResultPublisher(t *testing.T) {
	pub := &capturePublisher{}
	p := NewKafkaResultPublisher(pub, "sweep.results", 2, nil)
	require.NoError(t, p.Write(context.Background(), "run-7", sampleResults(5)))

	assert.Equal(t, "sweep.results", pub.topic)
	require.Len(t, pub.batches, 3)
	assert.Len(t, pub.batches[2], 1)
	m := pub.batches[0][1]
	assert.Equal(t, []byte("run-7"), m.Key)
	assert.Equal(t, "run-7", m.Headers[pkgkafka.TraceIDHeader])
	rm, ok := m.Value.(ResultMessage)
	require.True(t, ok)
	assert.Equal(t, uint64(3), rm.Interval)

	pub.err = errors.New("broker down")
	assert.ErrorContains(t, p.Write(context.Background(), "run-8", sampleResults(1)), "broker down")
}

func TestResultCache(t *testing.T) {
	ctx := context.Background()
	mc := cache.NewMemoryCache()
	defer mc.Close()
	rc := NewResultCache(mc, time.Minute, time.Minute)

	_, ok, err := rc.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	want := sampleResults(3)
	require.NoError(t, rc.Set(ctx, "k", want))
	got, ok, err := rc.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)

	ok, err = rc.Acquire(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = rc.Acquire(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, rc.Release(ctx, "k"))
	ok, err = rc.Acquire(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	// the lock does not shadow the cached value
	_, ok, err = rc.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
}
