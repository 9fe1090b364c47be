package usecase

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SweepLab/internal/domain/models"
	"SweepLab/internal/services/segments"
)

// twoDaySeries has 08:00..08:03 bars on two days: [10,8,12,9] then [10,11,13,12].
func twoDaySeries(t *testing.T) *models.Series {
	t.Helper()
	var samples []models.Sample
	days := [][]float64{{10, 8, 12, 9}, {10, 11, 13, 12}}
	for d, vals := range days {
		base := time.Date(2021, 1, 4+d, 8, 0, 0, 0, time.UTC)
		for i, v := range vals {
			samples = append(samples, models.Sample{Timestamp: base.Add(time.Duration(i) * time.Minute), Value: v})
		}
	}
	s, err := models.NewSeries(samples)
	require.NoError(t, err)
	return s
}

func evaluator() Evaluator {
	return Evaluator{SessionEnd: models.MustClock("17:00:00"), Pairing: segments.LastStartWins}
}

func TestEvaluateHandComputed(t *testing.T) {
	res, outcome := evaluator().Evaluate(twoDaySeries(t), 3, models.MustClock("08:00:00"), nil)
	require.Equal(t, OutcomeEmitted, outcome)

	assert.Equal(t, uint64(3), res.Interval)
	assert.Equal(t, models.MustClock("08:03:00"), res.EndTime)
	assert.Equal(t, 2, res.NObs)
	assert.Equal(t, -2.0, res.MaxDrawup)
	assert.Equal(t, 3.0, res.MaxDrawdown)

	// returns -1 and 2: mean 0.5, sample sd sqrt(4.5)
	want := 0.5 / math.Sqrt(4.5) * math.Sqrt(252)
	assert.InDelta(t, want, res.Sharpe, 1e-12)
}

func TestEvaluateSessionCutoff(t *testing.T) {
	e := evaluator()
	e.SessionEnd = models.MustClock("08:03:00")
	_, outcome := e.Evaluate(twoDaySeries(t), 3, models.MustClock("08:00:00"), nil)
	assert.Equal(t, OutcomeSession, outcome)
}

func TestEvaluateTwoSampleSegmentsIgnored(t *testing.T) {
	_, outcome := evaluator().Evaluate(twoDaySeries(t), 1, models.MustClock("08:00:00"), nil)
	assert.Equal(t, OutcomeNoSegments, outcome)
}

func TestEvaluateMaskRemovesDay(t *testing.T) {
	s := twoDaySeries(t)
	mask := []bool{true, true, true, true, false, false, false, false}

	// one segment left: no standard deviation
	_, outcome := evaluator().Evaluate(s, 3, models.MustClock("08:00:00"), mask)
	assert.Equal(t, OutcomeDegenerate, outcome)
}

func TestEvaluateZeroSharpeSkipped(t *testing.T) {
	var samples []models.Sample
	days := [][]float64{{10, 11, 12, 11}, {10, 9, 8, 9}}
	for d, vals := range days {
		base := time.Date(2021, 1, 4+d, 8, 0, 0, 0, time.UTC)
		for i, v := range vals {
			samples = append(samples, models.Sample{Timestamp: base.Add(time.Duration(i) * time.Minute), Value: v})
		}
	}
	s, err := models.NewSeries(samples)
	require.NoError(t, err)

	// returns +1 and -1 average to zero
	_, outcome := evaluator().Evaluate(s, 3, models.MustClock("08:00:00"), nil)
	assert.Equal(t, OutcomeDegenerate, outcome)
}
