package models

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	c, err := ParseClock("08:30:15")
	require.NoError(t, err)
	assert.Equal(t, NewClock(8, 30, 15), c)
	assert.Equal(t, "08:30:15", c.String())

	c, err = ParseClock("17:00")
	require.NoError(t, err)
	assert.Equal(t, "17:00:00", c.String())

	c, err = ParseClock("24:00:00")
	require.NoError(t, err)
	assert.False(t, c.WithinDay())

	for _, bad := range []string{"", "8", "25:00:00", "10:60:00", "24:00:01", "aa:bb:cc", "-1:00:00"} {
		_, err := ParseClock(bad)
		assert.Error(t, err, bad)
	}
}

func TestClockAddMinutesDoesNotWrap(t *testing.T) {
	c := MustClock("16:00:00").AddMinutes(600)
	assert.Equal(t, "26:00:00", c.String())
	assert.False(t, c.WithinDay())
	assert.True(t, c >= MustClock("17:00:00"))
}

func TestClockOf(t *testing.T) {
	ts := time.Date(2021, 3, 4, 9, 15, 0, 0, time.UTC)
	assert.Equal(t, MustClock("09:15:00"), ClockOf(ts))
}

func TestClockJSON(t *testing.T) {
	b, err := json.Marshal(StrategyResult{StartTime: MustClock("08:01:00"), EndTime: MustClock("08:03:00")})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"start_time":"08:01:00"`)

	var r StrategyResult
	require.NoError(t, json.Unmarshal(b, &r))
	assert.Equal(t, MustClock("08:03:00"), r.EndTime)
}

func TestTimeRange(t *testing.T) {
	got := TimeRange(MustClock("08:00:00"), MustClock("08:03:00"), 1)
	require.Len(t, got, 4)
	assert.Equal(t, MustClock("08:00:00"), got[0])
	assert.Equal(t, MustClock("08:03:00"), got[3])

	// 08:00..10:30 with one-minute steps, each start exactly once
	got = TimeRange(MustClock("08:00:00"), MustClock("10:30:00"), 1)
	assert.Len(t, got, 151)

	got = TimeRange(MustClock("08:00:00"), MustClock("08:10:00"), 4)
	assert.Equal(t, []ClockTime{MustClock("08:00:00"), MustClock("08:04:00"), MustClock("08:08:00")}, got)
}

func TestIntervalRange(t *testing.T) {
	assert.Len(t, IntervalRange(2, 59, 1), 58)
	assert.Equal(t, []uint64{5, 10, 15}, IntervalRange(5, 17, 5))
	assert.Equal(t, []uint64{3}, IntervalRange(3, 1, 1))
}

func TestRangesWithExtremeSteps(t *testing.T) {
	start := MustClock("08:00:00")
	assert.Equal(t, []ClockTime{start}, TimeRange(start, MustClock("10:30:00"), math.MaxUint64))
	assert.Equal(t, []ClockTime{start}, TimeRange(start, start, 1))

	assert.Equal(t, []uint64{math.MaxUint64 - 2, math.MaxUint64}, IntervalRange(math.MaxUint64-2, math.MaxUint64, 2))
	assert.Equal(t, []uint64{1}, IntervalRange(1, math.MaxUint64, math.MaxUint64))
	assert.Equal(t, uint64(math.MaxUint64), RangeLen(1, math.MaxUint64, 1))
	assert.Equal(t, uint64(3), RangeLen(5, 17, 5))
}

func TestWithinDay(t *testing.T) {
	assert.True(t, MustClock("00:00:00").WithinDay())
	assert.True(t, MustClock("23:59:59").WithinDay())
	assert.False(t, MustClock("24:00:00").WithinDay())
}

func TestStrategyResultFields(t *testing.T) {
	r := StrategyResult{
		Interval:    15,
		StartTime:   MustClock("08:00:00"),
		EndTime:     MustClock("08:15:00"),
		Sharpe:      1.25,
		MaxDrawup:   -0.5,
		MaxDrawdown: 2,
		NObs:        40,
	}
	assert.Equal(t, []string{"15", "08:00:00", "08:15:00", "1.25", "-0.5", "2", "40"}, r.Fields())
	assert.Len(t, FieldNames, len(r.Fields()))
	assert.Equal(t, "15@08:00:00", r.Key())
}

func TestNewSeries(t *testing.T) {
	_, err := NewSeries(nil)
	assert.ErrorIs(t, err, ErrEmptySeries)

	t0 := time.Date(2021, 1, 4, 8, 0, 0, 0, time.UTC)
	_, err = NewSeries([]Sample{{t0.Add(time.Minute), 1}, {t0, 2}})
	assert.ErrorIs(t, err, ErrUnorderedSeries)

	s, err := NewSeries([]Sample{{t0, 1}, {t0, 2}, {t0.Add(time.Minute), 3}})
	require.NoError(t, err)
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, MustClock("08:01:00"), s.Clocks[2])
	assert.Equal(t, t0, s.First())
}
