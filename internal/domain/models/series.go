package models

import (
	"fmt"
	"time"
)

// Sample is one observation of the swept value.
type Sample struct {
	Timestamp time.Time
	Value     float64
}

// Bar is an OHLCV row as stored in CSV files or ClickHouse candle tables.
type Bar struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// Series is the read-only columnar form of a sample sequence shared by all
// sweep workers. Clocks holds the time of day of each timestamp.
type Series struct {
	Times  []time.Time
	Values []float64
	Clocks []ClockTime
}

// NewSeries builds a Series. Timestamps must be non-decreasing; equal
// timestamps are kept in input order.
func NewSeries(samples []Sample) (*Series, error) {
	if len(samples) == 0 {
		return nil, ErrEmptySeries
	}
	s := &Series{
		Times:  make([]time.Time, len(samples)),
		Values: make([]float64, len(samples)),
		Clocks: make([]ClockTime, len(samples)),
	}
	for i, smp := range samples {
		if i > 0 && smp.Timestamp.Before(samples[i-1].Timestamp) {
			return nil, fmt.Errorf("%w: sample %d at %s precedes %s", ErrUnorderedSeries,
				i, smp.Timestamp.Format(time.DateTime), samples[i-1].Timestamp.Format(time.DateTime))
		}
		s.Times[i] = smp.Timestamp
		s.Values[i] = smp.Value
		s.Clocks[i] = ClockOf(smp.Timestamp)
	}
	return s, nil
}

// Len returns the number of samples.
func (s *Series) Len() int { return len(s.Values) }

// First and Last return the covered time range.
func (s *Series) First() time.Time { return s.Times[0] }
func (s *Series) Last() time.Time  { return s.Times[len(s.Times)-1] }
