package repository

import (
	"context"
	"time"

	"SweepLab/internal/domain/models"
)

// Timeframe is the bar resolution of a stored series.
type Timeframe string

const (
	TF1s Timeframe = "1s"
	TF1m Timeframe = "1m"
	TF5m Timeframe = "5m"
)

// SeriesQuery selects the samples a sweep runs on. Zero From/To are open
// bounds; To is exclusive.
type SeriesQuery struct {
	Symbol    string
	From      time.Time
	To        time.Time
	Field     string
	Timeframe Timeframe
}

// SeriesSource loads a time-ordered sample sequence.
type SeriesSource interface {
	LoadSeries(ctx context.Context, q SeriesQuery) ([]models.Sample, error)
}

// EventSource loads economic calendar events.
type EventSource interface {
	LoadEvents(ctx context.Context) ([]models.Event, error)
}
