package features

import (
	"fmt"
	"strings"
	"time"

	"SweepLab/internal/domain/models"
)

// Field selects which bar column becomes the swept value.
type Field string

const (
	FieldOpen   Field = "open"
	FieldHigh   Field = "high"
	FieldLow    Field = "low"
	FieldClose  Field = "close"
	FieldVolume Field = "volume"
)

// ParseField accepts a column name; empty means close.
func ParseField(s string) (Field, error) {
	switch f := Field(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FieldClose, nil
	case FieldOpen, FieldHigh, FieldLow, FieldClose, FieldVolume:
		return f, nil
	default:
		return "", fmt.Errorf("unknown value field %q", s)
	}
}

// Of extracts the field from b.
func (f Field) Of(b models.Bar) float64 {
	switch f {
	case FieldOpen:
		return b.Open
	case FieldHigh:
		return b.High
	case FieldLow:
		return b.Low
	case FieldVolume:
		return b.Volume
	default:
		return b.Close
	}
}

// Samples projects bars onto the chosen field.
func Samples(bars []models.Bar, f Field) []models.Sample {
	out := make([]models.Sample, len(bars))
	for i, b := range bars {
		out[i] = models.Sample{Timestamp: b.Timestamp, Value: f.Of(b)}
	}
	return out
}

// FilterRange keeps bars with from <= ts < to. A zero bound is open.
func FilterRange(bars []models.Bar, from, to time.Time) []models.Bar {
	if from.IsZero() && to.IsZero() {
		return bars
	}
	out := make([]models.Bar, 0, len(bars))
	for _, b := range bars {
		if !from.IsZero() && b.Timestamp.Before(from) {
			continue
		}
		if !to.IsZero() && !b.Timestamp.Before(to) {
			continue
		}
		out = append(out, b)
	}
	return out
}

// AlignFromTo truncates a query range to bucket boundaries of the given resolution.
func AlignFromTo(from, to time.Time, resolution time.Duration) (time.Time, time.Time) {
	if resolution <= 0 {
		resolution = time.Minute
	}
	return from.Truncate(resolution), to.Truncate(resolution)
}
