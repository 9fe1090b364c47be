package calendar

import (
	"slices"
	"strings"
	"time"

	"SweepLab/internal/domain/models"
)

// FilterEvents keeps events whose impact is listed and, when currencies is
// non-empty, whose currency is listed (case-insensitive). An empty impacts
// list keeps every impact.
func FilterEvents(events []models.Event, impacts []models.Impact, currencies []string) []models.Event {
	cur := make(map[string]struct{}, len(currencies))
	for _, c := range currencies {
		cur[strings.ToUpper(strings.TrimSpace(c))] = struct{}{}
	}

	out := make([]models.Event, 0, len(events))
	for _, e := range events {
		if len(impacts) > 0 && !slices.Contains(impacts, e.Impact) {
			continue
		}
		if len(cur) > 0 {
			if _, ok := cur[strings.ToUpper(e.Currency)]; !ok {
				continue
			}
		}
		out = append(out, e)
	}
	return out
}

// EventDays returns the distinct event days in ascending order.
func EventDays(events []models.Event) []time.Time {
	set := make(DateSet, len(events))
	for _, e := range events {
		set.Add(e.Start)
	}
	return set.Sorted()
}

// DateMask marks the timestamps whose day is in window.
func DateMask(times []time.Time, window DateSet) []bool {
	mask := make([]bool, len(times))
	for i, t := range times {
		mask[i] = window.Contains(t)
	}
	return mask
}

// FilterSamples drops samples whose day is outside window.
func FilterSamples(samples []models.Sample, window DateSet) []models.Sample {
	out := make([]models.Sample, 0, len(samples))
	for _, s := range samples {
		if window.Contains(s.Timestamp) {
			out = append(out, s)
		}
	}
	return out
}

// Impacts converts raw impact levels (as carried in requests) to models.Impact.
func Impacts(levels []int) []models.Impact {
	out := make([]models.Impact, 0, len(levels))
	for _, l := range levels {
		out = append(out, models.Impact(l))
	}
	return out
}
