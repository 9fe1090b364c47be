package segments

import (
	"slices"

	"SweepLab/internal/services/vector"
)

// MinSegmentLen is the smallest segment (in samples) that counts as an observation.
const MinSegmentLen = 3

// Span is the closed index range covered by one segment id.
type Span struct {
	ID    int
	Start int
	End   int
}

// Len returns the number of samples in the span.
func (s Span) Len() int { return s.End - s.Start + 1 }

// Spans lists the [first, last] index range of every nonzero id, ordered by id.
func Spans(ids []int) []Span {
	byID := make(map[int]*Span)
	for i, id := range ids {
		if id == 0 {
			continue
		}
		if s, ok := byID[id]; ok {
			s.End = i
			continue
		}
		byID[id] = &Span{ID: id, Start: i, End: i}
	}

	out := make([]Span, 0, len(byID))
	for _, s := range byID {
		out = append(out, *s)
	}
	slices.SortFunc(out, func(a, b Span) int { return a.ID - b.ID })
	return out
}

// Stats holds the per-segment return and cumulative excursion extremes.
type Stats struct {
	Return           float64
	MaxExcursionDown float64
	MaxExcursionUp   float64
}

// Extract computes Stats for the values of one segment. ok is false when the
// segment is shorter than MinSegmentLen.
func Extract(v []float64) (Stats, bool) {
	if len(v) < MinSegmentLen {
		return Stats{}, false
	}
	d, ok := vector.Diff(v, 1)
	if !ok {
		return Stats{}, false
	}
	path := vector.Cumsum(d)
	slices.Sort(path)

	return Stats{
		Return:           v[len(v)-1] - v[0],
		MaxExcursionDown: path[0],
		MaxExcursionUp:   path[len(path)-1],
	}, true
}
