package segments

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract_HandComputed(t *testing.T) {
	// diff [-2, 4, -3] -> cumsum [-2, 2, -1] -> sorted [-2, -1, 2]
	s, ok := Extract([]float64{10, 8, 12, 9})
	require.True(t, ok)
	assert.Equal(t, -1.0, s.Return)
	assert.Equal(t, -2.0, s.MaxExcursionDown)
	assert.Equal(t, 2.0, s.MaxExcursionUp)
}

func TestExtract_ShortSegmentsRejected(t *testing.T) {
	for _, v := range [][]float64{nil, {1}, {1, 2}} {
		_, ok := Extract(v)
		assert.False(t, ok, "len=%d", len(v))
	}
	_, ok := Extract([]float64{1, 2, 3})
	assert.True(t, ok)
}

func TestSpans(t *testing.T) {
	spans := Spans([]int{0, 3, 3, 0, 2, 2, 2, 0})
	require.Len(t, spans, 2)
	assert.Equal(t, Span{ID: 2, Start: 4, End: 6}, spans[0])
	assert.Equal(t, Span{ID: 3, Start: 1, End: 2}, spans[1])
	assert.Equal(t, 3, spans[0].Len())

	assert.Empty(t, Spans([]int{0, 0}))
}
