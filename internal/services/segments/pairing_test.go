package segments

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFillIDs_NearestLaterEnd(t *testing.T) {
	r := []int32{1, 0, 0, 0, 1, -1, 0, 0, -1, 0, 0, 1, -1, 0, 0}

	// starts 0 and 4 both see end 5 as nearest; the later start keeps it
	got := FillIDs(r, LastStartWins)
	assert.Equal(t, []int{0, 0, 0, 0, 2, 2, 0, 0, 0, 0, 0, 3, 3, 0, 0}, got)

	got = FillIDs(r, FirstStartWins)
	assert.Equal(t, []int{2, 2, 2, 2, 2, 2, 0, 0, 0, 0, 0, 3, 3, 0, 0}, got)
}

func TestFillIDs_ValidityGate(t *testing.T) {
	cases := map[string][]int32{
		"empty":         {},
		"only zeros":    {0, 0, 0},
		"no exits":      {1, 0, 1, 0},
		"no entries":    {0, -1, 0},
		"no zeros":      {1, -1, 1, -1},
		"foreign value": {1, 0, 2, -1},
	}
	for name, r := range cases {
		t.Run(name, func(t *testing.T) {
			got := FillIDs(r, LastStartWins)
			require.Len(t, got, len(r))
			for _, id := range got {
				assert.Zero(t, id)
			}
		})
	}
}

func TestFillIDs_StartWithoutLaterEndIsDropped(t *testing.T) {
	got := FillIDs([]int32{0, -1, 0, 1, 0}, LastStartWins)
	assert.Equal(t, []int{0, 0, 0, 0, 0}, got)
}

func TestFillIDs_EarlierEndsAreNotCandidates(t *testing.T) {
	// end 0 precedes start 1 and must not win through wraparound
	got := FillIDs([]int32{-1, 1, 0, -1}, LastStartWins)
	assert.Equal(t, []int{0, 2, 2, 2}, got)
}

func TestFillIDs_SegmentsDoNotOverlap(t *testing.T) {
	r := []int32{1, 1, 0, -1, 1, 0, -1, -1, 1, 0, 0, -1, 0}
	for _, p := range []PairingPolicy{LastStartWins, FirstStartWins} {
		ids := FillIDs(r, p)
		spans := Spans(ids)
		for i := 1; i < len(spans); i++ {
			assert.Less(t, spans[i-1].End, spans[i].Start, "policy %s", p)
		}
		for _, s := range spans {
			assert.Equal(t, int32(1), r[s.Start])
			assert.Equal(t, int32(-1), r[s.End])
		}
	}
}

func TestParsePairingPolicy(t *testing.T) {
	p, err := ParsePairingPolicy("")
	require.NoError(t, err)
	assert.Equal(t, LastStartWins, p)

	p, err = ParsePairingPolicy("first_start_wins")
	require.NoError(t, err)
	assert.Equal(t, FirstStartWins, p)
	assert.Equal(t, "first_start_wins", p.String())

	_, err = ParsePairingPolicy("nearest")
	assert.Error(t, err)
}
