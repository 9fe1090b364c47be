package segments

import (
	"fmt"
	"maps"
	"slices"

	"SweepLab/internal/services/vector"
)

// PairingPolicy decides which start keeps an end index that is the nearest
// later end for more than one start.
type PairingPolicy int

const (
	// LastStartWins lets the later start (in ascending index order) overwrite
	// an earlier claim on the same end.
	LastStartWins PairingPolicy = iota
	// FirstStartWins keeps the first claim and drops later starts.
	FirstStartWins
)

func (p PairingPolicy) String() string {
	switch p {
	case FirstStartWins:
		return "first_start_wins"
	default:
		return "last_start_wins"
	}
}

// ParsePairingPolicy maps a config/request value to a policy. Empty means default.
func ParsePairingPolicy(s string) (PairingPolicy, error) {
	switch s {
	case "", "last_start_wins":
		return LastStartWins, nil
	case "first_start_wins":
		return FirstStartWins, nil
	default:
		return LastStartWins, fmt.Errorf("unknown pairing policy %q", s)
	}
}

// FillIDs turns a signed condition vector (+1 entry, -1 exit, 0 neither) into a
// segment id vector of the same length. Each start is matched to the nearest
// end strictly after it; matched ranges [start, end] get ids 2, 3, ... in
// ascending end order and every other index stays 0.
//
// Unless r holds exactly the values {-1, 0, 1}, no segment is produced.
//
// Collisions are not re-matched: a start that loses its nearest end under the
// policy is dropped, so dense entry signals do not yield a 1:1 matching.
func FillIDs(r []int32, policy PairingPolicy) []int {
	ids := make([]int, len(r))
	if !wellFormed(r) {
		return ids
	}

	starts := vector.WhereEqual(r, 1)
	ends := vector.WhereEqual(r, -1)

	pairs := make(map[int]int, len(starts)) // end -> start
	for _, st := range starts {
		e, ok := nearestEnd(ends, st)
		if !ok {
			continue
		}
		if _, taken := pairs[e]; taken && policy == FirstStartWins {
			continue
		}
		pairs[e] = st
	}

	for i, e := range slices.Sorted(maps.Keys(pairs)) {
		id := i + 2
		for j := pairs[e]; j <= e; j++ {
			ids[j] = id
		}
	}
	return ids
}

func wellFormed(r []int32) bool {
	u := vector.Unique(r)
	if len(u) != 3 {
		return false
	}
	for _, want := range []int32{-1, 0, 1} {
		if _, ok := u[want]; !ok {
			return false
		}
	}
	return true
}

// nearestEnd returns the smallest end strictly greater than start.
// ends must be ascending.
func nearestEnd(ends []int, start int) (int, bool) {
	i, _ := slices.BinarySearch(ends, start+1)
	if i == len(ends) {
		return 0, false
	}
	return ends[i], true
}
