package vector

import (
	"cmp"
	"math"
)

// Mean returns the arithmetic mean of v. ok is false when v is empty.
func Mean(v []float64) (mean float64, ok bool) {
	if len(v) == 0 {
		return 0, false
	}
	sum := 0.0
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v)), true
}

// Variance returns the sample variance of v (n-1 denominator).
// ok is false when fewer than two values are present.
func Variance(v []float64) (variance float64, ok bool) {
	if len(v) < 2 {
		return 0, false
	}
	mean, _ := Mean(v)
	ss := 0.0
	for _, x := range v {
		d := mean - x
		ss += d * d
	}
	return ss / float64(len(v)-1), true
}

// StdDev returns the sample standard deviation of v.
func StdDev(v []float64) (float64, bool) {
	variance, ok := Variance(v)
	if !ok {
		return 0, false
	}
	return math.Sqrt(variance), true
}

// Diff returns v[i+lag]-v[i] for every i in [0, len(v)-lag).
// ok is false when len(v) <= lag.
func Diff(v []float64, lag int) ([]float64, bool) {
	if lag < 0 || len(v) <= lag {
		return nil, false
	}
	out := make([]float64, len(v)-lag)
	for i := range out {
		out[i] = v[i+lag] - v[i]
	}
	return out, true
}

// Cumsum returns the running total of v as a new slice.
func Cumsum(v []float64) []float64 {
	out := make([]float64, len(v))
	acc := 0.0
	for i, x := range v {
		acc += x
		out[i] = acc
	}
	return out
}

// Unique returns the set of distinct values in v.
func Unique[T comparable](v []T) map[T]struct{} {
	set := make(map[T]struct{})
	for _, x := range v {
		set[x] = struct{}{}
	}
	return set
}

// WhereEqual returns the ascending indices i with v[i] == x.
func WhereEqual[T comparable](v []T, x T) []int {
	out := make([]int, 0)
	for i, y := range v {
		if y == x {
			out = append(out, i)
		}
	}
	return out
}

// WhereLess returns the ascending indices i with v[i] < x.
func WhereLess[T cmp.Ordered](v []T, x T) []int {
	out := make([]int, 0)
	for i, y := range v {
		if y < x {
			out = append(out, i)
		}
	}
	return out
}

// WhereGreater returns the ascending indices i with v[i] > x.
func WhereGreater[T cmp.Ordered](v []T, x T) []int {
	out := make([]int, 0)
	for i, y := range v {
		if y > x {
			out = append(out, i)
		}
	}
	return out
}

// IsNormal reports whether f is finite, non-zero and not subnormal.
func IsNormal(f float64) bool {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return false
	}
	return math.Abs(f) >= minNormal
}

// smallest positive normal float64 (2^-1022)
const minNormal = 0x1p-1022
