package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ClockTime is a time of day stored as an offset from midnight.
// Adding an interval never wraps, so 16:00:00 + 600m is 26:00:00.
type ClockTime time.Duration

const day = ClockTime(24 * time.Hour)

// NewClock builds a ClockTime from hour, minute and second.
func NewClock(h, m, s int) ClockTime {
	return ClockTime(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s)*time.Second)
}

// ClockOf returns the time of day of t in t's location, truncated to seconds.
func ClockOf(t time.Time) ClockTime {
	h, m, s := t.Clock()
	return NewClock(h, m, s)
}

// ParseClock parses "HH:MM:SS" or "HH:MM". "24:00:00" is accepted as end of day.
func ParseClock(s string) (ClockTime, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}
	var vals [3]int
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 {
			return 0, fmt.Errorf("invalid clock time %q", s)
		}
		vals[i] = v
	}
	h, m, sec := vals[0], vals[1], vals[2]
	if m > 59 || sec > 59 || h > 24 || (h == 24 && (m > 0 || sec > 0)) {
		return 0, fmt.Errorf("clock time out of range %q", s)
	}
	return NewClock(h, m, sec), nil
}

// MustClock is ParseClock for literals.
func MustClock(s string) ClockTime {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

// AddMinutes returns c shifted by the given number of minutes.
func (c ClockTime) AddMinutes(minutes uint64) ClockTime {
	return c + ClockTime(time.Duration(minutes)*time.Minute)
}

// WithinDay reports whether c is a wall-clock time (before 24:00:00).
func (c ClockTime) WithinDay() bool { return c >= 0 && c < day }

func (c ClockTime) String() string {
	secs := int64(time.Duration(c) / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, (secs/60)%60, secs%60)
}

func (c ClockTime) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *ClockTime) UnmarshalText(b []byte) error {
	v, err := ParseClock(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// MinutesPerDay bounds every interval and step of a sweep grid.
const MinutesPerDay = 24 * 60

// TimeRange returns start, start+step, ... up to and including end.
func TimeRange(start, end ClockTime, stepMinutes uint64) []ClockTime {
	if stepMinutes == 0 || end < start {
		return []ClockTime{start}
	}
	span := uint64(time.Duration(end-start) / time.Minute)
	if stepMinutes > span {
		return []ClockTime{start}
	}
	out := make([]ClockTime, 0, span/stepMinutes+1)
	for t := start; t <= end; t = t.AddMinutes(stepMinutes) {
		out = append(out, t)
	}
	return out
}

// IntervalRange returns min, min+step, ... up to and including max.
func IntervalRange(min, max, step uint64) []uint64 {
	if step == 0 || max < min {
		return []uint64{min}
	}
	out := make([]uint64, 0, RangeLen(min, max, step))
	for v := min; ; v += step {
		out = append(out, v)
		if max-v < step {
			break
		}
	}
	return out
}

// RangeLen is len(IntervalRange(min, max, step)) without allocating.
func RangeLen(min, max, step uint64) uint64 {
	if step == 0 || max < min {
		return 1
	}
	return (max-min)/step + 1
}
