package calendar

import (
	"slices"
	"time"
)

// BusinessCalendar treats Saturdays, Sundays and the configured holidays as
// non-business days.
type BusinessCalendar struct {
	holidays DateSet
}

// NewBusinessCalendar builds a calendar with optional holiday dates.
func NewBusinessCalendar(holidays ...time.Time) *BusinessCalendar {
	set := make(DateSet, len(holidays))
	for _, h := range holidays {
		set.Add(h)
	}
	return &BusinessCalendar{holidays: set}
}

// IsBusinessDay reports whether d is a weekday and not a holiday.
func (c *BusinessCalendar) IsBusinessDay(d time.Time) bool {
	switch d.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return !c.holidays.Contains(d)
}

// Advance moves d by n business days (negative n moves back). Each step walks
// calendar days until a business day is reached, so Advance(d, 0) is d itself
// even when d is not a business day.
func (c *BusinessCalendar) Advance(d time.Time, n int) time.Time {
	out := DateOf(d)
	step := 1
	if n < 0 {
		step = -1
		n = -n
	}
	for n > 0 {
		out = out.AddDate(0, 0, step)
		if c.IsBusinessDay(out) {
			n--
		}
	}
	return out
}

// Window returns every day reachable from one of days by advancing
// -back..=fwd business days.
func (c *BusinessCalendar) Window(days []time.Time, back, fwd int) DateSet {
	set := make(DateSet, len(days)*(back+fwd+1))
	for _, d := range days {
		for i := -back; i <= fwd; i++ {
			set.Add(c.Advance(d, i))
		}
	}
	return set
}

// DateSet is a set of calendar days.
type DateSet map[time.Time]struct{}

// DateOf truncates t to its calendar day (in t's own location), normalized to UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (s DateSet) Add(t time.Time) { s[DateOf(t)] = struct{}{} }

func (s DateSet) Contains(t time.Time) bool {
	_, ok := s[DateOf(t)]
	return ok
}

// Sorted returns the days in ascending order.
func (s DateSet) Sorted() []time.Time {
	out := make([]time.Time, 0, len(s))
	for d := range s {
		out = append(out, d)
	}
	slices.SortFunc(out, func(a, b time.Time) int { return a.Compare(b) })
	return out
}
