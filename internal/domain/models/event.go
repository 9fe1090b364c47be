package models

import (
	"strings"
	"time"
)

// Impact grades an economic calendar event.
type Impact int

const (
	ImpactNone Impact = iota
	ImpactLow
	ImpactMedium
	ImpactHigh
)

// ParseImpact maps the calendar feed labels; anything unknown is ImpactNone.
func ParseImpact(s string) Impact {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LOW":
		return ImpactLow
	case "MED", "MEDIUM":
		return ImpactMedium
	case "HIGH":
		return ImpactHigh
	default:
		return ImpactNone
	}
}

func (i Impact) String() string {
	switch i {
	case ImpactLow:
		return "LOW"
	case ImpactMedium:
		return "MED"
	case ImpactHigh:
		return "HIGH"
	default:
		return "NONE"
	}
}

// Event is one economic calendar entry.
type Event struct {
	ID       string
	Start    time.Time
	Name     string
	Impact   Impact
	Currency string
}

// Date returns the calendar day of the event at midnight UTC.
func (e Event) Date() time.Time {
	y, m, d := e.Start.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
