package models

import (
	"fmt"
	"strconv"
)

// FieldNames is the fixed output header, in column order.
var FieldNames = [...]string{"interval", "start time", "end time", "sharpe", "max drawup", "max drawdown", "n obs"}

// StrategyResult is the aggregated outcome of one (interval, start time) combination.
// MaxDrawup is the lowest cumulative excursion seen across all segments and
// MaxDrawdown the highest.
type StrategyResult struct {
	Interval    uint64    `json:"interval"`
	StartTime   ClockTime `json:"start_time"`
	EndTime     ClockTime `json:"end_time"`
	Sharpe      float64   `json:"sharpe"`
	MaxDrawup   float64   `json:"max_drawup"`
	MaxDrawdown float64   `json:"max_drawdown"`
	NObs        int       `json:"n_obs"`
}

// Fields renders the record in FieldNames order.
func (r StrategyResult) Fields() []string {
	return []string{
		strconv.FormatUint(r.Interval, 10),
		r.StartTime.String(),
		r.EndTime.String(),
		formatFloat(r.Sharpe),
		formatFloat(r.MaxDrawup),
		formatFloat(r.MaxDrawdown),
		strconv.Itoa(r.NObs),
	}
}

// Key identifies the combination the record belongs to.
func (r StrategyResult) Key() string {
	return fmt.Sprintf("%d@%s", r.Interval, r.StartTime)
}

func formatFloat(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
