package usecase

import (
	"math"
	"slices"

	"SweepLab/internal/domain/models"
	"SweepLab/internal/services/segments"
	"SweepLab/internal/services/vector"
)

// DefaultAnnualizationDays scales the per-segment ratio to a yearly figure.
const DefaultAnnualizationDays = 252

// Outcome says what happened to one combination.
type Outcome string

const (
	OutcomeEmitted    Outcome = "emitted"
	OutcomeSession    Outcome = "skipped_session"
	OutcomeNoSegments Outcome = "skipped_no_segments"
	OutcomeDegenerate Outcome = "skipped_degenerate"
)

// Evaluator scores a single (interval, start time) combination.
type Evaluator struct {
	SessionEnd        models.ClockTime
	Pairing           segments.PairingPolicy
	AnnualizationDays float64
}

// Evaluate runs one combination over series. mask is the AND of every context
// condition; nil means no condition. The result is only meaningful when the
// outcome is OutcomeEmitted.
func (e Evaluator) Evaluate(series *models.Series, interval uint64, start models.ClockTime, mask []bool) (models.StrategyResult, Outcome) {
	end := start.AddMinutes(interval)
	if end >= e.SessionEnd {
		return models.StrategyResult{}, OutcomeSession
	}

	r := make([]int32, series.Len())
	for i, c := range series.Clocks {
		if mask != nil && !mask[i] {
			continue
		}
		switch c {
		case start:
			r[i] = 1
		case end:
			r[i] = -1
		}
	}

	ids := segments.FillIDs(r, e.Pairing)

	var returns, downs, ups []float64
	for _, sp := range segments.Spans(ids) {
		st, ok := segments.Extract(series.Values[sp.Start : sp.End+1])
		if !ok {
			continue
		}
		returns = append(returns, st.Return)
		downs = append(downs, st.MaxExcursionDown)
		ups = append(ups, st.MaxExcursionUp)
	}
	if len(returns) == 0 {
		return models.StrategyResult{}, OutcomeNoSegments
	}

	mean, okMean := vector.Mean(returns)
	sd, okSD := vector.StdDev(returns)
	if !okMean || !okSD {
		return models.StrategyResult{}, OutcomeDegenerate
	}
	sharpe := mean / sd
	if !vector.IsNormal(sharpe) {
		return models.StrategyResult{}, OutcomeDegenerate
	}

	days := e.AnnualizationDays
	if days <= 0 {
		days = DefaultAnnualizationDays
	}

	slices.Sort(downs)
	slices.Sort(ups)

	return models.StrategyResult{
		Interval:    interval,
		StartTime:   start,
		EndTime:     end,
		Sharpe:      sharpe * math.Sqrt(days),
		MaxDrawup:   downs[0],
		MaxDrawdown: ups[len(ups)-1],
		NObs:        len(returns),
	}, OutcomeEmitted
}
