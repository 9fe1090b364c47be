package usecase

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"SweepLab/internal/domain/models"
	drepo "SweepLab/internal/domain/repository"
	"SweepLab/internal/services/segments"
	"SweepLab/pkg/logger"
)

// FailurePolicy decides what a worker error does to the sweep.
type FailurePolicy int

const (
	// FailFast cancels the remaining workers and returns the first error.
	FailFast FailurePolicy = iota
	// BestEffort logs the error and drops that worker's results.
	BestEffort
)

func (p FailurePolicy) String() string {
	if p == BestEffort {
		return "best_effort"
	}
	return "fail_fast"
}

func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch s {
	case "", "fail_fast":
		return FailFast, nil
	case "best_effort":
		return BestEffort, nil
	default:
		return FailFast, fmt.Errorf("unknown failure policy %q", s)
	}
}

// SweepConfiguration is fixed before a sweep starts and only read during it.
type SweepConfiguration struct {
	RunID             string
	Intervals         []uint64
	StartTimes        []models.ClockTime
	ContextConditions [][]bool
	ThreadCount       int
	SessionEnd        models.ClockTime
	Pairing           segments.PairingPolicy
	FailurePolicy     FailurePolicy
	ProgressStride    uint64
	AnnualizationDays float64
}

// Combinations is the size of the interval x start time product.
func (c SweepConfiguration) Combinations() int {
	return len(c.Intervals) * len(c.StartTimes)
}

func (c SweepConfiguration) evaluator() Evaluator {
	return Evaluator{SessionEnd: c.SessionEnd, Pairing: c.Pairing, AnnualizationDays: c.AnnualizationDays}
}

// Partition splits intervals into n contiguous chunks; the first len%n chunks
// get one extra element. Chunks may be empty when n > len(intervals).
func Partition(intervals []uint64, n int) [][]uint64 {
	if n < 1 {
		n = 1
	}
	chunks := make([][]uint64, n)
	size, extra := len(intervals)/n, len(intervals)%n
	pos := 0
	for i := range n {
		k := size
		if i < extra {
			k++
		}
		chunks[i] = intervals[pos : pos+k]
		pos += k
	}
	return chunks
}

// Sweeper runs the Evaluator over every combination of a configuration.
type Sweeper struct {
	log     *logger.Logger
	metrics drepo.Metrics
}

func NewSweeper(log *logger.Logger, metrics drepo.Metrics) *Sweeper {
	if log == nil {
		log = logger.Nop()
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Sweeper{log: log, metrics: metrics}
}

// Run evaluates all combinations and returns the merged results in worker
// order. An empty merge is ErrNoResults.
func (s *Sweeper) Run(ctx context.Context, series *models.Series, cfg SweepConfiguration, progress *ProgressCounter) ([]models.StrategyResult, error) {
	if series == nil || series.Len() == 0 {
		return nil, models.ErrEmptySeries
	}
	mask, err := combineConditions(series.Len(), cfg.ContextConditions)
	if err != nil {
		return nil, err
	}
	if progress == nil {
		progress = NewProgressCounter(s.log, cfg.ProgressStride, nil)
	}

	started := time.Now()
	progress.Reset(uint64(cfg.Combinations()))
	defer s.metrics.ClearProgress(cfg.RunID)

	threads := cfg.ThreadCount
	if threads < 1 {
		threads = 1
	}
	chunks := Partition(cfg.Intervals, threads)
	parts := make([][]models.StrategyResult, len(chunks))

	s.log.Info("sweep started",
		logger.Int("combinations", cfg.Combinations()),
		logger.Int("workers", len(chunks)),
		logger.Int("samples", series.Len()),
		logger.String("pairing", cfg.Pairing.String()),
		logger.String("failure_policy", cfg.FailurePolicy.String()),
	)

	if len(chunks) == 1 {
		parts[0], err = s.work(ctx, 0, chunks[0], series, mask, cfg, progress)
		if err != nil {
			s.metrics.RecordError("sweep_worker")
			return nil, err
		}
	} else if err := s.runPool(ctx, chunks, parts, series, mask, cfg, progress); err != nil {
		return nil, err
	}

	var merged []models.StrategyResult
	for _, p := range parts {
		merged = append(merged, p...)
	}

	s.metrics.RecordLatency("sweep", time.Since(started).Seconds())
	s.metrics.RecordResults(len(merged))
	s.log.Info("sweep finished",
		logger.Int("results", len(merged)),
		logger.Duration("elapsed_ms", time.Since(started)),
	)

	if len(merged) == 0 {
		return nil, models.ErrNoResults
	}
	return merged, nil
}

func (s *Sweeper) runPool(
	ctx context.Context,
	chunks [][]uint64,
	parts [][]models.StrategyResult,
	series *models.Series,
	mask []bool,
	cfg SweepConfiguration,
	progress *ProgressCounter,
) error {
	if cfg.FailurePolicy == FailFast {
		g, gctx := errgroup.WithContext(ctx)
		for i, chunk := range chunks {
			g.Go(func() error {
				res, err := s.work(gctx, i, chunk, series, mask, cfg, progress)
				if err != nil {
					s.metrics.RecordError("sweep_worker")
					return err
				}
				parts[i] = res
				return nil
			})
		}
		return g.Wait()
	}

	var g errgroup.Group
	for i, chunk := range chunks {
		g.Go(func() error {
			res, err := s.work(ctx, i, chunk, series, mask, cfg, progress)
			if err != nil {
				s.metrics.RecordError("sweep_worker")
				s.log.Warn("sweep worker failed; dropping its results",
					logger.Int("worker", i),
					logger.Error(err),
				)
				return nil
			}
			parts[i] = res
			return nil
		})
	}
	_ = g.Wait()
	return ctx.Err()
}

// work evaluates one chunk, interval then start time, in order.
func (s *Sweeper) work(
	ctx context.Context,
	worker int,
	intervals []uint64,
	series *models.Series,
	mask []bool,
	cfg SweepConfiguration,
	progress *ProgressCounter,
) (out []models.StrategyResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("sweep worker %d panicked: %v", worker, r)
		}
	}()

	eval := cfg.evaluator()
	outcomes := make(map[Outcome]int, 4)
	defer func() {
		for o, n := range outcomes {
			s.metrics.RecordCombinations(string(o), n)
		}
	}()

	for _, interval := range intervals {
		for _, start := range cfg.StartTimes {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			res, outcome := eval.Evaluate(series, interval, start, mask)
			outcomes[outcome]++
			if outcome == OutcomeEmitted {
				out = append(out, res)
			}
			if n := progress.Increment(worker); n%progressMetricStride(cfg) == 0 {
				s.metrics.SetProgress(cfg.RunID, progress.Snapshot().Percent/100)
			}
		}
	}
	return out, nil
}

func progressMetricStride(cfg SweepConfiguration) uint64 {
	if cfg.ProgressStride == 0 {
		return DefaultProgressStride
	}
	return cfg.ProgressStride
}

// combineConditions ANDs every condition into one mask; nil when there are none.
func combineConditions(n int, conds [][]bool) ([]bool, error) {
	if len(conds) == 0 {
		return nil, nil
	}
	mask := make([]bool, n)
	for i := range mask {
		mask[i] = true
	}
	for ci, c := range conds {
		if len(c) != n {
			return nil, fmt.Errorf("%w: condition %d has %d entries, series has %d", models.ErrLengthMismatch, ci, len(c), n)
		}
		for i, ok := range c {
			mask[i] = mask[i] && ok
		}
	}
	return mask, nil
}

type nopMetrics struct{}

func (nopMetrics) RecordError(string) {}
func (nopMetrics) RecordLatency(string, float64) {}
func (nopMetrics) RecordCombinations(string, int) {}
func (nopMetrics) RecordResults(int) {}
func (nopMetrics) SetProgress(string, float64) {}
func (nopMetrics) ClearProgress(string) {}
