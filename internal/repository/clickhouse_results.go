package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"SweepLab/internal/domain/models"
	pkgch "SweepLab/pkg/clickhouse"
	applogger "SweepLab/pkg/logger"
)

const resultColumns = "run_id, interval_min, start_time, end_time, sharpe, max_drawup, max_drawdown, n_obs"

// CHResultSink appends results to the sweep_results table.
type CHResultSink struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHResultSink(ch *pkgch.Client, l *applogger.Logger) *CHResultSink {
	if l == nil {
		l = applogger.Nop()
	}
	return &CHResultSink{db: ch.DB(), table: ch.Database() + ".sweep_results", l: l}
}

func (s *CHResultSink) Name() string { return "clickhouse" }

func (s *CHResultSink) Write(ctx context.Context, runID string, results []models.StrategyResult) error {
	if len(results) == 0 {
		return nil
	}
	start := time.Now()
	// Multi-row VALUES, 2000 rows per statement.
	const chunkSize = 2000
	for lo := 0; lo < len(results); lo += chunkSize {
		hi := min(lo+chunkSize, len(results))
		q, args := insertResults(s.table, runID, results[lo:hi])
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			s.l.Error("clickhouse insert results error",
				applogger.String("run_id", runID),
				applogger.Int("offset", lo),
				applogger.Error(err),
			)
			return fmt.Errorf("insert results: %w", err)
		}
	}
	s.l.Info("clickhouse results written",
		applogger.String("run_id", runID),
		applogger.Int("rows", len(results)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}

func insertResults(table, runID string, results []models.StrategyResult) (string, []any) {
	values := make([]string, 0, len(results))
	args := make([]any, 0, len(results)*8)
	for _, r := range results {
		values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args,
			runID,
			r.Interval,
			r.StartTime.String(),
			r.EndTime.String(),
			r.Sharpe,
			r.MaxDrawup,
			r.MaxDrawdown,
			uint32(r.NObs),
		)
	}
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", table, resultColumns, strings.Join(values, ","))
	return q, args
}
