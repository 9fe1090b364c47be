package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"SweepLab/internal/domain/models"
	drepo "SweepLab/internal/domain/repository"
	"SweepLab/internal/services/features"
	pkgch "SweepLab/pkg/clickhouse"
	applogger "SweepLab/pkg/logger"
)

// CHSeriesSource loads bars from the candle tables in ClickHouse.
type CHSeriesSource struct {
	db       *sql.DB
	database string
	l        *applogger.Logger
}

func NewCHSeriesSource(ch *pkgch.Client, l *applogger.Logger) *CHSeriesSource {
	if l == nil {
		l = applogger.Nop()
	}
	return &CHSeriesSource{db: ch.DB(), database: ch.Database(), l: l}
}

func (s *CHSeriesSource) LoadSeries(ctx context.Context, q drepo.SeriesQuery) ([]models.Sample, error) {
	field, err := features.ParseField(q.Field)
	if err != nil {
		return nil, err
	}
	if q.Symbol == "" {
		return nil, fmt.Errorf("series query: symbol is required")
	}

	start := time.Now()
	tf := drepo.NormalizeTimeframe(string(q.Timeframe))
	stmt, args := seriesQuery(s.database, q.Symbol, tf, field, q.From, q.To)
	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		s.l.Error("clickhouse load_series query error",
			applogger.String("symbol", q.Symbol),
			applogger.String("tf", string(tf)),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("load series: %w", err)
	}
	defer rows.Close()

	out := make([]models.Sample, 0, 4096)
	for rows.Next() {
		var smp models.Sample
		if err := rows.Scan(&smp.Timestamp, &smp.Value); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		out = append(out, smp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	s.l.Info("clickhouse load_series ok",
		applogger.String("symbol", q.Symbol),
		applogger.String("tf", string(tf)),
		applogger.String("field", string(field)),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

// seriesQuery builds the SELECT for one symbol and field. field is taken
// from the closed features.Field set, so it is safe to interpolate.
func seriesQuery(database, symbol string, tf drepo.Timeframe, field features.Field, from, to time.Time) (string, []any) {
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT bucket, %s FROM %s.%s FINAL WHERE symbol = ?", field, database, tf.Table())
	args := []any{symbol}
	from, to = features.AlignFromTo(from, to, tf.Duration())
	if !from.IsZero() {
		b.WriteString(" AND bucket >= ?")
		args = append(args, from)
	}
	if !to.IsZero() {
		b.WriteString(" AND bucket < ?")
		args = append(args, to)
	}
	b.WriteString(" ORDER BY bucket ASC")
	return b.String(), args
}
