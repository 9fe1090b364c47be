package repository

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"SweepLab/internal/domain/models"
	drepo "SweepLab/internal/domain/repository"
	"SweepLab/internal/services/features"
	applogger "SweepLab/pkg/logger"
)

// BarTimeLayout is the timestamp layout of series CSV files.
const BarTimeLayout = "2006-01-02 15:04:05"

// CSVSeriesSource reads OHLCV bars from a CSV file with the columns
// timestamp, open, high, low, close, volume. A header row is optional.
type CSVSeriesSource struct {
	path string
	loc  *time.Location
	l    *applogger.Logger
}

func NewCSVSeriesSource(path string, loc *time.Location, l *applogger.Logger) *CSVSeriesSource {
	if loc == nil {
		loc = time.UTC
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &CSVSeriesSource{path: path, loc: loc, l: l}
}

func (s *CSVSeriesSource) LoadSeries(ctx context.Context, q drepo.SeriesQuery) ([]models.Sample, error) {
	field, err := features.ParseField(q.Field)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open series: %w", err)
	}
	defer f.Close()

	bars, err := ReadBars(ctx, f, s.loc)
	if err != nil {
		return nil, fmt.Errorf("read series %s: %w", s.path, err)
	}
	bars = features.FilterRange(bars, q.From, q.To)

	s.l.Info("csv series loaded",
		applogger.String("path", s.path),
		applogger.String("field", string(field)),
		applogger.Int("rows", len(bars)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return features.Samples(bars, field), nil
}

// ReadBars parses bar rows from r. UTF-8 and UTF-16 byte order marks are
// honoured. Rows must be in ascending time order.
func ReadBars(ctx context.Context, r io.Reader, loc *time.Location) ([]models.Bar, error) {
	cr := newCSVReader(r)

	out := make([]models.Bar, 0, 4096)
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if line%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if isBlank(rec) {
			continue
		}
		if len(rec) < 6 {
			return nil, fmt.Errorf("line %d: want 6 columns, got %d", line, len(rec))
		}

		ts, err := time.ParseInLocation(BarTimeLayout, strings.TrimSpace(rec[0]), loc)
		if err != nil {
			if len(out) == 0 && line == 1 {
				continue // header
			}
			return nil, fmt.Errorf("line %d: timestamp: %w", line, err)
		}
		var vals [5]float64
		for i := range vals {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[i+1]), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: column %d: %w", line, i+2, err)
			}
			vals[i] = v
		}
		if n := len(out); n > 0 && ts.Before(out[n-1].Timestamp) {
			return nil, fmt.Errorf("line %d: %w", line, models.ErrUnorderedSeries)
		}
		out = append(out, models.Bar{
			Timestamp: ts,
			Open:      vals[0],
			High:      vals[1],
			Low:       vals[2],
			Close:     vals[3],
			Volume:    vals[4],
		})
	}
	return out, nil
}

// newCSVReader wraps r with BOM detection; UTF-16 input is transcoded to UTF-8.
func newCSVReader(r io.Reader) *csv.Reader {
	br := bufio.NewReader(transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true
	return cr
}

func isBlank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
