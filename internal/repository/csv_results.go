package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"SweepLab/internal/domain/models"
	applogger "SweepLab/pkg/logger"
)

// ErrEmptyOutput is returned when a sink is asked to write no records.
var ErrEmptyOutput = errors.New("CSV output has length zero")

// CSVResultSink writes results to a single CSV file, replacing it atomically.
type CSVResultSink struct {
	path string
	l    *applogger.Logger
}

func NewCSVResultSink(path string, l *applogger.Logger) *CSVResultSink {
	if l == nil {
		l = applogger.Nop()
	}
	return &CSVResultSink{path: path, l: l}
}

func (s *CSVResultSink) Name() string { return "csv" }

func (s *CSVResultSink) Write(ctx context.Context, runID string, results []models.StrategyResult) error {
	if len(results) == 0 {
		return ErrEmptyOutput
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".sweep-*.csv")
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := WriteResults(tmp, results); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace output: %w", err)
	}

	s.l.Info("csv results written",
		applogger.String("run_id", runID),
		applogger.String("path", s.path),
		applogger.Int("rows", len(results)),
	)
	return nil
}

// WriteResults renders results as CSV with the FieldNames header.
func WriteResults(w io.Writer, results []models.StrategyResult) error {
	if len(results) == 0 {
		return ErrEmptyOutput
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(models.FieldNames[:]); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range results {
		if err := cw.Write(r.Fields()); err != nil {
			return fmt.Errorf("write record %s: %w", r.Key(), err)
		}
	}
	cw.Flush()
	return cw.Error()
}
