package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"SweepLab/internal/domain/models"
	applogger "SweepLab/pkg/logger"
)

// EventTimeLayout is the start column layout of calendar CSV files.
const EventTimeLayout = "01/02/2006 15:04:05"

// CSVEventSource reads an economic calendar export with the columns
// id, start, name, impact, currency.
type CSVEventSource struct {
	path string
	loc  *time.Location
	l    *applogger.Logger
}

func NewCSVEventSource(path string, loc *time.Location, l *applogger.Logger) *CSVEventSource {
	if loc == nil {
		loc = time.UTC
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &CSVEventSource{path: path, loc: loc, l: l}
}

func (s *CSVEventSource) LoadEvents(ctx context.Context) ([]models.Event, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open events: %w", err)
	}
	defer f.Close()

	events, err := ReadEvents(ctx, f, s.loc)
	if err != nil {
		return nil, fmt.Errorf("read events %s: %w", s.path, err)
	}
	s.l.Info("csv events loaded", applogger.String("path", s.path), applogger.Int("rows", len(events)))
	return events, nil
}

// ReadEvents parses calendar rows from r. A leading header row is skipped.
func ReadEvents(ctx context.Context, r io.Reader, loc *time.Location) ([]models.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cr := newCSVReader(r)

	var out []models.Event
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if isBlank(rec) {
			continue
		}
		if len(rec) < 5 {
			return nil, fmt.Errorf("line %d: want 5 columns, got %d", line, len(rec))
		}
		start, err := time.ParseInLocation(EventTimeLayout, strings.TrimSpace(rec[1]), loc)
		if err != nil {
			if line == 1 {
				continue // header
			}
			return nil, fmt.Errorf("line %d: start: %w", line, err)
		}
		out = append(out, models.Event{
			ID:       strings.TrimSpace(rec[0]),
			Start:    start,
			Name:     strings.TrimSpace(rec[2]),
			Impact:   models.ParseImpact(rec[3]),
			Currency: strings.ToUpper(strings.TrimSpace(rec[4])),
		})
	}
	return out, nil
}
