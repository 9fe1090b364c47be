package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"

	"SweepLab/internal/domain/models"
	drepo "SweepLab/internal/domain/repository"
	"SweepLab/internal/services/calendar"
	"SweepLab/internal/services/features"
	"SweepLab/internal/services/segments"
	"SweepLab/pkg/cache"
	"SweepLab/pkg/logger"
)

var validate = validator.New()

// ServiceConfig holds process-wide sweep settings that requests cannot override.
type ServiceConfig struct {
	SingleThreaded    bool
	Threads           int
	ProgressStride    uint64
	AnnualizationDays float64
	Field             string
	Timeframe         string
	Holidays          []time.Time
}

// SweepService runs a request end to end: ingestion, sweep, output.
type SweepService struct {
	cfg      ServiceConfig
	series   drepo.SeriesSource
	events   drepo.EventSource
	sinks    []drepo.ResultSink
	cache    drepo.ResultCache
	calendar *calendar.BusinessCalendar
	sweeper  *Sweeper
	metrics  drepo.Metrics
	log      *logger.Logger
}

// NewSweepService wires a service. events and cache may be nil.
func NewSweepService(
	cfg ServiceConfig,
	series drepo.SeriesSource,
	events drepo.EventSource,
	sinks []drepo.ResultSink,
	resultCache drepo.ResultCache,
	metrics drepo.Metrics,
	log *logger.Logger,
) *SweepService {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &SweepService{
		cfg:      cfg,
		series:   series,
		events:   events,
		sinks:    sinks,
		cache:    resultCache,
		calendar: calendar.NewBusinessCalendar(cfg.Holidays...),
		sweeper:  NewSweeper(log, metrics),
		metrics:  metrics,
		log:      log,
	}
}

// MaxCombinations caps the grid of one sweep: every interval of a day
// against every start minute of a day.
const MaxCombinations = models.MinutesPerDay * models.MinutesPerDay

// NormalizeRequest applies defaults and validates req in place.
func NormalizeRequest(ctx context.Context, req *models.SweepRequest) error {
	if err := defaults.Set(req); err != nil {
		return fmt.Errorf("%w: %v", models.ErrInvalidRequest, err)
	}
	if err := validate.StructCtx(ctx, req); err != nil {
		return fmt.Errorf("%w: %v", models.ErrInvalidRequest, err)
	}
	return nil
}

// BuildConfiguration turns a normalized request into a sweep configuration
// without context conditions.
func (s *SweepService) BuildConfiguration(req models.SweepRequest) (SweepConfiguration, error) {
	startFrom, err := models.ParseClock(req.StartFrom)
	if err != nil {
		return SweepConfiguration{}, fmt.Errorf("%w: start_from: %v", models.ErrInvalidRequest, err)
	}
	startTo, err := models.ParseClock(req.StartTo)
	if err != nil {
		return SweepConfiguration{}, fmt.Errorf("%w: start_to: %v", models.ErrInvalidRequest, err)
	}
	if !startFrom.WithinDay() || !startTo.WithinDay() {
		return SweepConfiguration{}, fmt.Errorf("%w: start times must be before 24:00:00", models.ErrInvalidRequest)
	}
	if startTo < startFrom {
		return SweepConfiguration{}, fmt.Errorf("%w: start_to precedes start_from", models.ErrInvalidRequest)
	}
	sessionEnd, err := models.ParseClock(req.SessionEnd)
	if err != nil {
		return SweepConfiguration{}, fmt.Errorf("%w: session_end: %v", models.ErrInvalidRequest, err)
	}
	pairing, err := segments.ParsePairingPolicy(req.Pairing)
	if err != nil {
		return SweepConfiguration{}, fmt.Errorf("%w: %v", models.ErrInvalidRequest, err)
	}
	failure, err := ParseFailurePolicy(req.FailurePolicy)
	if err != nil {
		return SweepConfiguration{}, fmt.Errorf("%w: %v", models.ErrInvalidRequest, err)
	}

	intervals := models.RangeLen(req.IntervalMin, req.IntervalMax, req.IntervalStep)
	starts := models.RangeLen(0, uint64(time.Duration(startTo-startFrom)/time.Minute), req.StartStep)
	if intervals > MaxCombinations || intervals*starts > MaxCombinations {
		return SweepConfiguration{}, fmt.Errorf("%w: grid of %d intervals by %d start times exceeds %d combinations",
			models.ErrInvalidRequest, intervals, starts, MaxCombinations)
	}

	return SweepConfiguration{
		Intervals:         models.IntervalRange(req.IntervalMin, req.IntervalMax, req.IntervalStep),
		StartTimes:        models.TimeRange(startFrom, startTo, req.StartStep),
		ThreadCount:       s.threads(req.Threads),
		SessionEnd:        sessionEnd,
		Pairing:           pairing,
		FailurePolicy:     failure,
		ProgressStride:    s.cfg.ProgressStride,
		AnnualizationDays: s.cfg.AnnualizationDays,
	}, nil
}

func (s *SweepService) threads(requested int) int {
	if s.cfg.SingleThreaded {
		return 1
	}
	if requested > 0 {
		return requested
	}
	if s.cfg.Threads > 0 {
		return s.cfg.Threads
	}
	return runtime.NumCPU()
}

// Fingerprint identifies the result set of a normalized request. Thread count
// and failure policy do not change results and are left out.
func Fingerprint(req models.SweepRequest) string {
	req.Threads = 0
	req.FailurePolicy = ""
	b, _ := json.Marshal(req)
	return cache.GenerateKey("sweep", cache.HashKey(string(b)))
}

// Execute runs req under runID. progress may be nil.
func (s *SweepService) Execute(ctx context.Context, runID string, req models.SweepRequest, progress *ProgressCounter) (*models.SweepReport, error) {
	started := time.Now()
	log := s.log.With(logger.String("run_id", runID))

	if err := NormalizeRequest(ctx, &req); err != nil {
		return nil, err
	}
	if req.Field == "" {
		req.Field = s.cfg.Field
	}
	cfg, err := s.BuildConfiguration(req)
	if err != nil {
		return nil, err
	}

	key := Fingerprint(req)
	if s.cache != nil {
		if cached, ok, err := s.cache.Get(ctx, key); err != nil {
			log.Warn("result cache read failed", logger.Error(err))
		} else if ok {
			log.Info("serving sweep from cache", logger.Int("results", len(cached)))
			if err := s.write(ctx, runID, cached); err != nil {
				s.metrics.RecordError(models.PhaseOutput)
				return nil, models.InPhase(models.PhaseOutput, err)
			}
			return &models.SweepReport{
				RunID:        runID,
				Combinations: cfg.Combinations(),
				Cached:       true,
				Elapsed:      time.Since(started),
				Results:      cached,
			}, nil
		}

		acquired, err := s.cache.Acquire(ctx, key)
		if err != nil {
			log.Warn("result cache lock failed", logger.Error(err))
		} else if !acquired {
			return nil, models.ErrSweepInProgress
		} else {
			defer func() {
				if err := s.cache.Release(context.WithoutCancel(ctx), key); err != nil {
					log.Warn("result cache unlock failed", logger.Error(err))
				}
			}()
		}
	}

	series, conds, err := s.ingest(ctx, req)
	if err != nil {
		s.metrics.RecordError(models.PhaseIngestion)
		return nil, models.InPhase(models.PhaseIngestion, err)
	}
	cfg.ContextConditions = conds
	cfg.RunID = runID

	if progress == nil {
		progress = NewProgressCounter(log, cfg.ProgressStride, nil)
	}
	results, err := s.sweeper.Run(ctx, series, cfg, progress)
	if err != nil {
		s.metrics.RecordError(models.PhaseSweep)
		return nil, models.InPhase(models.PhaseSweep, err)
	}

	if err := s.write(ctx, runID, results); err != nil {
		s.metrics.RecordError(models.PhaseOutput)
		return nil, models.InPhase(models.PhaseOutput, err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, results); err != nil {
			log.Warn("result cache write failed", logger.Error(err))
		}
	}

	return &models.SweepReport{
		RunID:        runID,
		Combinations: cfg.Combinations(),
		Samples:      series.Len(),
		Elapsed:      time.Since(started),
		Results:      results,
	}, nil
}

func (s *SweepService) ingest(ctx context.Context, req models.SweepRequest) (*models.Series, [][]bool, error) {
	q, err := seriesQuery(req, s.cfg.Timeframe)
	if err != nil {
		return nil, nil, err
	}

	start := time.Now()
	samples, err := s.series.LoadSeries(ctx, q)
	if err != nil {
		return nil, nil, fmt.Errorf("load series: %w", err)
	}
	s.metrics.RecordLatency("load_series", time.Since(start).Seconds())

	var window calendar.DateSet
	if req.Events.Enabled {
		if s.events == nil {
			return nil, nil, errors.New("event window requested but no event source is configured")
		}
		events, err := s.events.LoadEvents(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("load events: %w", err)
		}
		events = calendar.FilterEvents(events, calendar.Impacts(req.Events.Impacts), req.Events.Currencies)
		window = s.calendar.Window(calendar.EventDays(events), req.Events.BackDays, req.Events.FwdDays)
		s.log.Debug("event window built",
			logger.Int("events", len(events)),
			logger.Int("days", len(window)),
		)
		if req.Events.Mode == "filter" {
			samples = calendar.FilterSamples(samples, window)
		}
	}

	series, err := models.NewSeries(samples)
	if err != nil {
		return nil, nil, err
	}

	if window != nil && req.Events.Mode != "filter" {
		return series, [][]bool{calendar.DateMask(series.Times, window)}, nil
	}
	return series, nil, nil
}

func seriesQuery(req models.SweepRequest, timeframe string) (drepo.SeriesQuery, error) {
	q := drepo.SeriesQuery{
		Symbol:    req.Symbol,
		Field:     req.Field,
		Timeframe: drepo.NormalizeTimeframe(timeframe),
	}
	if _, err := features.ParseField(q.Field); err != nil {
		return q, err
	}
	if req.From != "" {
		from, err := time.Parse(time.DateOnly, req.From)
		if err != nil {
			return q, err
		}
		q.From = from
	}
	if req.To != "" {
		to, err := time.Parse(time.DateOnly, req.To)
		if err != nil {
			return q, err
		}
		q.To = to.AddDate(0, 0, 1)
	}
	return q, nil
}

func (s *SweepService) write(ctx context.Context, runID string, results []models.StrategyResult) error {
	for _, sink := range s.sinks {
		start := time.Now()
		if err := sink.Write(ctx, runID, results); err != nil {
			return fmt.Errorf("%s sink: %w", sink.Name(), err)
		}
		s.metrics.RecordLatency("sink_"+sink.Name(), time.Since(start).Seconds())
	}
	return nil
}
