package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"SweepLab/internal/domain/models"
	"SweepLab/internal/service/ratelimit"
	"SweepLab/internal/usecase"
	"SweepLab/pkg/cache"
	pkgch "SweepLab/pkg/clickhouse"
	"SweepLab/pkg/config"
	xhttp "SweepLab/pkg/http"
	pkgkafka "SweepLab/pkg/kafka"
	applogger "SweepLab/pkg/logger"
)

// Resources are the infrastructure clients the app closes on exit. Any may be nil.
type Resources struct {
	ClickHouse *pkgch.Client
	Producer   *pkgkafka.Producer
	Cache      cache.Service
	Limiter    *ratelimit.Limiter
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	service    *usecase.SweepService
	jobs       *usecase.JobRegistry
	batch      models.SweepRequest
	httpServer *xhttp.Server
	consumer   *pkgkafka.Consumer
	kh         pkgkafka.MessageHandler
	res        Resources
}

// New creates a new App instance with all dependencies. httpServer,
// consumer and kh are only used in serve mode and may be nil.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	service *usecase.SweepService,
	jobs *usecase.JobRegistry,
	batch models.SweepRequest,
	httpServer *xhttp.Server,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	res Resources,
) *App {
	return &App{
		cfg:        cfg,
		log:        log,
		service:    service,
		jobs:       jobs,
		batch:      batch,
		httpServer: httpServer,
		consumer:   consumer,
		kh:         kh,
		res:        res,
	}
}

// Run executes the configured mode until it finishes or ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	defer a.close()
	switch a.cfg.Mode {
	case "serve":
		return a.serve(ctx)
	default:
		_, err := a.RunBatch(ctx)
		return err
	}
}

// RunBatch runs the sweep described by the configuration once and writes
// every configured sink.
func (a *App) RunBatch(ctx context.Context) (*models.SweepReport, error) {
	runID := uuid.NewString()
	log := a.log.With(applogger.String("run_id", runID))
	progress := usecase.NewProgressCounter(log, a.cfg.Sweep.ProgressStride, nil)

	log.Info("batch sweep started",
		applogger.String("series", a.cfg.Series.Source),
		applogger.Bool("events", a.batch.Events.Enabled),
	)
	report, err := a.service.Execute(ctx, runID, a.batch, progress)
	if err != nil {
		phase := "unknown"
		var pe *models.PhaseError
		if errors.As(err, &pe) {
			phase = pe.Phase
		}
		log.Error("batch sweep failed", applogger.String("phase", phase), applogger.Error(err))
		return nil, err
	}
	log.Info("batch sweep finished",
		applogger.Int("results", len(report.Results)),
		applogger.Int("combinations", report.Combinations),
		applogger.Int("samples", report.Samples),
		applogger.Bool("cached", report.Cached),
		applogger.Duration("duration_ms", report.Elapsed),
	)
	return report, nil
}

func (a *App) serve(ctx context.Context) error {
	if a.httpServer == nil {
		return fmt.Errorf("serve mode requires an http server")
	}

	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		if err := a.consumer.Start(); err != nil {
			return fmt.Errorf("kafka consumer: %w", err)
		}
		a.log.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	if a.res.Limiter != nil {
		go a.res.Limiter.Run(ctx)
	}
	if err := a.httpServer.Start(); err != nil {
		return err
	}

	var runErr error
	select {
	case <-ctx.Done():
		a.log.Info("shutdown signal received")
	case runErr = <-a.httpServer.Errors():
	}
	if err := a.shutdown(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// shutdown stops intake first (HTTP, Kafka), then running jobs.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout+5*time.Second)
	defer cancel()

	var errs []error
	if err := a.httpServer.Stop(ctx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
		errs = append(errs, err)
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
			errs = append(errs, err)
		}
	}
	if a.jobs != nil {
		if err := a.jobs.Shutdown(ctx); err != nil {
			a.log.Warn("sweep jobs did not stop in time", applogger.Error(err))
			errs = append(errs, err)
		}
	}
	a.log.Info("shutdown complete")
	return errors.Join(errs...)
}

func (a *App) close() {
	if a.res.Producer != nil {
		if err := a.res.Producer.Close(); err != nil {
			a.log.Warn("kafka producer close error", applogger.Error(err))
		}
	}
	if a.res.ClickHouse != nil {
		if err := a.res.ClickHouse.Close(); err != nil {
			a.log.Warn("clickhouse close error", applogger.Error(err))
		}
	}
	if a.res.Cache != nil {
		if err := a.res.Cache.Close(); err != nil {
			a.log.Warn("cache close error", applogger.Error(err))
		}
	}
}
