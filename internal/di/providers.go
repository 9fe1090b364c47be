package di

import (
	"context"
	"fmt"
	"time"

	"SweepLab/internal/domain/models"
	"SweepLab/internal/domain/repository"
	"SweepLab/internal/domain/service"
	"SweepLab/internal/handler/api"
	internalrepo "SweepLab/internal/repository"
	apimetrics "SweepLab/internal/service/metrics"
	"SweepLab/internal/service/ratelimit"
	"SweepLab/internal/usecase"
	"SweepLab/pkg/cache"
	pkgch "SweepLab/pkg/clickhouse"
	"SweepLab/pkg/config"
	xhttp "SweepLab/pkg/http"
	pkgkafka "SweepLab/pkg/kafka"
	applogger "SweepLab/pkg/logger"
	"SweepLab/pkg/metrics"
	"SweepLab/pkg/server"
	"SweepLab/pkg/util"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment), applogger.String("mode", cfg.Mode)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	apimetrics.Register()
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client, or nil when neither
// the series source nor an output needs one.
func ProvideClickHouseClient(cfg *config.Config, l *applogger.Logger) (*pkgch.Client, error) {
	if !cfg.UsesClickHouse() {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	if cfg.ClickHouse.InitSchema {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := client.InitSchema(ctx, pkgch.SweepSchema(client.Database())); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("clickhouse schema: %w", err)
		}
	}
	l.Info("clickhouse connected", applogger.String("database", client.Database()))
	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer, or nil when results are not
// published to Kafka.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Output.Kafka {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithHashByKey(true),
		pkgkafka.WithAutoCreateTopic(cfg.Kafka.Producer.AutoCreateTopic),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideCacheService builds the configured cache backend; "none" yields nil.
func ProvideCacheService(cfg *config.Config) (cache.Service, error) {
	memory := func() *cache.MemoryCache {
		return cache.NewMemoryCache(
			cache.WithMemoryMaxSize(cfg.Cache.Memory.MaxSize),
			cache.WithMemoryCleanup(cfg.Cache.Memory.Cleanup),
		)
	}
	redis := func() (*cache.RedisCache, error) {
		rc, err := cache.NewRedisCache(
			cache.WithRedisAddr(cfg.Cache.Redis.Addr),
			cache.WithRedisPassword(cfg.Cache.Redis.Password),
			cache.WithRedisDB(cfg.Cache.Redis.DB),
			cache.WithRedisPrefix(cfg.Cache.Redis.Prefix),
			cache.WithRedisPool(cfg.Cache.Redis.PoolSize, cfg.Cache.Redis.MinIdle, cfg.Cache.Redis.PoolTimeout),
		)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		return rc, nil
	}

	switch cfg.Cache.Backend {
	case "memory":
		return memory(), nil
	case "redis":
		rc, err := redis()
		if err != nil {
			return nil, err
		}
		return rc, nil
	case "layered":
		l2, err := redis()
		if err != nil {
			return nil, err
		}
		return cache.NewLayeredCache(l2, cfg.Cache.Memory.MaxSize, cfg.Cache.TTL), nil
	default:
		return nil, nil
	}
}

// ProvideResultCache wraps svc for sweep results; nil svc disables caching.
func ProvideResultCache(svc cache.Service, cfg *config.Config) repository.ResultCache {
	if svc == nil {
		return nil
	}
	return internalrepo.NewResultCache(svc, cfg.Cache.TTL, cfg.Cache.LockTTL)
}

// ProvideSeriesSource selects the CSV file or ClickHouse candle tables.
func ProvideSeriesSource(cfg *config.Config, ch *pkgch.Client, l *applogger.Logger) (repository.SeriesSource, error) {
	switch cfg.Series.Source {
	case "clickhouse":
		if ch == nil {
			return nil, fmt.Errorf("clickhouse series source without a client")
		}
		return internalrepo.NewCHSeriesSource(ch, l), nil
	default:
		loc, err := time.LoadLocation(cfg.Series.Timezone)
		if err != nil {
			return nil, fmt.Errorf("series timezone: %w", err)
		}
		return internalrepo.NewCSVSeriesSource(cfg.Series.Path, loc, l), nil
	}
}

// ProvideEventSource returns the calendar reader, or nil when no calendar
// file is configured.
func ProvideEventSource(cfg *config.Config, l *applogger.Logger) (repository.EventSource, error) {
	if cfg.Events.Path == "" {
		return nil, nil
	}
	loc, err := time.LoadLocation(cfg.Series.Timezone)
	if err != nil {
		return nil, fmt.Errorf("events timezone: %w", err)
	}
	return internalrepo.NewCSVEventSource(cfg.Events.Path, loc, l), nil
}

// ProvideResultSinks collects every configured output.
func ProvideResultSinks(cfg *config.Config, ch *pkgch.Client, producer *pkgkafka.Producer, l *applogger.Logger) []repository.ResultSink {
	var sinks []repository.ResultSink
	if cfg.Output.CSV != "" {
		sinks = append(sinks, internalrepo.NewCSVResultSink(cfg.Output.CSV, l))
	}
	if cfg.Output.ClickHouse && ch != nil {
		sinks = append(sinks, internalrepo.NewCHResultSink(ch, l))
	}
	if cfg.Output.Kafka && producer != nil {
		sinks = append(sinks, internalrepo.NewKafkaResultPublisher(producer, cfg.Kafka.ResultTopic, cfg.Kafka.Producer.BatchSize, l))
	}
	return sinks
}

// ProvideSweepService builds the end-to-end sweep pipeline.
func ProvideSweepService(
	cfg *config.Config,
	series repository.SeriesSource,
	events repository.EventSource,
	sinks []repository.ResultSink,
	resultCache repository.ResultCache,
	m repository.Metrics,
	l *applogger.Logger,
) (*usecase.SweepService, error) {
	holidays, err := util.ParseDates(cfg.Sweep.Holidays)
	if err != nil {
		return nil, fmt.Errorf("holidays: %w", err)
	}
	return usecase.NewSweepService(usecase.ServiceConfig{
		SingleThreaded:    cfg.Sweep.SingleThreaded,
		Threads:           cfg.Sweep.Threads,
		ProgressStride:    cfg.Sweep.ProgressStride,
		AnnualizationDays: cfg.Sweep.AnnualizationDays,
		Field:             cfg.Sweep.Field,
		Timeframe:         cfg.Series.Timeframe,
		Holidays:          holidays,
	}, series, events, sinks, resultCache, m, l), nil
}

// ProvideBatchRequest maps the sweep and events sections onto a request.
func ProvideBatchRequest(cfg *config.Config) models.SweepRequest {
	s := cfg.Sweep
	return models.SweepRequest{
		Symbol:        s.Symbol,
		Field:         s.Field,
		From:          s.From,
		To:            s.To,
		IntervalMin:   s.IntervalMin,
		IntervalMax:   s.IntervalMax,
		IntervalStep:  s.IntervalStep,
		StartFrom:     s.StartFrom,
		StartTo:       s.StartTo,
		StartStep:     s.StartStep,
		SessionEnd:    s.SessionEnd,
		Threads:       s.Threads,
		Pairing:       s.Pairing,
		FailurePolicy: s.FailurePolicy,
		Events: models.EventWindow{
			Enabled:    cfg.Events.Enabled,
			Mode:       cfg.Events.Mode,
			Impacts:    cfg.Events.Impacts,
			Currencies: cfg.Events.Currencies,
			BackDays:   cfg.Events.BackDays,
			FwdDays:    cfg.Events.FwdDays,
		},
	}
}

// ProvideJobRegistry runs API-submitted sweeps in the background.
func ProvideJobRegistry(cfg *config.Config, svc *usecase.SweepService, l *applogger.Logger) *usecase.JobRegistry {
	return usecase.NewJobRegistry(svc, cfg.Sweep.ProgressStride, cfg.Sweep.JobRetention, l)
}

// ProvideSweepJobs exposes the registry through the service interface the
// HTTP handler depends on.
func ProvideSweepJobs(r *usecase.JobRegistry) service.SweepJobs { return r }

// ProvideSweepsHandler creates the sweep HTTP handler.
func ProvideSweepsHandler(l *applogger.Logger, jobs service.SweepJobs) *api.SweepsEchoHandler {
	return api.NewSweepsEchoHandler(l, jobs)
}

// ProvideRateLimiter returns the per-client API limiter, or nil if disabled.
func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	if !cfg.RateLimit.Enabled {
		return nil
	}
	return ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst, cfg.RateLimit.Idle)
}

// ProvideHTTPServer creates the Echo server in serve mode; batch runs get nil.
func ProvideHTTPServer(cfg *config.Config, h *api.SweepsEchoHandler, limiter *ratelimit.Limiter, l *applogger.Logger) *xhttp.Server {
	if cfg.Mode != "serve" {
		return nil
	}
	opts := []xhttp.ServerOption{
		xhttp.WithAddr(cfg.Server.Host, cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithSlowThreshold(cfg.Server.SlowThreshold),
		xhttp.WithCORS(cfg.Server.CORS),
	}
	if limiter != nil {
		opts = append(opts, xhttp.WithRateLimit(limiter, func(route string) {
			apimetrics.APIRateLimited.WithLabelValues(route).Inc()
		}))
	}
	return xhttp.NewServer(h, l, opts...)
}

// ProvideKafkaConsumer creates the request consumer in serve mode when enabled.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if cfg.Mode != "serve" || !cfg.Kafka.Consumer.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
		pkgkafka.WithConsumerLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.NewHookChain(pkgkafka.TracingHook(), pkgkafka.LoggingHook(l)))
	return consumer, nil
}

// ProvideKafkaSweepHandler handles the request topic.
func ProvideKafkaSweepHandler(cfg *config.Config, svc *usecase.SweepService, m repository.Metrics, l *applogger.Logger) *usecase.SweepRequestHandler {
	return usecase.NewSweepRequestHandler(cfg.Kafka.RequestTopic, svc, m, l)
}

// ProvideResources groups the clients the app must close or keep tidy.
func ProvideResources(ch *pkgch.Client, producer *pkgkafka.Producer, svc cache.Service, limiter *ratelimit.Limiter) server.Resources {
	return server.Resources{ClickHouse: ch, Producer: producer, Cache: svc, Limiter: limiter}
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	svc *usecase.SweepService,
	jobs *usecase.JobRegistry,
	batch models.SweepRequest,
	httpServer *xhttp.Server,
	consumer *pkgkafka.Consumer,
	kh *usecase.SweepRequestHandler,
	res server.Resources,
) *server.App {
	var handler pkgkafka.MessageHandler
	if consumer != nil {
		handler = kh
	}
	return server.New(cfg, l, svc, jobs, batch, httpServer, consumer, handler, res)
}
