package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"SweepLab/internal/domain/models"
	domrepo "SweepLab/internal/domain/repository"
	pkgkafka "SweepLab/pkg/kafka"
	"SweepLab/pkg/logger"
)

// SweepMessage is the payload of the request topic. RunID is optional; when
// missing the trace id header, then a fresh UUID, is used.
type SweepMessage struct {
	RunID   string              `json:"run_id"`
	Request models.SweepRequest `json:"request"`
}

// SweepRequestHandler runs sweeps submitted over Kafka. Results leave through
// the service's sinks, normally including the Kafka result publisher.
type SweepRequestHandler struct {
	topic   string
	runner  Runner
	metrics domrepo.Metrics
	log     *logger.Logger
}

func NewSweepRequestHandler(topic string, runner Runner, metrics domrepo.Metrics, log *logger.Logger) *SweepRequestHandler {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &SweepRequestHandler{topic: topic, runner: runner, metrics: metrics, log: log}
}

func (h *SweepRequestHandler) Topic() string { return h.topic }

func (h *SweepRequestHandler) Handle(ctx context.Context, b []byte) error {
	var m SweepMessage
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return fmt.Errorf("decode sweep message: %w", err)
	}
	if m.RunID == "" {
		m.RunID = pkgkafka.TraceID(ctx)
	}
	if m.RunID == "" {
		m.RunID = uuid.NewString()
	}

	start := time.Now()
	report, err := h.runner.Execute(ctx, m.RunID, m.Request, nil)
	h.metrics.RecordLatency("kafka_sweep", time.Since(start).Seconds())
	if errors.Is(err, models.ErrSweepInProgress) {
		h.log.Info("duplicate sweep request skipped", logger.String("run_id", m.RunID))
		return nil
	}
	if err != nil {
		h.metrics.RecordError("consumer_sweep")
		return fmt.Errorf("sweep %s: %w", m.RunID, err)
	}

	h.log.Info("kafka sweep completed",
		logger.String("run_id", m.RunID),
		logger.Int("results", len(report.Results)),
		logger.Bool("cached", report.Cached),
	)
	return nil
}

var _ pkgkafka.MessageHandler = (*SweepRequestHandler)(nil)
