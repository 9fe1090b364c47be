package repository

import (
	"context"
	"fmt"

	"SweepLab/internal/domain/models"
	pkgkafka "SweepLab/pkg/kafka"
	applogger "SweepLab/pkg/logger"
)

type batchPublisher interface {
	PublishBatch(ctx context.Context, topic string, messages []pkgkafka.Message) error
}

// ResultMessage is the payload of one record on the results topic.
type ResultMessage struct {
	RunID string `json:"run_id"`
	models.StrategyResult
}

// KafkaResultPublisher emits one message per result, keyed by run id so a
// run stays on one partition.
type KafkaResultPublisher struct {
	producer  batchPublisher
	topic     string
	batchSize int
	l         *applogger.Logger
}

func NewKafkaResultPublisher(producer batchPublisher, topic string, batchSize int, l *applogger.Logger) *KafkaResultPublisher {
	if batchSize <= 0 {
		batchSize = 500
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &KafkaResultPublisher{producer: producer, topic: topic, batchSize: batchSize, l: l}
}

func (p *KafkaResultPublisher) Name() string { return "kafka" }

func (p *KafkaResultPublisher) Write(ctx context.Context, runID string, results []models.StrategyResult) error {
	key := []byte(runID)
	headers := map[string]string{pkgkafka.TraceIDHeader: runID}
	for lo := 0; lo < len(results); lo += p.batchSize {
		hi := min(lo+p.batchSize, len(results))
		batch := make([]pkgkafka.Message, 0, hi-lo)
		for _, r := range results[lo:hi] {
			batch = append(batch, pkgkafka.Message{
				Key:     key,
				Value:   ResultMessage{RunID: runID, StrategyResult: r},
				Headers: headers,
			})
		}
		if err := p.producer.PublishBatch(ctx, p.topic, batch); err != nil {
			return fmt.Errorf("publish results to %s: %w", p.topic, err)
		}
	}
	p.l.Debug("kafka results published",
		applogger.String("run_id", runID),
		applogger.String("topic", p.topic),
		applogger.Int("count", len(results)),
	)
	return nil
}
