// Package queue publishes photo processing jobs to Kafka.
package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/grabpic/grabpic-api/internal/config"
	"github.com/grabpic/grabpic-api/internal/domain/models"
	"github.com/grabpic/grabpic-api/internal/domain/service"
	"github.com/grabpic/grabpic-api/internal/infrastructure/monitoring"
	"github.com/grabpic/grabpic-api/pkg/logger"
)

var _ service.PhotoQueue = (*KafkaPublisher)(nil)

// messageWriter is the part of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher hands photos to the face processing worker through a Kafka topic.
type KafkaPublisher struct {
	writer  messageWriter
	metrics *monitoring.Metrics
	logger  logger.Logger
}

// NewKafkaPublisher creates a new KafkaPublisher.
func NewKafkaPublisher(cfg *config.KafkaConfig, metrics *monitoring.Metrics, log logger.Logger) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 || cfg.PhotoTopic == "" {
		return nil, fmt.Errorf("kafka brokers and photo topic are required")
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.PhotoTopic,
		Balancer:     &kafka.LeastBytes{},
		WriteTimeout: cfg.WriteTimeout,
		RequiredAcks: kafka.RequiredAcks(cfg.RequiredAcks),
		BatchTimeout: cfg.BatchTimeout,
	}
	return newKafkaPublisher(writer, metrics, log), nil
}

func newKafkaPublisher(w messageWriter, metrics *monitoring.Metrics, log logger.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer:  w,
		metrics: metrics,
		logger:  log.WithComponent("KafkaPublisher"),
	}
}

// EnqueuePhoto publishes one job keyed by photo id.
func (p *KafkaPublisher) EnqueuePhoto(ctx context.Context, job models.PhotoJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal photo job: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(job.PhotoID),
		Value: payload,
	})
	p.metrics.RecordEnqueue(err)
	if err != nil {
		p.logger.Error(ctx, "failed to write photo job to Kafka", err, logger.String("photo_id", job.PhotoID))
		return fmt.Errorf("failed to enqueue photo %s: %w", job.PhotoID, err)
	}

	p.logger.Debug(ctx, "Photo job enqueued", logger.String("photo_id", job.PhotoID))
	return nil
}

// Close closes the underlying Kafka writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
