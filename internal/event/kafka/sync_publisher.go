package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	platformkafka "github.com/shestoi/stocksync/platform/kafka"
	platformobservability "github.com/shestoi/stocksync/platform/observability"

	"github.com/shestoi/stocksync/internal/service"
)

// EventTypeSyncCompleted тип события о завершённом прогоне
const EventTypeSyncCompleted = "stock.sync.completed"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// SyncEventPublisher реализует service.SyncEventPublisher используя Kafka
type SyncEventPublisher struct {
	logger *zap.Logger
	writer messageWriter
	topic  string
}

// NewSyncEventPublisher создаёт Kafka publisher для событий синхронизации
func NewSyncEventPublisher(logger *zap.Logger, cfg platformkafka.Config, topic string) *SyncEventPublisher {
	return &SyncEventPublisher{
		logger: logger,
		writer: platformkafka.NewWriter(cfg, topic),
		topic:  topic,
	}
}

// Close закрывает Kafka writer
func (p *SyncEventPublisher) Close() error {
	return p.writer.Close()
}

// PublishSyncCompleted публикует итог прогона, ключ сообщения: id прогона
func (p *SyncEventPublisher) PublishSyncCompleted(ctx context.Context, event service.SyncCompletedEvent) error {
	valueBytes, err := json.Marshal(syncCompletedPayload(event))
	if err != nil {
		p.logger.Error("failed to marshal sync completed event",
			zap.Error(err),
			zap.String("run_id", event.RunID),
		)
		return err
	}

	msg := kafka.Message{
		Key:   []byte(event.RunID),
		Value: valueBytes,
	}
	platformobservability.InjectKafka(ctx, &msg)

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("failed to publish sync completed event",
			zap.Error(err),
			zap.String("topic", p.topic),
			zap.String("run_id", event.RunID),
		)
		return err
	}

	p.logger.Info("sync completed event published",
		zap.String("topic", p.topic),
		zap.String("run_id", event.RunID),
		zap.String("state", string(event.State)),
	)
	return nil
}

func syncCompletedPayload(event service.SyncCompletedEvent) map[string]interface{} {
	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}
	errs := event.Errors
	if errs == nil {
		errs = []string{}
	}

	payload := map[string]interface{}{
		"event_id":      uuid.New().String(),
		"event_type":    EventTypeSyncCompleted,
		"event_version": 1,
		"occurred_at":   occurredAt.UTC().Format(time.RFC3339),
		"run_id":        event.RunID,
		"trigger":       string(event.Trigger),
		"state":         string(event.State),
		"updated":       event.Updated,
		"skipped":       event.Skipped,
		"errors":        errs,
	}
	if event.Error != "" {
		payload["error"] = event.Error
	}
	return payload
}

// NoOpSyncEventPublisher используется, когда Kafka выключена
type NoOpSyncEventPublisher struct {
	logger *zap.Logger
}

// NewNoOpSyncEventPublisher создаёт publisher, который только пишет в лог
func NewNoOpSyncEventPublisher(logger *zap.Logger) *NoOpSyncEventPublisher {
	return &NoOpSyncEventPublisher{logger: logger}
}

// PublishSyncCompleted ничего не отправляет
func (p *NoOpSyncEventPublisher) PublishSyncCompleted(_ context.Context, event service.SyncCompletedEvent) error {
	p.logger.Debug("kafka disabled, sync completed event dropped", zap.String("run_id", event.RunID))
	return nil
}
