package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	platformkafka "github.com/shestoi/stocksync/platform/kafka"
	platformobservability "github.com/shestoi/stocksync/platform/observability"
)

// EventTypeStockReduced тип события списания остатка по позиции заказа
const EventTypeStockReduced = "order.item.stock_reduced"

// StockReducedProducer пишет события списания. Используется dev-утилитой
// для локальной проверки consumer перебалансировки.
type StockReducedProducer struct {
	logger *zap.Logger
	writer messageWriter
	topic  string
}

// NewStockReducedProducer создаёт producer для топика списаний
func NewStockReducedProducer(logger *zap.Logger, cfg platformkafka.Config, topic string) *StockReducedProducer {
	return &StockReducedProducer{
		logger: logger,
		writer: platformkafka.NewWriter(cfg, topic),
		topic:  topic,
	}
}

// Publish отправляет событие с ключом order_id, чтобы позиции заказа шли в одну партицию
func (p *StockReducedProducer) Publish(ctx context.Context, event StockReducedEvent) error {
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}

	value, err := EncodeStockReducedEvent(event, time.Now())
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(event.OrderID),
		Value: value,
	}
	platformobservability.InjectKafka(ctx, &msg)

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("failed to send stock reduced event",
			zap.String("topic", p.topic),
			zap.String("event_id", event.EventID),
			zap.Error(err),
		)
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	p.logger.Info("stock reduced event sent",
		zap.String("topic", p.topic),
		zap.String("event_id", event.EventID),
		zap.String("product_id", event.ProductID),
		zap.Int64("quantity", event.Quantity),
	)
	return nil
}

// Close закрывает writer
func (p *StockReducedProducer) Close() error {
	return p.writer.Close()
}

// EncodeStockReducedEvent собирает payload, который понимает ParseStockReducedEvent
func EncodeStockReducedEvent(event StockReducedEvent, occurredAt time.Time) ([]byte, error) {
	payload := map[string]interface{}{
		"event_id":      event.EventID,
		"event_type":    EventTypeStockReduced,
		"event_version": 1,
		"occurred_at":   occurredAt.UTC().Format(time.RFC3339),
		"order_id":      event.OrderID,
		"product_id":    event.ProductID,
		"quantity":      event.Quantity,
	}
	if event.VariationID != "" {
		payload["variation_id"] = event.VariationID
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal stock reduced event: %w", err)
	}
	return data, nil
}
