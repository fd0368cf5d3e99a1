package kafka

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	platformkafka "github.com/shestoi/stocksync/platform/kafka"
	platformobservability "github.com/shestoi/stocksync/platform/observability"

	"github.com/shestoi/stocksync/internal/repository"
)

// StockReducedEvent позиция заказа, с которой уже списан локальный остаток
type StockReducedEvent struct {
	EventID     string
	OrderID     string
	ProductID   string
	VariationID string
	Quantity    int64
}

// LineItem превращает событие в позицию заказа
func (e StockReducedEvent) LineItem() repository.LineItem {
	return repository.LineItem{
		OrderID:     e.OrderID,
		ProductID:   e.ProductID,
		VariationID: e.VariationID,
		Quantity:    e.Quantity,
	}
}

// Rebalancer определяет, что consumer делает с позицией заказа
type Rebalancer interface {
	Rebalance(ctx context.Context, item repository.LineItem) error
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// StockReducedConsumer перебалансирует остатки после списаний по заказам
type StockReducedConsumer struct {
	logger     *zap.Logger
	reader     messageReader
	rebalancer Rebalancer
	cfg        platformkafka.Config
	tracer     trace.Tracer
}

// NewStockReducedConsumer создаёт consumer для событий списания остатка
func NewStockReducedConsumer(
	logger *zap.Logger,
	cfg platformkafka.Config,
	groupID, topic string,
	rebalancer Rebalancer,
) *StockReducedConsumer {
	return newStockReducedConsumer(logger, cfg, platformkafka.NewReader(cfg, groupID, topic), rebalancer)
}

func newStockReducedConsumer(logger *zap.Logger, cfg platformkafka.Config, reader messageReader, rebalancer Rebalancer) *StockReducedConsumer {
	// Safety defaults (на случай кривого env/config)
	if cfg.RetryMaxAttempts <= 0 {
		cfg.RetryMaxAttempts = 3
	}
	if cfg.RetryBackoffBase <= 0 {
		cfg.RetryBackoffBase = time.Second
	}
	return &StockReducedConsumer{
		logger:     logger,
		reader:     reader,
		rebalancer: rebalancer,
		cfg:        cfg,
		tracer:     otel.Tracer("stocksync/event/kafka"),
	}
}

// Start читает сообщения до отмены ctx.
// FetchMessage + CommitMessages после успешной обработки: при падении процесса
// незакоммиченные сообщения доставляются повторно. Сообщение, исчерпавшее попытки,
// не коммитится, но следующий успешный commit в партиции сдвигает offset за него.
func (c *StockReducedConsumer) Start(ctx context.Context) error {
	c.logger.Info("starting kafka consumer",
		zap.Int("max_retry_attempts", c.cfg.RetryMaxAttempts),
		zap.Duration("retry_backoff_base", c.cfg.RetryBackoffBase),
	)

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("consumer context cancelled, stopping")
				return nil
			}
			c.logger.Error("failed to fetch message from kafka", zap.Error(err))
			continue
		}

		if !c.processMessage(ctx, m) {
			continue
		}

		if err := c.reader.CommitMessages(ctx, m); err != nil {
			c.logger.Error("failed to commit message offset",
				zap.Error(err),
				zap.String("topic", m.Topic),
				zap.Int("partition", m.Partition),
				zap.Int64("offset", m.Offset),
			)
		}
	}
}

// processMessage возвращает true, если offset нужно закоммитить
func (c *StockReducedConsumer) processMessage(ctx context.Context, m kafka.Message) bool {
	ctx, span := c.tracer.Start(platformobservability.ExtractKafka(ctx, m), "kafka.consume "+m.Topic,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.Int("messaging.kafka.partition", m.Partition),
			attribute.Int64("messaging.kafka.offset", m.Offset),
		),
	)
	defer span.End()

	event, err := ParseStockReducedEvent(m.Value)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		c.logger.Error("failed to parse stock reduced event",
			zap.Error(err),
			zap.String("topic", m.Topic),
			zap.Int("partition", m.Partition),
			zap.Int64("offset", m.Offset),
		)
		// poison pill коммитим, чтобы не зациклиться
		return true
	}

	if !c.handleWithRetry(ctx, event) {
		span.SetStatus(codes.Error, "rebalance failed after all retries")
		// сообщение пропускается: offset не коммитится, но следующий commit в партиции его перекроет.
		// Rebalance работает по текущему остатку, следующий заказ по товару выровняет пулы
		c.logger.Error("failed to rebalance stock after all retries",
			zap.String("event_id", event.EventID),
			zap.String("order_id", event.OrderID),
			zap.Int64("offset", m.Offset),
		)
		return false
	}
	return true
}

func (c *StockReducedConsumer) handleWithRetry(ctx context.Context, event StockReducedEvent) bool {
	item := event.LineItem()

	for attempt := 1; attempt <= c.cfg.RetryMaxAttempts; attempt++ {
		if backoff := c.cfg.Backoff(attempt); backoff > 0 {
			select {
			case <-ctx.Done():
				return false
			case <-time.After(backoff):
			}
		}

		err := c.rebalancer.Rebalance(ctx, item)
		if err == nil {
			c.logger.Debug("stock reduced event processed",
				zap.String("event_id", event.EventID),
				zap.String("product_id", item.PurchasedID()),
				zap.Int("attempt", attempt),
			)
			return true
		}

		c.logger.Warn("failed to rebalance stock",
			zap.Error(err),
			zap.String("event_id", event.EventID),
			zap.String("product_id", item.PurchasedID()),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", c.cfg.RetryMaxAttempts),
		)
	}
	return false
}

// Close закрывает Kafka reader
func (c *StockReducedConsumer) Close() error {
	c.logger.Info("closing kafka consumer")
	return c.reader.Close()
}

// ParseStockReducedEvent разбирает payload события списания.
// id принимаются строкой или числом, quantity должно быть положительным целым.
func ParseStockReducedEvent(data []byte) (StockReducedEvent, error) {
	var payload map[string]interface{}
	if err := json.Unmarshal(data, &payload); err != nil {
		return StockReducedEvent{}, &ParseError{Field: "payload", Message: "payload is not a JSON object: " + err.Error()}
	}

	event := StockReducedEvent{
		EventID:     idField(payload, "event_id"),
		OrderID:     idField(payload, "order_id"),
		ProductID:   idField(payload, "product_id"),
		VariationID: idField(payload, "variation_id"),
	}
	if event.VariationID == "0" {
		event.VariationID = ""
	}

	if event.ProductID == "" {
		return event, &ParseError{Field: "product_id", Message: "product_id is required"}
	}

	q, ok := payload["quantity"].(float64)
	if !ok || q <= 0 || q != float64(int64(q)) {
		return event, &ParseError{Field: "quantity", Message: "quantity must be a positive integer"}
	}
	event.Quantity = int64(q)

	return event, nil
}

func idField(payload map[string]interface{}, key string) string {
	switch v := payload[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatInt(int64(v), 10)
	default:
		return ""
	}
}
