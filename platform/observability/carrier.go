package observability

import (
	"context"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
)

// headersCarrier адаптирует заголовки kafka.Message к propagation.TextMapCarrier
type headersCarrier struct {
	headers *[]kafka.Header
}

// NewHeadersCarrier создаёт carrier поверх заголовков сообщения (для Inject и Extract)
func NewHeadersCarrier(headers *[]kafka.Header) *headersCarrier {
	if headers == nil {
		headers = &[]kafka.Header{}
	}
	return &headersCarrier{headers: headers}
}

// Get возвращает значение первого заголовка с ключом key
func (c *headersCarrier) Get(key string) string {
	for _, h := range *c.headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

// Set заменяет заголовок key или добавляет новый
func (c *headersCarrier) Set(key, value string) {
	for i, h := range *c.headers {
		if h.Key == key {
			(*c.headers)[i].Value = []byte(value)
			return
		}
	}
	*c.headers = append(*c.headers, kafka.Header{Key: key, Value: []byte(value)})
}

// Keys возвращает все ключи заголовков
func (c *headersCarrier) Keys() []string {
	out := make([]string, 0, len(*c.headers))
	for _, h := range *c.headers {
		out = append(out, h.Key)
	}
	return out
}

// InjectKafka записывает trace context из ctx в заголовки сообщения
func InjectKafka(ctx context.Context, msg *kafka.Message) {
	otel.GetTextMapPropagator().Inject(ctx, NewHeadersCarrier(&msg.Headers))
}

// ExtractKafka возвращает ctx с trace context из заголовков сообщения
func ExtractKafka(ctx context.Context, msg kafka.Message) context.Context {
	headers := msg.Headers
	return otel.GetTextMapPropagator().Extract(ctx, NewHeadersCarrier(&headers))
}
