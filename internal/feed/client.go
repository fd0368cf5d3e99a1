package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	// DefaultTimeout таймаут одного запроса к фиду
	DefaultTimeout = 15 * time.Second

	maxBodySize = 32 << 20 // 32MB
)

// Client забирает остатки из удалённого фида по HTTP.
// Одна попытка на вызов, повторы остаются планировщику.
type Client struct {
	logger *zap.Logger
	client *http.Client
	tracer trace.Tracer
}

// Option настраивает Client
type Option func(*Client)

// WithHTTPClient подменяет http.Client (тесты, кастомный transport)
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.client = hc
	}
}

// NewClient создаёт клиента фида с таймаутом на запрос
func NewClient(logger *zap.Logger, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	c := &Client{
		logger: logger,
		client: &http.Client{Timeout: timeout},
		tracer: otel.Tracer("stocksync/feed"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch выполняет GET endpoint и декодирует массив записей.
// Authorization добавляется только при непустом apiKey.
func (c *Client) Fetch(ctx context.Context, endpoint, apiKey string) ([]Record, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, ErrMissingEndpoint
	}

	ctx, span := c.tracer.Start(ctx, "feed.Fetch",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("http.method", http.MethodGet)),
	)
	defer span.End()

	records, err := c.fetch(ctx, endpoint, strings.TrimSpace(apiKey))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("feed.records", len(records)))
	return records, nil
}

func (c *Client) fetch(ctx context.Context, endpoint, apiKey string) ([]Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", ErrTransport, err)
	}
	req.Header.Set("Accept", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("feed request failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("feed responded",
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// дочитываем тело, чтобы соединение вернулось в пул
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
		return nil, &BadResponseError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrTransport, err)
	}

	var records []Record
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadPayload, err)
	}
	if records == nil {
		// "null" декодируется без ошибки, но массивом не является
		return nil, fmt.Errorf("%w: expected JSON array", ErrBadPayload)
	}
	return records, nil
}
