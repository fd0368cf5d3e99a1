package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestStockReducedProducer_PublishIsReadableByConsumer(t *testing.T) {
	w := &fakeWriter{}
	p := &StockReducedProducer{logger: zap.NewNop(), writer: w, topic: EventTypeStockReduced}

	err := p.Publish(context.Background(), StockReducedEvent{
		OrderID:     "o-42",
		ProductID:   "p-1",
		VariationID: "v-9",
		Quantity:    3,
	})
	require.NoError(t, err)
	require.Len(t, w.messages, 1)
	require.Equal(t, "o-42", string(w.messages[0].Key))

	got, err := ParseStockReducedEvent(w.messages[0].Value)
	require.NoError(t, err)
	require.NotEmpty(t, got.EventID)
	require.Equal(t, "p-1", got.ProductID)
	require.Equal(t, "v-9", got.VariationID)
	require.Equal(t, int64(3), got.Quantity)
}

func TestStockReducedProducer_WriteError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	p := &StockReducedProducer{logger: zap.NewNop(), writer: w, topic: EventTypeStockReduced}

	err := p.Publish(context.Background(), StockReducedEvent{ProductID: "p-1", Quantity: 1})
	require.Error(t, err)
	require.Contains(t, err.Error(), "broker down")
}

func TestEncodeStockReducedEvent_OmitsEmptyVariation(t *testing.T) {
	data, err := EncodeStockReducedEvent(StockReducedEvent{EventID: "e-1", ProductID: "p-1", Quantity: 2}, time.Unix(0, 0))
	require.NoError(t, err)
	require.NotContains(t, string(data), "variation_id")
	require.Contains(t, string(data), `"occurred_at":"1970-01-01T00:00:00Z"`)
}
