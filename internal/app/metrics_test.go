package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/shestoi/stocksync/internal/service"
)

func TestSyncMetricsRecorder(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	recorder := newSyncMetricsRecorder(provider.Meter("stocksync"))
	ctx := context.Background()

	recorder.RecordRun(ctx, service.RunReport{
		Trigger: service.TriggerHTTP,
		State:   service.StateDone,
		Result:  &service.Result{Updated: 4, Skipped: 2},
	}, 120*time.Millisecond)
	recorder.RecordRun(ctx, service.RunReport{
		Trigger: service.TriggerTimer,
		State:   service.StateFailed,
	}, 10*time.Millisecond)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	sums := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if data, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range data.DataPoints {
					sums[m.Name] += dp.Value
				}
			}
		}
	}

	require.Equal(t, int64(2), sums["stocksync.sync.runs"])
	require.Equal(t, int64(4), sums["stocksync.sync.records.updated"])
	require.Equal(t, int64(2), sums["stocksync.sync.records.skipped"])
}
