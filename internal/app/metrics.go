package app

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/shestoi/stocksync/internal/service"
)

// syncMetricsRecorder записывает итоги прогонов в OTLP counters и histogram
type syncMetricsRecorder struct {
	runs     metric.Int64Counter
	updated  metric.Int64Counter
	skipped  metric.Int64Counter
	duration metric.Float64Histogram
}

func newSyncMetricsRecorder(meter metric.Meter) *syncMetricsRecorder {
	runs, _ := meter.Int64Counter("stocksync.sync.runs", metric.WithDescription("Finished sync runs"))
	updated, _ := meter.Int64Counter("stocksync.sync.records.updated", metric.WithDescription("Products updated by sync"))
	skipped, _ := meter.Int64Counter("stocksync.sync.records.skipped", metric.WithDescription("Feed records skipped by sync"))
	duration, _ := meter.Float64Histogram("stocksync.sync.duration_ms", metric.WithDescription("Sync run duration in milliseconds"))
	return &syncMetricsRecorder{
		runs:     runs,
		updated:  updated,
		skipped:  skipped,
		duration: duration,
	}
}

func (r *syncMetricsRecorder) RecordRun(ctx context.Context, report service.RunReport, d time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("trigger", string(report.Trigger)),
		attribute.String("state", string(report.State)),
	)
	if r.runs != nil {
		r.runs.Add(ctx, 1, attrs)
	}
	if r.duration != nil {
		r.duration.Record(ctx, float64(d.Milliseconds()), attrs)
	}
	if report.Result == nil {
		return
	}
	if r.updated != nil {
		r.updated.Add(ctx, int64(report.Result.Updated), attrs)
	}
	if r.skipped != nil {
		r.skipped.Add(ctx, int64(report.Result.Skipped), attrs)
	}
}
