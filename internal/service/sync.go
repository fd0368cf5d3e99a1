package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/shestoi/stocksync/internal/feed"
	"github.com/shestoi/stocksync/internal/lock"
	platformobservability "github.com/shestoi/stocksync/platform/observability"
)

// Trigger источник запуска синхронизации
type Trigger string

const (
	TriggerManual Trigger = "manual"
	TriggerHTTP   Trigger = "http"
	TriggerTimer  Trigger = "timer"
)

// State состояние прогона: Idle → Fetching → Applying → Done или Idle → Fetching → Failed
type State string

const (
	StateIdle     State = "idle"
	StateFetching State = "fetching"
	StateApplying State = "applying"
	StateDone     State = "done"
	StateFailed   State = "failed"
)

// DefaultLockTTL время жизни аренды прогона, если не задано
const DefaultLockTTL = 10 * time.Minute

// RunReport отчёт о последнем (или текущем) прогоне
type RunReport struct {
	RunID      string    `json:"run_id"`
	Trigger    Trigger   `json:"trigger"`
	State      State     `json:"state"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitzero"`
	Result     *Result   `json:"result,omitempty"`
	Error      string    `json:"error,omitempty"`
	ErrorCode  string    `json:"error_code,omitempty"`
}

// SyncCompletedEvent событие о завершённом прогоне (успешном или нет)
type SyncCompletedEvent struct {
	RunID      string
	Trigger    Trigger
	State      State
	Updated    int
	Skipped    int
	Errors     []string
	Error      string
	OccurredAt time.Time
}

// SyncMetrics записывает метрики завершённых прогонов
type SyncMetrics interface {
	RecordRun(ctx context.Context, report RunReport, duration time.Duration)
}

type noopSyncMetrics struct{}

func (noopSyncMetrics) RecordRun(context.Context, RunReport, time.Duration) {}

// SyncService оркестрирует прогон: настройки → фид → Applier → отчёт.
// Параллельные вызовы в процессе присоединяются к текущему прогону,
// между процессами прогоны исключает RunLock.
type SyncService struct {
	logger    *zap.Logger
	settings  SettingsProvider
	feed      FeedClient
	applier   *Applier
	runLock   lock.RunLock
	lockTTL   time.Duration
	publisher SyncEventPublisher
	metrics   SyncMetrics
	tracer    trace.Tracer
	now       func() time.Time

	group singleflight.Group

	mu   sync.RWMutex
	last *RunReport

	// runs считает вызовы Sync до завершения их прогона, closing запрещает новые
	drainMu sync.Mutex
	closing bool
	runs    sync.WaitGroup
}

// NewSyncService создаёт SyncService.
// publisher и metrics могут быть nil.
func NewSyncService(
	logger *zap.Logger,
	settings SettingsProvider,
	feedClient FeedClient,
	applier *Applier,
	runLock lock.RunLock,
	lockTTL time.Duration,
	publisher SyncEventPublisher,
	metrics SyncMetrics,
) *SyncService {
	if lockTTL <= 0 {
		lockTTL = DefaultLockTTL
	}
	if metrics == nil {
		metrics = noopSyncMetrics{}
	}
	return &SyncService{
		logger:    logger,
		settings:  settings,
		feed:      feedClient,
		applier:   applier,
		runLock:   runLock,
		lockTTL:   lockTTL,
		publisher: publisher,
		metrics:   metrics,
		tracer:    otel.Tracer("stocksync/sync"),
		now:       time.Now,
	}
}

// Sync выполняет один прогон синхронизации.
// Если прогон уже идёт в этом процессе, вызывающий получает его результат.
// Отмена ctx освобождает вызывающего, но не прерывает начатый прогон: его дожидается Wait.
func (s *SyncService) Sync(ctx context.Context, trigger Trigger) (Result, error) {
	if !s.begin() {
		return Result{}, ErrSyncStopped
	}

	ch := s.group.DoChan("sync", func() (any, error) {
		return s.run(context.WithoutCancel(ctx), trigger)
	})

	select {
	case res := <-ch:
		s.runs.Done()
		if res.Shared {
			s.logger.Debug("joined in-flight sync run", zap.String("trigger", string(trigger)))
		}
		if res.Err != nil {
			return Result{}, res.Err
		}
		return res.Val.(Result), nil
	case <-ctx.Done():
		// прогон продолжается; Wait отпустит только после его завершения
		go func() {
			<-ch
			s.runs.Done()
		}()
		return Result{}, ctx.Err()
	}
}

// Wait запрещает новые прогоны и ждёт завершения начатых или отмены ctx.
// Вызывается при shutdown до закрытия хранилищ и publisher.
func (s *SyncService) Wait(ctx context.Context) error {
	s.drainMu.Lock()
	s.closing = true
	s.drainMu.Unlock()

	done := make(chan struct{})
	go func() {
		s.runs.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.logger.Warn("sync run still in progress at shutdown deadline")
		return ctx.Err()
	}
}

func (s *SyncService) begin() bool {
	s.drainMu.Lock()
	defer s.drainMu.Unlock()
	if s.closing {
		return false
	}
	s.runs.Add(1)
	return true
}

// LastRun возвращает отчёт о последнем прогоне; false, если прогонов ещё не было
func (s *SyncService) LastRun() (RunReport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return RunReport{}, false
	}
	return *s.last, true
}

func (s *SyncService) run(ctx context.Context, trigger Trigger) (Result, error) {
	settings, err := s.settings.Settings(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to load sync settings: %w", err)
	}

	report := RunReport{
		RunID:     uuid.NewString(),
		Trigger:   trigger,
		State:     StateIdle,
		StartedAt: s.now(),
	}

	ctx, span := s.tracer.Start(ctx, "sync.Run", trace.WithAttributes(
		attribute.String("sync.run_id", report.RunID),
		attribute.String("sync.trigger", string(trigger)),
	))
	defer span.End()

	logger := platformobservability.L(ctx, s.logger).With(
		zap.String("run_id", report.RunID),
		zap.String("trigger", string(trigger)),
	)

	if strings.TrimSpace(settings.Endpoint) == "" {
		return s.fail(ctx, span, logger, report, feed.ErrMissingEndpoint)
	}

	release, err := s.runLock.TryAcquire(ctx, s.lockTTL)
	if err != nil {
		if errors.Is(err, lock.ErrHeld) {
			logger.Warn("sync skipped, another run holds the lock")
			span.SetStatus(codes.Error, ErrSyncInProgress.Error())
			return Result{}, ErrSyncInProgress
		}
		return s.fail(ctx, span, logger, report, fmt.Errorf("failed to acquire run lock: %w", err))
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("failed to release run lock", zap.Error(err))
		}
	}()

	report.State = StateFetching
	s.setReport(report)
	logger.Info("sync started")

	fetchCtx := ctx
	if settings.Timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, settings.Timeout)
		defer cancel()
	}

	records, err := s.feed.Fetch(fetchCtx, settings.Endpoint, settings.APIKey)
	if err != nil {
		return s.fail(ctx, span, logger, report, err)
	}

	report.State = StateApplying
	s.setReport(report)
	logger.Info("feed fetched", zap.Int("records", len(records)))

	result, err := s.applier.Apply(ctx, records, settings.DefaultStatus)
	if err != nil {
		return s.fail(ctx, span, logger, report, err)
	}

	report.State = StateDone
	report.FinishedAt = s.now()
	report.Result = &result
	s.finish(ctx, logger, report)

	span.SetAttributes(
		attribute.Int("sync.updated", result.Updated),
		attribute.Int("sync.skipped", result.Skipped),
	)
	logger.Info("sync completed",
		zap.Int("updated", result.Updated),
		zap.Int("skipped", result.Skipped),
		zap.Int("errors", len(result.Errors)),
		zap.Duration("duration", report.FinishedAt.Sub(report.StartedAt)),
	)
	return result, nil
}

func (s *SyncService) fail(ctx context.Context, span trace.Span, logger *zap.Logger, report RunReport, err error) (Result, error) {
	report.State = StateFailed
	report.FinishedAt = s.now()
	report.Error = err.Error()
	report.ErrorCode = ErrorCode(err)
	s.finish(ctx, logger, report)

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	logger.Error("sync failed",
		zap.String("error_code", report.ErrorCode),
		zap.Error(err),
	)
	return Result{}, err
}

func (s *SyncService) finish(ctx context.Context, logger *zap.Logger, report RunReport) {
	s.setReport(report)
	s.metrics.RecordRun(ctx, report, report.FinishedAt.Sub(report.StartedAt))

	if s.publisher == nil {
		return
	}

	event := SyncCompletedEvent{
		RunID:      report.RunID,
		Trigger:    report.Trigger,
		State:      report.State,
		Error:      report.Error,
		Errors:     []string{},
		OccurredAt: report.FinishedAt,
	}
	if report.Result != nil {
		event.Updated = report.Result.Updated
		event.Skipped = report.Result.Skipped
		event.Errors = report.Result.Errors
	}

	if err := s.publisher.PublishSyncCompleted(ctx, event); err != nil {
		logger.Warn("failed to publish sync completed event", zap.Error(err))
	}
}

func (s *SyncService) setReport(report RunReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = &report
}
