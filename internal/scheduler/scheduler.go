// Package scheduler запускает синхронизацию по таймеру.
package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultInitialDelay задержка перед первым запуском после старта
const DefaultInitialDelay = time.Minute

// Именованные интервалы
const (
	IntervalQuarterHour = "quarter_hour"
	IntervalHourly      = "hourly"
	IntervalTwiceDaily  = "twicedaily"
	IntervalDaily       = "daily"
)

// Scheduler вызывает зарегистрированный колбэк по расписанию
type Scheduler interface {
	OnTick(fn func(ctx context.Context))
	Start(ctx context.Context)
	Stop(ctx context.Context) error
	NextRun() (time.Time, bool)
}

// ParseInterval понимает именованные интервалы и любые длительности Go ("30m", "2h")
func ParseInterval(raw string) (time.Duration, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case IntervalQuarterHour:
		return 15 * time.Minute, nil
	case IntervalHourly, "":
		return time.Hour, nil
	case IntervalTwiceDaily:
		return 12 * time.Hour, nil
	case IntervalDaily:
		return 24 * time.Hour, nil
	}

	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid sync interval %q: %w", raw, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("sync interval must be positive, got %s", d)
	}
	return d, nil
}

// TickerScheduler срабатывает через initialDelay, затем каждые interval.
// Колбэки выполняются последовательно: тик, пришедший во время работы колбэка, пропускается.
type TickerScheduler struct {
	logger       *zap.Logger
	interval     time.Duration
	initialDelay time.Duration

	mu      sync.Mutex
	fns     []func(ctx context.Context)
	next    time.Time
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewTickerScheduler создаёт планировщик; initialDelay <= 0 означает DefaultInitialDelay
func NewTickerScheduler(logger *zap.Logger, interval, initialDelay time.Duration) *TickerScheduler {
	if initialDelay <= 0 {
		initialDelay = DefaultInitialDelay
	}
	return &TickerScheduler{
		logger:       logger,
		interval:     interval,
		initialDelay: initialDelay,
	}
}

// OnTick регистрирует колбэк; регистрировать нужно до Start
func (s *TickerScheduler) OnTick(fn func(ctx context.Context)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fns = append(s.fns, fn)
}

// Start запускает цикл в отдельной горутине; повторный вызов ничего не делает
func (s *TickerScheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.running = true
	s.cancel = cancel
	s.done = make(chan struct{})
	s.next = time.Now().Add(s.initialDelay)

	s.logger.Info("sync scheduler started",
		zap.Duration("interval", s.interval),
		zap.Time("next_run", s.next),
	)

	go s.loop(ctx, s.done)
}

// Stop останавливает цикл и ждёт завершения текущего колбэка или ctx
func (s *TickerScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.next = time.Time{}
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	select {
	case <-done:
		s.logger.Info("sync scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NextRun возвращает время следующего запуска; false, если планировщик не запущен
func (s *TickerScheduler) NextRun() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return time.Time{}, false
	}
	return s.next, true
}

func (s *TickerScheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	timer := time.NewTimer(s.initialDelay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		s.mu.Lock()
		fns := append([]func(ctx context.Context){}, s.fns...)
		s.mu.Unlock()

		for _, fn := range fns {
			s.fire(ctx, fn)
		}

		s.mu.Lock()
		s.next = time.Now().Add(s.interval)
		s.mu.Unlock()
		timer.Reset(s.interval)
	}
}

func (s *TickerScheduler) fire(ctx context.Context, fn func(ctx context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("sync scheduler callback panicked", zap.Any("panic", r))
		}
	}()
	fn(ctx)
}
