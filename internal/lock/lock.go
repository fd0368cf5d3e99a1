// Package lock содержит блокировку запуска синхронизации.
// Одновременно выполняется не более одного прогона на все процессы, которые делят реализацию.
package lock

import (
	"context"
	"errors"
	"time"
)

// ErrHeld возвращается, когда блокировку уже держит другой владелец
var ErrHeld = errors.New("run lock is held")

// Release снимает блокировку; повторный вызов безопасен
type Release func(ctx context.Context) error

// RunLock аренда на прогон синхронизации.
// ttl ограничивает время жизни аренды, если владелец упал и не снял её.
type RunLock interface {
	TryAcquire(ctx context.Context, ttl time.Duration) (Release, error)
}
