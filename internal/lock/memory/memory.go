package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shestoi/stocksync/internal/lock"
)

// Lock блокировка запуска в пределах одного процесса
type Lock struct {
	mu        sync.Mutex
	token     string
	expiresAt time.Time
	now       func() time.Time
}

// New создаёт in-memory блокировку
func New() *Lock {
	return &Lock{now: time.Now}
}

// TryAcquire берёт аренду или возвращает lock.ErrHeld.
// Истёкшая аренда считается свободной.
func (l *Lock) TryAcquire(_ context.Context, ttl time.Duration) (lock.Release, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if l.token != "" && now.Before(l.expiresAt) {
		return nil, lock.ErrHeld
	}

	token := uuid.NewString()
	l.token = token
	l.expiresAt = now.Add(ttl)

	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		// чужую аренду (после истечения нашей) не трогаем
		if l.token == token {
			l.token = ""
		}
		return nil
	}, nil
}
