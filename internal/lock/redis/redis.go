package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/shestoi/stocksync/internal/lock"
)

// DefaultKey ключ аренды прогона синхронизации
const DefaultKey = "stocksync:sync:lock"

// снимаем ключ, только если он всё ещё наш
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Lock реализует RunLock через SET NX PX в Redis.
// Если владелец упал, аренда истекает сама по ttl.
type Lock struct {
	client *redis.Client
	key    string
	logger *zap.Logger
}

// New создаёт Redis блокировку; пустой key заменяется на DefaultKey
func New(client *redis.Client, key string, logger *zap.Logger) *Lock {
	if key == "" {
		key = DefaultKey
	}
	return &Lock{
		client: client,
		key:    key,
		logger: logger,
	}
}

// TryAcquire берёт аренду или возвращает lock.ErrHeld
func (l *Lock) TryAcquire(ctx context.Context, ttl time.Duration) (lock.Release, error) {
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, l.key, token, ttl).Result()
	if err != nil {
		l.logger.Error("failed to acquire run lock in redis",
			zap.Error(err),
			zap.String("key", l.key),
		)
		return nil, fmt.Errorf("failed to acquire run lock: %w", err)
	}
	if !ok {
		l.logger.Debug("run lock is held", zap.String("key", l.key))
		return nil, lock.ErrHeld
	}

	l.logger.Debug("run lock acquired",
		zap.String("key", l.key),
		zap.Duration("ttl", ttl),
	)

	return func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.client, []string{l.key}, token).Err(); err != nil {
			l.logger.Error("failed to release run lock in redis",
				zap.Error(err),
				zap.String("key", l.key),
			)
			return fmt.Errorf("failed to release run lock: %w", err)
		}
		return nil
	}, nil
}
