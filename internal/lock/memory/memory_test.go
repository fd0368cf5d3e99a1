package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shestoi/stocksync/internal/lock"
)

func TestLock_TryAcquire(t *testing.T) {
	ctx := context.Background()
	l := New()

	release, err := l.TryAcquire(ctx, time.Minute)
	require.NoError(t, err)

	_, err = l.TryAcquire(ctx, time.Minute)
	require.ErrorIs(t, err, lock.ErrHeld)

	require.NoError(t, release(ctx))
	require.NoError(t, release(ctx))

	release2, err := l.TryAcquire(ctx, time.Minute)
	require.NoError(t, err)
	require.NoError(t, release2(ctx))
}

func TestLock_ExpiredLeaseIsFree(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := New()
	l.now = func() time.Time { return now }

	stale, err := l.TryAcquire(ctx, time.Second)
	require.NoError(t, err)

	now = now.Add(2 * time.Second)
	fresh, err := l.TryAcquire(ctx, time.Minute)
	require.NoError(t, err)

	// снятие истёкшей аренды не освобождает новую
	require.NoError(t, stale(ctx))
	_, err = l.TryAcquire(ctx, time.Minute)
	require.ErrorIs(t, err, lock.ErrHeld)

	require.NoError(t, fresh(ctx))
}
