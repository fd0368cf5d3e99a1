package kafka

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestConfig_Backoff(t *testing.T) {
	cfg := Config{RetryBackoffBase: time.Second}

	require.Equal(t, time.Duration(0), cfg.Backoff(1))
	require.Equal(t, time.Second, cfg.Backoff(2))
	require.Equal(t, 2*time.Second, cfg.Backoff(3))
	require.Equal(t, 4*time.Second, cfg.Backoff(4))
}
