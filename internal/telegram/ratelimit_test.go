package telegram

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterWait(t *testing.T) {
	rl := NewRateLimiter(1000, 1)

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, rl.Wait(context.Background()))
	}
	assert.Less(t, time.Since(start), time.Second)
}

func TestRateLimiterFloodWaitBlocks(t *testing.T) {
	rl := NewRateLimiter(1000, 1)
	rl.SetFloodWait(50 * time.Millisecond)

	start := time.Now()
	require.NoError(t, rl.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)

	// the window is over, the next wait is immediate again
	start = time.Now()
	require.NoError(t, rl.Wait(context.Background()))
	assert.Less(t, time.Since(start), 40*time.Millisecond)
}

func TestRateLimiterFloodWaitCancellation(t *testing.T) {
	rl := NewRateLimiter(1000, 1)
	rl.SetFloodWait(time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := rl.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
