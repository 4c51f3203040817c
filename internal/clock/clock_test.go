package clock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSleep_Elapses(t *testing.T) {
	start := time.Now()
	require.NoError(t, Sleep(context.Background(), 5*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 5*time.Millisecond)
}

func TestSleep_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Sleep(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInstant(t *testing.T) {
	assert.NoError(t, Instant(context.Background(), time.Hour))
}

func TestFixed(t *testing.T) {
	ts := time.Date(2024, 1, 20, 10, 30, 0, 0, time.UTC)
	assert.Equal(t, ts, Fixed(ts)())
}
