package clock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRealSleepHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Real{}.Sleep(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRealSleepZero(t *testing.T) {
	require.NoError(t, Real{}.Sleep(context.Background(), 0))
}

func TestFakeAdvances(t *testing.T) {
	start := time.Date(2025, 8, 30, 10, 0, 0, 0, time.UTC)
	f := NewFake(start)

	require.NoError(t, f.Sleep(context.Background(), 3*time.Second))
	require.NoError(t, f.Sleep(context.Background(), 2*time.Second))

	assert.Equal(t, start.Add(5*time.Second), f.Now())
	assert.Equal(t, []time.Duration{3 * time.Second, 2 * time.Second}, f.Sleeps())
}
