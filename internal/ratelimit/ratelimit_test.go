package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/maltedev/ddtech-scraper/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedPacerWait(t *testing.T) {
	clk := clock.NewFake(time.Date(2025, 8, 30, 0, 0, 0, 0, time.UTC))
	p := NewFixedPacer(2*time.Second, clk)

	require.NoError(t, p.Wait(context.Background()))
	require.NoError(t, p.Wait(context.Background()))

	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, clk.Sleeps())
	assert.Equal(t, 2, p.Waits())
}

func TestFixedPacerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewFixedPacer(time.Hour, nil)
	assert.ErrorIs(t, p.Wait(ctx), context.Canceled)
}
