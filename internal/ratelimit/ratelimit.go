package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/maltedev/ddtech-scraper/internal/clock"
)

type RateLimiter interface {
	Wait(ctx context.Context) error
	Delay() time.Duration
}

// FixedPacer pauses for the same delay on every Wait, regardless of how long
// the previous request took.
type FixedPacer struct {
	mu    sync.Mutex
	delay time.Duration
	clock clock.Clock
	waits int
}

func NewFixedPacer(delay time.Duration, clk clock.Clock) *FixedPacer {
	if clk == nil {
		clk = clock.Real{}
	}
	return &FixedPacer{
		delay: delay,
		clock: clk,
	}
}

func (p *FixedPacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	p.waits++
	p.mu.Unlock()

	return p.clock.Sleep(ctx, p.delay)
}

func (p *FixedPacer) Delay() time.Duration {
	return p.delay
}

// Waits reports how many pauses have been requested.
func (p *FixedPacer) Waits() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.waits
}
