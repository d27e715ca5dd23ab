package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Pacer enforces a fixed minimum interval between successive calls.
// The first call to Wait never blocks.
type Pacer struct {
	interval time.Duration

	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

// NewPacer returns a pacer with the given interval; zero disables pacing
func NewPacer(interval time.Duration) *Pacer {
	return &Pacer{interval: interval, now: time.Now}
}

// Interval returns the configured spacing
func (p *Pacer) Interval() time.Duration {
	return p.interval
}

// Wait blocks until the interval since the previous call has elapsed or ctx is done
func (p *Pacer) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	var delay time.Duration
	if !p.last.IsZero() && p.interval > 0 {
		delay = p.interval - p.now().Sub(p.last)
	}
	p.mu.Unlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	p.mu.Lock()
	p.last = p.now()
	p.mu.Unlock()
	return nil
}
