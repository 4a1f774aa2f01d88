package usecase

import (
	"context"
	"sync"
	"time"
)

// exponentialDelay returns base * 2^(attempt-1), capped at max.
func exponentialDelay(base, max time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= max || delay <= 0 {
			return max
		}
	}
	if delay > max {
		return max
	}
	return delay
}

// Backoff is a pool-wide pause shared by every dispatcher worker. Each rate
// limit response doubles the pause until a call succeeds.
type Backoff struct {
	mu     sync.Mutex
	base   time.Duration
	max    time.Duration
	streak int
	until  time.Time
	now    func() time.Time
}

// NewBackoff creates a Backoff.
func NewBackoff(base, max time.Duration) *Backoff {
	return &Backoff{base: base, max: max, now: time.Now}
}

// Pause extends the pause. A retry hint from the platform wins when it is longer
// than the computed delay. It returns the applied delay.
func (b *Backoff) Pause(hint time.Duration) time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.streak++
	delay := exponentialDelay(b.base, b.max, b.streak)
	if hint > delay {
		delay = min(hint, b.max)
	}
	if until := b.now().Add(delay); until.After(b.until) {
		b.until = until
	}
	return delay
}

// Reset clears the streak after a successful call. A pause already running is kept.
func (b *Backoff) Reset() {
	b.mu.Lock()
	b.streak = 0
	b.mu.Unlock()
}

// Remaining returns how long the pool is still paused.
func (b *Backoff) Remaining() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.until.Sub(b.now())
}

// Wait blocks until the pause is over or ctx is done.
func (b *Backoff) Wait(ctx context.Context) error {
	for {
		remaining := b.Remaining()
		if remaining <= 0 {
			return ctx.Err()
		}
		timer := time.NewTimer(remaining)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
