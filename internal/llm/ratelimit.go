package llm

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// rateLimiter implements a token bucket refilled continuously at
// capacity tokens per minute.
type rateLimiter struct {
	lastRefill time.Time
	stopCh     chan struct{}
	interval   time.Duration
	tokens     int
	capacity   int
	mu         sync.Mutex
	closeOnce  sync.Once
}

// newRateLimiter creates a new rate limiter with the specified requests per minute.
func newRateLimiter(requestsPerMinute int) *rateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 60
	}

	return &rateLimiter{
		tokens:     requestsPerMinute,
		capacity:   requestsPerMinute,
		interval:   time.Minute / time.Duration(requestsPerMinute),
		lastRefill: time.Now(),
		stopCh:     make(chan struct{}),
	}
}

// wait blocks until a token is available, the context is canceled, or the
// limiter is closed.
func (rl *rateLimiter) wait(ctx context.Context) error {
	for {
		delay, ok := rl.reserve()
		if ok {
			return nil
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("rate limiter canceled: %w", ctx.Err())
		case <-rl.stopCh:
			timer.Stop()
			return fmt.Errorf("rate limiter closed")
		case <-timer.C:
		}
	}
}

// tryAcquire attempts to acquire a token without blocking.
func (rl *rateLimiter) tryAcquire() bool {
	_, ok := rl.reserve()
	return ok
}

// reserve takes a token if one is available; otherwise it reports how long
// until the next one is due.
func (rl *rateLimiter) reserve() (time.Duration, bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refillLocked(time.Now())
	if rl.tokens > 0 {
		rl.tokens--
		return 0, true
	}
	return rl.interval - time.Since(rl.lastRefill), false
}

func (rl *rateLimiter) refillLocked(now time.Time) {
	elapsed := now.Sub(rl.lastRefill)
	if elapsed < rl.interval {
		return
	}
	added := int(elapsed / rl.interval)
	rl.tokens = min(rl.capacity, rl.tokens+added)
	rl.lastRefill = rl.lastRefill.Add(time.Duration(added) * rl.interval)
}

// reset restores the limiter to full capacity.
func (rl *rateLimiter) reset() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.tokens = rl.capacity
	rl.lastRefill = time.Now()
}

// Close releases any waiters.
func (rl *rateLimiter) Close() {
	rl.closeOnce.Do(func() { close(rl.stopCh) })
}
