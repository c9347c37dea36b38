package feeds

import (
	"context"
	"sync"
	"time"
)

// RateLimiter spaces requests to the feed hosts evenly.
type RateLimiter struct {
	mu   sync.Mutex
	next time.Time
	gap  time.Duration
}

func NewRateLimiter(perSecond int) *RateLimiter {
	if perSecond <= 0 {
		perSecond = 1
	}
	return &RateLimiter{gap: time.Second / time.Duration(perSecond)}
}

// Wait blocks until the caller's slot comes up or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	now := time.Now()
	slot := now
	if r.next.After(now) {
		slot = r.next
	}
	r.next = slot.Add(r.gap)
	r.mu.Unlock()

	d := time.Until(slot)
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
