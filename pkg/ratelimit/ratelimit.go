// Package ratelimit bounds calls to the text-generation backend with a
// sliding admission window.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// waking up exactly at the eviction boundary can lose the race with the
// clock, so every computed sleep gets a small pad
const wakeBuffer = 10 * time.Millisecond

// Limiter admits at most limit calls within any trailing interval. It never
// rejects, it only delays.
type Limiter struct {
	mu       sync.Mutex
	limit    int
	interval time.Duration
	stamps   []time.Time

	now func() time.Time
}

func NewLimiter(limit int, interval time.Duration) *Limiter {
	return &Limiter{
		limit:    limit,
		interval: interval,
		stamps:   make([]time.Time, 0, limit),
		now:      time.Now,
	}
}

// Wait blocks until a call is permitted, then records it. After sleeping it
// re-evaluates the window from scratch: other waiters may have been admitted
// in between.
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		l.mu.Lock()
		now := l.now()
		cutoff := now.Add(-l.interval)
		idx := 0
		for idx < len(l.stamps) && !l.stamps[idx].After(cutoff) {
			idx++
		}
		if idx > 0 {
			l.stamps = append(l.stamps[:0], l.stamps[idx:]...)
		}

		if len(l.stamps) < l.limit {
			l.stamps = append(l.stamps, now)
			l.mu.Unlock()
			return nil
		}

		wait := l.stamps[0].Sub(cutoff) + wakeBuffer
		l.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}
