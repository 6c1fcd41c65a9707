package engine

import (
	"context"
	"sync"
	"time"
)

// RateLimiter enforces a minimum delay between requests per source.
// Each source gets its own bucket keyed by its ID, so a slow scraping
// target being throttled never stalls requests to other sources.
type RateLimiter struct {
	mu   sync.Mutex
	last map[string]time.Time
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{last: make(map[string]time.Time)}
}

// Wait blocks until at least delay has passed since the previous call
// for sourceID, or until ctx is done. The first call for a source
// returns immediately.
func (r *RateLimiter) Wait(ctx context.Context, sourceID string, delay time.Duration) error {
	r.mu.Lock()
	now := time.Now()
	wait := time.Duration(0)
	if prev, ok := r.last[sourceID]; ok {
		if elapsed := now.Sub(prev); elapsed < delay {
			wait = delay - elapsed
		}
	}
	// Reserve the slot before sleeping so concurrent callers queue up
	// behind each other instead of racing for the same window.
	r.last[sourceID] = now.Add(wait)
	r.mu.Unlock()

	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
