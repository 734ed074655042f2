package app

import (
	"sync"
	"time"
)

type rateKey struct {
	conn string
	kind string
}

// RateLimiter is a sliding-window limiter keyed by connection and event kind.
type RateLimiter struct {
	mu     sync.Mutex
	window time.Duration
	now    func() time.Time
	hits   map[rateKey][]time.Time
}

// NewRateLimiter counts events over window. A nil now uses time.Now.
func NewRateLimiter(window time.Duration, now func() time.Time) *RateLimiter {
	if window <= 0 {
		window = time.Second
	}
	if now == nil {
		now = time.Now
	}
	return &RateLimiter{
		window: window,
		now:    now,
		hits:   make(map[rateKey][]time.Time),
	}
}

// Allow reports whether another event of kind fits in the window for connID
// and records it if so. A non-positive limit disables limiting.
func (rl *RateLimiter) Allow(connID, kind string, limit int) bool {
	if limit <= 0 {
		return true
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	cutoff := now.Add(-rl.window)
	key := rateKey{conn: connID, kind: kind}

	recent := rl.hits[key][:0]
	for _, ts := range rl.hits[key] {
		if ts.After(cutoff) {
			recent = append(recent, ts)
		}
	}
	if len(recent) >= limit {
		rl.hits[key] = recent
		return false
	}
	rl.hits[key] = append(recent, now)
	return true
}

// Forget drops every window held for connID.
func (rl *RateLimiter) Forget(connID string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key := range rl.hits {
		if key.conn == connID {
			delete(rl.hits, key)
		}
	}
}
