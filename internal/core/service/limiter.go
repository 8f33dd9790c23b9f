package service

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultLimiterIdle is how long an unused limiter is kept.
const DefaultLimiterIdle = 15 * time.Minute

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiterRegistry hands out one token-bucket limiter per key and drops
// limiters that have been idle longer than the idle timeout.
type RateLimiterRegistry struct {
	mu        sync.Mutex
	limiters  map[string]*limiterEntry
	limit     rate.Limit
	burst     int
	idle      time.Duration
	lastPrune time.Time
	now       func() time.Time
}

// NewRateLimiterRegistry creates a registry whose limiters allow limit
// events per second with the given burst.
func NewRateLimiterRegistry(limit rate.Limit, burst int, idle time.Duration) *RateLimiterRegistry {
	if idle <= 0 {
		idle = DefaultLimiterIdle
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimiterRegistry{
		limiters: make(map[string]*limiterEntry),
		limit:    limit,
		burst:    burst,
		idle:     idle,
		now:      time.Now,
	}
}

// Allow reports whether an event for key may happen now, consuming a token
// if so.
func (r *RateLimiterRegistry) Allow(key string) bool {
	now := r.now()

	r.mu.Lock()
	if now.Sub(r.lastPrune) >= r.idle {
		r.pruneLocked(now)
	}
	e, ok := r.limiters[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(r.limit, r.burst)}
		r.limiters[key] = e
	}
	e.lastSeen = now
	r.mu.Unlock()

	return e.limiter.AllowN(now, 1)
}

// RetryAfter returns how long key must wait for its next token.
func (r *RateLimiterRegistry) RetryAfter(key string) time.Duration {
	r.mu.Lock()
	e, ok := r.limiters[key]
	r.mu.Unlock()
	if !ok {
		return 0
	}
	now := r.now()
	res := e.limiter.ReserveN(now, 1)
	defer res.CancelAt(now)
	return res.DelayFrom(now)
}

// Reset forgets key's limiter.
func (r *RateLimiterRegistry) Reset(key string) {
	r.mu.Lock()
	delete(r.limiters, key)
	r.mu.Unlock()
}

// Len returns the number of tracked keys.
func (r *RateLimiterRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.limiters)
}

func (r *RateLimiterRegistry) pruneLocked(now time.Time) {
	for key, e := range r.limiters {
		if now.Sub(e.lastSeen) > r.idle {
			delete(r.limiters, key)
		}
	}
	r.lastPrune = now
}
