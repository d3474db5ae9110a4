package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Key names what is being limited: an upstream API or an inbound client.
type Key string

// APIExchangeRates is the key used for calls to the exchange rate API.
const APIExchangeRates Key = "erapi"

const (
	// DefaultCleanupInterval is how often Run sweeps idle buckets
	DefaultCleanupInterval = 5 * time.Minute
	// DefaultIdleTTL is how long a bucket may go unused before it is evicted
	DefaultIdleTTL = 10 * time.Minute
)

// entry holds a bucket and its last access time
type entry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// Limiter manages a token bucket per key. Buckets are created on first use
// with the limiter's rate and burst.
type Limiter struct {
	limit    rate.Limit
	burst    int
	limiters map[Key]*entry
	mu       sync.Mutex
	now      func() time.Time
}

// New returns a Limiter allowing perSecond events per key with the given burst.
func New(perSecond float64, burst int) *Limiter {
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		limit:    rate.Limit(perSecond),
		burst:    burst,
		limiters: make(map[Key]*entry),
		now:      time.Now,
	}
}

// Unlimited returns a Limiter that never blocks. Useful in tests.
func Unlimited() *Limiter {
	return New(float64(rate.Inf), 1)
}

// get returns the bucket for key, creating it if needed, and marks it used
func (l *Limiter) get(key Key) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, exists := l.limiters[key]
	if !exists {
		e = &entry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[key] = e
	}
	e.lastAccess = l.now()
	return e.limiter
}

// Wait blocks until the rate limiter permits an event for the given key.
// It returns an error if the context is canceled before the event can proceed.
func (l *Limiter) Wait(ctx context.Context, key Key) error {
	return l.get(key).Wait(ctx)
}

// Allow reports whether an event for the given key may happen now
func (l *Limiter) Allow(key Key) bool {
	return l.get(key).Allow()
}

// Limit returns the configured events per second.
func (l *Limiter) Limit() float64 {
	return float64(l.limit)
}

// Len returns the number of buckets currently held.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

// Evict removes buckets not accessed within idle and returns how many were
// removed. An evicted key starts with a full bucket on its next use.
func (l *Limiter) Evict(idle time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for key, e := range l.limiters {
		if now.Sub(e.lastAccess) > idle {
			delete(l.limiters, key)
			removed++
		}
	}
	return removed
}

// Run evicts idle buckets every interval until ctx is done.
func (l *Limiter) Run(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Evict(idle)
		}
	}
}
