package server

import (
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// GlobalConnectionLimiter caps total concurrent connections per process.
// Uses atomic operations for lock-free counting.
type GlobalConnectionLimiter struct {
	current atomic.Int64
	max     int64
}

func NewGlobalConnectionLimiter(max int64) *GlobalConnectionLimiter {
	return &GlobalConnectionLimiter{max: max}
}

// Acquire attempts to take a connection slot. False means at capacity.
func (l *GlobalConnectionLimiter) Acquire() bool {
	for {
		current := l.current.Load()
		if current >= l.max {
			return false
		}
		if l.current.CompareAndSwap(current, current+1) {
			return true
		}
	}
}

// Release returns a connection slot.
func (l *GlobalConnectionLimiter) Release() {
	l.current.Add(-1)
}

// Current returns the number of held slots.
func (l *GlobalConnectionLimiter) Current() int64 {
	return l.current.Load()
}

// ConnectionRateLimiter limits the rate of new connections per IP using a
// token bucket per source address.
type ConnectionRateLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*rateLimiterEntry
	rate      rate.Limit
	burst     int
	cleanupAt time.Time
}

type rateLimiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const rateLimiterIdleEviction = 10 * time.Minute

func NewConnectionRateLimiter(perSecond float64, burst int) *ConnectionRateLimiter {
	return &ConnectionRateLimiter{
		limiters:  make(map[string]*rateLimiterEntry),
		rate:      rate.Limit(perSecond),
		burst:     burst,
		cleanupAt: time.Now().Add(rateLimiterIdleEviction),
	}
}

// Allow reports whether a new connection from ip is within its rate budget.
func (l *ConnectionRateLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.After(l.cleanupAt) {
		l.cleanup(now)
		l.cleanupAt = now.Add(rateLimiterIdleEviction)
	}

	entry, ok := l.limiters[ip]
	if !ok {
		entry = &rateLimiterEntry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.limiters[ip] = entry
	}
	entry.lastSeen = now
	return entry.limiter.Allow()
}

// cleanup drops buckets for addresses that have been quiet long enough to
// have refilled anyway. Caller holds the mutex.
func (l *ConnectionRateLimiter) cleanup(now time.Time) {
	for ip, entry := range l.limiters {
		if now.Sub(entry.lastSeen) > rateLimiterIdleEviction {
			delete(l.limiters, ip)
		}
	}
}
