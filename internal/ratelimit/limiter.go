// Package ratelimit enforces the submitter's per-client request budget:
// a configurable number of requests per window, keyed by client
// address, rejecting anything over budget with RateLimitExceeded.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter tracks one token-bucket per client address, each refilling at
// max/window and bursting up to max — the closest continuous-time
// approximation x/time/rate offers to the fixed-window contract the
// external interface describes, while still enforcing the same steady
// throughput ceiling. Idle clients are reaped lazily on access.
type Limiter struct {
	mu       sync.Mutex
	max      int
	window   time.Duration
	visitors map[string]*visitor
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// New constructs a Limiter allowing max requests per window per client.
func New(max int, window time.Duration) *Limiter {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Limiter{
		max:      max,
		window:   window,
		visitors: make(map[string]*visitor),
	}
}

// Allow reports whether client may proceed now, consuming one unit of
// budget if so.
func (l *Limiter) Allow(client string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, ok := l.visitors[client]
	if !ok {
		ratePerSec := rate.Limit(float64(l.max) / l.window.Seconds())
		v = &visitor{limiter: rate.NewLimiter(ratePerSec, l.max)}
		l.visitors[client] = v
	}
	v.lastSeen = now

	l.reapLocked(now)

	return v.limiter.AllowN(now, 1)
}

// reapLocked drops visitors idle for more than ten windows, bounding
// memory for a long-running process with many distinct client
// addresses. Caller must hold l.mu.
func (l *Limiter) reapLocked(now time.Time) {
	cutoff := now.Add(-10 * l.window)
	for addr, v := range l.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(l.visitors, addr)
		}
	}
}
