// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements an in-memory sliding-window rate limiter keyed by
// client identity. Each key keeps the timestamps of its admitted requests
// within the trailing window; a request is refused when the window already
// holds Max of them.
//
// Notes:
//   - This limiter is process-local. For horizontally scaled deployments,
//     a shared store would be needed to enforce a global limit.
//   - Expired timestamps are pruned either for the requesting key only
//     (lazy, with periodic collection of idle keys) or for every key on
//     every request (sweep).
package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// keyFunc selects the identity used to key a rate-limit window.
type keyFunc func(*gin.Context) string

// KeyByClientAddress keys windows by ClientAddress.
func KeyByClientAddress() keyFunc {
	return func(c *gin.Context) string { return "ip:" + ClientAddress(c) }
}

// Prune strategies for RateLimitOptions.Prune.
const (
	PruneLazy  = "lazy"
	PruneSweep = "sweep"
)

// gcEvery is how many lazy lookups pass between idle-key collections.
const gcEvery = 5000

// RateLimitOptions configures a SlidingWindowLimiter.
type RateLimitOptions struct {
	Max    int           // requests admitted per window, >= 1
	Window time.Duration // trailing window length
	Prune  string        // PruneLazy (default) or PruneSweep
	Now    func() time.Time
}

// SlidingWindowLimiter is safe for concurrent use.
type SlidingWindowLimiter struct {
	max    int
	window time.Duration
	sweep  bool
	now    func() time.Time
	keyFn  keyFunc

	mu      sync.Mutex
	hits    map[string][]time.Time
	lookups uint64
}

// NewSlidingWindowLimiter constructs a limiter. Max below 1 is coerced to 1;
// a nil Now uses time.Now.
func NewSlidingWindowLimiter(opts RateLimitOptions, keyFn keyFunc) *SlidingWindowLimiter {
	if opts.Max < 1 {
		opts.Max = 1
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &SlidingWindowLimiter{
		max:    opts.Max,
		window: opts.Window,
		sweep:  opts.Prune == PruneSweep,
		now:    opts.Now,
		keyFn:  keyFn,
		hits:   make(map[string][]time.Time),
	}
}

// Allow records a request for key if the window has room. When it does not,
// it returns false and the time until the oldest counted request expires.
func (l *SlidingWindowLimiter) Allow(key string) (bool, time.Duration) {
	now := l.now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.sweep {
		l.pruneAll(cutoff)
	} else {
		l.lookups++
		if l.lookups >= gcEvery {
			l.pruneAll(cutoff)
			l.lookups = 0
		}
	}

	ts := pruneBefore(l.hits[key], cutoff)
	if len(ts) >= l.max {
		l.hits[key] = ts
		return false, ts[0].Add(l.window).Sub(now)
	}
	l.hits[key] = append(ts, now)
	return true, 0
}

// Keys reports how many identities currently hold state.
func (l *SlidingWindowLimiter) Keys() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.hits)
}

// pruneAll drops expired timestamps for every key and deletes empty keys.
// Callers hold l.mu.
func (l *SlidingWindowLimiter) pruneAll(cutoff time.Time) {
	for k, ts := range l.hits {
		if ts = pruneBefore(ts, cutoff); len(ts) == 0 {
			delete(l.hits, k)
		} else {
			l.hits[k] = ts
		}
	}
}

// pruneBefore drops leading timestamps at or before cutoff. ts is ascending.
func pruneBefore(ts []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(ts) && !ts[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return ts
	}
	return append(ts[:0], ts[i:]...)
}

// Gate returns the limiter as a webhook gate. Refused requests get 429 with
// Retry-After in whole seconds (at least 1).
func (l *SlidingWindowLimiter) Gate() Gate {
	return Gate{
		Name: "rate_limit",
		Check: func(c *gin.Context) *Rejection {
			ok, wait := l.Allow(l.keyFn(c))
			if ok {
				return nil
			}
			c.Header("Retry-After", strconv.Itoa(retryAfterSeconds(wait)))
			return reject(http.StatusTooManyRequests, codeTooManyRequests, "rate limit exceeded")
		},
	}
}

// Handler returns the limiter as standalone middleware.
func (l *SlidingWindowLimiter) Handler() gin.HandlerFunc {
	return Gates(l.Gate())
}

func retryAfterSeconds(d time.Duration) int {
	s := int(math.Ceil(d.Seconds()))
	if s < 1 {
		return 1
	}
	return s
}
