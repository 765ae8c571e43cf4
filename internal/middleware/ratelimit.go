package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/zoobzio/clockz"
)

// RateLimiter is a fixed-window in-memory limiter keyed by caller-chosen
// strings (session or order ids). Constructed with an explicit limit and
// window; expired buckets are swept lazily from Allow.
type RateLimiter struct {
	limit  int
	window time.Duration
	clock  clockz.Clock

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

type bucket struct {
	count       int
	windowStart time.Time
}

type RateLimiterOption func(*RateLimiter)

// WithClock injects a clock. Default is clockz.RealClock; use a fake clock
// for deterministic tests.
func WithClock(clock clockz.Clock) RateLimiterOption {
	return func(rl *RateLimiter) {
		rl.clock = clock
	}
}

func NewRateLimiter(limit int, window time.Duration, opts ...RateLimiterOption) *RateLimiter {
	rl := &RateLimiter{
		limit:   limit,
		window:  window,
		clock:   clockz.RealClock,
		buckets: make(map[string]*bucket),
	}
	for _, opt := range opts {
		opt(rl)
	}
	rl.lastSweep = rl.clock.Now()
	return rl
}

// Allow checks and increments the bucket for key, reporting whether the
// request fits inside the current window.
func (rl *RateLimiter) Allow(key string) bool {
	now := rl.clock.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now.Sub(rl.lastSweep) >= rl.window {
		rl.sweepLocked(now)
	}

	b := rl.buckets[key]
	if b == nil || now.Sub(b.windowStart) >= rl.window {
		b = &bucket{windowStart: now}
		rl.buckets[key] = b
	}

	if b.count >= rl.limit {
		return false
	}
	b.count++
	return true
}

// Cleanup drops all expired buckets immediately.
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.sweepLocked(rl.clock.Now())
}

func (rl *RateLimiter) sweepLocked(now time.Time) {
	for key, b := range rl.buckets {
		if now.Sub(b.windowStart) >= rl.window {
			delete(rl.buckets, key)
		}
	}
	rl.lastSweep = now
}

// Len reports the number of live buckets.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

// RateLimit wraps the limiter as echo middleware. keyFn derives the bucket
// key from the request; an empty key skips limiting.
func RateLimit(rl *RateLimiter, keyFn func(echo.Context) string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := keyFn(c)
			if key != "" && !rl.Allow(key) {
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}
