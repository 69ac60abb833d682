package middleware

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
)

const (
	limiterIdleTTL = 10 * time.Minute
	sweepInterval  = time.Minute
)

type limiterEntry struct {
	lim  *rate.Limiter
	seen atomic.Int64
}

type rateLimiter struct {
	limiters  sync.Map
	rps       float64
	burst     int
	idle      time.Duration
	lastSweep atomic.Int64
}

func newRateLimiter(rps float64, burst int) *rateLimiter {
	idle := limiterIdleTTL
	// a bucket is only dropped once it would have refilled anyway
	if rps > 0 {
		if refill := time.Duration(float64(burst) / rps * float64(time.Second)); refill > idle {
			idle = refill
		}
	}
	return &rateLimiter{rps: rps, burst: burst, idle: idle}
}

func (l *rateLimiter) get(key string, now time.Time) *rate.Limiter {
	v, ok := l.limiters.Load(key)
	if !ok {
		v, _ = l.limiters.LoadOrStore(key, &limiterEntry{lim: rate.NewLimiter(rate.Limit(l.rps), l.burst)})
	}
	e := v.(*limiterEntry)
	e.seen.Store(now.UnixNano())
	return e.lim
}

// maybeSweep runs sweep at most once per sweepInterval.
func (l *rateLimiter) maybeSweep(now time.Time) {
	last := l.lastSweep.Load()
	if now.UnixNano()-last < int64(sweepInterval) {
		return
	}
	if l.lastSweep.CompareAndSwap(last, now.UnixNano()) {
		l.sweep(now)
	}
}

// sweep drops limiters not seen for the idle window.
func (l *rateLimiter) sweep(now time.Time) {
	cutoff := now.Add(-l.idle).UnixNano()
	l.limiters.Range(func(key, v any) bool {
		if v.(*limiterEntry).seen.Load() < cutoff {
			l.limiters.Delete(key)
		}
		return true
	})
}

// RateLimit applies a token bucket per client IP. Buckets of clients that
// go quiet are evicted.
func RateLimit(rps float64, burst int) fiber.Handler {
	if burst <= 0 {
		burst = 5
	}
	l := newRateLimiter(rps, burst)
	return func(c *fiber.Ctx) error {
		now := time.Now()
		l.maybeSweep(now)
		if !l.get(c.IP(), now).Allow() {
			return fiber.NewError(fiber.StatusTooManyRequests, "too many requests")
		}
		return c.Next()
	}
}
