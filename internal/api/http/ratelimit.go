package http

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"

	apperrors "github.com/spec-kit/feedback-service/pkg/util/errorutil"
)

// RateLimiter implements token bucket rate limiting per client IP.
type RateLimiter struct {
	limiters sync.Map // ip -> *rate.Limiter
	rate     rate.Limit
	burst    int
	now      func() time.Time
}

// NewRateLimiter creates a limiter allowing perSecond requests with the
// given burst. A non-positive rate disables limiting.
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{rate: rate.Limit(perSecond), burst: burst, now: time.Now}
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	if limiter, ok := rl.limiters.Load(key); ok {
		return limiter.(*rate.Limiter)
	}
	limiter, _ := rl.limiters.LoadOrStore(key, rate.NewLimiter(rl.rate, rl.burst))
	return limiter.(*rate.Limiter)
}

// Allow checks if a request should be allowed for the given key.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.getLimiter(key).AllowN(rl.now(), 1)
}

// Sweep drops limiters whose bucket has refilled completely. A full bucket
// behaves exactly like a fresh one, so eviction never grants extra requests
// to an idle client.
func (rl *RateLimiter) Sweep(ctx context.Context) (int, error) {
	now := rl.now()
	evicted := 0
	var err error
	rl.limiters.Range(func(k, v any) bool {
		if err = ctx.Err(); err != nil {
			return false
		}
		if v.(*rate.Limiter).TokensAt(now) >= float64(rl.burst) && rl.limiters.CompareAndDelete(k, v) {
			evicted++
		}
		return true
	})
	return evicted, err
}

// Len returns the number of tracked clients.
func (rl *RateLimiter) Len() int {
	n := 0
	rl.limiters.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Handle is the fiber middleware.
func (rl *RateLimiter) Handle(c *fiber.Ctx) error {
	if rl.rate <= 0 {
		return c.Next()
	}
	if !rl.Allow("ip:" + c.IP()) {
		c.Set("X-RateLimit-Limit", strconv.Itoa(rl.burst))
		c.Set("X-RateLimit-Remaining", "0")
		c.Set(fiber.HeaderRetryAfter, retryAfter(rl.rate))
		return apperrors.NewTooManyRequests("too many requests, slow down")
	}
	return c.Next()
}

func retryAfter(r rate.Limit) string {
	seconds := int(1 / float64(r))
	if seconds < 1 {
		seconds = 1
	}
	return strconv.Itoa(seconds)
}
