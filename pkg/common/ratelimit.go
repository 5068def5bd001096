package common

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter is a thread-safe token bucket. A non-positive rate disables
// limiting.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter creates a RateLimiter allowing rps requests per second with
// the given burst. rps <= 0 means unlimited.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{limiter: rate.NewLimiter(toLimit(rps), normalizeBurst(burst))}
}

// Wait blocks until the limiter allows an event or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	return rl.limiter.Wait(ctx)
}

// Unlimited reports whether the limiter lets every request through.
func (rl *RateLimiter) Unlimited() bool {
	return rl.limiter.Limit() == rate.Inf
}

func toLimit(rps float64) rate.Limit {
	if rps <= 0 {
		return rate.Inf
	}
	return rate.Limit(rps)
}

func normalizeBurst(burst int) int {
	if burst < 1 {
		return 1
	}
	return burst
}
