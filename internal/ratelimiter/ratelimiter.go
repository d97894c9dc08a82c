package ratelimiter

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter throttles calls toward a backing store using a token bucket.
//
// Every backing-store round trip (find, save, remove, index creation,
// administrative command) consumes one token. Bursts up to the bucket
// capacity pass immediately; beyond that callers wait for replenishment.
//
// Thread safety:
// All methods are safe for concurrent use.
type RateLimiter struct {
	limiter *rate.Limiter
}

// New creates a RateLimiter allowing requestsPerSecond sustained calls with
// the given burst.
//
// Special cases:
//   - requestsPerSecond = 0: no limiting at all
//   - burst = 0: defaults to requestsPerSecond (at least 1)
//
// Example:
//
//	// 500 store calls/s, bursts of 1000 (chunk-heavy uploads)
//	limiter := New(500, 1000)
func New(requestsPerSecond, burst uint) *RateLimiter {
	if requestsPerSecond == 0 {
		return &RateLimiter{limiter: rate.NewLimiter(rate.Inf, 0)}
	}
	if burst == 0 {
		burst = requestsPerSecond
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), int(burst)),
	}
}

// Unlimited reports whether the limiter lets every call through.
func (r *RateLimiter) Unlimited() bool {
	return r.limiter.Limit() == rate.Inf
}

// Allow reports whether a call may proceed right now, consuming a token if so.
func (r *RateLimiter) Allow() bool {
	return r.limiter.Allow()
}

// Wait blocks until a token is available or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}

// SetLimit changes the sustained rate. Zero removes the limit.
func (r *RateLimiter) SetLimit(requestsPerSecond uint) {
	if requestsPerSecond == 0 {
		r.limiter.SetLimit(rate.Inf)
		return
	}
	r.limiter.SetLimit(rate.Limit(requestsPerSecond))
	if r.limiter.Burst() == 0 {
		r.limiter.SetBurst(int(requestsPerSecond))
	}
}

// Tokens returns the tokens currently available (for monitoring only).
func (r *RateLimiter) Tokens() float64 {
	return r.limiter.Tokens()
}
