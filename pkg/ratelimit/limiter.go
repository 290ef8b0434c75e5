package ratelimit

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// Limiter paces outgoing requests with a token bucket.
// A nil *Limiter never blocks.
type Limiter struct {
	limiter *rate.Limiter
	name    string
}

// NewLimiter creates a limiter allowing requestsPerSecond with the given burst.
// A burst below 1 defaults to requestsPerSecond.
func NewLimiter(name string, requestsPerSecond float64, burst int) *Limiter {
	if burst < 1 {
		burst = max(int(requestsPerSecond), 1)
	}
	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
		name:    name,
	}
}

// Wait blocks until a request may proceed or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}
	if err := l.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait for %s: %w", l.name, err)
	}
	return nil
}

// Allow reports whether a request can proceed without blocking.
func (l *Limiter) Allow() bool {
	if l == nil {
		return true
	}
	return l.limiter.Allow()
}

// Name returns the name of this limiter.
func (l *Limiter) Name() string {
	if l == nil {
		return ""
	}
	return l.name
}
