package tmdb

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog/log"
)

// RetryConfig describes how often and how patiently a failed TMDB call is
// repeated.
type RetryConfig struct {
	MaxAttempts       int           // including the first call
	InitialBackoff    time.Duration // wait before the second call
	MaxBackoff        time.Duration // cap on any single wait
	BackoffMultiplier float64       // growth per attempt
}

// RetryPolicy picks a RetryConfig for the class of the last failure.
type RetryPolicy func(ErrorClass) RetryConfig

// DefaultRetryConfig is used for classes without a dedicated entry.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxAttempts: 3, InitialBackoff: 500 * time.Millisecond, MaxBackoff: 10 * time.Second, BackoffMultiplier: 2}
}

// classRetry holds the per-class retry settings. A 429 normally waits for
// its Retry-After; the backoff here is only the floor.
var classRetry = map[ErrorClass]RetryConfig{
	ErrorClassServer:    {MaxAttempts: 3, InitialBackoff: 500 * time.Millisecond, MaxBackoff: 5 * time.Second, BackoffMultiplier: 2},
	ErrorClassRateLimit: {MaxAttempts: 3, InitialBackoff: 2 * time.Second, MaxBackoff: 30 * time.Second, BackoffMultiplier: 2},
	ErrorClassNetwork:   {MaxAttempts: 3, InitialBackoff: time.Second, MaxBackoff: 10 * time.Second, BackoffMultiplier: 2},
}

// RetryConfigForErrorClass is the default RetryPolicy.
func RetryConfigForErrorClass(class ErrorClass) RetryConfig {
	if cfg, ok := classRetry[class]; ok {
		return cfg
	}
	return DefaultRetryConfig()
}

// FixedRetryPolicy ignores the error class and always returns cfg.
func FixedRetryPolicy(cfg RetryConfig) RetryPolicy {
	return func(ErrorClass) RetryConfig { return cfg }
}

// backoffFor is the wait after the given failed attempt, before jitter.
func backoffFor(cfg RetryConfig, attempt int) time.Duration {
	d := cfg.InitialBackoff
	for range attempt - 1 {
		if d >= cfg.MaxBackoff {
			break
		}
		d = time.Duration(float64(d) * cfg.BackoffMultiplier)
	}
	return min(d, cfg.MaxBackoff)
}

// jittered spreads d by ±20% so parallel page fetches do not retry in step.
func jittered(d time.Duration) time.Duration {
	return time.Duration(float64(d) * (0.8 + 0.4*rand.Float64()))
}

// retryWithBackoff calls fn until it succeeds, fails with a class that is
// not retried, or the policy's attempts run out. A rate-limited failure
// never waits less than its Retry-After.
func retryWithBackoff(ctx context.Context, policy RetryPolicy, fn func() error) error {
	if policy == nil {
		policy = RetryConfigForErrorClass
	}

	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 1 {
				log.Info().Int("attempt", attempt).Msg("TMDB request succeeded after retry")
			}
			return nil
		}

		class := ClassOf(err)
		if !shouldRetry(class) {
			return err
		}

		cfg := policy(class)
		if attempt >= cfg.MaxAttempts {
			tmdbRetryExhaustedTotal.WithLabelValues(string(class)).Inc()
			log.Warn().
				Str("error_class", string(class)).
				Int("attempts", attempt).
				Msg("Giving up on TMDB request")
			return fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, attempt, err)
		}

		wait := jittered(backoffFor(cfg, attempt))
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			wait = max(wait, apiErr.RetryAfter)
		}

		tmdbRetriesTotal.WithLabelValues(string(class)).Inc()
		tmdbRetryBackoffSeconds.WithLabelValues(string(class)).Observe(wait.Seconds())
		log.Debug().
			Str("error_class", string(class)).
			Int("attempt", attempt).
			Dur("backoff", wait).
			Msg("Retrying TMDB request")

		if err := sleep(ctx, wait); err != nil {
			return fmt.Errorf("%w: %v", ErrContextCancelled, err)
		}
	}
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
