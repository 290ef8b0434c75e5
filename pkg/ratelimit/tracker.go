package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// throttleDelay is the pause applied when the reported budget is low.
const throttleDelay = 250 * time.Millisecond

// Prometheus metrics for rate limit tracking.
var (
	tmdbRateLimitRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tmdb_rate_limit_remaining",
		Help: "Last reported number of remaining TMDB requests in the current window",
	})

	tmdbRateLimitCooldownsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tmdb_rate_limit_cooldowns_total",
		Help: "Total number of 429 cooldowns started",
	})

	tmdbRateLimitBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tmdb_rate_limit_blocks_total",
		Help: "Total number of requests blocked during a cooldown",
	})

	tmdbRateLimitThrottlesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tmdb_rate_limit_throttles_total",
		Help: "Total number of requests delayed because the budget was low",
	})
)

// Tracker records upstream rate limit state and gates requests.
// With a nil Redis client the state is kept in process.
type Tracker struct {
	redis  *redis.Client
	logger zerolog.Logger

	mu    sync.Mutex
	local RateLimitState
}

// NewTracker creates a new rate limit tracker.
func NewTracker(redisClient *redis.Client, logger zerolog.Logger) *Tracker {
	return &Tracker{
		redis:  redisClient,
		logger: logger,
		local:  RateLimitState{Remaining: RemainingUnknown},
	}
}

// GetState returns the current rate limit state.
func (t *Tracker) GetState(ctx context.Context) (*RateLimitState, error) {
	if t.redis == nil {
		t.mu.Lock()
		defer t.mu.Unlock()
		state := t.local
		return &state, nil
	}

	state := &RateLimitState{Remaining: RemainingUnknown}

	blockedUntil, err := t.redis.Get(ctx, RedisKeyBlockedUntil).Int64()
	switch {
	case err == nil:
		state.BlockedUntil = time.UnixMilli(blockedUntil)
	case !errors.Is(err, redis.Nil):
		return nil, fmt.Errorf("get blocked until: %w", err)
	}

	remaining, err := t.redis.Get(ctx, RedisKeyRemaining).Int()
	switch {
	case err == nil:
		state.Remaining = remaining
	case !errors.Is(err, redis.Nil):
		return nil, fmt.Errorf("get remaining: %w", err)
	}

	lastUpdate, err := t.redis.Get(ctx, RedisKeyLastUpdate).Int64()
	switch {
	case err == nil:
		state.LastUpdate = time.UnixMilli(lastUpdate)
	case !errors.Is(err, redis.Nil):
		return nil, fmt.Errorf("get last update: %w", err)
	}

	return state, nil
}

// UpdateFromResponse records the rate limit headers of an upstream response.
// A 429 starts a cooldown taken from Retry-After.
func (t *Tracker) UpdateFromResponse(ctx context.Context, resp *http.Response) error {
	if resp == nil {
		return nil
	}

	now := time.Now()
	remaining := RemainingUnknown
	if remainStr := resp.Header.Get("X-RateLimit-Remaining"); remainStr != "" {
		v, err := strconv.Atoi(strings.TrimSpace(remainStr))
		if err != nil {
			return fmt.Errorf("parse X-RateLimit-Remaining header: %w", err)
		}
		remaining = v
	}

	var cooldown time.Duration
	if resp.StatusCode == http.StatusTooManyRequests {
		cooldown = DefaultCooldown
		if d, ok := ParseRetryAfter(resp.Header.Get("Retry-After"), now); ok {
			cooldown = min(d, MaxCooldown)
		}
	}

	if remaining == RemainingUnknown && cooldown == 0 {
		return nil
	}

	if err := t.store(ctx, now, remaining, cooldown); err != nil {
		return err
	}

	if remaining != RemainingUnknown {
		tmdbRateLimitRemaining.Set(float64(remaining))
	}

	if cooldown > 0 {
		tmdbRateLimitCooldownsTotal.Inc()
		t.logger.Warn().
			Dur("cooldown", cooldown).
			Int("remaining", remaining).
			Msg("TMDB rate limit hit - cooling down")
	} else {
		t.logger.Debug().
			Int("remaining", remaining).
			Msg("TMDB rate limit state updated")
	}

	return nil
}

func (t *Tracker) store(ctx context.Context, now time.Time, remaining int, cooldown time.Duration) error {
	if t.redis == nil {
		t.mu.Lock()
		defer t.mu.Unlock()
		t.local.LastUpdate = now
		if remaining != RemainingUnknown {
			t.local.Remaining = remaining
		}
		if cooldown > 0 {
			t.local.BlockedUntil = now.Add(cooldown)
		}
		return nil
	}

	pipe := t.redis.Pipeline()
	pipe.Set(ctx, RedisKeyLastUpdate, now.UnixMilli(), 0)
	if remaining != RemainingUnknown {
		// The budget is per window; stale counts must not linger.
		pipe.Set(ctx, RedisKeyRemaining, remaining, 10*time.Second)
	}
	if cooldown > 0 {
		pipe.Set(ctx, RedisKeyBlockedUntil, now.Add(cooldown).UnixMilli(), cooldown)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store rate limit state in redis: %w", err)
	}
	return nil
}

// ShouldAllowRequest checks whether a request may be sent now.
// It returns false during a cooldown and delays briefly when the budget is low.
func (t *Tracker) ShouldAllowRequest(ctx context.Context) (bool, error) {
	state, err := t.GetState(ctx)
	if err != nil {
		return false, fmt.Errorf("get rate limit state: %w", err)
	}

	if state.IsBlocked() {
		t.logger.Warn().
			Dur("wait_duration", state.TimeUntilReset()).
			Msg("TMDB cooldown active - blocking request")
		tmdbRateLimitBlocksTotal.Inc()
		return false, nil
	}

	if state.NeedsThrottling() {
		t.logger.Debug().
			Int("remaining", state.Remaining).
			Msg("TMDB budget low - throttling request")
		tmdbRateLimitThrottlesTotal.Inc()

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(throttleDelay):
		}
	}

	return true, nil
}

// ParseRetryAfter parses a Retry-After value given in seconds or as an HTTP date.
func ParseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}
	if at, err := http.ParseTime(value); err == nil {
		d := at.Sub(now)
		if d < 0 {
			d = 0
		}
		return d, true
	}
	return 0, false
}
