// Package ratelimit keeps cinegrid inside TMDB's request limits.
//
// Two mechanisms cooperate: a local token bucket paces outgoing requests,
// and a Tracker records 429 cooldowns (from Retry-After) so every instance
// sharing the Redis backend stops calling TMDB until the cooldown passes.
package ratelimit

import (
	"time"
)

// Redis keys for rate limit state storage.
const (
	RedisKeyBlockedUntil = "tmdb:rate_limit:blocked_until"
	RedisKeyRemaining    = "tmdb:rate_limit:remaining"
	RedisKeyLastUpdate   = "tmdb:rate_limit:last_update"
)

const (
	// DefaultCooldown applies when a 429 carries no usable Retry-After.
	DefaultCooldown = 10 * time.Second

	// MaxCooldown caps the cooldown taken from Retry-After.
	MaxCooldown = 2 * time.Minute

	// RemainingWarning throttles requests when the upstream reports fewer
	// remaining requests than this in the current window.
	RemainingWarning = 5

	// RemainingUnknown marks that the upstream did not report a budget.
	RemainingUnknown = -1
)

// RateLimitState is the current upstream rate limit state.
type RateLimitState struct {
	// Remaining is the last reported X-RateLimit-Remaining, or RemainingUnknown.
	Remaining int `json:"remaining"`

	// BlockedUntil is the end of the current 429 cooldown (zero if none).
	BlockedUntil time.Time `json:"blocked_until"`

	// LastUpdate is when this state was last updated.
	LastUpdate time.Time `json:"last_update"`
}

// IsStale returns true if the state is older than maxAge.
func (s *RateLimitState) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// IsBlocked reports whether a cooldown is in effect.
func (s *RateLimitState) IsBlocked() bool {
	return time.Now().Before(s.BlockedUntil)
}

// NeedsThrottling reports whether the reported budget is nearly exhausted.
func (s *RateLimitState) NeedsThrottling() bool {
	return s.Remaining != RemainingUnknown && s.Remaining < RemainingWarning && !s.IsBlocked()
}

// TimeUntilReset returns the remaining cooldown, or 0 if none.
func (s *RateLimitState) TimeUntilReset() time.Duration {
	duration := time.Until(s.BlockedUntil)
	if duration < 0 {
		return 0
	}
	return duration
}
