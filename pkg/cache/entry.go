package cache

import (
	"net/http"
	"time"
)

// State is the freshness of a cached TMDB page.
type State string

const (
	// StateFresh entries are served without contacting TMDB.
	StateFresh State = "fresh"

	// StateStale entries are past Expires but still inside the stale window.
	// They are revalidated, or served as-is when TMDB is unavailable.
	StateStale State = "stale"
)

// CacheEntry is a cached TMDB response: the raw JSON page plus the
// validators needed to revalidate it.
type CacheEntry struct {
	Data         []byte      `json:"data"`
	ETag         string      `json:"etag,omitempty"`
	LastModified time.Time   `json:"last_modified,omitzero"`
	Expires      time.Time   `json:"expires"`
	StatusCode   int         `json:"status_code"`
	Headers      http.Header `json:"headers,omitempty"`
	CachedAt     time.Time   `json:"cached_at"`
}

// State reports whether the entry is fresh or stale.
func (e *CacheEntry) State() State {
	if e.IsExpired() {
		return StateStale
	}
	return StateFresh
}

// IsExpired reports whether Expires has passed.
func (e *CacheEntry) IsExpired() bool {
	return !time.Now().Before(e.Expires)
}

// TTL is the remaining freshness, 0 once stale.
func (e *CacheEntry) TTL() time.Duration {
	return max(time.Until(e.Expires), 0)
}

// Age is the time since the page was fetched from TMDB.
func (e *CacheEntry) Age() time.Duration {
	if e.CachedAt.IsZero() {
		return 0
	}
	return time.Since(e.CachedAt)
}

// Revalidatable reports whether a stale entry carries a validator, so a
// conditional request can refresh it without refetching the page.
func (e *CacheEntry) Revalidatable() bool {
	return e.ETag != "" || !e.LastModified.IsZero()
}
