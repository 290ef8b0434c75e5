package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultStaleWindow is how long a page outlives its freshness in Redis,
// giving the client a chance to revalidate it or to serve it during an outage.
const DefaultStaleWindow = 10 * time.Minute

var (
	// ErrCacheMiss is returned by Get when no page is stored under the key.
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry is returned when a stored page cannot be decoded.
	// The broken value is removed.
	ErrInvalidEntry = errors.New("invalid cache entry")

	errNilEntry = errors.New("cache entry cannot be nil")
)

// Manager stores TMDB pages in Redis.
type Manager struct {
	redis       *redis.Client
	staleWindow time.Duration
}

// NewManager returns a Manager backed by redisClient. A negative
// staleWindow disables stale retention.
func NewManager(redisClient *redis.Client, staleWindow time.Duration) *Manager {
	if redisClient == nil {
		panic("cache: nil redis client")
	}
	return &Manager{redis: redisClient, staleWindow: max(staleWindow, 0)}
}

// Get loads the page stored under key. Stale pages are returned too;
// callers branch on entry.State().
func (m *Manager) Get(ctx context.Context, key CacheKey) (*CacheEntry, error) {
	raw, err := m.redis.Get(ctx, key.String()).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		CacheMisses.Inc()
		return nil, ErrCacheMiss
	case err != nil:
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}

	entry := new(CacheEntry)
	if err := json.Unmarshal(raw, entry); err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		_ = m.Delete(ctx, key)
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidEntry, key, err)
	}

	CacheHits.WithLabelValues(string(entry.State())).Inc()
	return entry, nil
}

// Set stores entry under key. Pages that are already stale are skipped.
func (m *Manager) Set(ctx context.Context, key CacheKey, entry *CacheEntry) error {
	if entry == nil {
		return errNilEntry
	}

	retention := m.retention(entry)
	if retention <= 0 {
		return nil
	}

	raw, err := json.Marshal(entry)
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("encode cache entry: %w", err)
	}
	if err := m.redis.Set(ctx, key.String(), raw, retention).Err(); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set %s: %w", key, err)
	}

	CacheStoredBytes.Add(float64(len(raw)))
	return nil
}

// retention is the Redis expiry for entry. Only pages that can be
// revalidated are kept through the stale window.
func (m *Manager) retention(entry *CacheEntry) time.Duration {
	ttl := entry.TTL()
	if ttl > 0 && entry.Revalidatable() {
		ttl += m.staleWindow
	}
	return ttl
}

// Delete drops the page stored under key.
func (m *Manager) Delete(ctx context.Context, key CacheKey) error {
	if err := m.redis.Del(ctx, key.String()).Err(); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// Refresh extends a revalidated page until freshUntil and stores it again.
func (m *Manager) Refresh(ctx context.Context, key CacheKey, entry *CacheEntry, freshUntil time.Time) error {
	if entry == nil {
		return errNilEntry
	}
	entry.Expires = freshUntil
	return m.Set(ctx, key, entry)
}
