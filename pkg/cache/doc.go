// Package cache provides TMDB response caching with a Redis backend.
//
// TMDB pages are cheap to cache: discover and search results change slowly
// and the API sends Cache-Control max-age and ETag headers. Caching them
// keeps page flips inside the client-side rate limit and lets a "Next"
// click that was prefetched be served without touching TMDB.
//
// # Basic Usage
//
//	manager := cache.NewManager(redisClient, cache.DefaultStaleWindow)
//
//	key := cache.NewKey("/discover/tv", url.Values{
//		"with_genres": []string{"18"},
//		"page":        []string{"2"},
//	})
//
//	entry, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch from TMDB
//	}
//	if entry != nil && entry.State() == cache.StateFresh {
//		// serve from cache
//	}
//
// # Freshness and Revalidation
//
// Freshness comes from Cache-Control max-age, then Expires, then
// DefaultTTL. Entries stay in Redis for their TTL plus a stale window; a
// stale entry that carries an ETag or Last-Modified is revalidated with a
// conditional request, and a 304 refreshes its TTL.
//
// Credentials (api_key) never become part of a cache key.
//
// # Metrics
//
//   - tmdb_cache_hits_total{state="fresh|stale"} - Cache hits
//   - tmdb_cache_misses_total - Cache misses
//   - tmdb_cache_stored_bytes_total - Bytes written to Redis
//   - tmdb_conditional_requests_total - Revalidation attempts
//   - tmdb_304_responses_total - Successful revalidations
//   - tmdb_cache_errors_total{operation} - Cache operation errors
package cache
