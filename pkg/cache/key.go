package cache

import (
	"net/url"
	"sort"
	"strings"
)

// keyPrefix namespaces all response cache keys in Redis.
const keyPrefix = "tmdb"

// credentialParams are query parameters that never become part of a key.
var credentialParams = map[string]struct{}{
	"api_key": {},
}

// CacheKey identifies a cached TMDB response.
type CacheKey struct {
	// Path is the API path relative to the base URL (e.g. "/discover/tv")
	Path string

	// Query holds the request query parameters
	Query url.Values
}

// NewKey creates a key for path and query.
func NewKey(path string, query url.Values) CacheKey {
	return CacheKey{Path: path, Query: query}
}

// String generates a deterministic cache key string.
// Format: tmdb:path:param1=val1:param2=val2
//
// Example:
//
//	tmdb:discover/tv:language=en-US:page=2:with_genres=18
func (k CacheKey) String() string {
	parts := []string{keyPrefix}

	if path := strings.Trim(k.Path, "/"); path != "" {
		parts = append(parts, path)
	}

	keys := make([]string, 0, len(k.Query))
	for key := range k.Query {
		if _, secret := credentialParams[key]; secret {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		values := append([]string(nil), k.Query[key]...)
		sort.Strings(values)
		parts = append(parts, key+"="+strings.Join(values, ","))
	}

	return strings.Join(parts, ":")
}
