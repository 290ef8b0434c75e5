package cache

import (
	"bytes"
	"cmp"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultTTL applies when TMDB sends neither Cache-Control nor Expires.
const DefaultTTL = 5 * time.Minute

// ResponseToEntry captures resp as a cache entry. The body is consumed and
// replaced with an in-memory copy so the caller can still decode it.
func ResponseToEntry(resp *http.Response) (*CacheEntry, error) {
	if resp == nil {
		return nil, errors.New("cache: nil response")
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))

	entry := &CacheEntry{
		Data:       body,
		ETag:       resp.Header.Get("ETag"),
		StatusCode: resp.StatusCode,
		Headers:    resp.Header.Clone(),
		CachedAt:   time.Now(),
		Expires:    FreshUntil(resp.Header),
	}
	if lm, err := http.ParseTime(resp.Header.Get("Last-Modified")); err == nil {
		entry.LastModified = lm
	}
	return entry, nil
}

// EntryToResponse replays a cached page as an HTTP response. X-Cache is
// HIT for fresh pages and STALE otherwise.
func EntryToResponse(entry *CacheEntry) *http.Response {
	if entry == nil {
		return nil
	}

	header := entry.Headers.Clone()
	if header == nil {
		header = make(http.Header)
	}
	xcache := "HIT"
	if entry.State() == StateStale {
		xcache = "STALE"
	}
	header.Set("X-Cache", xcache)

	status := cmp.Or(entry.StatusCode, http.StatusOK)
	return &http.Response{
		Status:        strconv.Itoa(status) + " " + http.StatusText(status),
		StatusCode:    status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(entry.Data)),
		ContentLength: int64(len(entry.Data)),
	}
}

// FreshUntil computes when a response stops being fresh.
// Cache-Control wins over Expires. no-store and no-cache make the response
// stale immediately.
func FreshUntil(headers http.Header) time.Time {
	now := time.Now()

	if maxAge, noCache, ok := parseCacheControl(headers.Get("Cache-Control")); ok {
		if noCache {
			return now
		}
		return now.Add(maxAge)
	}

	expires, err := http.ParseTime(headers.Get("Expires"))
	if err != nil {
		return now.Add(DefaultTTL)
	}
	if expires.Before(now) {
		return now
	}
	return expires
}

// parseCacheControl reads the directives that matter for page caching.
// ok is false when the header carries neither max-age nor a no-cache form.
func parseCacheControl(value string) (maxAge time.Duration, noCache, ok bool) {
	for directive := range strings.SplitSeq(value, ",") {
		directive = strings.ToLower(strings.TrimSpace(directive))
		if directive == "no-store" || directive == "no-cache" {
			return 0, true, true
		}
		secs, found := strings.CutPrefix(directive, "max-age=")
		if !found {
			continue
		}
		if n, err := strconv.Atoi(secs); err == nil && n >= 0 {
			maxAge, ok = time.Duration(n)*time.Second, true
		}
	}
	return maxAge, false, ok
}

// AddConditionalHeaders turns req into a revalidation of entry. The ETag
// is preferred; Last-Modified is the fallback.
func AddConditionalHeaders(req *http.Request, entry *CacheEntry) {
	if req == nil || entry == nil {
		return
	}
	if req.Header == nil {
		req.Header = make(http.Header)
	}
	switch {
	case entry.ETag != "":
		req.Header.Set("If-None-Match", entry.ETag)
	case !entry.LastModified.IsZero():
		req.Header.Set("If-Modified-Since", entry.LastModified.UTC().Format(http.TimeFormat))
	}
}
