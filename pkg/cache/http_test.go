package cache

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const discoverBody = `{"page":2,"results":[{"id":1396,"name":"Breaking Bad"}],"total_pages":5,"total_results":95}`

func tmdbResponse(status int, header http.Header, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     header,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
	}
}

func TestResponseToEntry(t *testing.T) {
	lastModified := time.Now().Add(-time.Hour).UTC().Truncate(time.Second)
	resp := tmdbResponse(http.StatusOK, http.Header{
		"Cache-Control": {"public, max-age=600"},
		"Etag":          {`W/"8a1f"`},
		"Last-Modified": {lastModified.Format(http.TimeFormat)},
		"Content-Type":  {"application/json;charset=utf-8"},
	}, discoverBody)

	entry, err := ResponseToEntry(resp)
	require.NoError(t, err)

	assert.Equal(t, discoverBody, string(entry.Data))
	assert.Equal(t, `W/"8a1f"`, entry.ETag)
	assert.True(t, entry.LastModified.Equal(lastModified))
	assert.Equal(t, http.StatusOK, entry.StatusCode)
	assert.InDelta(t, 600, entry.TTL().Seconds(), 1)
	assert.Equal(t, StateFresh, entry.State())

	// The caller still reads the page after it was captured.
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, discoverBody, string(body))
}

func TestResponseToEntry_Nil(t *testing.T) {
	_, err := ResponseToEntry(nil)
	assert.Error(t, err)
}

func TestEntryToResponse(t *testing.T) {
	entry := &CacheEntry{
		Data:    []byte(discoverBody),
		Headers: http.Header{"Content-Type": {"application/json"}},
		Expires: time.Now().Add(time.Minute),
	}

	resp := EntryToResponse(entry)
	require.NotNil(t, resp)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "200 OK", resp.Status)
	assert.Equal(t, "HIT", resp.Header.Get("X-Cache"))
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.EqualValues(t, len(discoverBody), resp.ContentLength)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, discoverBody, string(body))

	// Replaying must not leak X-Cache into the stored headers.
	assert.Empty(t, entry.Headers.Get("X-Cache"))
}

func TestEntryToResponse_Stale(t *testing.T) {
	resp := EntryToResponse(&CacheEntry{Data: []byte(`{}`), Expires: time.Now().Add(-time.Minute)})
	assert.Equal(t, "STALE", resp.Header.Get("X-Cache"))
	assert.Nil(t, EntryToResponse(nil))
}

func TestFreshUntil(t *testing.T) {
	inAnHour := time.Now().Add(time.Hour).UTC().Format(http.TimeFormat)
	anHourAgo := time.Now().Add(-time.Hour).UTC().Format(http.TimeFormat)

	tests := []struct {
		name   string
		header http.Header
		want   time.Duration
	}{
		{"tmdb max-age", http.Header{"Cache-Control": {"public, max-age=28800"}}, 8 * time.Hour},
		{"max-age wins over expires", http.Header{"Cache-Control": {"max-age=60"}, "Expires": {inAnHour}}, time.Minute},
		{"no-store", http.Header{"Cache-Control": {"no-store"}}, 0},
		{"no-cache", http.Header{"Cache-Control": {"private, no-cache"}}, 0},
		{"expires", http.Header{"Expires": {inAnHour}}, time.Hour},
		{"expires in the past", http.Header{"Expires": {anHourAgo}}, 0},
		{"bad max-age falls back to expires", http.Header{"Cache-Control": {"max-age=soon"}, "Expires": {inAnHour}}, time.Hour},
		{"unparseable expires", http.Header{"Expires": {"tomorrow"}}, DefaultTTL},
		{"no headers", http.Header{}, DefaultTTL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := time.Until(FreshUntil(tt.header))
			assert.InDelta(t, tt.want.Seconds(), got.Seconds(), 2)
		})
	}
}

func TestAddConditionalHeaders(t *testing.T) {
	lastModified := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		entry         *CacheEntry
		noneMatch     string
		modifiedSince string
	}{
		{"etag", &CacheEntry{ETag: `"p2"`, LastModified: lastModified}, `"p2"`, ""},
		{"last modified", &CacheEntry{LastModified: lastModified}, "", "Fri, 01 Mar 2024 12:00:00 GMT"},
		{"no validator", &CacheEntry{}, "", ""},
		{"nil entry", nil, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/discover/tv?page=2", nil)
			AddConditionalHeaders(req, tt.entry)
			assert.Equal(t, tt.noneMatch, req.Header.Get("If-None-Match"))
			assert.Equal(t, tt.modifiedSince, req.Header.Get("If-Modified-Since"))
		})
	}

	assert.NotPanics(t, func() { AddConditionalHeaders(nil, &CacheEntry{ETag: "x"}) })
}
