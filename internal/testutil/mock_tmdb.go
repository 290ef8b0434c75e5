// Package testutil provides testing utilities for the TMDB client and the
// catalog grids built on it.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MockPageSize mirrors TMDB's fixed listing page size.
const MockPageSize = 20

// MockResponse defines the behavior for a mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockTMDB is a configurable mock TMDB server for testing. Listing paths
// registered with SetCatalog are served as paged TMDB envelopes over a
// generated sequence of titles.
type MockTMDB struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)
	catalogs map[string]int
	maxAge   int
	delay    time.Duration
	failures []MockResponse

	// Tracking
	RequestCount      int
	ConditionalCount  int
	LastRequestHeader http.Header
	LastQuery         map[string]string
	pageRequests      map[string][]int
}

// NewMockTMDB creates a new mock TMDB server with a tv and movie discover
// catalog of 95 titles each, a search catalog of 7 titles and genre lists.
func NewMockTMDB() *MockTMDB {
	mock := &MockTMDB{
		handlers:     make(map[string]func(w http.ResponseWriter, r *http.Request)),
		catalogs:     map[string]int{"/discover/tv": 95, "/discover/movie": 95, "/search/movie": 7},
		maxAge:       300,
		pageRequests: make(map[string][]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(mock.serve))
	return mock
}

func (m *MockTMDB) serve(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.RequestCount++
	m.LastRequestHeader = r.Header.Clone()
	m.LastQuery = make(map[string]string)
	for k := range r.URL.Query() {
		m.LastQuery[k] = r.URL.Query().Get(k)
	}
	if r.Header.Get("If-None-Match") != "" || r.Header.Get("If-Modified-Since") != "" {
		m.ConditionalCount++
	}

	var failure *MockResponse
	if len(m.failures) > 0 {
		failure = &m.failures[0]
		m.failures = m.failures[1:]
	}
	handler, hasHandler := m.handlers[r.URL.Path]
	total, hasCatalog := m.catalogs[r.URL.Path]
	delay := m.delay
	if hasCatalog {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		m.pageRequests[r.URL.Path] = append(m.pageRequests[r.URL.Path], page)
	}
	m.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	switch {
	case failure != nil:
		writeResponse(w, *failure)
	case hasHandler:
		handler(w, r)
	case hasCatalog:
		m.servePage(w, r, total)
	case strings.HasPrefix(r.URL.Path, "/genre/"):
		m.serveGenres(w, r)
	default:
		writeResponse(w, MockResponse{
			StatusCode: http.StatusNotFound,
			Body:       `{"success":false,"status_code":34,"status_message":"The resource you requested could not be found."}`,
			Headers:    map[string]string{"Content-Type": "application/json;charset=utf-8"},
		})
	}
}

func (m *MockTMDB) servePage(w http.ResponseWriter, r *http.Request, total int) {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}

	etag := fmt.Sprintf(`"%s-%d-%d"`, strings.Trim(strings.ReplaceAll(r.URL.Path, "/", "-"), "-"), page, total)

	m.mu.RLock()
	maxAge := m.maxAge
	m.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json;charset=utf-8")
	w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", maxAge))
	w.Header().Set("ETag", etag)

	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	movie := strings.HasSuffix(r.URL.Path, "/movie")
	start := (page - 1) * MockPageSize
	end := min(start+MockPageSize, total)

	results := make([]map[string]any, 0, MockPageSize)
	for i := start; i < end; i++ {
		results = append(results, MockTitle(i+1, movie))
	}

	totalPages := max(1, (total+MockPageSize-1)/MockPageSize)

	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"page":          page,
		"results":       results,
		"total_pages":   totalPages,
		"total_results": total,
	})
}

func (m *MockTMDB) serveGenres(w http.ResponseWriter, r *http.Request) {
	genres := []map[string]any{
		{"id": 18, "name": "Drama"},
		{"id": 35, "name": "Comedy"},
	}
	if strings.Contains(r.URL.Path, "/tv/") {
		genres = append(genres, map[string]any{"id": 10765, "name": "Sci-Fi & Fantasy"})
	} else {
		genres = append(genres, map[string]any{"id": 28, "name": "Action"})
	}

	w.Header().Set("Content-Type", "application/json;charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{"genres": genres})
}

// MockTitle returns the generated title at 1-based position n.
func MockTitle(n int, movie bool) map[string]any {
	if movie {
		return map[string]any{
			"id":           n,
			"title":        fmt.Sprintf("Movie %d", n),
			"release_date": "2020-01-01",
			"poster_path":  fmt.Sprintf("/m%d.jpg", n),
			"vote_average": 7.5,
		}
	}
	return map[string]any{
		"id":             n,
		"name":           fmt.Sprintf("Series %d", n),
		"first_air_date": "2019-06-01",
		"poster_path":    fmt.Sprintf("/s%d.jpg", n),
		"vote_average":   8.1,
	}
}

func writeResponse(w http.ResponseWriter, resp MockResponse) {
	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		_, _ = w.Write([]byte(resp.Body))
	}
}

// URL returns the mock server URL.
func (m *MockTMDB) URL() string {
	return m.server.URL
}

// Client returns an HTTP client for the mock server.
func (m *MockTMDB) Client() *http.Client {
	return m.server.Client()
}

// Close shuts down the mock server.
func (m *MockTMDB) Close() {
	m.server.Close()
}

// Reset clears all tracking counters and queued failures.
func (m *MockTMDB) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.ConditionalCount = 0
	m.LastRequestHeader = nil
	m.LastQuery = nil
	m.failures = nil
	m.pageRequests = make(map[string][]int)
}

// SetCatalog serves path as a paged listing of total titles.
func (m *MockTMDB) SetCatalog(path string, total int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.catalogs[path] = total
}

// SetMaxAge sets the Cache-Control max-age of listing pages.
func (m *MockTMDB) SetMaxAge(seconds int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maxAge = seconds
}

// SetDelay delays every response.
func (m *MockTMDB) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// FailNext answers the next n requests with resp.
func (m *MockTMDB) FailNext(n int, resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := 0; i < n; i++ {
		m.failures = append(m.failures, resp)
	}
}

// SetHandler sets a custom handler for a specific path.
func (m *MockTMDB) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockTMDB) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		writeResponse(w, resp)
	})
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockTMDB) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetConditionalCount returns the number of conditional requests.
func (m *MockTMDB) GetConditionalCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ConditionalCount
}

// LastQueryParam returns a query parameter of the last request and whether it was present.
func (m *MockTMDB) LastQueryParam(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.LastQuery[key]
	return v, ok
}

// LastHeader returns a header of the last request.
func (m *MockTMDB) LastHeader(key string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastRequestHeader.Get(key)
}

// PageRequests returns the page numbers requested for a listing path, in order.
func (m *MockTMDB) PageRequests(path string) []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]int(nil), m.pageRequests[path]...)
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse(retryAfter int) MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"success":false,"status_code":25,"status_message":"Your request count (#) is over the allowed limit of (40)."}`,
		Headers: map[string]string{
			"Retry-After":  strconv.Itoa(retryAfter),
			"Content-Type": "application/json;charset=utf-8",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"success":false,"status_code":11,"status_message":"Internal error: Something went wrong, contact TMDb."}`,
		Headers:    map[string]string{"Content-Type": "application/json;charset=utf-8"},
	}
}

// NewUnauthorizedResponse creates a 401 invalid API key response.
func NewUnauthorizedResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusUnauthorized,
		Body:       `{"success":false,"status_code":7,"status_message":"Invalid API key: You must be granted a valid key."}`,
		Headers:    map[string]string{"Content-Type": "application/json;charset=utf-8"},
	}
}
