// Package tmdb provides the TMDB HTTP client with rate limiting, caching,
// circuit breaking and error handling, plus the paginated sources the
// catalog grids read from.
package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Sternrassler/cinegrid/pkg/cache"
	"github.com/Sternrassler/cinegrid/pkg/logging"
	"github.com/Sternrassler/cinegrid/pkg/ratelimit"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultBaseURL is the TMDB v3 API root.
	DefaultBaseURL = "https://api.themoviedb.org/3"

	// ImageBaseURL is the TMDB image CDN root.
	ImageBaseURL = "https://image.tmdb.org/t/p"

	// PageSize is TMDB's fixed listing page size.
	PageSize = 20

	// MaxPages is the last listing page TMDB serves.
	MaxPages = 500

	DefaultLanguage          = "en-US"
	DefaultSortBy            = "popularity.desc"
	DefaultRequestsPerSecond = 20
)

// HTTPDoer is an interface for making HTTP requests.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Client is the TMDB client.
type Client struct {
	httpClient  HTTPDoer
	baseURL     string
	basePath    string
	tracker     *ratelimit.Tracker
	limiter     *ratelimit.Limiter
	cache       *cache.Manager
	breaker     *gobreaker.CircuitBreaker
	retryPolicy RetryPolicy
	group       singleflight.Group
	config      Config
	logger      zerolog.Logger

	mu     sync.RWMutex
	genres map[MediaType][]Genre
}

// Config holds the client configuration.
type Config struct {
	// Redis backs the response cache and the shared cooldown. Optional.
	Redis *redis.Client

	// APIKey is a v3 API key sent as the api_key query parameter.
	APIKey string

	// AccessToken is a v4 read access token sent as a bearer token.
	AccessToken string

	BaseURL   string
	Language  string
	UserAgent string

	// RequestsPerSecond paces outgoing requests.
	RequestsPerSecond float64

	// Timeout bounds a single HTTP round trip.
	Timeout time.Duration

	// FetchTimeout bounds a collapsed page fetch including retries.
	FetchTimeout time.Duration

	// CacheStaleWindow keeps expired entries around for revalidation.
	CacheStaleWindow time.Duration

	Breaker BreakerConfig
}

// BreakerConfig tunes the circuit breaker in front of TMDB.
type BreakerConfig struct {
	// MinRequests is the number of requests in an interval before the
	// failure ratio is considered.
	MinRequests uint32

	// FailureRatio trips the breaker when reached.
	FailureRatio float64

	// Interval is the closed-state window after which counts reset.
	Interval time.Duration

	// OpenTimeout is how long the breaker stays open before probing.
	OpenTimeout time.Duration
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(redisClient *redis.Client, apiKey string) Config {
	return Config{
		Redis:             redisClient,
		APIKey:            apiKey,
		BaseURL:           DefaultBaseURL,
		Language:          DefaultLanguage,
		UserAgent:         "cinegrid/1.0",
		RequestsPerSecond: DefaultRequestsPerSecond,
		Timeout:           10 * time.Second,
		FetchTimeout:      30 * time.Second,
		CacheStaleWindow:  cache.DefaultStaleWindow,
		Breaker: BreakerConfig{
			MinRequests:  5,
			FailureRatio: 0.6,
			Interval:     30 * time.Second,
			OpenTimeout:  15 * time.Second,
		},
	}
}

// Option is a functional option for configuring the Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c HTTPDoer) Option {
	return func(client *Client) {
		if c != nil {
			client.httpClient = c
		}
	}
}

// WithRateLimiter replaces the request pacer. A nil limiter disables pacing.
func WithRateLimiter(limiter *ratelimit.Limiter) Option {
	return func(client *Client) {
		client.limiter = limiter
	}
}

// WithRetryPolicy sets the retry configuration per error class.
func WithRetryPolicy(policy RetryPolicy) Option {
	return func(client *Client) {
		if policy != nil {
			client.retryPolicy = policy
		}
	}
}

// New creates a new TMDB client.
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.APIKey == "" && cfg.AccessToken == "" {
		return nil, ErrMissingCredentials
	}

	defaults := DefaultConfig(cfg.Redis, cfg.APIKey)
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaults.BaseURL
	}
	if cfg.Language == "" {
		cfg.Language = defaults.Language
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaults.UserAgent
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = defaults.RequestsPerSecond
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = defaults.FetchTimeout
	}
	if cfg.Breaker.MinRequests == 0 {
		cfg.Breaker = defaults.Breaker
	}

	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", cfg.BaseURL)
	}

	logger := logging.NewLogger(logging.ComponentTMDB)

	c := &Client{
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		baseURL:     cfg.BaseURL,
		basePath:    base.Path,
		tracker:     ratelimit.NewTracker(cfg.Redis, logger),
		limiter:     ratelimit.NewLimiter("tmdb", cfg.RequestsPerSecond, 0),
		breaker:     newBreaker(cfg.Breaker, logger),
		retryPolicy: RetryConfigForErrorClass,
		config:      cfg,
		logger:      logger,
		genres:      make(map[MediaType][]Genre),
	}

	if cfg.Redis != nil {
		c.cache = cache.NewManager(cfg.Redis, cfg.CacheStaleWindow)
	} else {
		logger.Info().Msg("No Redis configured - running without response cache")
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

func newBreaker(cfg BreakerConfig, logger zerolog.Logger) *gobreaker.CircuitBreaker {
	tmdbCircuitBreakerState.WithLabelValues("tmdb").Set(float64(gobreaker.StateClosed))

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "tmdb",
		MaxRequests: 1,
		Interval:    cfg.Interval,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= cfg.MinRequests && failureRatio >= cfg.FailureRatio
		},
		// A 4xx or a cancelled caller says nothing about TMDB's health.
		IsSuccessful: func(err error) bool {
			return err == nil || ClassOf(err) == ErrorClassClient || errors.Is(err, ErrContextCancelled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			tmdbCircuitBreakerState.WithLabelValues(name).Set(float64(to))
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state changed")
		},
	})
}

// Do performs an HTTP request with caching, rate limiting, circuit
// breaking, retries and error classification. Upstream error statuses are
// returned as *APIError; the response is always 2xx.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	endpoint := c.relativePath(req.URL.Path)

	startTime := time.Now()
	defer func() {
		tmdbRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	// Step 1: Check Cache
	cacheKey := cache.NewKey(endpoint, req.URL.Query())

	var cachedEntry *cache.CacheEntry
	if c.cache != nil {
		entry, err := c.cache.Get(ctx, cacheKey)
		if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Cache get error")
		}
		if entry != nil && entry.State() == cache.StateFresh {
			tmdbRequestsTotal.WithLabelValues(endpoint, "cache_hit").Inc()
			c.logger.Debug().Str("endpoint", endpoint).Msg("Serving fresh cache entry")
			return cache.EntryToResponse(entry), nil
		}
		cachedEntry = entry
	}

	// Step 2: Check the shared cooldown
	allowed, err := c.tracker.ShouldAllowRequest(ctx)
	if err != nil {
		c.logger.Error().Err(err).Msg("Rate limit check failed")
		return nil, fmt.Errorf("rate limit check: %w", err)
	}
	if !allowed {
		tmdbRequestsTotal.WithLabelValues(endpoint, "rate_limited").Inc()
		if cachedEntry != nil {
			return c.serveStale(endpoint, cachedEntry, ErrRateLimited), nil
		}
		return nil, ErrRateLimited
	}

	// Step 3: Make Conditional Request if a stale entry can be revalidated
	if cachedEntry != nil && cachedEntry.Revalidatable() {
		cache.AddConditionalHeaders(req, cachedEntry)
		cache.ConditionalRequestsSent.Inc()
		c.logger.Debug().
			Str("endpoint", endpoint).
			Str("etag", cachedEntry.ETag).
			Msg("Making conditional request")
	}

	// Step 4: Credentials and headers
	c.authorize(req)
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	// Step 5: Execute through the breaker with retries
	result, err := c.breaker.Execute(func() (interface{}, error) {
		var resp *http.Response
		retryErr := retryWithBackoff(ctx, c.retryPolicy, func() error {
			r, attemptErr := c.attempt(ctx, req, endpoint)
			if attemptErr != nil {
				return attemptErr
			}
			resp = r
			return nil
		})
		if retryErr != nil {
			return nil, retryErr
		}
		return resp, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			tmdbRequestsTotal.WithLabelValues(endpoint, "circuit_open").Inc()
			err = fmt.Errorf("%w: %v", ErrCircuitOpen, err)
		}
		if cachedEntry != nil && ClassOf(err) != ErrorClassClient {
			return c.serveStale(endpoint, cachedEntry, err), nil
		}
		return nil, err
	}
	resp := result.(*http.Response)

	// Step 6: Handle 304 Not Modified
	if resp.StatusCode == http.StatusNotModified {
		resp.Body.Close()
		if cachedEntry == nil {
			return nil, &APIError{
				StatusCode: resp.StatusCode,
				Class:      ErrorClassClient,
				Message:    "not modified without a cached entry",
			}
		}

		c.logger.Debug().Str("endpoint", endpoint).Msg("304 Not Modified - using cache")
		cache.NotModifiedResponses.Inc()

		if err := c.cache.Refresh(ctx, cacheKey, cachedEntry, cache.FreshUntil(resp.Header)); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to refresh cache entry")
		}
		return cache.EntryToResponse(cachedEntry), nil
	}

	// Step 7: Update Cache on success
	if resp.StatusCode == http.StatusOK && c.cache != nil {
		entry, err := cache.ResponseToEntry(resp)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Failed to create cache entry")
		} else if err := c.cache.Set(ctx, cacheKey, entry); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to cache response")
		} else {
			c.logger.Debug().
				Str("endpoint", endpoint).
				Dur("ttl", entry.TTL()).
				Msg("Cached response")
		}
	}

	return resp, nil
}

// attempt executes one round trip and turns error statuses into *APIError.
func (c *Client) attempt(ctx context.Context, req *http.Request, endpoint string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrContextCancelled, err)
	}

	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("method", req.Method).
		Msg("Executing TMDB request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
		}
		c.logger.Error().Err(err).Str("endpoint", endpoint).Msg("HTTP request failed")
		tmdbErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		tmdbRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		return nil, err
	}

	if err := c.tracker.UpdateFromResponse(ctx, resp); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to update rate limit from response")
	}

	tmdbRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 400 {
		return resp, nil
	}

	errClass := ClassifyStatus(resp.StatusCode)
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	resp.Body.Close()

	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Class:      errClass,
		Message:    upstreamMessage(resp.Status, body),
	}
	if errClass == ErrorClassRateLimit {
		if d, ok := ratelimit.ParseRetryAfter(resp.Header.Get("Retry-After"), time.Now()); ok {
			apiErr.RetryAfter = min(d, ratelimit.MaxCooldown)
		}
	}

	tmdbErrorsTotal.WithLabelValues(string(errClass)).Inc()
	c.logger.Warn().
		Str("endpoint", endpoint).
		Int("status", resp.StatusCode).
		Str("error_class", string(errClass)).
		Msg("TMDB request error")

	return nil, apiErr
}

// serveStale answers from an expired cache entry after an upstream failure.
func (c *Client) serveStale(endpoint string, entry *cache.CacheEntry, cause error) *http.Response {
	tmdbStaleServedTotal.Inc()
	c.logger.Warn().
		Err(cause).
		Str("endpoint", endpoint).
		Time("expired", entry.Expires).
		Msg("Upstream unavailable - serving stale cache entry")

	return cache.EntryToResponse(entry)
}

// authorize adds the configured credentials to req.
func (c *Client) authorize(req *http.Request) {
	if c.config.APIKey != "" {
		q := req.URL.Query()
		if q.Get("api_key") == "" {
			q.Set("api_key", c.config.APIKey)
			req.URL.RawQuery = q.Encode()
		}
	}
	if c.config.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.AccessToken)
	}
}

// relativePath strips the base URL path (e.g. "/3") from p.
func (c *Client) relativePath(p string) string {
	rel := strings.TrimPrefix(p, c.basePath)
	if !strings.HasPrefix(rel, "/") {
		rel = "/" + rel
	}
	return rel
}

// upstreamMessage extracts TMDB's status_message from an error body.
func upstreamMessage(status string, body []byte) string {
	var payload struct {
		StatusMessage string `json:"status_message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.StatusMessage != "" {
		return payload.StatusMessage
	}
	return status
}

// getJSON performs a GET on path relative to the base URL and decodes the body.
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, target any) error {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// BreakerState reports the circuit breaker state ("closed", "half-open", "open").
func (c *Client) BreakerState() string {
	return c.breaker.State().String()
}

// Cache returns the response cache manager, or nil without Redis.
func (c *Client) Cache() *cache.Manager {
	return c.cache
}
