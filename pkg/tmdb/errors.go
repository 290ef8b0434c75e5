package tmdb

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	// ErrRetryExhausted wraps the last failure once every attempt is spent.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the caller gives up during a backoff.
	ErrContextCancelled = errors.New("context cancelled")

	// ErrCircuitOpen is returned without calling TMDB while the breaker is open.
	ErrCircuitOpen = errors.New("tmdb circuit breaker open")

	// ErrRateLimited is returned without calling TMDB during a 429 cooldown.
	ErrRateLimited = errors.New("request blocked: TMDB cooldown active")

	// ErrInvalidMediaType rejects anything but "tv" and "movie".
	ErrInvalidMediaType = errors.New("invalid media type")

	// ErrMissingCredentials means neither an API key nor an access token is configured.
	ErrMissingCredentials = errors.New("tmdb api key or access token is required")
)

// ErrorClass groups TMDB failures by how the client reacts to them.
type ErrorClass string

const (
	ErrorClassClient    ErrorClass = "client"     // 4xx except 429; never retried
	ErrorClassServer    ErrorClass = "server"     // 5xx
	ErrorClassRateLimit ErrorClass = "rate_limit" // 429
	ErrorClassNetwork   ErrorClass = "network"    // transport failures and timeouts
)

// Retryable reports whether a failure of this class may succeed when repeated.
func (c ErrorClass) Retryable() bool {
	switch c {
	case ErrorClassServer, ErrorClassRateLimit, ErrorClassNetwork:
		return true
	}
	return false
}

// APIError is a non-2xx TMDB response. Message carries TMDB's
// status_message when the body has one.
type APIError struct {
	StatusCode int
	Class      ErrorClass
	Message    string
	RetryAfter time.Duration // from the Retry-After header of a 429
	Err        error
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("TMDB %s error (status %d): %s", e.Class, e.StatusCode, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *APIError) Unwrap() error { return e.Err }

// ClassifyStatus returns the class of an HTTP status, or "" for success
// and redirection codes.
func ClassifyStatus(status int) ErrorClass {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case status >= http.StatusInternalServerError:
		return ErrorClassServer
	case status >= http.StatusBadRequest:
		return ErrorClassClient
	}
	return ""
}

// ClassOf classifies err. An *APIError anywhere in the chain decides;
// the client's own rejections have no class, and anything else is
// treated as a network failure.
func ClassOf(err error) ErrorClass {
	var apiErr *APIError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &apiErr):
		return apiErr.Class
	case errors.Is(err, ErrCircuitOpen), errors.Is(err, ErrRateLimited), errors.Is(err, ErrContextCancelled):
		return ""
	}
	return ErrorClassNetwork
}

func shouldRetry(class ErrorClass) bool { return class.Retryable() }
