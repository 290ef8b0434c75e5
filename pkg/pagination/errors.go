package pagination

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidPageRequest is returned for a non-positive page number or page size.
	ErrInvalidPageRequest = errors.New("invalid page request")

	// ErrUnsupportedPageSize is returned when the virtual page size exceeds the
	// upstream page size. A window may then span more than two upstream pages,
	// which the translator does not support.
	ErrUnsupportedPageSize = fmt.Errorf("%w: page size exceeds upstream page size", ErrInvalidPageRequest)
)

// UpstreamFetchError reports a failed fetch of one upstream page.
type UpstreamFetchError struct {
	Page int
	Err  error
}

// Error implements the error interface.
func (e *UpstreamFetchError) Error() string {
	return fmt.Sprintf("fetch upstream page %d: %v", e.Page, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *UpstreamFetchError) Unwrap() error {
	return e.Err
}

// IsUpstreamFetchError reports whether err is or wraps an UpstreamFetchError.
func IsUpstreamFetchError(err error) bool {
	var fetchErr *UpstreamFetchError
	return errors.As(err, &fetchErr)
}
