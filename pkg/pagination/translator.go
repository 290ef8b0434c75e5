package pagination

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// UpstreamPage is one page as returned by the upstream source.
type UpstreamPage[T any] struct {
	// Number is the 1-based upstream page number.
	Number int

	// Items are the page's items in upstream order.
	Items []T

	// TotalItems is the total result count reported by the upstream.
	TotalItems int
}

// PageFetcher fetches a single upstream page.
type PageFetcher[T any] interface {
	FetchPage(ctx context.Context, page int) (UpstreamPage[T], error)
}

// PageFetcherFunc adapts a function to the PageFetcher interface.
type PageFetcherFunc[T any] func(ctx context.Context, page int) (UpstreamPage[T], error)

// FetchPage calls f(ctx, page).
func (f PageFetcherFunc[T]) FetchPage(ctx context.Context, page int) (UpstreamPage[T], error) {
	return f(ctx, page)
}

// Request asks for one virtual page.
type Request struct {
	// Page is the 1-based virtual page number.
	Page int

	// PageSize is the virtual page size. Must not exceed the upstream page size.
	PageSize int
}

// Validate checks the request preconditions against the upstream page size.
func (r Request) Validate(upstreamSize int) error {
	if r.Page < 1 {
		return fmt.Errorf("%w: page %d", ErrInvalidPageRequest, r.Page)
	}
	if r.PageSize < 1 {
		return fmt.Errorf("%w: page size %d", ErrInvalidPageRequest, r.PageSize)
	}
	if r.PageSize > upstreamSize {
		return fmt.Errorf("%w (%d > %d)", ErrUnsupportedPageSize, r.PageSize, upstreamSize)
	}
	// (Page-1)*PageSize must fit in an int.
	if r.Page-1 > math.MaxInt/r.PageSize {
		return fmt.Errorf("%w: page %d overflows the item index", ErrInvalidPageRequest, r.Page)
	}
	return nil
}

// Result is one virtual page.
type Result[T any] struct {
	// Items is the contiguous slice of the upstream sequence for the page.
	// It is shorter than the page size only at the tail.
	Items []T

	// TotalItems is the upstream total, as reported by the first fetched page.
	TotalItems int
}

// span describes which upstream pages cover a virtual page.
type span struct {
	startIndex int
	firstPage  int
	offset     int
	needsNext  bool
}

func computeSpan(req Request, upstreamSize int) span {
	startIndex := (req.Page - 1) * req.PageSize
	offset := startIndex % upstreamSize
	return span{
		startIndex: startIndex,
		firstPage:  startIndex/upstreamSize + 1,
		offset:     offset,
		needsNext:  offset+req.PageSize > upstreamSize,
	}
}

// UpstreamPages returns the upstream page numbers that cover the virtual page.
// It does not validate the request.
func UpstreamPages(req Request, upstreamSize int) []int {
	s := computeSpan(req, upstreamSize)
	if s.needsNext {
		return []int{s.firstPage, s.firstPage + 1}
	}
	return []int{s.firstPage}
}

// Translator translates virtual pages into upstream fetches.
type Translator[T any] struct {
	fetcher      PageFetcher[T]
	upstreamSize int
	logger       zerolog.Logger
}

// NewTranslator creates a translator over a source with a fixed page size.
func NewTranslator[T any](fetcher PageFetcher[T], upstreamSize int) (*Translator[T], error) {
	if fetcher == nil {
		return nil, fmt.Errorf("page fetcher is required")
	}
	if upstreamSize < 1 {
		return nil, fmt.Errorf("upstream page size must be > 0 (got %d)", upstreamSize)
	}
	return &Translator[T]{
		fetcher:      fetcher,
		upstreamSize: upstreamSize,
		logger:       log.With().Str("component", "page-translator").Logger(),
	}, nil
}

// UpstreamSize returns the fixed upstream page size.
func (t *Translator[T]) UpstreamSize() int {
	return t.upstreamSize
}

// Translate fetches the upstream pages covering req and returns its items.
// Fetch failures are returned as *UpstreamFetchError.
func (t *Translator[T]) Translate(ctx context.Context, req Request) (Result[T], error) {
	if err := req.Validate(t.upstreamSize); err != nil {
		return Result[T]{}, err
	}

	s := computeSpan(req, t.upstreamSize)

	first, err := t.fetch(ctx, s.firstPage)
	if err != nil {
		return Result[T]{}, err
	}

	total := first.TotalItems
	if total <= 0 || len(first.Items) == 0 || s.startIndex >= total {
		t.logger.Debug().
			Int("page", req.Page).
			Int("total_items", total).
			Int("upstream_page", s.firstPage).
			Msg("Virtual page is beyond the result set")
		return Result[T]{Items: []T{}, TotalItems: max(total, 0)}, nil
	}

	pool := first.Items
	if s.needsNext && len(first.Items) >= t.upstreamSize && s.firstPage*t.upstreamSize < total {
		second, err := t.fetch(ctx, s.firstPage+1)
		if err != nil {
			return Result[T]{}, err
		}
		pool = make([]T, 0, len(first.Items)+len(second.Items))
		pool = append(pool, first.Items...)
		pool = append(pool, second.Items...)
	}

	items := []T{}
	if s.offset < len(pool) {
		end := min(s.offset+req.PageSize, len(pool))
		items = make([]T, end-s.offset)
		copy(items, pool[s.offset:end])
	}

	t.logger.Debug().
		Int("page", req.Page).
		Int("page_size", req.PageSize).
		Int("upstream_page", s.firstPage).
		Int("offset", s.offset).
		Bool("spanned", s.needsNext).
		Int("items", len(items)).
		Msg("Translated virtual page")

	return Result[T]{Items: items, TotalItems: total}, nil
}

func (t *Translator[T]) fetch(ctx context.Context, page int) (UpstreamPage[T], error) {
	if err := ctx.Err(); err != nil {
		return UpstreamPage[T]{}, &UpstreamFetchError{Page: page, Err: err}
	}
	p, err := t.fetcher.FetchPage(ctx, page)
	if err != nil {
		return UpstreamPage[T]{}, &UpstreamFetchError{Page: page, Err: err}
	}
	return p, nil
}
