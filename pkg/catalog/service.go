package catalog

import (
	"context"
	"slices"
	"sync"

	"github.com/Sternrassler/cinegrid/pkg/logging"
	"github.com/Sternrassler/cinegrid/pkg/pagination"
	"github.com/Sternrassler/cinegrid/pkg/tmdb"
	"github.com/rs/zerolog"
)

// Page is one rendered virtual page of a grid.
type Page struct {
	// Query is the effective query; Page may differ from the request when
	// it was past the last page.
	Query      Query           `json:"query"`
	Items      []tmdb.Title    `json:"items"`
	TotalItems int             `json:"total_items"`
	TotalPages int             `json:"total_pages"`
	Page       int             `json:"page"`
	Plan       pagination.Plan `json:"pagination"`

	// Degraded marks an empty page served in place of an upstream failure.
	Degraded bool `json:"degraded,omitempty"`
}

// Service serves virtual pages of TMDB grids.
type Service struct {
	upstream     Upstream
	upstreamSize int
	prefetch     bool
	batch        pagination.BatchConfig
	logger       zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// Option configures a Service.
type Option func(*Service)

// WithPrefetch warms the upstream pages behind the next virtual page after
// each served page. It only pays off with a response cache.
func WithPrefetch(cfg pagination.BatchConfig) Option {
	return func(s *Service) {
		s.prefetch = true
		s.batch = cfg
	}
}

// WithUpstreamPageSize overrides the upstream page size (tmdb.PageSize).
func WithUpstreamPageSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.upstreamSize = size
		}
	}
}

// NewService creates a grid service. It panics if upstream is nil.
func NewService(upstream Upstream, opts ...Option) *Service {
	if upstream == nil {
		panic("upstream cannot be nil")
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		upstream:     upstream,
		upstreamSize: tmdb.PageSize,
		batch:        pagination.DefaultBatchConfig(),
		logger:       logging.NewLogger(logging.ComponentCatalog),
		ctx:          ctx,
		cancel:       cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Browse returns the virtual page q names. Invalid queries are rejected
// with an error wrapping pagination.ErrInvalidPageRequest. Upstream
// failures are not returned: they yield an empty, degraded page. A page
// past the end of a non-empty listing is clamped to the last page.
func (s *Service) Browse(ctx context.Context, q Query) (Page, error) {
	if err := q.Validate(); err != nil {
		return Page{}, err
	}
	if s.upstreamSize != tmdb.PageSize {
		if err := q.request().Validate(s.upstreamSize); err != nil {
			return Page{}, err
		}
	}

	tr, err := pagination.NewTranslator[tmdb.Title](s.upstream.Listing(q), s.upstreamSize)
	if err != nil {
		return Page{}, err
	}

	res, err := tr.Translate(ctx, q.request())
	if err == nil && res.TotalItems > 0 {
		if last := pagination.TotalPages(res.TotalItems, q.PageSize); q.Page > last {
			pageClampsTotal.Inc()
			s.logger.Debug().
				Int("requested", q.Page).
				Int("last", last).
				Msg("Page past the end - clamping to last page")
			q = q.WithPage(last)
			res, err = tr.Translate(ctx, q.request())
		}
	}

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Page{}, ctxErr
		}
		degradedPagesTotal.WithLabelValues(string(q.Media)).Inc()
		s.logger.Warn().
			Err(err).
			Str("media", string(q.Media)).
			Int("genre", q.GenreID).
			Int("page", q.Page).
			Msg("Upstream failure - serving empty page")
		return newPage(q, pagination.Result[tmdb.Title]{}, true), nil
	}

	spanned := pagination.UpstreamPages(q.request(), s.upstreamSize)
	upstreamPagesPerRequest.Observe(float64(len(spanned)))
	pagesServedTotal.WithLabelValues(string(q.Media)).Inc()

	page := newPage(q, res, false)
	s.logger.Debug().
		Str("media", string(q.Media)).
		Int("genre", q.GenreID).
		Int("page", page.Page).
		Int("page_size", q.PageSize).
		Ints("upstream_pages", spanned).
		Int("items", len(page.Items)).
		Msg("Served grid page")

	s.prefetchNext(q, page.TotalPages, spanned)
	return page, nil
}

func newPage(q Query, res pagination.Result[tmdb.Title], degraded bool) Page {
	items := res.Items
	if items == nil {
		items = []tmdb.Title{}
	}
	totalPages := pagination.TotalPages(res.TotalItems, q.PageSize)
	plan := pagination.NewPlan(q.Page, totalPages)

	return Page{
		Query:      q,
		Items:      items,
		TotalItems: res.TotalItems,
		TotalPages: totalPages,
		Page:       plan.Window.Current,
		Plan:       plan,
		Degraded:   degraded,
	}
}

// prefetchNext warms the upstream pages the next virtual page needs and
// the current one did not read.
func (s *Service) prefetchNext(q Query, totalPages int, current []int) {
	if !s.prefetch || q.Page >= totalPages {
		return
	}

	next := pagination.UpstreamPages(q.WithPage(q.Page+1).request(), s.upstreamSize)
	pages := slices.DeleteFunc(next, func(p int) bool { return slices.Contains(current, p) })
	if len(pages) == 0 {
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()

	fetcher := s.upstream.Listing(q)
	go func() {
		defer s.wg.Done()

		results, err := pagination.NewBatchFetcher(fetcher, s.batch).FetchPages(s.ctx, pages)
		prefetchPagesTotal.WithLabelValues("ok").Add(float64(len(results)))
		if err != nil {
			prefetchPagesTotal.WithLabelValues("error").Add(float64(len(pages) - len(results)))
			s.logger.Debug().Err(err).Ints("pages", pages).Msg("Prefetch incomplete")
		}
	}()
}

// Genres returns the genre list for a grid's media.
func (s *Service) Genres(ctx context.Context, media Media) ([]tmdb.Genre, error) {
	if _, err := ParseMedia(string(media)); err != nil {
		return nil, err
	}
	if media == MediaTV {
		return s.upstream.Genres(ctx, tmdb.MediaTV)
	}
	return s.upstream.Genres(ctx, tmdb.MediaMovie)
}

// Wait blocks until pending prefetches finish.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Close stops pending prefetches and waits for them to return.
func (s *Service) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
}
