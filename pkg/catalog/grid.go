package catalog

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/Sternrassler/cinegrid/pkg/logging"
	"github.com/Sternrassler/cinegrid/pkg/pagination"
	"github.com/rs/zerolog"
)

// ErrStaleResult is returned by a load that a newer load superseded.
// Its result is never applied.
var ErrStaleResult = errors.New("stale grid result discarded")

// Browser serves virtual pages.
type Browser interface {
	Browse(ctx context.Context, q Query) (Page, error)
}

// Grid owns the view state of one grid: the current query and the last
// applied page. Every load takes a new generation and cancels the load in
// flight, so only the newest request can change the state.
type Grid struct {
	browser Browser
	gens    pagination.Generations
	logger  zerolog.Logger

	mu      sync.Mutex
	query   Query
	page    Page
	hasPage bool
	nav     *pagination.Navigator
	cancel  context.CancelFunc
}

// NewGrid creates a grid starting at initial.
func NewGrid(browser Browser, initial Query) *Grid {
	return &Grid{
		browser: browser,
		logger:  logging.NewLogger(logging.ComponentGrid),
		query:   initial,
		nav:     pagination.NewNavigator(max(initial.Page, 1), 1),
	}
}

// Query returns the current query.
func (g *Grid) Query() Query {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.query
}

// Page returns the last applied page.
func (g *Grid) Page() (Page, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.page, g.hasPage
}

// Load (re)loads the current query.
func (g *Grid) Load(ctx context.Context) (Page, error) {
	return g.load(ctx, g.Query())
}

// GoTo loads page p, clamped to the known page range. Going to the current
// page of a loaded grid returns it without a request.
func (g *Grid) GoTo(ctx context.Context, p int) (Page, error) {
	g.mu.Lock()
	if g.hasPage {
		target := pagination.ClampPage(p, g.nav.Total())
		if target == g.nav.Current() && g.query.Page == target {
			page := g.page
			g.mu.Unlock()
			return page, nil
		}
		p = target
	} else {
		p = max(p, 1)
	}
	q := g.query.WithPage(p)
	g.mu.Unlock()

	return g.load(ctx, q)
}

// Prev goes to the previous page; a no-op on the first page.
func (g *Grid) Prev(ctx context.Context) (Page, error) {
	return g.GoTo(ctx, g.current()-1)
}

// Next goes to the next page; a no-op on the last page.
func (g *Grid) Next(ctx context.Context) (Page, error) {
	return g.GoTo(ctx, g.current()+1)
}

func (g *Grid) current() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.query.Page
}

// SetGenre switches the grid to a genre listing and loads its first page.
func (g *Grid) SetGenre(ctx context.Context, media Media, genreID int, genreName string) (Page, error) {
	q := g.Query()
	q.Media = media
	q.GenreID = genreID
	q.GenreName = genreName
	q.SearchText = ""
	q.Page = 1
	return g.load(ctx, q)
}

// SetSearch switches the grid to a movie search and loads its first page.
func (g *Grid) SetSearch(ctx context.Context, text string) (Page, error) {
	q := g.Query()
	q.Media = MediaSearch
	q.SearchText = strings.TrimSpace(text)
	q.GenreID = 0
	q.GenreName = ""
	q.Page = 1
	return g.load(ctx, q)
}

func (g *Grid) load(ctx context.Context, q Query) (Page, error) {
	g.mu.Lock()
	if g.cancel != nil {
		g.cancel()
	}
	loadCtx, cancel := context.WithCancel(ctx)
	g.cancel = cancel
	gen := g.gens.Next()
	prev := g.query
	g.query = q
	g.mu.Unlock()
	defer cancel()

	page, err := g.browser.Browse(loadCtx, q)

	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.gens.IsCurrent(gen) {
		staleResultsDroppedTotal.Inc()
		g.logger.Debug().
			Uint64("generation", uint64(gen)).
			Uint64("latest", uint64(g.gens.Latest())).
			Int("page", q.Page).
			Msg("Dropping superseded grid result")
		return Page{}, ErrStaleResult
	}
	g.cancel = nil

	if err != nil {
		// Fall back to the last page shown so Next and Prev step from it.
		if g.hasPage {
			g.query = g.page.Query
		} else {
			g.query = prev
		}
		return Page{}, err
	}

	g.page = page
	g.hasPage = true
	g.query = page.Query
	g.nav.SetTotal(page.TotalPages)
	g.nav.GoTo(page.Page)

	return page, nil
}
