package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/Sternrassler/cinegrid/pkg/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type browserFunc func(ctx context.Context, q Query) (Page, error)

func (f browserFunc) Browse(ctx context.Context, q Query) (Page, error) { return f(ctx, q) }

type loadResult struct {
	page Page
	err  error
}

func TestGrid_LoadAndNavigate(t *testing.T) {
	up := newFakeUpstream(95)
	g := NewGrid(NewService(up), DefaultQuery(MediaTV))
	ctx := context.Background()

	_, ok := g.Page()
	assert.False(t, ok, "no page before the first load")

	page, err := g.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 6, page.TotalPages)

	page, err = g.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, seq(19, 36), ids(page.Items))

	page, err = g.Prev(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)

	before := len(up.fetched())
	page, err = g.Prev(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Len(t, up.fetched(), before, "prev on the first page must not fetch")
}

func TestGrid_GoToClamps(t *testing.T) {
	up := newFakeUpstream(95)
	g := NewGrid(NewService(up), DefaultQuery(MediaTV))
	ctx := context.Background()

	_, err := g.Load(ctx)
	require.NoError(t, err)

	page, err := g.GoTo(ctx, 99)
	require.NoError(t, err)
	assert.Equal(t, 6, page.Page)
	assert.Equal(t, seq(91, 95), ids(page.Items))
	assert.Equal(t, 6, g.Query().Page)

	before := len(up.fetched())
	page, err = g.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, page.Page)
	assert.Len(t, up.fetched(), before, "next on the last page must not fetch")

	page, err = g.GoTo(ctx, -3)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
}

func TestGrid_GoToBeforeLoad(t *testing.T) {
	g := NewGrid(NewService(newFakeUpstream(95)), DefaultQuery(MediaTV))

	page, err := g.GoTo(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
}

func TestGrid_SetGenreResetsPage(t *testing.T) {
	g := NewGrid(NewService(newFakeUpstream(95)), DefaultQuery(MediaTV).WithPage(4))
	ctx := context.Background()

	_, err := g.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, g.Query().Page)

	page, err := g.SetGenre(ctx, MediaMovie, 28, "Action")
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, Query{Media: MediaMovie, GenreID: 28, GenreName: "Action", Page: 1, PageSize: DefaultPageSize}, g.Query())
}

func TestGrid_SetSearch(t *testing.T) {
	g := NewGrid(NewService(newFakeUpstream(7)), DefaultQuery(MediaMovie))

	page, err := g.SetSearch(context.Background(), "  alien ")
	require.NoError(t, err)

	q := g.Query()
	assert.Equal(t, MediaSearch, q.Media)
	assert.Equal(t, "alien", q.SearchText)
	assert.Zero(t, q.GenreID)
	assert.Empty(t, q.GenreName)
	assert.Len(t, page.Items, 7)
	assert.Equal(t, 1, page.TotalPages)
}

func TestGrid_InvalidQueryIsNotApplied(t *testing.T) {
	g := NewGrid(NewService(newFakeUpstream(95)), Query{Media: MediaTV, GenreID: 18, Page: 1, PageSize: 30})

	_, err := g.Load(context.Background())
	assert.ErrorIs(t, err, pagination.ErrUnsupportedPageSize)

	_, ok := g.Page()
	assert.False(t, ok)
}

func TestGrid_FailedLoadKeepsPosition(t *testing.T) {
	up := newFakeUpstream(95)
	svc := NewService(up)
	defer svc.Close()
	g := NewGrid(svc, DefaultQuery(MediaTV))

	_, err := g.Load(context.Background())
	require.NoError(t, err)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = g.Next(cancelled)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, g.Query().Page)

	page, ok := g.Page()
	require.True(t, ok)
	assert.Equal(t, 1, page.Page)

	page, err = g.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, seq(19, 36), ids(page.Items))
}

func TestGrid_FailedFirstLoadKeepsQuery(t *testing.T) {
	up := newFakeUpstream(95)
	svc := NewService(up)
	defer svc.Close()
	g := NewGrid(svc, DefaultQuery(MediaTV).WithPage(2))

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := g.GoTo(cancelled, 4)
	require.Error(t, err)
	assert.Equal(t, 2, g.Query().Page)

	page, err := g.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, page.Page)
}

func TestGrid_SupersededLoadIsCancelledAndDropped(t *testing.T) {
	defer goleak.VerifyNone(t)

	up := newFakeUpstream(95)
	svc := NewService(up)
	defer svc.Close()
	g := NewGrid(svc, DefaultQuery(MediaTV))
	ctx := context.Background()

	_, err := g.Load(ctx)
	require.NoError(t, err)

	// Virtual page 4 starts on upstream page 3.
	release := make(chan struct{})
	defer close(release)
	arrived := up.block(3, release)

	results := make(chan loadResult, 1)
	go func() {
		page, err := g.GoTo(ctx, 4)
		results <- loadResult{page, err}
	}()

	select {
	case <-arrived:
	case <-time.After(2 * time.Second):
		t.Fatal("first load never reached the upstream")
	}

	page, err := g.SetGenre(ctx, MediaMovie, 28, "Action")
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)

	first := <-results
	assert.ErrorIs(t, first.err, ErrStaleResult)

	current, ok := g.Page()
	require.True(t, ok)
	assert.Equal(t, MediaMovie, current.Query.Media)
	assert.Equal(t, 1, current.Page)
}

func TestGrid_LateResultNeverOverwrites(t *testing.T) {
	defer goleak.VerifyNone(t)

	svc := NewService(newFakeUpstream(95))
	defer svc.Close()

	started := make(chan struct{})
	release := make(chan struct{})
	browser := browserFunc(func(ctx context.Context, q Query) (Page, error) {
		if q.Page == 2 {
			close(started)
			// Ignores cancellation and finishes after the newer load.
			<-release
			return svc.Browse(context.Background(), q)
		}
		return svc.Browse(ctx, q)
	})

	g := NewGrid(browser, DefaultQuery(MediaTV))
	ctx := context.Background()
	_, err := g.Load(ctx)
	require.NoError(t, err)

	results := make(chan loadResult, 1)
	go func() {
		page, err := g.GoTo(ctx, 2)
		results <- loadResult{page, err}
	}()
	<-started

	page, err := g.GoTo(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Page)

	close(release)
	late := <-results
	assert.ErrorIs(t, late.err, ErrStaleResult)

	current, _ := g.Page()
	assert.Equal(t, 3, current.Page)
	assert.Equal(t, 3, g.Query().Page)
}
