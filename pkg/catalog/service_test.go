package catalog

import (
	"context"
	"errors"
	"math"
	"net/url"
	"strconv"
	"testing"

	"github.com/Sternrassler/cinegrid/pkg/pagination"
	"github.com/Sternrassler/cinegrid/pkg/tmdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestBrowse_SingleUpstreamPage(t *testing.T) {
	up := newFakeUpstream(95)
	svc := NewService(up)
	defer svc.Close()

	page, err := svc.Browse(context.Background(), DefaultQuery(MediaTV))
	require.NoError(t, err)

	assert.Equal(t, seq(1, 18), ids(page.Items))
	assert.Equal(t, 95, page.TotalItems)
	assert.Equal(t, 6, page.TotalPages)
	assert.Equal(t, 1, page.Page)
	assert.False(t, page.Degraded)
	assert.Equal(t, []int{1}, up.fetched())
}

func TestBrowse_SpansTwoUpstreamPages(t *testing.T) {
	up := newFakeUpstream(95)
	svc := NewService(up)
	defer svc.Close()

	page, err := svc.Browse(context.Background(), DefaultQuery(MediaTV).WithPage(2))
	require.NoError(t, err)

	assert.Equal(t, seq(19, 36), ids(page.Items))
	assert.Equal(t, []int{1, 2}, up.fetched())
}

func TestBrowse_ClampsPastLastPage(t *testing.T) {
	up := newFakeUpstream(40)
	svc := NewService(up)
	defer svc.Close()

	page, err := svc.Browse(context.Background(), DefaultQuery(MediaTV).WithPage(5))
	require.NoError(t, err)

	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, 3, page.Page)
	assert.Equal(t, 3, page.Query.Page)
	assert.Equal(t, seq(37, 40), ids(page.Items))
	assert.True(t, page.Plan.Next.Disabled)
}

func TestBrowse_HugeParsedPageClampsToLast(t *testing.T) {
	up := newFakeUpstream(40)
	svc := NewService(up)
	defer svc.Close()

	q, err := ParseQuery(MediaTV, url.Values{"page": {strconv.Itoa(math.MaxInt)}})
	require.NoError(t, err)

	page, err := svc.Browse(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Page)
	assert.Equal(t, seq(37, 40), ids(page.Items))
}

func TestBrowse_RejectsOverflowingPage(t *testing.T) {
	up := newFakeUpstream(40)
	svc := NewService(up)
	defer svc.Close()

	_, err := svc.Browse(context.Background(), DefaultQuery(MediaTV).WithPage(math.MaxInt))
	assert.ErrorIs(t, err, pagination.ErrInvalidPageRequest)
	assert.Empty(t, up.fetched())
}

func TestBrowse_EmptyListing(t *testing.T) {
	svc := NewService(newFakeUpstream(0))
	defer svc.Close()

	page, err := svc.Browse(context.Background(), DefaultQuery(MediaMovie).WithPage(3))
	require.NoError(t, err)

	assert.NotNil(t, page.Items)
	assert.Empty(t, page.Items)
	assert.Zero(t, page.TotalItems)
	assert.Equal(t, 1, page.TotalPages)
	assert.Equal(t, 1, page.Page)
	assert.False(t, page.Degraded)
}

func TestBrowse_UpstreamFailureDegrades(t *testing.T) {
	up := newFakeUpstream(95)
	up.fail[2] = &tmdb.APIError{StatusCode: 503, Class: tmdb.ErrorClassServer, Message: "down"}
	svc := NewService(up)
	defer svc.Close()

	page, err := svc.Browse(context.Background(), DefaultQuery(MediaTV).WithPage(2))
	require.NoError(t, err, "upstream failures must not propagate")

	assert.True(t, page.Degraded)
	assert.Empty(t, page.Items)
	assert.Zero(t, page.TotalItems)
	assert.Equal(t, 1, page.TotalPages)
}

func TestBrowse_InvalidQuery(t *testing.T) {
	svc := NewService(newFakeUpstream(95))
	defer svc.Close()
	ctx := context.Background()

	tests := []struct {
		name string
		q    Query
		is   error
	}{
		{"page zero", DefaultQuery(MediaTV).WithPage(0), pagination.ErrInvalidPageRequest},
		{"size zero", Query{Media: MediaTV, Page: 1}, pagination.ErrInvalidPageRequest},
		{"size above upstream", Query{Media: MediaTV, Page: 1, PageSize: 25}, pagination.ErrUnsupportedPageSize},
		{"unknown media", Query{Media: "anime", Page: 1, PageSize: 18}, ErrInvalidQuery},
		{"negative genre", Query{Media: MediaTV, GenreID: -1, Page: 1, PageSize: 18}, ErrInvalidQuery},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Browse(ctx, tt.q)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.is)
			assert.ErrorIs(t, err, pagination.ErrInvalidPageRequest)
		})
	}
}

func TestBrowse_CancelledContext(t *testing.T) {
	svc := NewService(newFakeUpstream(95))
	defer svc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Browse(ctx, DefaultQuery(MediaTV))
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
}

func TestBrowse_Plan(t *testing.T) {
	svc := NewService(newFakeUpstream(500))
	defer svc.Close()

	page, err := svc.Browse(context.Background(), DefaultQuery(MediaTV).WithPage(6))
	require.NoError(t, err)

	assert.Equal(t, 28, page.TotalPages)
	assert.Equal(t, pagination.Window{From: 4, To: 8, Current: 6, Total: 28}, page.Plan.Window)

	var rendered []int
	ellipses := 0
	for _, c := range page.Plan.Controls {
		if c.Kind == pagination.ControlEllipsis {
			ellipses++
			continue
		}
		rendered = append(rendered, c.Page)
	}
	assert.Equal(t, []int{1, 4, 5, 6, 7, 8, 28}, rendered)
	assert.Equal(t, 2, ellipses)
}

func TestBrowse_OddPageSize(t *testing.T) {
	up := newFakeUpstream(95)
	svc := NewService(up, WithUpstreamPageSize(testUpstreamSize))
	defer svc.Close()

	q := Query{Media: MediaTV, GenreID: 18, Page: 3, PageSize: 7}
	page, err := svc.Browse(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, seq(15, 21), ids(page.Items))
	assert.Equal(t, 14, page.TotalPages)
}

func TestBrowse_PrefetchesNextPage(t *testing.T) {
	defer goleak.VerifyNone(t)

	up := newFakeUpstream(95)
	svc := NewService(up, WithPrefetch(pagination.DefaultBatchConfig()))

	// Page 1 reads upstream page 1; page 2 also needs upstream page 2.
	_, err := svc.Browse(context.Background(), DefaultQuery(MediaTV))
	require.NoError(t, err)
	svc.Wait()
	svc.Close()

	assert.ElementsMatch(t, []int{1, 2}, up.fetched())
}

func TestBrowse_NoPrefetchOnLastPage(t *testing.T) {
	defer goleak.VerifyNone(t)

	up := newFakeUpstream(30)
	svc := NewService(up, WithPrefetch(pagination.DefaultBatchConfig()))

	_, err := svc.Browse(context.Background(), DefaultQuery(MediaTV).WithPage(2))
	require.NoError(t, err)
	svc.Wait()
	svc.Close()

	assert.Equal(t, []int{1, 2}, up.fetched())
}

func TestClose_CancelsPrefetch(t *testing.T) {
	defer goleak.VerifyNone(t)

	up := newFakeUpstream(95)
	release := make(chan struct{})
	defer close(release)
	arrived := up.block(2, release)

	svc := NewService(up, WithPrefetch(pagination.DefaultBatchConfig()))
	_, err := svc.Browse(context.Background(), DefaultQuery(MediaTV))
	require.NoError(t, err)

	<-arrived
	svc.Close()

	// Browsing after Close still works but no longer prefetches.
	_, err = svc.Browse(context.Background(), DefaultQuery(MediaTV))
	require.NoError(t, err)
	svc.Wait()
	assert.Equal(t, []int{1, 2, 1}, up.fetched())
}

func TestGenres(t *testing.T) {
	svc := NewService(newFakeUpstream(0))
	defer svc.Close()
	ctx := context.Background()

	tv, err := svc.Genres(ctx, MediaTV)
	require.NoError(t, err)
	assert.Equal(t, "Drama", tv[0].Name)

	search, err := svc.Genres(ctx, MediaSearch)
	require.NoError(t, err)
	assert.Equal(t, "Action", search[0].Name)

	_, err = svc.Genres(ctx, "anime")
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestNewService_Panic(t *testing.T) {
	assert.Panics(t, func() { NewService(nil) })
}
