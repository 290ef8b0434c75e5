package catalog

import (
	"context"
	"fmt"
	"sync"

	"github.com/Sternrassler/cinegrid/pkg/pagination"
	"github.com/Sternrassler/cinegrid/pkg/tmdb"
)

const testUpstreamSize = 20

// fakeUpstream serves a generated listing of total titles in pages of 20.
type fakeUpstream struct {
	mu     sync.Mutex
	total  int
	fail   map[int]error
	calls  []int
	gate   map[int]chan struct{}
	hits   map[int]chan struct{}
	genres map[tmdb.MediaType][]tmdb.Genre
}

func newFakeUpstream(total int) *fakeUpstream {
	return &fakeUpstream{
		total: total,
		fail:  make(map[int]error),
		gate:  make(map[int]chan struct{}),
		hits:  make(map[int]chan struct{}),
		genres: map[tmdb.MediaType][]tmdb.Genre{
			tmdb.MediaTV:    {{ID: 18, Name: "Drama"}},
			tmdb.MediaMovie: {{ID: 28, Name: "Action"}},
		},
	}
}

// block makes fetches of page wait until release is closed. Arrival is
// signalled on the returned channel.
func (f *fakeUpstream) block(page int, release chan struct{}) <-chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	arrived := make(chan struct{}, 1)
	f.gate[page] = release
	f.hits[page] = arrived
	return arrived
}

func (f *fakeUpstream) Listing(Query) pagination.PageFetcher[tmdb.Title] {
	return pagination.PageFetcherFunc[tmdb.Title](f.fetch)
}

func (f *fakeUpstream) Genres(_ context.Context, media tmdb.MediaType) ([]tmdb.Genre, error) {
	return f.genres[media], nil
}

func (f *fakeUpstream) fetch(ctx context.Context, page int) (pagination.UpstreamPage[tmdb.Title], error) {
	f.mu.Lock()
	f.calls = append(f.calls, page)
	err := f.fail[page]
	gate := f.gate[page]
	arrived := f.hits[page]
	total := f.total
	f.mu.Unlock()

	if gate != nil {
		select {
		case arrived <- struct{}{}:
		default:
		}
		select {
		case <-gate:
		case <-ctx.Done():
			return pagination.UpstreamPage[tmdb.Title]{}, ctx.Err()
		}
	}
	if err != nil {
		return pagination.UpstreamPage[tmdb.Title]{}, err
	}

	start := (page - 1) * testUpstreamSize
	end := min(start+testUpstreamSize, total)
	items := make([]tmdb.Title, 0, testUpstreamSize)
	for i := start; i < end; i++ {
		items = append(items, tmdb.Title{ID: i + 1, Name: fmt.Sprintf("Series %d", i+1)})
	}
	return pagination.UpstreamPage[tmdb.Title]{Number: page, Items: items, TotalItems: total}, nil
}

func (f *fakeUpstream) fetched() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.calls...)
}

func ids(items []tmdb.Title) []int {
	out := make([]int, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func seq(from, to int) []int {
	out := make([]int, 0, to-from+1)
	for i := from; i <= to; i++ {
		out = append(out, i)
	}
	return out
}
