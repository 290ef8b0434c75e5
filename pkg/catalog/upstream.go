package catalog

import (
	"context"

	"github.com/Sternrassler/cinegrid/pkg/pagination"
	"github.com/Sternrassler/cinegrid/pkg/tmdb"
)

// Upstream resolves the listing behind a query and the genre lists.
type Upstream interface {
	Listing(q Query) pagination.PageFetcher[tmdb.Title]
	Genres(ctx context.Context, media tmdb.MediaType) ([]tmdb.Genre, error)
}

// TMDB adapts a tmdb.Client to Upstream.
type TMDB struct {
	Client *tmdb.Client
}

// Listing returns the discover or search listing for q.
func (t TMDB) Listing(q Query) pagination.PageFetcher[tmdb.Title] {
	switch q.Media {
	case MediaSearch:
		return t.Client.SearchSource(q.SearchText)
	case MediaMovie:
		return t.Client.DiscoverSource(tmdb.MediaMovie, q.GenreID)
	default:
		return t.Client.DiscoverSource(tmdb.MediaTV, q.GenreID)
	}
}

// Genres returns the genre list for media.
func (t TMDB) Genres(ctx context.Context, media tmdb.MediaType) ([]tmdb.Genre, error) {
	return t.Client.Genres(ctx, media)
}
