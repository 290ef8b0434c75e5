package tmdb

import (
	"context"

	"github.com/Sternrassler/cinegrid/pkg/pagination"
)

var _ pagination.PageFetcher[Title] = (*Source)(nil)

// Source is a TMDB listing seen as a sequence of fixed-size upstream pages.
type Source struct {
	client  *Client
	media   MediaType
	genreID int
	query   string
	search  bool
}

// DiscoverSource returns the discover listing for media and genre.
func (c *Client) DiscoverSource(media MediaType, genreID int) *Source {
	return &Source{client: c, media: media, genreID: genreID}
}

// SearchSource returns the movie search listing for query.
func (c *Client) SearchSource(query string) *Source {
	return &Source{client: c, media: MediaMovie, query: query, search: true}
}

// FetchPage implements pagination.PageFetcher. TotalItems is capped at the
// items reachable through TMDB's page limit.
func (s *Source) FetchPage(ctx context.Context, page int) (pagination.UpstreamPage[Title], error) {
	if s.search && s.query == "" {
		return pagination.UpstreamPage[Title]{Number: page, Items: []Title{}}, nil
	}

	if page > MaxPages {
		// Past the last servable page: report the reachable total only.
		first, err := s.fetch(ctx, 1)
		if err != nil {
			return pagination.UpstreamPage[Title]{}, err
		}
		return pagination.UpstreamPage[Title]{
			Number:     page,
			Items:      []Title{},
			TotalItems: reachable(first.TotalResults),
		}, nil
	}

	resp, err := s.fetch(ctx, page)
	if err != nil {
		return pagination.UpstreamPage[Title]{}, err
	}

	return pagination.UpstreamPage[Title]{
		Number:     page,
		Items:      resp.Results,
		TotalItems: reachable(resp.TotalResults),
	}, nil
}

func (s *Source) fetch(ctx context.Context, page int) (*PagedResponse, error) {
	if s.search {
		return s.client.SearchMovies(ctx, s.query, page)
	}
	return s.client.Discover(ctx, s.media, s.genreID, page)
}

func reachable(total int) int {
	return min(max(total, 0), MaxPages*PageSize)
}
