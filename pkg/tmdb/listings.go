package tmdb

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/Sternrassler/cinegrid/pkg/cache"
)

// Discover lists titles of a media type, optionally filtered by genre,
// ordered by popularity.
func (c *Client) Discover(ctx context.Context, media MediaType, genreID int, page int) (*PagedResponse, error) {
	if _, err := ParseMediaType(string(media)); err != nil {
		return nil, err
	}

	params := url.Values{}
	if genreID > 0 {
		params.Set("with_genres", strconv.Itoa(genreID))
	}
	params.Set("language", c.config.Language)
	params.Set("sort_by", DefaultSortBy)
	params.Set("page", strconv.Itoa(page))

	return c.getPage(ctx, "/discover/"+string(media), params, media, page)
}

// SearchMovies searches movies by title.
func (c *Client) SearchMovies(ctx context.Context, query string, page int) (*PagedResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("search query cannot be empty")
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("include_adult", "false")
	params.Set("language", c.config.Language)
	params.Set("page", strconv.Itoa(page))

	return c.getPage(ctx, "/search/movie", params, MediaMovie, page)
}

// getPage fetches one listing page. Concurrent requests for the same page
// share a single upstream call; the shared call outlives a cancelled caller
// up to FetchTimeout so the other waiters still get their result.
func (c *Client) getPage(ctx context.Context, path string, params url.Values, media MediaType, page int) (*PagedResponse, error) {
	if page < 1 || page > MaxPages {
		return nil, fmt.Errorf("page %d outside 1..%d", page, MaxPages)
	}

	key := cache.NewKey(path, params).String()
	ch := c.group.DoChan(key, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.config.FetchTimeout)
		defer cancel()

		var out PagedResponse
		if err := c.getJSON(fetchCtx, path, params, &out); err != nil {
			return nil, err
		}
		for i := range out.Results {
			if out.Results[i].MediaType == "" {
				out.Results[i].MediaType = media
			}
		}
		return &out, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			tmdbCollapsedTotal.Inc()
		}
		shared := res.Val.(*PagedResponse)
		out := *shared
		out.Results = slices.Clone(shared.Results)
		return &out, nil
	}
}

// Genres returns the genre list for a media type. Lists are memoized for
// the lifetime of the client.
func (c *Client) Genres(ctx context.Context, media MediaType) ([]Genre, error) {
	if _, err := ParseMediaType(string(media)); err != nil {
		return nil, err
	}

	c.mu.RLock()
	if genres, ok := c.genres[media]; ok {
		c.mu.RUnlock()
		return slices.Clone(genres), nil
	}
	c.mu.RUnlock()

	params := url.Values{}
	params.Set("language", c.config.Language)

	var response genreListResponse
	if err := c.getJSON(ctx, "/genre/"+string(media)+"/list", params, &response); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.genres[media] = response.Genres
	c.mu.Unlock()

	return slices.Clone(response.Genres), nil
}
