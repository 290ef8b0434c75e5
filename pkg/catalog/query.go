// Package catalog serves TMDB grids in virtual pages: it binds a grid query
// to an upstream listing, translates the requested page, recovers upstream
// failures into empty pages and keeps the view state of a grid.
package catalog

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/Sternrassler/cinegrid/pkg/pagination"
	"github.com/Sternrassler/cinegrid/pkg/tmdb"
)

const (
	DefaultGenreID   = 18
	DefaultGenreName = "Series"
	DefaultPageSize  = 18
)

// URL query parameter names.
const (
	ParamGenre  = "genre"
	ParamName   = "name"
	ParamPage   = "page"
	ParamSize   = "size"
	ParamSearch = "q"
)

// ErrInvalidQuery is returned for malformed grid queries.
var ErrInvalidQuery = fmt.Errorf("%w: invalid grid query", pagination.ErrInvalidPageRequest)

// Media selects the listing behind a grid.
type Media string

const (
	MediaTV     Media = "tv"
	MediaMovie  Media = "movie"
	MediaSearch Media = "search"
)

// ParseMedia validates a media name.
func ParseMedia(s string) (Media, error) {
	switch m := Media(strings.ToLower(strings.TrimSpace(s))); m {
	case MediaTV, MediaMovie, MediaSearch:
		return m, nil
	default:
		return "", fmt.Errorf("%w: unknown media %q", ErrInvalidQuery, s)
	}
}

// Query identifies one virtual page of a grid.
type Query struct {
	Media      Media  `json:"media"`
	GenreID    int    `json:"genre_id,omitempty"`
	GenreName  string `json:"genre_name,omitempty"`
	SearchText string `json:"q,omitempty"`
	Page       int    `json:"page"`
	PageSize   int    `json:"page_size"`
}

// DefaultQuery returns the first page of the default grid for media.
func DefaultQuery(media Media) Query {
	q := Query{Media: media, Page: 1, PageSize: DefaultPageSize}
	if media != MediaSearch {
		q.GenreID = DefaultGenreID
		q.GenreName = DefaultGenreName
	}
	return q
}

// Validate checks the query against the upstream page size.
func (q Query) Validate() error {
	if _, err := ParseMedia(string(q.Media)); err != nil {
		return err
	}
	if q.GenreID < 0 {
		return fmt.Errorf("%w: genre %d", ErrInvalidQuery, q.GenreID)
	}
	return q.request().Validate(tmdb.PageSize)
}

// WithPage returns a copy of q at page.
func (q Query) WithPage(page int) Query {
	q.Page = page
	return q
}

// SameListing reports whether q and other read the same upstream listing.
func (q Query) SameListing(other Query) bool {
	return q.Media == other.Media && q.GenreID == other.GenreID &&
		q.SearchText == other.SearchText && q.PageSize == other.PageSize
}

func (q Query) request() pagination.Request {
	return pagination.Request{Page: q.Page, PageSize: q.PageSize}
}

// Title is the heading of the grid.
func (q Query) Title() string {
	switch q.Media {
	case MediaSearch:
		if q.SearchText == "" {
			return "Search"
		}
		return fmt.Sprintf("Search: %s", q.SearchText)
	default:
		if q.GenreName != "" {
			return q.GenreName
		}
		if q.Media == MediaMovie {
			return "Movies"
		}
		return "Series"
	}
}

// ParseQuery reads a grid query from URL parameters. Missing parameters
// take the defaults; malformed numbers are rejected. Pages past what TMDB
// can serve are capped so the item index cannot overflow.
func ParseQuery(media Media, v url.Values) (Query, error) {
	if _, err := ParseMedia(string(media)); err != nil {
		return Query{}, err
	}
	q := DefaultQuery(media)

	var err error
	if q.Page, err = intParam(v, ParamPage, q.Page); err != nil {
		return Query{}, err
	}
	if q.PageSize, err = intParam(v, ParamSize, q.PageSize); err != nil {
		return Query{}, err
	}
	if q.PageSize >= 1 {
		q.Page = min(q.Page, maxPage(q.PageSize))
	}

	if media == MediaSearch {
		q.SearchText = strings.TrimSpace(v.Get(ParamSearch))
		return q, nil
	}

	if q.GenreID, err = intParam(v, ParamGenre, q.GenreID); err != nil {
		return Query{}, err
	}
	if name := strings.TrimSpace(v.Get(ParamName)); name != "" {
		q.GenreName = name
	} else if v.Has(ParamGenre) {
		q.GenreName = ""
	}

	return q, nil
}

// maxPage is one past the last virtual page TMDB can fill at size. Pages
// beyond it are capped here and clamped to the real last page by Browse.
func maxPage(size int) int {
	return tmdb.MaxPages*tmdb.PageSize/size + 1
}

// Values encodes q with the parameter names ParseQuery reads.
func (q Query) Values() url.Values {
	v := url.Values{}
	if q.Media == MediaSearch {
		v.Set(ParamSearch, q.SearchText)
	} else {
		v.Set(ParamGenre, strconv.Itoa(q.GenreID))
		if q.GenreName != "" {
			v.Set(ParamName, q.GenreName)
		}
	}
	v.Set(ParamPage, strconv.Itoa(q.Page))
	if q.PageSize != DefaultPageSize {
		v.Set(ParamSize, strconv.Itoa(q.PageSize))
	}
	return v
}

func intParam(v url.Values, key string, def int) (int, error) {
	raw := strings.TrimSpace(v.Get(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q: %v", ErrInvalidQuery, key, raw, err)
	}
	return n, nil
}
