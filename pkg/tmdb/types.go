package tmdb

import (
	"fmt"
	"strings"
)

// MediaType selects the TMDB catalog a request targets.
type MediaType string

const (
	MediaTV    MediaType = "tv"
	MediaMovie MediaType = "movie"
)

// ParseMediaType validates a media type string.
func ParseMediaType(s string) (MediaType, error) {
	switch m := MediaType(strings.ToLower(strings.TrimSpace(s))); m {
	case MediaTV, MediaMovie:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMediaType, s)
	}
}

// Title is a single TV series or movie from a discover or search listing.
// Movies carry Title/ReleaseDate, series carry Name/FirstAirDate.
type Title struct {
	ID               int       `json:"id"`
	MediaType        MediaType `json:"media_type,omitempty"`
	Title            string    `json:"title,omitempty"`
	Name             string    `json:"name,omitempty"`
	OriginalLanguage string    `json:"original_language,omitempty"`
	Overview         string    `json:"overview,omitempty"`
	PosterPath       string    `json:"poster_path,omitempty"`
	BackdropPath     string    `json:"backdrop_path,omitempty"`
	ReleaseDate      string    `json:"release_date,omitempty"`
	FirstAirDate     string    `json:"first_air_date,omitempty"`
	GenreIDs         []int     `json:"genre_ids,omitempty"`
	Popularity       float64   `json:"popularity"`
	VoteAverage      float64   `json:"vote_average"`
	VoteCount        int       `json:"vote_count"`
}

// DisplayTitle returns the movie title or the series name.
func (t Title) DisplayTitle() string {
	if t.Title != "" {
		return t.Title
	}
	return t.Name
}

// Year extracts the year from the release or first air date.
func (t Title) Year() string {
	source := t.ReleaseDate
	if source == "" {
		source = t.FirstAirDate
	}
	if len(source) >= 4 {
		return source[:4]
	}
	return ""
}

// PosterURL returns the poster image URL at the given size (e.g. "w342"),
// or "" when the title has no poster.
func (t Title) PosterURL(size string) string {
	if t.PosterPath == "" {
		return ""
	}
	if size == "" {
		size = "original"
	}
	return ImageBaseURL + "/" + size + t.PosterPath
}

// PagedResponse is the envelope of every paginated TMDB listing.
type PagedResponse struct {
	Page         int     `json:"page"`
	Results      []Title `json:"results"`
	TotalPages   int     `json:"total_pages"`
	TotalResults int     `json:"total_results"`
}

// Genre is a TMDB genre.
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type genreListResponse struct {
	Genres []Genre `json:"genres"`
}
