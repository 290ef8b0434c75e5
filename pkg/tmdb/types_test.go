package tmdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseMediaType(t *testing.T) {
	for _, in := range []string{"tv", "TV", " movie "} {
		_, err := ParseMediaType(in)
		assert.NoError(t, err, in)
	}

	_, err := ParseMediaType("person")
	assert.ErrorIs(t, err, ErrInvalidMediaType)
}

func TestTitle_Helpers(t *testing.T) {
	movie := Title{Title: "Alien", ReleaseDate: "1979-05-25", PosterPath: "/alien.jpg"}
	series := Title{Name: "The Wire", FirstAirDate: "2002-06-02"}

	assert.Equal(t, "Alien", movie.DisplayTitle())
	assert.Equal(t, "1979", movie.Year())
	assert.Equal(t, ImageBaseURL+"/w342/alien.jpg", movie.PosterURL("w342"))
	assert.Equal(t, ImageBaseURL+"/original/alien.jpg", movie.PosterURL(""))

	assert.Equal(t, "The Wire", series.DisplayTitle())
	assert.Equal(t, "2002", series.Year())
	assert.Empty(t, series.PosterURL("w342"))

	assert.Empty(t, Title{ReleaseDate: "19"}.Year())
}
