package cache

import (
	"net/url"
	"testing"
)

func TestCacheKey_String(t *testing.T) {
	tests := []struct {
		name string
		key  CacheKey
		want string
	}{
		{
			name: "path without params",
			key:  NewKey("/genre/tv/list", nil),
			want: "tmdb:genre/tv/list",
		},
		{
			name: "discover with params",
			key: NewKey("/discover/tv", url.Values{
				"with_genres": []string{"18"},
				"page":        []string{"2"},
				"language":    []string{"en-US"},
			}),
			want: "tmdb:discover/tv:language=en-US:page=2:with_genres=18",
		},
		{
			name: "api key is dropped",
			key: NewKey("/search/movie", url.Values{
				"api_key": []string{"secret"},
				"query":   []string{"alien"},
			}),
			want: "tmdb:search/movie:query=alien",
		},
		{
			name: "multi-valued params are sorted",
			key: NewKey("/discover/movie", url.Values{
				"with_genres": []string{"35", "18"},
			}),
			want: "tmdb:discover/movie:with_genres=18,35",
		},
		{
			name: "empty path",
			key:  CacheKey{},
			want: "tmdb",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCacheKey_Deterministic(t *testing.T) {
	key := NewKey("/discover/tv", url.Values{
		"a": []string{"1"},
		"b": []string{"2"},
		"c": []string{"3"},
		"d": []string{"4"},
	})

	first := key.String()
	for i := 0; i < 100; i++ {
		if result := key.String(); result != first {
			t.Errorf("result[%d] = %v, want %v (not deterministic)", i, result, first)
		}
	}
}

func TestCacheKey_DoesNotMutateQuery(t *testing.T) {
	query := url.Values{"with_genres": []string{"35", "18"}}
	_ = NewKey("/discover/movie", query).String()

	if query["with_genres"][0] != "35" {
		t.Errorf("query was reordered: %v", query["with_genres"])
	}
}
