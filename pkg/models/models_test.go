package models

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSortFilterWireMapping(t *testing.T) {
	for _, f := range SortFilters() {
		parsed, err := ParseSortFilter(f.String())
		require.NoError(t, err)
		assert.Equal(t, f, parsed)
	}

	for _, bad := range []string{"", "none", "Unknow", "Upcoming", "toprated", " Popular"} {
		_, err := ParseSortFilter(bad)
		assert.Error(t, err, "filter %q should be rejected", bad)
	}
}

func TestSortFilterJSON(t *testing.T) {
	var req struct {
		Filter SortFilter `json:"filter"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"filter":"TopRated"}`), &req))
	assert.Equal(t, FilterTopRated, req.Filter)

	assert.Error(t, json.Unmarshal([]byte(`{"filter":"Rating"}`), &req))
	assert.Error(t, json.Unmarshal([]byte(`{"filter":3}`), &req))

	b, err := json.Marshal(FilterLatest)
	require.NoError(t, err)
	assert.JSONEq(t, `"Latest"`, string(b))

	_, err = json.Marshal(SortFilter(42))
	assert.Error(t, err)
}

func TestGenreVocabulary(t *testing.T) {
	all := Genres()
	assert.Len(t, all, 19)
	assert.Equal(t, GenreAction, all[0])
	assert.Equal(t, GenreWestern, all[18])

	all[0] = "Mutated"
	assert.Equal(t, GenreAction, Genres()[0])

	_, ok := ParseGenre("ScienceFiction")
	assert.True(t, ok)
	_, ok = ParseGenre("Science Fiction")
	assert.False(t, ok)
}

func TestParseGenreLabel(t *testing.T) {
	cases := map[string]Genre{
		"Science Fiction": GenreScienceFiction,
		"TV Movie":        GenreTVMovie,
		" drama ":         GenreDrama,
		"Western":         GenreWestern,
	}
	for in, want := range cases {
		got, ok := ParseGenreLabel(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got)
	}

	_, ok := ParseGenreLabel("Foreign")
	assert.False(t, ok)
}

func TestParseID(t *testing.T) {
	n, err := ParseID(" 862 ")
	require.NoError(t, err)
	assert.EqualValues(t, 862, n)

	n, err = ParseID("0")
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)

	for _, bad := range []string{"", "abc", "12abc", "-1", "1.5", "2147483648", "99999999999999999999"} {
		_, err := ParseID(bad)
		assert.Error(t, err, "id %q should be rejected", bad)
	}
}

func TestMovieShortProjection(t *testing.T) {
	d := MovieDetails{
		MovieID: 1, TMDBID: 862, Title: "Toy Story", VoteAverage: 7.9,
		VoteCount: 17000, Popularity: 99.5, PosterPath: "/toy.jpg", Overview: "toys",
	}
	assert.Equal(t, MovieShort{
		MovieID: 1, TMDBID: 862, Title: "Toy Story", VoteAverage: 7.9,
		PosterPath: "/toy.jpg", Popularity: 99.5,
	}, d.Short())
}
