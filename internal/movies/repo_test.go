package movies

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moviedb/internal/ingest/ingesttest"
	"moviedb/pkg/apperr"
	"moviedb/pkg/database/dbtest"
	"moviedb/pkg/models"
)

func newSeededRepo(t *testing.T, maxResults int) *Repo {
	t.Helper()
	s := dbtest.New(t)
	ingesttest.Seed(t, s)
	return NewRepo(s, maxResults)
}

func ids(ms []models.MovieShort) []int64 {
	out := make([]int64, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.MovieID)
	}
	return out
}

func TestSearchOrdering(t *testing.T) {
	r := newSeededRepo(t, 0)
	ctx := context.Background()

	cases := map[models.SortFilter][]int64{
		models.FilterNone:         {1, 2, 3, 4, 5, 6},
		models.FilterAlphabetical: {3, 2, 4, 6, 1, 5},
		models.FilterPopular:      {4, 1, 2, 3, 6, 5},
		models.FilterLatest:       {3, 4, 2, 1, 6, 5},
		models.FilterTopRated:     {4, 3, 1, 2, 6, 5},
	}
	for filter, want := range cases {
		t.Run(filter.String(), func(t *testing.T) {
			got, err := r.Search(ctx, SearchQuery{Filter: filter})
			require.NoError(t, err)
			assert.Equal(t, want, ids(got))
		})
	}
}

func TestSearchGenreAndQuery(t *testing.T) {
	r := newSeededRepo(t, 0)
	ctx := context.Background()

	got, err := r.Search(ctx, SearchQuery{Genre: "Family"})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ids(got))

	got, err = r.Search(ctx, SearchQuery{Genre: "All", Query: "TOY"})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 6}, ids(got))

	got, err = r.Search(ctx, SearchQuery{Query: "AMÉ"})
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, ids(got))

	got, err = r.Search(ctx, SearchQuery{Genre: "Comedy", Query: "toy", Filter: models.FilterPopular})
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids(got))

	got, err = r.Search(ctx, SearchQuery{Genre: "Western"})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	got, err = r.Search(ctx, SearchQuery{Query: "%"})
	require.NoError(t, err)
	assert.Empty(t, got, "query is matched literally")
}

func TestSearchRejectsUnknownInputs(t *testing.T) {
	r := newSeededRepo(t, 0)
	ctx := context.Background()

	_, err := r.Search(ctx, SearchQuery{Genre: "Science Fiction"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = r.Search(ctx, SearchQuery{Filter: models.SortFilter(42)})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestSearchLimit(t *testing.T) {
	r := newSeededRepo(t, 2)
	got, err := r.Search(context.Background(), SearchQuery{Filter: models.FilterPopular})
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 1}, ids(got))
}

func TestSearchMatchesDetailsProjection(t *testing.T) {
	r := newSeededRepo(t, 0)
	ctx := context.Background()

	results, err := r.Search(ctx, SearchQuery{})
	require.NoError(t, err)
	for _, short := range results {
		mv, err := r.GetMovie(ctx, short.MovieID)
		require.NoError(t, err)
		assert.Equal(t, mv.Details.Short(), short)
	}
}

func TestGetMovie(t *testing.T) {
	r := newSeededRepo(t, 0)
	mv, err := r.GetMovie(context.Background(), 1)
	require.NoError(t, err)

	d := mv.Details
	assert.Equal(t, "Toy Story", d.Title)
	assert.Equal(t, "1995-10-30", d.ReleaseDate)
	assert.Equal(t, []models.Genre{models.GenreAnimation, models.GenreComedy, models.GenreFamily}, d.Genres)
	assert.Equal(t, []string{"toy", "friendship"}, d.Keywords)
	require.NotNil(t, d.Budget)
	assert.Equal(t, int64(30_000_000), *d.Budget)

	assert.Equal(t, []models.Rating{
		{MovieID: 1, UserID: 11, Rating: 5.0, Timestamp: 900},
		{MovieID: 1, UserID: 12, Rating: 3.0, Timestamp: 900},
		{MovieID: 1, UserID: 10, Rating: 4.0, Timestamp: 1000},
	}, mv.Ratings)
	assert.Equal(t, []models.Tag{
		{MovieID: 1, UserID: 10, Tag: "pixar", Timestamp: 1500},
		{MovieID: 1, UserID: 11, Tag: "fun", Timestamp: 1500},
	}, mv.Tags)
}

func TestGetMovieWithoutActivity(t *testing.T) {
	r := newSeededRepo(t, 0)
	mv, err := r.GetMovie(context.Background(), 5)
	require.NoError(t, err)

	assert.Empty(t, mv.Details.ReleaseDate)
	assert.Nil(t, mv.Details.Budget)
	assert.NotNil(t, mv.Details.Genres)
	assert.Empty(t, mv.Details.Genres)
	assert.NotNil(t, mv.Ratings)
	assert.Empty(t, mv.Ratings)
	assert.Empty(t, mv.Tags)
}

func TestGetMovieNotFound(t *testing.T) {
	r := newSeededRepo(t, 0)
	_, err := r.GetMovie(context.Background(), 404)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
