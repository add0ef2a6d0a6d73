// Package ingesttest seeds a small, fixed catalog for package tests.
//
// Movies (id: title, popularity, release, vote avg/count, genres):
//
//	1: Toy Story     50  1995-10-30  7.9/100  Animation Comedy Family
//	2: Jumanji       30  1995-12-15  7.2/80   Adventure Fantasy Family
//	3: Amélie        20  2001-04-25  7.9/200  Comedy Romance
//	4: The Matrix    80  1999-03-30  8.2/300  Action ScienceFiction
//	5: Unknown Film   1  (none)      0/0      (none)
//	6: toy soldiers   5  1991-04-26  6.0/10   Action Drama
//
// Dataset users 10..14; user 10 has 3 ratings and 2 tags, user 11 has 2
// ratings and 1 tag, users 12 and 13 one rating each, user 14 one tag.
package ingesttest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"moviedb/internal/ingest"
	"moviedb/pkg/database"
	"moviedb/pkg/models"
)

func money(v int64) *int64 { return &v }

func Movies() []models.MovieDetails {
	return []models.MovieDetails{
		{
			MovieID: 1, TMDBID: 862, Title: "Toy Story", VoteAverage: 7.9, VoteCount: 100, Popularity: 50,
			Status: "Released", ReleaseDate: "1995-10-30", Runtime: 81, PosterPath: "/toy.jpg",
			Overview: "Toys come alive.", Keywords: []string{"toy", "friendship"},
			Genres: []models.Genre{models.GenreAnimation, models.GenreComedy, models.GenreFamily},
			Budget: money(30_000_000), Revenue: money(373_554_033),
		},
		{
			MovieID: 2, TMDBID: 8844, Title: "Jumanji", VoteAverage: 7.2, VoteCount: 80, Popularity: 30,
			Status: "Released", ReleaseDate: "1995-12-15", Runtime: 104, PosterPath: "/jumanji.jpg",
			Genres: []models.Genre{models.GenreAdventure, models.GenreFantasy, models.GenreFamily},
			Budget: money(65_000_000), Revenue: money(262_797_249),
		},
		{
			MovieID: 3, TMDBID: 194, Title: "Amélie", VoteAverage: 7.9, VoteCount: 200, Popularity: 20,
			Status: "Released", ReleaseDate: "2001-04-25", Runtime: 122, PosterPath: "/amelie.jpg",
			Genres: []models.Genre{models.GenreComedy, models.GenreRomance},
			Budget: money(10_000_000), Revenue: money(173_921_954),
		},
		{
			MovieID: 4, TMDBID: 603, Title: "The Matrix", VoteAverage: 8.2, VoteCount: 300, Popularity: 80,
			Status: "Released", ReleaseDate: "1999-03-30", Runtime: 136, PosterPath: "/matrix.jpg",
			Genres: []models.Genre{models.GenreAction, models.GenreScienceFiction},
			Budget: money(63_000_000), Revenue: money(463_517_383),
		},
		{
			MovieID: 5, TMDBID: 99999, Title: "Unknown Film", Popularity: 1, Status: "Rumored",
		},
		{
			MovieID: 6, TMDBID: 5000, Title: "toy soldiers", VoteAverage: 6.0, VoteCount: 10, Popularity: 5,
			Status: "Released", ReleaseDate: "1991-04-26", Runtime: 112,
			Genres:  []models.Genre{models.GenreAction, models.GenreDrama},
			Revenue: money(54_000_000),
		},
	}
}

func Ratings() []models.Rating {
	return []models.Rating{
		{MovieID: 1, UserID: 10, Rating: 4.0, Timestamp: 1000},
		{MovieID: 1, UserID: 11, Rating: 5.0, Timestamp: 900},
		{MovieID: 1, UserID: 12, Rating: 3.0, Timestamp: 900},
		{MovieID: 2, UserID: 10, Rating: 3.5, Timestamp: 1100},
		{MovieID: 3, UserID: 11, Rating: 4.5, Timestamp: 1200},
		{MovieID: 4, UserID: 10, Rating: 5.0, Timestamp: 1300},
		{MovieID: 4, UserID: 13, Rating: 2.0, Timestamp: 1400},
	}
}

func Tags() []models.Tag {
	return []models.Tag{
		{MovieID: 1, UserID: 10, Tag: "pixar", Timestamp: 1500},
		{MovieID: 1, UserID: 11, Tag: "fun", Timestamp: 1500},
		{MovieID: 4, UserID: 10, Tag: "cyberpunk", Timestamp: 1600},
		{MovieID: 3, UserID: 14, Tag: "paris", Timestamp: 1700},
	}
}

// Seed loads the fixture catalog into s.
func Seed(t testing.TB, s *database.Store) {
	t.Helper()
	ctx := context.Background()
	l := ingest.NewLoader(s)

	require.NoError(t, l.UpsertMovies(ctx, Movies()))
	_, skipped, err := l.UpsertRatings(ctx, Ratings())
	require.NoError(t, err)
	require.Zero(t, skipped)
	_, skipped, err = l.UpsertTags(ctx, Tags())
	require.NoError(t, err)
	require.Zero(t, skipped)
}
