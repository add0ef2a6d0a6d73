package models

import "strings"

type Genre string

const (
	GenreAction         Genre = "Action"
	GenreAdventure      Genre = "Adventure"
	GenreAnimation      Genre = "Animation"
	GenreComedy         Genre = "Comedy"
	GenreCrime          Genre = "Crime"
	GenreDocumentary    Genre = "Documentary"
	GenreDrama          Genre = "Drama"
	GenreFamily         Genre = "Family"
	GenreFantasy        Genre = "Fantasy"
	GenreHistory        Genre = "History"
	GenreHorror         Genre = "Horror"
	GenreMusic          Genre = "Music"
	GenreMystery        Genre = "Mystery"
	GenreRomance        Genre = "Romance"
	GenreScienceFiction Genre = "ScienceFiction"
	GenreThriller       Genre = "Thriller"
	GenreTVMovie        Genre = "TVMovie"
	GenreWar            Genre = "War"
	GenreWestern        Genre = "Western"
)

// GenreAll is accepted by search in place of an empty genre.
const GenreAll = "All"

var genres = []Genre{
	GenreAction, GenreAdventure, GenreAnimation, GenreComedy, GenreCrime,
	GenreDocumentary, GenreDrama, GenreFamily, GenreFantasy, GenreHistory,
	GenreHorror, GenreMusic, GenreMystery, GenreRomance, GenreScienceFiction,
	GenreThriller, GenreTVMovie, GenreWar, GenreWestern,
}

// Genres returns the fixed vocabulary in its canonical order.
func Genres() []Genre {
	return append([]Genre(nil), genres...)
}

func (g Genre) Valid() bool {
	for _, v := range genres {
		if v == g {
			return true
		}
	}
	return false
}

// ParseGenre accepts a vocabulary name exactly as transmitted by callers.
func ParseGenre(s string) (Genre, bool) {
	g := Genre(s)
	return g, g.Valid()
}

// ParseGenreLabel maps either a vocabulary name or a TMDB label
// ("Science Fiction") onto the vocabulary, ignoring case and spacing.
func ParseGenreLabel(s string) (Genre, bool) {
	key := strings.ToLower(strings.Join(strings.Fields(s), ""))
	if key == "" {
		return "", false
	}
	for _, g := range genres {
		if strings.ToLower(string(g)) == key {
			return g, true
		}
	}
	return "", false
}
