package models

// MovieShort is the search-result projection of a movie.
type MovieShort struct {
	MovieID     int64   `json:"movie_id"`
	TMDBID      int64   `json:"tmdb_id"`
	Title       string  `json:"title"`
	VoteAverage float64 `json:"vote_average"`
	PosterPath  string  `json:"poster_path"`
	Popularity  float64 `json:"popularity"`
}

type MovieDetails struct {
	MovieID      int64    `json:"movie_id"`
	TMDBID       int64    `json:"tmdb_id"`
	Title        string   `json:"title"`
	VoteAverage  float64  `json:"vote_average"`
	VoteCount    int64    `json:"vote_count"`
	Popularity   float64  `json:"popularity"`
	Status       string   `json:"status"`
	ReleaseDate  string   `json:"release_date"` // YYYY-MM-DD, empty when unknown
	Runtime      int      `json:"runtime"`      // minutes
	Adult        bool     `json:"adult"`
	PosterPath   string   `json:"poster_path"`
	BackdropPath string   `json:"backdrop_path"`
	Overview     string   `json:"overview"`
	Genres       []Genre  `json:"genres"`
	Keywords     []string `json:"keywords"`
	Budget       *int64   `json:"budget,omitempty"`
	Revenue      *int64   `json:"revenue,omitempty"`
}

// Short projects the details onto the search-result shape.
func (m MovieDetails) Short() MovieShort {
	return MovieShort{
		MovieID:     m.MovieID,
		TMDBID:      m.TMDBID,
		Title:       m.Title,
		VoteAverage: m.VoteAverage,
		PosterPath:  m.PosterPath,
		Popularity:  m.Popularity,
	}
}

type Rating struct {
	MovieID   int64   `json:"movie_id"`
	UserID    int64   `json:"user_id"`
	Rating    float64 `json:"rating"`
	Timestamp int64   `json:"timestamp"` // unix seconds
}

type Tag struct {
	MovieID   int64  `json:"movie_id"`
	UserID    int64  `json:"user_id"`
	Tag       string `json:"tag"`
	Timestamp int64  `json:"timestamp"` // unix seconds
}

// Movie is the detail view: one movie plus every rating and tag it received.
type Movie struct {
	Details MovieDetails `json:"details"`
	Ratings []Rating     `json:"ratings"`
	Tags    []Tag        `json:"tags"`
}
