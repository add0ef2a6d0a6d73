package models

type GenreCount struct {
	Genre Genre `json:"genre_name"`
	Count int64 `json:"genre_count"`
}

type CountStats struct {
	TotalMovies  int64        `json:"total_movies"`
	TotalUsers   int64        `json:"total_users"`
	TotalRatings int64        `json:"total_ratings"`
	TotalTags    int64        `json:"total_tags"`
	GenreCount   []GenreCount `json:"genre_count"`
}

type TopUser struct {
	UserID     int64 `json:"user_id"`
	NumRatings int64 `json:"num_ratings"`
	NumTags    int64 `json:"num_tags"`
}

type TopMovieProfit struct {
	MovieID    int64  `json:"movie_id"`
	Title      string `json:"title"`
	PosterPath string `json:"poster_path"`
	Profit     int64  `json:"profit"`
}

type Stats struct {
	Count            CountStats       `json:"count"`
	TopUsers         []TopUser        `json:"top_users"`
	TopProfitsMovies []TopMovieProfit `json:"top_profits_movies"`
}
