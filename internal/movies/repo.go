package movies

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"moviedb/pkg/apperr"
	"moviedb/pkg/database"
	"moviedb/pkg/models"
)

type Repo struct {
	Store *database.Store
	// MaxResults caps Search output; 0 means unbounded.
	MaxResults int
}

type SearchQuery struct {
	Genre  string // vocabulary name, "" or "All" for any
	Query  string // case-insensitive title substring
	Filter models.SortFilter
}

func NewRepo(s *database.Store, maxResults int) *Repo {
	return &Repo{Store: s, MaxResults: maxResults}
}

// Search returns the short form of every movie matching q, in the order
// q.Filter selects.
func (r *Repo) Search(ctx context.Context, q SearchQuery) ([]models.MovieShort, error) {
	sqlStr, args, err := buildSearchSQL(q, r.MaxResults)
	if err != nil {
		return nil, err
	}

	out := make([]models.MovieShort, 0)
	err = r.Store.Read(ctx, func(ctx context.Context, tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, sqlStr, args...)
		if err != nil {
			return fmt.Errorf("search query: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var (
				m      models.MovieShort
				poster sql.NullString
			)
			if err := rows.Scan(&m.MovieID, &m.TMDBID, &m.Title, &m.VoteAverage, &poster, &m.Popularity); err != nil {
				return fmt.Errorf("search scan: %w", err)
			}
			m.PosterPath = poster.String
			out = append(out, m)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("rows err: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

var orderBy = map[models.SortFilter]string{
	models.FilterNone:         "m.movie_id ASC",
	models.FilterAlphabetical: "fold(m.title) ASC, m.title ASC, m.movie_id ASC",
	models.FilterPopular:      "m.popularity DESC, m.movie_id ASC",
	models.FilterLatest:       "m.release_date IS NULL, m.release_date DESC, m.movie_id ASC",
	models.FilterTopRated:     "m.vote_average DESC, m.vote_count DESC, m.movie_id ASC",
}

// buildSearchSQL validates q and renders the search statement.
func buildSearchSQL(q SearchQuery, limit int) (string, []any, error) {
	order, ok := orderBy[q.Filter]
	if !ok {
		return "", nil, apperr.Validation("search", "unknown filter %d", int(q.Filter))
	}

	var where []string
	var args []any

	if g := strings.TrimSpace(q.Genre); g != "" && g != models.GenreAll {
		genre, ok := models.ParseGenre(g)
		if !ok {
			return "", nil, apperr.Validation("search", "unknown genre %q", g)
		}
		where = append(where, "EXISTS (SELECT 1 FROM movie_genres mg WHERE mg.movie_id = m.movie_id AND mg.genre = ?)")
		args = append(args, string(genre))
	}

	if q.Query != "" {
		where = append(where, "instr(fold(m.title), ?) > 0")
		args = append(args, strings.ToLower(q.Query))
	}

	sqlStr := `
		SELECT m.movie_id, m.tmdb_id, m.title, m.vote_average, m.poster_path, m.popularity
		FROM movies m
	`
	if len(where) > 0 {
		sqlStr += " WHERE " + strings.Join(where, " AND ")
	}
	sqlStr += " ORDER BY " + order
	if limit > 0 {
		sqlStr += " LIMIT ?"
		args = append(args, limit)
	}
	return sqlStr, args, nil
}

// GetMovie loads one movie with its ratings and tags from a single snapshot.
func (r *Repo) GetMovie(ctx context.Context, id int64) (*models.Movie, error) {
	var mv models.Movie
	err := r.Store.Read(ctx, func(ctx context.Context, tx *sql.Tx) error {
		details, err := getDetails(ctx, tx, id)
		if err != nil {
			return err
		}
		mv.Details = *details

		if mv.Ratings, err = listRatings(ctx, tx, id); err != nil {
			return err
		}
		if mv.Tags, err = listTags(ctx, tx, id); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &mv, nil
}

func getDetails(ctx context.Context, tx *sql.Tx, id int64) (*models.MovieDetails, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT movie_id, tmdb_id, title, vote_average, vote_count, popularity, status,
		       release_date, runtime, adult, poster_path, backdrop_path, overview,
		       keywords, budget, revenue
		FROM movies
		WHERE movie_id = ?
	`, id)

	var (
		m        models.MovieDetails
		release  sql.NullString
		keywords string
		budget   sql.NullInt64
		revenue  sql.NullInt64
	)
	if err := row.Scan(
		&m.MovieID, &m.TMDBID, &m.Title, &m.VoteAverage, &m.VoteCount, &m.Popularity, &m.Status,
		&release, &m.Runtime, &m.Adult, &m.PosterPath, &m.BackdropPath, &m.Overview,
		&keywords, &budget, &revenue,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, apperr.NotFound("get movie", "movie %d not found", id)
		}
		return nil, fmt.Errorf("scan movie: %w", err)
	}

	m.ReleaseDate = release.String
	m.Keywords = splitKeywords(keywords)
	if budget.Valid {
		m.Budget = &budget.Int64
	}
	if revenue.Valid {
		m.Revenue = &revenue.Int64
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT genre FROM movie_genres WHERE movie_id = ? ORDER BY position
	`, id)
	if err != nil {
		return nil, fmt.Errorf("genres query: %w", err)
	}
	defer rows.Close()

	m.Genres = make([]models.Genre, 0)
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, fmt.Errorf("genres scan: %w", err)
		}
		m.Genres = append(m.Genres, models.Genre(g))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("genres rows: %w", err)
	}
	return &m, nil
}

func listRatings(ctx context.Context, tx *sql.Tx, id int64) ([]models.Rating, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT movie_id, user_id, rating, timestamp
		FROM ratings
		WHERE movie_id = ?
		ORDER BY timestamp ASC, user_id ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("ratings query: %w", err)
	}
	defer rows.Close()

	out := make([]models.Rating, 0)
	for rows.Next() {
		var r models.Rating
		if err := rows.Scan(&r.MovieID, &r.UserID, &r.Rating, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("ratings scan: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ratings rows: %w", err)
	}
	return out, nil
}

func listTags(ctx context.Context, tx *sql.Tx, id int64) ([]models.Tag, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT movie_id, user_id, tag, timestamp
		FROM tags
		WHERE movie_id = ?
		ORDER BY timestamp ASC, user_id ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("tags query: %w", err)
	}
	defer rows.Close()

	out := make([]models.Tag, 0)
	for rows.Next() {
		var t models.Tag
		if err := rows.Scan(&t.MovieID, &t.UserID, &t.Tag, &t.Timestamp); err != nil {
			return nil, fmt.Errorf("tags scan: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("tags rows: %w", err)
	}
	return out, nil
}

func splitKeywords(raw string) []string {
	out := make([]string, 0)
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}
