package stats

import (
	"context"
	"database/sql"
	"fmt"

	"moviedb/pkg/database"
	"moviedb/pkg/models"
)

type Repo struct {
	Store           *database.Store
	TopUsers        int
	TopProfitMovies int
}

func NewRepo(s *database.Store, topUsers, topProfitMovies int) *Repo {
	if topUsers <= 0 {
		topUsers = 5
	}
	if topProfitMovies <= 0 {
		topProfitMovies = 5
	}
	return &Repo{Store: s, TopUsers: topUsers, TopProfitMovies: topProfitMovies}
}

// Get computes corpus-wide statistics from a single read snapshot.
func (r *Repo) Get(ctx context.Context) (*models.Stats, error) {
	var st models.Stats
	err := r.Store.Read(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		if st.Count, err = counts(ctx, tx); err != nil {
			return err
		}
		if st.TopUsers, err = topUsers(ctx, tx, r.TopUsers); err != nil {
			return err
		}
		if st.TopProfitsMovies, err = topProfits(ctx, tx, r.TopProfitMovies); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func counts(ctx context.Context, tx *sql.Tx) (models.CountStats, error) {
	var c models.CountStats
	row := tx.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM movies),
			(SELECT COUNT(*) FROM (SELECT user_id FROM ratings UNION SELECT user_id FROM tags)),
			(SELECT COUNT(*) FROM ratings),
			(SELECT COUNT(*) FROM tags)
	`)
	if err := row.Scan(&c.TotalMovies, &c.TotalUsers, &c.TotalRatings, &c.TotalTags); err != nil {
		return c, fmt.Errorf("scan totals: %w", err)
	}

	rows, err := tx.QueryContext(ctx, `SELECT genre, COUNT(*) FROM movie_genres GROUP BY genre`)
	if err != nil {
		return c, fmt.Errorf("genre count query: %w", err)
	}
	defer rows.Close()

	byGenre := make(map[models.Genre]int64)
	for rows.Next() {
		var (
			g string
			n int64
		)
		if err := rows.Scan(&g, &n); err != nil {
			return c, fmt.Errorf("genre count scan: %w", err)
		}
		byGenre[models.Genre(g)] = n
	}
	if err := rows.Err(); err != nil {
		return c, fmt.Errorf("genre count rows: %w", err)
	}

	// every vocabulary entry, in vocabulary order, zero when unused
	for _, g := range models.Genres() {
		c.GenreCount = append(c.GenreCount, models.GenreCount{Genre: g, Count: byGenre[g]})
	}
	return c, nil
}

func topUsers(ctx context.Context, tx *sql.Tx, limit int) ([]models.TopUser, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT user_id, SUM(num_ratings), SUM(num_tags)
		FROM (
			SELECT user_id, COUNT(*) AS num_ratings, 0 AS num_tags FROM ratings GROUP BY user_id
			UNION ALL
			SELECT user_id, 0, COUNT(*) FROM tags GROUP BY user_id
		)
		GROUP BY user_id
		ORDER BY SUM(num_ratings) + SUM(num_tags) DESC, user_id ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("top users query: %w", err)
	}
	defer rows.Close()

	out := make([]models.TopUser, 0, limit)
	for rows.Next() {
		var u models.TopUser
		if err := rows.Scan(&u.UserID, &u.NumRatings, &u.NumTags); err != nil {
			return nil, fmt.Errorf("top users scan: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("top users rows: %w", err)
	}
	return out, nil
}

func topProfits(ctx context.Context, tx *sql.Tx, limit int) ([]models.TopMovieProfit, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT movie_id, title, poster_path, revenue - budget AS profit
		FROM movies
		WHERE budget IS NOT NULL AND revenue IS NOT NULL
		  AND budget >= 0 AND revenue >= 0
		ORDER BY profit DESC, movie_id ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("top profits query: %w", err)
	}
	defer rows.Close()

	out := make([]models.TopMovieProfit, 0, limit)
	for rows.Next() {
		var m models.TopMovieProfit
		if err := rows.Scan(&m.MovieID, &m.Title, &m.PosterPath, &m.Profit); err != nil {
			return nil, fmt.Errorf("top profits scan: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("top profits rows: %w", err)
	}
	return out, nil
}
