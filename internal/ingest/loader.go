package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"moviedb/pkg/database"
	"moviedb/pkg/models"
)

// batchSize bounds how many rows share one write transaction so the writer
// slot is released regularly during a large import.
const batchSize = 500

// Loader writes dataset rows into the store. It is the only writer of
// movies; commands never create or modify them.
type Loader struct {
	Store *database.Store
}

func NewLoader(s *database.Store) *Loader {
	return &Loader{Store: s}
}

// UpsertMovies inserts or replaces movies together with their genre links.
func (l *Loader) UpsertMovies(ctx context.Context, movies []models.MovieDetails) error {
	for start := 0; start < len(movies); start += batchSize {
		batch := movies[start:min(start+batchSize, len(movies))]
		err := l.Store.Write(ctx, func(ctx context.Context, tx *sql.Tx) error {
			for _, m := range batch {
				if err := upsertMovie(ctx, tx, m); err != nil {
					return fmt.Errorf("upsert movie %d: %w", m.MovieID, err)
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func upsertMovie(ctx context.Context, tx *sql.Tx, m models.MovieDetails) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO movies (
			movie_id, tmdb_id, title, vote_average, vote_count, popularity, status,
			release_date, runtime, adult, poster_path, backdrop_path, overview,
			keywords, budget, revenue
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(movie_id) DO UPDATE SET
			tmdb_id = excluded.tmdb_id,
			title = excluded.title,
			vote_average = excluded.vote_average,
			vote_count = excluded.vote_count,
			popularity = excluded.popularity,
			status = excluded.status,
			release_date = excluded.release_date,
			runtime = excluded.runtime,
			adult = excluded.adult,
			poster_path = excluded.poster_path,
			backdrop_path = excluded.backdrop_path,
			overview = excluded.overview,
			keywords = excluded.keywords,
			budget = excluded.budget,
			revenue = excluded.revenue
	`,
		m.MovieID, m.TMDBID, m.Title, m.VoteAverage, m.VoteCount, m.Popularity, m.Status,
		nullString(m.ReleaseDate), m.Runtime, m.Adult, m.PosterPath, m.BackdropPath, m.Overview,
		strings.Join(m.Keywords, ","), nullInt(m.Budget), nullInt(m.Revenue),
	); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM movie_genres WHERE movie_id = ?`, m.MovieID); err != nil {
		return err
	}
	seen := make(map[models.Genre]bool, len(m.Genres))
	pos := 0
	for _, g := range m.Genres {
		if !g.Valid() || seen[g] {
			continue
		}
		seen[g] = true
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO movie_genres (movie_id, genre, position) VALUES (?, ?, ?)
		`, m.MovieID, string(g), pos); err != nil {
			return err
		}
		pos++
	}
	return nil
}

// UpsertRatings writes ratings, replacing any earlier rating by the same
// user for the same movie. Ratings of movies that are not in the store are
// skipped and counted.
func (l *Loader) UpsertRatings(ctx context.Context, ratings []models.Rating) (written, skipped int, err error) {
	for start := 0; start < len(ratings); start += batchSize {
		batch := ratings[start:min(start+batchSize, len(ratings))]
		var w int
		err := l.Store.Write(ctx, func(ctx context.Context, tx *sql.Tx) error {
			w = 0
			stmt, err := tx.PrepareContext(ctx, `
				INSERT INTO ratings (movie_id, user_id, rating, timestamp)
				SELECT ?, ?, ?, ?
				WHERE EXISTS (SELECT 1 FROM movies WHERE movie_id = ?)
				ON CONFLICT(movie_id, user_id) DO UPDATE SET
					rating = excluded.rating,
					timestamp = excluded.timestamp
			`)
			if err != nil {
				return fmt.Errorf("prepare rating upsert: %w", err)
			}
			defer stmt.Close()

			for _, r := range batch {
				res, err := stmt.ExecContext(ctx, r.MovieID, r.UserID, r.Rating, r.Timestamp, r.MovieID)
				if err != nil {
					return fmt.Errorf("upsert rating %d/%d: %w", r.MovieID, r.UserID, err)
				}
				if n, _ := res.RowsAffected(); n > 0 {
					w++
				}
			}
			return nil
		})
		if err != nil {
			return written, skipped, err
		}
		written += w
		skipped += len(batch) - w
	}
	return written, skipped, nil
}

// UpsertTags writes tags keyed by (movie, user, timestamp); a repeated key
// replaces the text. Tags of unknown movies are skipped and counted.
func (l *Loader) UpsertTags(ctx context.Context, tags []models.Tag) (written, skipped int, err error) {
	for start := 0; start < len(tags); start += batchSize {
		batch := tags[start:min(start+batchSize, len(tags))]
		var w int
		err := l.Store.Write(ctx, func(ctx context.Context, tx *sql.Tx) error {
			w = 0
			stmt, err := tx.PrepareContext(ctx, `
				INSERT INTO tags (movie_id, user_id, tag, timestamp)
				SELECT ?, ?, ?, ?
				WHERE EXISTS (SELECT 1 FROM movies WHERE movie_id = ?)
				ON CONFLICT(movie_id, user_id, timestamp) DO UPDATE SET
					tag = excluded.tag
			`)
			if err != nil {
				return fmt.Errorf("prepare tag upsert: %w", err)
			}
			defer stmt.Close()

			for _, t := range batch {
				res, err := stmt.ExecContext(ctx, t.MovieID, t.UserID, t.Tag, t.Timestamp, t.MovieID)
				if err != nil {
					return fmt.Errorf("upsert tag %d/%d/%d: %w", t.MovieID, t.UserID, t.Timestamp, err)
				}
				if n, _ := res.RowsAffected(); n > 0 {
					w++
				}
			}
			return nil
		})
		if err != nil {
			return written, skipped, err
		}
		written += w
		skipped += len(batch) - w
	}
	return written, skipped, nil
}

func nullString(raw string) sql.NullString {
	if raw == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: raw, Valid: true}
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
