package ingest

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"moviedb/pkg/logging"
)

// ExportRatings writes every stored rating as a MovieLens ratings.csv,
// ordered by user then movie. It returns the number of rows written.
func (l *Loader) ExportRatings(ctx context.Context, out io.Writer) (int, error) {
	w := csv.NewWriter(out)
	if err := w.Write([]string{"userId", "movieId", "rating", "timestamp"}); err != nil {
		return 0, err
	}

	n := 0
	err := l.Store.Read(ctx, func(ctx context.Context, tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			SELECT user_id, movie_id, rating, timestamp
			FROM ratings
			ORDER BY user_id, movie_id
		`)
		if err != nil {
			return fmt.Errorf("query ratings: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var (
				userID, movieID, ts int64
				rating              float64
			)
			if err := rows.Scan(&userID, &movieID, &rating, &ts); err != nil {
				return err
			}
			if err := w.Write([]string{
				strconv.FormatInt(userID, 10),
				strconv.FormatInt(movieID, 10),
				strconv.FormatFloat(rating, 'f', 1, 64),
				strconv.FormatInt(ts, 10),
			}); err != nil {
				return err
			}
			n++
		}
		return rows.Err()
	})
	if err != nil {
		return 0, err
	}

	w.Flush()
	return n, w.Error()
}

// ExportTags writes every stored tag as a MovieLens tags.csv, ordered by
// user, movie then timestamp.
func (l *Loader) ExportTags(ctx context.Context, out io.Writer) (int, error) {
	w := csv.NewWriter(out)
	if err := w.Write([]string{"userId", "movieId", "tag", "timestamp"}); err != nil {
		return 0, err
	}

	n := 0
	err := l.Store.Read(ctx, func(ctx context.Context, tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			SELECT user_id, movie_id, tag, timestamp
			FROM tags
			ORDER BY user_id, movie_id, timestamp
		`)
		if err != nil {
			return fmt.Errorf("query tags: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var (
				userID, movieID, ts int64
				tag                 string
			)
			if err := rows.Scan(&userID, &movieID, &tag, &ts); err != nil {
				return err
			}
			if err := w.Write([]string{
				strconv.FormatInt(userID, 10),
				strconv.FormatInt(movieID, 10),
				tag,
				strconv.FormatInt(ts, 10),
			}); err != nil {
				return err
			}
			n++
		}
		return rows.Err()
	})
	if err != nil {
		return 0, err
	}

	w.Flush()
	return n, w.Error()
}

// Export writes the ratings and tags files named in files. Other fields
// are ignored, as are empty paths.
func (l *Loader) Export(ctx context.Context, files Files) (Report, error) {
	var rep Report
	var err error
	if files.Ratings != "" {
		if rep.Ratings, err = writeFile(files.Ratings, func(w io.Writer) (int, error) {
			return l.ExportRatings(ctx, w)
		}); err != nil {
			return rep, fmt.Errorf("export ratings: %w", err)
		}
	}
	if files.Tags != "" {
		if rep.Tags, err = writeFile(files.Tags, func(w io.Writer) (int, error) {
			return l.ExportTags(ctx, w)
		}); err != nil {
			return rep, fmt.Errorf("export tags: %w", err)
		}
	}
	log := logging.With("ingest")
	log.Info().Int("ratings", rep.Ratings).Int("tags", rep.Tags).Msg("export finished")
	return rep, nil
}

func writeFile(path string, fn func(io.Writer) (int, error)) (int, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, err
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	n, err := fn(f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return n, err
}
