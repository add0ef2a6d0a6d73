package dataset

import (
	"context"
	"database/sql"
	"fmt"

	"moviedb/pkg/apperr"
	"moviedb/pkg/database"
)

// Repo removes dataset contributions (ratings and tags). Movies are never
// touched here.
type Repo struct {
	Store *database.Store
}

func NewRepo(s *database.Store) *Repo {
	return &Repo{Store: s}
}

// DeleteUser removes every rating and tag of userID in one transaction and
// reports how many rows went. A user with no rows is not an error.
func (r *Repo) DeleteUser(ctx context.Context, userID int64) (int64, error) {
	var removed int64
	err := r.Store.Write(ctx, func(ctx context.Context, tx *sql.Tx) error {
		removed = 0
		for _, stmt := range []string{
			`DELETE FROM ratings WHERE user_id = ?`,
			`DELETE FROM tags WHERE user_id = ?`,
		} {
			res, err := tx.ExecContext(ctx, stmt, userID)
			if err != nil {
				return fmt.Errorf("delete user %d: %w", userID, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("delete user %d rows: %w", userID, err)
			}
			removed += n
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// DeleteTag removes exactly the tag identified by (movieID, userID,
// timestamp).
func (r *Repo) DeleteTag(ctx context.Context, movieID, userID, timestamp int64) error {
	return r.Store.Write(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			DELETE FROM tags
			WHERE movie_id = ? AND user_id = ? AND timestamp = ?
		`, movieID, userID, timestamp)
		if err != nil {
			return fmt.Errorf("delete tag: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete tag rows: %w", err)
		}
		if n == 0 {
			return apperr.NotFound("delete tag", "no tag for movie %d, user %d at %d", movieID, userID, timestamp)
		}
		return nil
	})
}
