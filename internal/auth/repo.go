package auth

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"moviedb/pkg/apperr"
	"moviedb/pkg/database"
	"moviedb/pkg/models"
)

// Record is an account row including its password hash. It never leaves
// this package; callers see models.Account.
type Record struct {
	Username     string
	PasswordHash string
	IsAdmin      bool
	CreatedAt    time.Time
}

func (r Record) Account() models.Account {
	return models.Account{Username: r.Username, IsAdmin: r.IsAdmin, CreatedAt: r.CreatedAt}
}

type Repo struct {
	Store *database.Store
}

func NewRepo(s *database.Store) *Repo {
	return &Repo{Store: s}
}

func (r *Repo) Create(ctx context.Context, rec Record) error {
	return r.Store.Write(ctx, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO accounts (username, password_hash, is_admin, created_at)
			VALUES (?, ?, ?, ?)
		`, rec.Username, rec.PasswordHash, rec.IsAdmin, rec.CreatedAt.UTC())
		if err != nil {
			if database.IsUniqueViolation(err) {
				return apperr.New(apperr.KindDuplicateUsername, "create account", "username %q already exists", rec.Username)
			}
			return fmt.Errorf("create account: %w", err)
		}
		return nil
	})
}

// Delete removes username. The caller holds the writer slot through w.
func (r *Repo) Delete(ctx context.Context, w *database.Writer, username string) error {
	return w.Tx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM accounts WHERE username = ?`, username)
		if err != nil {
			return fmt.Errorf("delete account: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete account rows: %w", err)
		}
		if n == 0 {
			return apperr.NotFound("delete account", "account %q not found", username)
		}
		return nil
	})
}

// Get returns nil, nil when username does not exist.
func (r *Repo) Get(ctx context.Context, username string) (*Record, error) {
	var (
		rec   Record
		found bool
	)
	err := r.Store.Read(ctx, func(ctx context.Context, tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `
			SELECT username, password_hash, is_admin, created_at
			FROM accounts
			WHERE username = ?
		`, username)
		if err := row.Scan(&rec.Username, &rec.PasswordHash, &rec.IsAdmin, &rec.CreatedAt); err != nil {
			if err == sql.ErrNoRows {
				return nil
			}
			return fmt.Errorf("get account: %w", err)
		}
		found = true
		return nil
	})
	if err != nil || !found {
		return nil, err
	}
	return &rec, nil
}

// List returns every account oldest first, insertion order on ties.
func (r *Repo) List(ctx context.Context) ([]models.Account, error) {
	out := make([]models.Account, 0)
	err := r.Store.Read(ctx, func(ctx context.Context, tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			SELECT username, is_admin, created_at
			FROM accounts
			ORDER BY created_at ASC, rowid ASC
		`)
		if err != nil {
			return fmt.Errorf("list accounts: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var a models.Account
			if err := rows.Scan(&a.Username, &a.IsAdmin, &a.CreatedAt); err != nil {
				return fmt.Errorf("list accounts scan: %w", err)
			}
			out = append(out, a)
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

func (r *Repo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.Store.Read(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&n); err != nil {
			return fmt.Errorf("count accounts: %w", err)
		}
		return nil
	})
	return n, err
}
