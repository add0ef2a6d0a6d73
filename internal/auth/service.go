package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"moviedb/pkg/apperr"
	"moviedb/pkg/database"
	"moviedb/pkg/logging"
	"moviedb/pkg/models"
	"moviedb/pkg/validation"
)

// bcrypt ignores input past 72 bytes, so longer passwords are refused
// rather than silently truncated.
const maxPasswordBytes = 72

const invalidCredentials = "invalid username or password"

// Service is the account store: local accounts plus the single current
// session. Session changes happen while holding the store's writer slot so
// they serialize with account writes.
type Service struct {
	Repo     *Repo
	Store    *database.Store
	Sessions *Sessions
	Tokens   TokenService

	cost      int
	dummyHash []byte
	now       func() time.Time
}

func NewService(s *database.Store, tokens TokenService, bcryptCost int) (*Service, error) {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	// compared against when the username is unknown so both failure paths
	// cost one bcrypt comparison
	dummy, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcryptCost)
	if err != nil {
		return nil, err
	}
	return &Service{
		Repo:      NewRepo(s),
		Store:     s,
		Sessions:  &Sessions{},
		Tokens:    tokens,
		cost:      bcryptCost,
		dummyHash: dummy,
		now:       time.Now,
	}, nil
}

type createReq struct {
	Username string `json:"username" validate:"required,username"`
	Password string `json:"password" validate:"required"`
}

func (s *Service) Create(ctx context.Context, username, password string, isAdmin bool) (*models.Account, error) {
	if err := validation.Struct(createReq{Username: username, Password: password}); err != nil {
		return nil, apperr.Validation("create account", "%s", err.Error())
	}
	if len(password) > maxPasswordBytes {
		return nil, apperr.Validation("create account", "password must be at most %d bytes", maxPasswordBytes)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, err
	}

	rec := Record{
		Username:     username,
		PasswordHash: string(hash),
		IsAdmin:      isAdmin,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.Repo.Create(ctx, rec); err != nil {
		return nil, err
	}

	logging.Info().Str("username", username).Bool("admin", isAdmin).Msg("account created")
	a := rec.Account()
	return &a, nil
}

func (s *Service) List(ctx context.Context) ([]models.Account, error) {
	return s.Repo.List(ctx)
}

// Delete removes an account. If it is the one currently logged in, the
// session ends with it.
func (s *Service) Delete(ctx context.Context, username string) error {
	return s.Store.Exclusive(ctx, func(ctx context.Context, w *database.Writer) error {
		if err := s.Repo.Delete(ctx, w, username); err != nil {
			return err
		}
		if s.Sessions.ClearIf(username) {
			logging.Info().Str("username", username).Msg("session ended by account deletion")
		}
		return nil
	})
}

// Login verifies credentials and, on success, replaces the current session.
// A failed attempt leaves any existing session in place. The returned
// session carries a signed token.
func (s *Service) Login(ctx context.Context, username, password string) (*models.Session, error) {
	if username == "" || password == "" {
		return nil, apperr.New(apperr.KindAuthentication, "login", invalidCredentials)
	}

	var sess models.Session
	err := s.Store.Exclusive(ctx, func(ctx context.Context, _ *database.Writer) error {
		rec, err := s.Repo.Get(ctx, username)
		if err != nil {
			return err
		}
		hash := s.dummyHash
		if rec != nil {
			hash = []byte(rec.PasswordHash)
		}
		if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil || rec == nil {
			if err != nil && !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
				logging.Warn().Err(err).Str("username", username).Msg("password check failed")
			}
			return apperr.New(apperr.KindAuthentication, "login", invalidCredentials)
		}

		sess = models.Session{
			ID:        uuid.NewString(),
			Username:  rec.Username,
			IsAdmin:   rec.IsAdmin,
			StartedAt: s.now().UTC(),
		}
		token, _, err := s.Tokens.Sign(sess)
		if err != nil {
			return err
		}
		s.Sessions.Set(sess)
		sess.Token = token
		return nil
	})
	if err != nil {
		return nil, err
	}

	logging.Info().Str("username", sess.Username).Msg("logged in")
	return &sess, nil
}

// Logout ends the current session, if any, and returns it.
func (s *Service) Logout(ctx context.Context) (*models.Session, error) {
	var (
		prev  models.Session
		ended bool
	)
	err := s.Store.Exclusive(ctx, func(context.Context, *database.Writer) error {
		prev, ended = s.Sessions.Clear()
		return nil
	})
	if err != nil || !ended {
		return nil, err
	}
	logging.Info().Str("username", prev.Username).Msg("logged out")
	return &prev, nil
}

func (s *Service) CurrentUsername() (string, bool) {
	sess, ok := s.Sessions.Current()
	return sess.Username, ok
}

func (s *Service) CurrentAccount(ctx context.Context) (*models.Account, error) {
	sess, ok := s.Sessions.Current()
	if !ok {
		return nil, apperr.New(apperr.KindNoSession, "current account", "no user is logged in")
	}
	rec, err := s.Repo.Get(ctx, sess.Username)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, apperr.New(apperr.KindNoSession, "current account", "no user is logged in")
	}
	a := rec.Account()
	return &a, nil
}

// Authorize resolves a bearer token to the current session. The token must
// be valid and name the session that is current right now.
func (s *Service) Authorize(token string) (models.Session, error) {
	if token == "" {
		return models.Session{}, apperr.New(apperr.KindNoSession, "authorize", "login required")
	}
	claims, err := s.Tokens.Parse(token)
	if err != nil {
		return models.Session{}, apperr.New(apperr.KindAuthentication, "authorize", "invalid token")
	}
	sess, ok := s.Sessions.Current()
	if !ok || sess.ID != claims.SessionID {
		return models.Session{}, apperr.New(apperr.KindNoSession, "authorize", "session is no longer active")
	}
	return sess, nil
}

// Bootstrap creates an administrator when no account exists yet. It does
// nothing when password is empty or accounts are already present.
func (s *Service) Bootstrap(ctx context.Context, username, password string) (bool, error) {
	if password == "" {
		return false, nil
	}
	n, err := s.Repo.Count(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	if _, err := s.Create(ctx, username, password, true); err != nil {
		if errors.Is(err, apperr.ErrDuplicateUsername) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
