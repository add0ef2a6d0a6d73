// Package commands is the single entry point for the fixed command surface.
// Each command name maps to exactly one component operation, with its
// parameters decoded and validated and its access level enforced before any
// store access.
package commands

import (
	"context"
	"errors"
	"sort"
	"time"

	"moviedb/internal/auth"
	"moviedb/internal/dataset"
	"moviedb/internal/events"
	"moviedb/internal/metrics"
	"moviedb/internal/movies"
	"moviedb/internal/stats"
	"moviedb/pkg/apperr"
	"moviedb/pkg/logging"
	"moviedb/pkg/models"
)

const (
	GetAllMovies        = "get_all_movies"
	GetMovie            = "get_movie"
	GetCountStats       = "get_count_stats"
	CreateSQLUser       = "create_sql_user"
	GetSQLUsers         = "get_sql_users"
	DeleteSQLUser       = "delete_sql_user"
	DeleteMovieLensUser = "delete_movie_lens_user"
	DeleteMovieLensTag  = "delete_movie_lens_tag"
	LoginUser           = "login_user"
	LogoutUser          = "logout_user"
	GetLoggedUsername   = "get_logged_username"
	GetCurrentUser      = "get_current_user"
)

type Access int

const (
	Public Access = iota
	SessionRequired
	AdminRequired
)

func (a Access) String() string {
	switch a {
	case Public:
		return "public"
	case SessionRequired:
		return "session"
	case AdminRequired:
		return "admin"
	default:
		return "unknown"
	}
}

type Services struct {
	Movies  *movies.Repo
	Stats   *stats.Repo
	Auth    *auth.Service
	Dataset *dataset.Repo
	Events  events.Publisher
}

// caller is the authorized session, nil for public commands.
type handlerFunc func(ctx context.Context, caller *models.Session, params []byte) (any, error)

type command struct {
	access Access
	run    handlerFunc
}

type Dispatcher struct {
	svc      Services
	commands map[string]command
}

func NewDispatcher(svc Services) *Dispatcher {
	if svc.Events == nil {
		svc.Events = events.Discard
	}
	d := &Dispatcher{svc: svc}
	d.commands = map[string]command{
		GetAllMovies:        {SessionRequired, d.getAllMovies},
		GetMovie:            {SessionRequired, d.getMovie},
		GetCountStats:       {SessionRequired, d.getCountStats},
		GetCurrentUser:      {SessionRequired, d.getCurrentUser},
		CreateSQLUser:       {AdminRequired, d.createSQLUser},
		GetSQLUsers:         {AdminRequired, d.getSQLUsers},
		DeleteSQLUser:       {AdminRequired, d.deleteSQLUser},
		DeleteMovieLensUser: {AdminRequired, d.deleteMovieLensUser},
		DeleteMovieLensTag:  {AdminRequired, d.deleteMovieLensTag},
		LoginUser:           {Public, d.loginUser},
		LogoutUser:          {Public, d.logoutUser},
		GetLoggedUsername:   {Public, d.getLoggedUsername},
	}
	return d
}

// Commands lists every command name with its access level.
func (d *Dispatcher) Commands() map[string]Access {
	out := make(map[string]Access, len(d.commands))
	for name, c := range d.commands {
		out[name] = c.access
	}
	return out
}

// Names lists command names in lexical order.
func (d *Dispatcher) Names() []string {
	out := make([]string, 0, len(d.commands))
	for name := range d.commands {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Dispatch runs the named command. The caller's bearer token, if any, is
// read from ctx (see auth.WithToken).
func (d *Dispatcher) Dispatch(ctx context.Context, name string, params []byte) (any, error) {
	start := time.Now()
	res, err := d.dispatch(ctx, name, params)

	outcome := "ok"
	if err != nil {
		outcome = string(apperr.KindOf(err))
	}
	if _, known := d.commands[name]; known {
		metrics.RecordCommand(name, outcome, time.Since(start))
	}

	switch {
	case err == nil:
		logging.Debug().Str("command", name).Dur("took", time.Since(start)).Msg("command ok")
	case apperr.KindOf(err) == apperr.KindInternal:
		logging.Error().Err(err).Str("command", name).Msg("command failed")
	default:
		logging.Debug().Err(err).Str("command", name).Str("kind", outcome).Msg("command rejected")
	}
	return res, err
}

func (d *Dispatcher) dispatch(ctx context.Context, name string, params []byte) (any, error) {
	c, ok := d.commands[name]
	if !ok {
		return nil, apperr.Validation("dispatch", "unknown command %q", name)
	}

	var caller *models.Session
	if c.access >= SessionRequired {
		sess, err := d.svc.Auth.Authorize(auth.TokenFromContext(ctx))
		if err != nil {
			return nil, err
		}
		if c.access == AdminRequired && !sess.IsAdmin {
			return nil, apperr.New(apperr.KindPermissionDenied, name, "administrator role required")
		}
		caller = &sess
	}
	return c.run(ctx, caller, params)
}

func (d *Dispatcher) publish(e events.Event) {
	metrics.RecordEvent(e.Type)
	d.svc.Events.Publish(e)
}

func actor(caller *models.Session) string {
	if caller == nil {
		return ""
	}
	return caller.Username
}

func (d *Dispatcher) getAllMovies(ctx context.Context, _ *models.Session, params []byte) (any, error) {
	var p getAllMoviesParams
	if err := decode(GetAllMovies, params, &p); err != nil {
		return nil, err
	}
	q := movies.SearchQuery{Genre: p.Genre, Query: p.Query}
	if p.Filter != nil {
		q.Filter = *p.Filter
	}
	return d.svc.Movies.Search(ctx, q)
}

func (d *Dispatcher) getMovie(ctx context.Context, _ *models.Session, params []byte) (any, error) {
	var p getMovieParams
	if err := decode(GetMovie, params, &p); err != nil {
		return nil, err
	}
	id, err := requireID(GetMovie, "id", p.ID)
	if err != nil {
		return nil, err
	}
	return d.svc.Movies.GetMovie(ctx, id)
}

func (d *Dispatcher) getCountStats(ctx context.Context, _ *models.Session, _ []byte) (any, error) {
	return d.svc.Stats.Get(ctx)
}

func (d *Dispatcher) getCurrentUser(ctx context.Context, _ *models.Session, _ []byte) (any, error) {
	return d.svc.Auth.CurrentAccount(ctx)
}

func (d *Dispatcher) createSQLUser(ctx context.Context, caller *models.Session, params []byte) (any, error) {
	var p createUserParams
	if err := decode(CreateSQLUser, params, &p); err != nil {
		return nil, err
	}
	a, err := d.svc.Auth.Create(ctx, p.Username, p.Password, p.IsAdmin)
	if err != nil {
		return nil, err
	}
	d.publish(events.Event{Type: events.AccountCreated, Actor: actor(caller), Username: a.Username})
	return a, nil
}

func (d *Dispatcher) getSQLUsers(ctx context.Context, _ *models.Session, _ []byte) (any, error) {
	return d.svc.Auth.List(ctx)
}

func (d *Dispatcher) deleteSQLUser(ctx context.Context, caller *models.Session, params []byte) (any, error) {
	var p deleteUserParams
	if err := decode(DeleteSQLUser, params, &p); err != nil {
		return nil, err
	}
	if err := d.svc.Auth.Delete(ctx, p.Username); err != nil {
		return nil, err
	}
	d.publish(events.Event{Type: events.AccountDeleted, Actor: actor(caller), Username: p.Username})
	return true, nil
}

func (d *Dispatcher) deleteMovieLensUser(ctx context.Context, caller *models.Session, params []byte) (any, error) {
	var p deleteDatasetUserParams
	if err := decode(DeleteMovieLensUser, params, &p); err != nil {
		return nil, err
	}
	userID, err := requireID(DeleteMovieLensUser, "id", p.ID)
	if err != nil {
		return nil, err
	}
	removed, err := d.svc.Dataset.DeleteUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	d.publish(events.Event{Type: events.DatasetUserDeleted, Actor: actor(caller), UserID: userID, Removed: removed})
	return map[string]int64{"removed": removed}, nil
}

func (d *Dispatcher) deleteMovieLensTag(ctx context.Context, caller *models.Session, params []byte) (any, error) {
	var p deleteTagParams
	if err := decode(DeleteMovieLensTag, params, &p); err != nil {
		return nil, err
	}
	movieID, err := requireID(DeleteMovieLensTag, "movieId", p.MovieID)
	if err != nil {
		return nil, err
	}
	userID, err := requireID(DeleteMovieLensTag, "userId", p.UserID)
	if err != nil {
		return nil, err
	}
	if err := d.svc.Dataset.DeleteTag(ctx, movieID, userID, *p.Timestamp); err != nil {
		return nil, err
	}
	d.publish(events.Event{
		Type: events.DatasetTagDeleted, Actor: actor(caller),
		MovieID: movieID, UserID: userID, Timestamp: *p.Timestamp,
	})
	return true, nil
}

func (d *Dispatcher) loginUser(ctx context.Context, _ *models.Session, params []byte) (any, error) {
	var p loginParams
	if err := decode(LoginUser, params, &p); err != nil {
		return nil, err
	}
	sess, err := d.svc.Auth.Login(ctx, p.User.Username, p.User.Password)
	if err != nil {
		return nil, err
	}
	d.publish(events.Event{Type: events.SessionLogin, Actor: sess.Username, Username: sess.Username})
	return sess, nil
}

func (d *Dispatcher) logoutUser(ctx context.Context, _ *models.Session, _ []byte) (any, error) {
	ended, err := d.svc.Auth.Logout(ctx)
	if err != nil {
		return nil, err
	}
	if ended != nil {
		d.publish(events.Event{Type: events.SessionLogout, Actor: ended.Username, Username: ended.Username})
	}
	return true, nil
}

func (d *Dispatcher) getLoggedUsername(_ context.Context, _ *models.Session, _ []byte) (any, error) {
	name, ok := d.svc.Auth.CurrentUsername()
	if !ok {
		return nil, nil
	}
	return name, nil
}

// IsUnknownCommand reports whether err came from an unrecognised name.
func IsUnknownCommand(err error) bool {
	var ae *apperr.Error
	return errors.As(err, &ae) && ae.Op == "dispatch" && ae.Kind == apperr.KindValidation
}
