package commands

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"moviedb/internal/auth"
	"moviedb/internal/dataset"
	"moviedb/internal/events"
	"moviedb/internal/ingest/ingesttest"
	"moviedb/internal/movies"
	"moviedb/internal/stats"
	"moviedb/pkg/apperr"
	"moviedb/pkg/database/dbtest"
	"moviedb/pkg/models"
)

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(e events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	router *gin.Engine
	d      *Dispatcher
	events *recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := dbtest.New(t)
	ingesttest.Seed(t, s)

	tokens := auth.TokenService{Secret: []byte("test"), Issuer: "moviedb", Duration: time.Hour}
	authSvc, err := auth.NewService(s, tokens, bcrypt.MinCost)
	require.NoError(t, err)
	ctx := context.Background()
	_, err = authSvc.Create(ctx, "root", "rootpw", true)
	require.NoError(t, err)
	_, err = authSvc.Create(ctx, "viewer", "viewpw", false)
	require.NoError(t, err)

	rec := &recorder{}
	d := NewDispatcher(Services{
		Movies:  movies.NewRepo(s, 100),
		Stats:   stats.NewRepo(s, 5, 5),
		Auth:    authSvc,
		Dataset: dataset.NewRepo(s),
		Events:  rec,
	})

	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(d).RegisterRoutes(r.Group("/"))
	return &fixture{router: r, d: d, events: rec}
}

func (f *fixture) raw(t *testing.T, token, command, body string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/invoke/"+command, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w.Code, w.Body.String()
}

func (f *fixture) invoke(t *testing.T, token, command, body string) (int, Response) {
	t.Helper()
	code, raw := f.raw(t, token, command, body)
	var resp Response
	require.NoError(t, json.Unmarshal([]byte(raw), &resp), raw)
	return code, resp
}

func (f *fixture) login(t *testing.T, username, password string) string {
	t.Helper()
	code, resp := f.invoke(t, "", LoginUser, `{"user":{"username":"`+username+`","password":"`+password+`"}}`)
	require.Equal(t, http.StatusOK, code, string(resp.Result))
	var sess models.Session
	require.NoError(t, json.Unmarshal(resp.Result, &sess))
	require.NotEmpty(t, sess.Token)
	return sess.Token
}

func resultAs[T any](t *testing.T, resp Response) T {
	t.Helper()
	require.Nil(t, resp.Error)
	var v T
	require.NoError(t, json.Unmarshal(resp.Result, &v))
	return v
}

func TestPublicCommandsWithoutSession(t *testing.T) {
	f := newFixture(t)

	code, body := f.raw(t, "", GetLoggedUsername, "")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"result":null}`, body)

	code, resp := f.invoke(t, "", LogoutUser, "{}")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "true", string(resp.Result))
	assert.Empty(t, f.events.types(), "logout without a session publishes nothing")
}

func TestSessionRequired(t *testing.T) {
	f := newFixture(t)

	for _, cmd := range []string{GetAllMovies, GetMovie, GetCountStats, GetCurrentUser} {
		code, resp := f.invoke(t, "", cmd, `{"id":1}`)
		assert.Equal(t, http.StatusUnauthorized, code, cmd)
		require.NotNil(t, resp.Error)
		assert.Equal(t, apperr.KindNoSession, resp.Error.Kind)
	}

	code, resp := f.invoke(t, "garbage", GetAllMovies, "")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, apperr.KindAuthentication, resp.Error.Kind)
}

func TestLogin(t *testing.T) {
	f := newFixture(t)

	code, resp := f.invoke(t, "", LoginUser, `{"user":{"username":"viewer","password":"wrong"}}`)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, apperr.KindAuthentication, resp.Error.Kind)

	code, resp = f.invoke(t, "", LoginUser, `{"user":{"username":"","password":""}}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, apperr.KindValidation, resp.Error.Kind)

	token := f.login(t, "viewer", "viewpw")
	_, resp = f.invoke(t, "", GetLoggedUsername, "")
	assert.Equal(t, `"viewer"`, string(resp.Result))

	_, resp = f.invoke(t, token, GetCurrentUser, "")
	acct := resultAs[models.Account](t, resp)
	assert.Equal(t, "viewer", acct.Username)
	assert.False(t, acct.IsAdmin)

	// a new login retires the previous token
	f.login(t, "root", "rootpw")
	code, resp = f.invoke(t, token, GetAllMovies, "")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, apperr.KindNoSession, resp.Error.Kind)

	assert.Equal(t, []string{events.SessionLogin, events.SessionLogin}, f.events.types())
}

func TestSearchAndDetail(t *testing.T) {
	f := newFixture(t)
	token := f.login(t, "viewer", "viewpw")

	_, resp := f.invoke(t, token, GetAllMovies, `{"genre":"Family","query":"","filter":"Popular"}`)
	found := resultAs[[]models.MovieShort](t, resp)
	require.Len(t, found, 2)
	assert.Equal(t, int64(1), found[0].MovieID)
	assert.Equal(t, int64(2), found[1].MovieID)

	_, resp = f.invoke(t, token, GetAllMovies, "")
	assert.Len(t, resultAs[[]models.MovieShort](t, resp), 6)

	for _, body := range []string{`{"filter":"popular"}`, `{"genre":"Sci-Fi"}`, `{"filter":3}`} {
		code, resp := f.invoke(t, token, GetAllMovies, body)
		assert.Equal(t, http.StatusBadRequest, code, body)
		assert.Equal(t, apperr.KindValidation, resp.Error.Kind, body)
	}

	for _, body := range []string{`{"id":3}`, `{"id":"3"}`, `{"id":" 3 "}`} {
		code, resp := f.invoke(t, token, GetMovie, body)
		require.Equal(t, http.StatusOK, code, body)
		mv := resultAs[models.Movie](t, resp)
		assert.Equal(t, "Amélie", mv.Details.Title)
		assert.Len(t, mv.Ratings, 1)
		assert.Len(t, mv.Tags, 1)
	}

	for _, body := range []string{`{}`, `{"id":"abc"}`, `{"id":-1}`, `{"id":"99999999999"}`, `{"id":1.5}`} {
		code, resp := f.invoke(t, token, GetMovie, body)
		assert.Equal(t, http.StatusBadRequest, code, body)
		assert.Equal(t, apperr.KindValidation, resp.Error.Kind, body)
	}

	code, resp := f.invoke(t, token, GetMovie, `{"id":404}`)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, apperr.KindNotFound, resp.Error.Kind)

	_, resp = f.invoke(t, token, GetCountStats, "")
	st := resultAs[models.Stats](t, resp)
	assert.Equal(t, int64(6), st.Count.TotalMovies)
	assert.Len(t, st.Count.GenreCount, len(models.Genres()))
}

func TestAdminCommandsNeedAdmin(t *testing.T) {
	f := newFixture(t)
	token := f.login(t, "viewer", "viewpw")

	for _, cmd := range []string{CreateSQLUser, GetSQLUsers, DeleteSQLUser, DeleteMovieLensUser, DeleteMovieLensTag} {
		code, resp := f.invoke(t, token, cmd, `{}`)
		assert.Equal(t, http.StatusForbidden, code, cmd)
		assert.Equal(t, apperr.KindPermissionDenied, resp.Error.Kind, cmd)
	}
}

func TestAccountAdministration(t *testing.T) {
	f := newFixture(t)
	token := f.login(t, "root", "rootpw")

	code, resp := f.invoke(t, token, CreateSQLUser, `{"username":"carol","password":"pw","isAdmin":false}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "carol", resultAs[models.Account](t, resp).Username)

	code, resp = f.invoke(t, token, CreateSQLUser, `{"username":"carol","password":"other"}`)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, apperr.KindDuplicateUsername, resp.Error.Kind)

	code, resp = f.invoke(t, token, CreateSQLUser, `{"username":"no spaces","password":"pw"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, apperr.KindValidation, resp.Error.Kind)

	_, resp = f.invoke(t, token, GetSQLUsers, "")
	accounts := resultAs[[]models.Account](t, resp)
	names := make([]string, 0, len(accounts))
	for _, a := range accounts {
		names = append(names, a.Username)
	}
	assert.Equal(t, []string{"root", "viewer", "carol"}, names)
	assert.NotContains(t, string(resp.Result), "password")

	code, resp = f.invoke(t, token, DeleteSQLUser, `{"username":"carol"}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "true", string(resp.Result))

	code, resp = f.invoke(t, token, DeleteSQLUser, `{"username":"carol"}`)
	assert.Equal(t, http.StatusNotFound, code)

	// deleting yourself ends the session
	code, _ = f.invoke(t, token, DeleteSQLUser, `{"username":"root"}`)
	assert.Equal(t, http.StatusOK, code)
	_, body := f.raw(t, "", GetLoggedUsername, "")
	assert.JSONEq(t, `{"result":null}`, body)

	assert.Equal(t, []string{
		events.SessionLogin, events.AccountCreated, events.AccountDeleted, events.AccountDeleted,
	}, f.events.types())
}

func TestDatasetMutations(t *testing.T) {
	f := newFixture(t)
	token := f.login(t, "root", "rootpw")

	code, resp := f.invoke(t, token, DeleteMovieLensTag, `{"movieId":1,"userId":10,"timestamp":1500}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "true", string(resp.Result))

	code, resp = f.invoke(t, token, DeleteMovieLensTag, `{"movieId":1,"userId":10,"timestamp":1500}`)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = f.invoke(t, token, DeleteMovieLensTag, `{"movieId":1,"userId":10}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, resp = f.invoke(t, token, DeleteMovieLensUser, `{"id":"10"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, map[string]int64{"removed": 4}, resultAs[map[string]int64](t, resp))

	code, resp = f.invoke(t, token, DeleteMovieLensUser, `{"id":10}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, map[string]int64{"removed": 0}, resultAs[map[string]int64](t, resp))

	f.events.mu.Lock()
	last := f.events.events[len(f.events.events)-1]
	f.events.mu.Unlock()
	assert.Equal(t, events.DatasetUserDeleted, last.Type)
	assert.Equal(t, "root", last.Actor)
	assert.Equal(t, int64(10), last.UserID)
}

func TestUnknownCommand(t *testing.T) {
	f := newFixture(t)
	code, resp := f.invoke(t, "", "drop_everything", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, apperr.KindValidation, resp.Error.Kind)

	_, err := f.d.Dispatch(context.Background(), "drop_everything", nil)
	assert.True(t, IsUnknownCommand(err))
}

func TestDispatchDirect(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.d.Dispatch(ctx, LoginUser, []byte(`{"user":{"username":"viewer","password":"viewpw"}}`))
	require.NoError(t, err)
	sess := res.(*models.Session)

	_, err = f.d.Dispatch(ctx, GetAllMovies, nil)
	assert.ErrorIs(t, err, apperr.ErrNoSession)

	res, err = f.d.Dispatch(auth.WithToken(ctx, sess.Token), GetMovie, []byte(`{"id":4}`))
	require.NoError(t, err)
	assert.Equal(t, "The Matrix", res.(*models.Movie).Details.Title)
}

func TestCommandSurface(t *testing.T) {
	f := newFixture(t)
	assert.Len(t, f.d.Names(), 12)
	access := f.d.Commands()
	assert.Equal(t, Public, access[LoginUser])
	assert.Equal(t, SessionRequired, access[GetMovie])
	assert.Equal(t, AdminRequired, access[DeleteMovieLensTag])
}
