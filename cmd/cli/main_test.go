package main

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"moviedb/internal/auth"
	"moviedb/internal/commands"
	"moviedb/internal/dataset"
	"moviedb/internal/ingest/ingesttest"
	"moviedb/internal/movies"
	"moviedb/internal/stats"
	"moviedb/pkg/apperr"
	"moviedb/pkg/database/dbtest"
	"moviedb/pkg/models"
)

func newInvoker(t *testing.T) *httpInvoker {
	t.Helper()
	s := dbtest.New(t)
	ingesttest.Seed(t, s)
	authSvc, err := auth.NewService(s, auth.TokenService{Secret: []byte("test"), Issuer: "moviedb", Duration: time.Hour}, bcrypt.MinCost)
	require.NoError(t, err)
	_, err = authSvc.Create(context.Background(), "viewer", "viewpw", false)
	require.NoError(t, err)

	d := commands.NewDispatcher(commands.Services{
		Movies:  movies.NewRepo(s, 100),
		Stats:   stats.NewRepo(s, 5, 5),
		Auth:    authSvc,
		Dataset: dataset.NewRepo(s),
	})
	gin.SetMode(gin.TestMode)
	r := gin.New()
	commands.NewHandler(d).RegisterRoutes(r.Group("/"))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return &httpInvoker{client: srv.Client(), baseURL: srv.URL + "/"}
}

func TestHTTPInvoker(t *testing.T) {
	inv := newInvoker(t)
	ctx := context.Background()

	_, err := inv.Invoke(ctx, "", commands.GetAllMovies, nil)
	require.Error(t, err)
	assert.Equal(t, apperr.KindNoSession, apperr.KindOf(err))

	raw, err := inv.Invoke(ctx, "", commands.LoginUser, map[string]any{
		"user": models.Credentials{Username: "viewer", Password: "viewpw"},
	})
	require.NoError(t, err)
	var sess models.Session
	require.NoError(t, json.Unmarshal(raw, &sess))

	raw, err = inv.Invoke(ctx, sess.Token, commands.GetAllMovies, json.RawMessage(`{"query":"toy","filter":"Alphabetical"}`))
	require.NoError(t, err)
	var items []models.MovieShort
	require.NoError(t, json.Unmarshal(raw, &items))
	require.Len(t, items, 2)
	assert.Equal(t, "toy soldiers", items[0].Title)

	_, err = inv.Invoke(ctx, sess.Token, commands.GetSQLUsers, nil)
	assert.Equal(t, apperr.KindPermissionDenied, apperr.KindOf(err))

	_, err = inv.Invoke(ctx, "", "no_such_command", nil)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestTokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token.json")

	require.Error(t, saveToken(path, ""))
	require.NoError(t, saveToken(path, "abc"))
	tok, err := readToken(path)
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)

	require.NoError(t, clearToken(path))
	require.NoError(t, clearToken(path))
	_, err = readToken(path)
	assert.Error(t, err)
}

func TestWebsocketURL(t *testing.T) {
	u, err := websocketURL("https://movies.example:8443/api", "/ws")
	require.NoError(t, err)
	assert.Equal(t, "wss://movies.example:8443/ws", u)

	u, err = websocketURL(defaultBaseURL, "/ws")
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:8080/ws", u)
}
