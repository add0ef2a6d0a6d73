package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(t *testing.T) (*App, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	a, err := New(context.Background(), testConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a, a.Router()
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestProbes(t *testing.T) {
	a, r := newRouter(t)

	w := get(r, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)

	w = get(r, "/ready")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ready"`)

	require.NoError(t, a.Store.Close())
	w = get(r, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestMetricsExposeCommands(t *testing.T) {
	_, r := newRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/invoke/get_logged_username", strings.NewReader(""))
	r.ServeHTTP(httptest.NewRecorder(), req)

	w := get(r, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "moviedb_commands_total")
}

func TestCommandListing(t *testing.T) {
	_, r := newRouter(t)

	w := get(r, "/commands")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `{"access":"session","command":"get_all_movies"}`)
	assert.Contains(t, w.Body.String(), `{"access":"public","command":"login_user"}`)
}
