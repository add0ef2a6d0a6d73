package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Database.ReadPoolSize)
	assert.Equal(t, 5*time.Second, cfg.Database.AcquireTimeout)
	assert.Equal(t, 100, cfg.Search.MaxResults)
	assert.Equal(t, 5, cfg.Stats.TopUsers)
	assert.Equal(t, 5, cfg.Stats.TopProfitMovies)
	assert.Equal(t, "moviedb", cfg.Auth.TokenIssuer)
	assert.Equal(t, ":8080", cfg.Server.HTTPAddr)
}

func TestLoadConfigFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "moviedb.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  path: /tmp/from-file.db
  read_pool_size: 8
stats:
  top_users: 10
logging:
  level: debug
`), 0o600))

	t.Setenv(ConfigPathEnv, path)
	t.Setenv("MOVIEDB_DATABASE_READ_POOL_SIZE", "2")
	t.Setenv("MOVIEDB_DATABASE_ACQUIRE_TIMEOUT", "250ms")
	t.Setenv("MOVIEDB_AUTH_TOKEN_SECRET", "s3cret")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/from-file.db", cfg.Database.Path)
	assert.Equal(t, 2, cfg.Database.ReadPoolSize)
	assert.Equal(t, 250*time.Millisecond, cfg.Database.AcquireTimeout)
	assert.Equal(t, 10, cfg.Stats.TopUsers)
	assert.Equal(t, 5, cfg.Stats.TopProfitMovies)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "s3cret", cfg.Auth.TokenSecret)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	t.Setenv("MOVIEDB_STATS_TOP_USERS", "0")
	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "database.read_pool_size", envKey("MOVIEDB_DATABASE_READ_POOL_SIZE"))
	assert.Equal(t, "auth.token_ttl", envKey("MOVIEDB_AUTH_TOKEN_TTL"))
	assert.Equal(t, "", envKey("MOVIEDB_CONFIG"))
}
