package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moviedb/internal/commands"
	"moviedb/pkg/utils"
)

func testConfig(t *testing.T) *utils.Config {
	cfg := utils.DefaultConfig()
	cfg.Database.Path = filepath.Join(t.TempDir(), "app.db")
	cfg.Auth.BcryptCost = 4
	cfg.Auth.BootstrapPassword = "changeme"
	return cfg
}

func TestNewBootstrapsAdministrator(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	a, err := New(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	accounts, err := a.Auth.List(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "admin", accounts[0].Username)
	assert.True(t, accounts[0].IsAdmin)

	res, err := a.Dispatcher.Dispatch(ctx, commands.LoginUser, []byte(`{"user":{"username":"admin","password":"changeme"}}`))
	require.NoError(t, err)
	assert.NotNil(t, res)
	assert.Equal(t, 0, a.Hub.Stats().WSClients)
}

func TestNewReopensExistingStore(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	a, err := New(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, a.Close())

	cfg.Auth.BootstrapPassword = "other"
	b, err := New(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	n, err := b.Auth.Repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
