// Package dbtest opens throwaway stores for package tests.
package dbtest

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"moviedb/pkg/database"
)

// New opens a migrated store in a temp dir that is removed with the test.
// Options adjust the config before opening.
func New(t testing.TB, opts ...func(*database.Config)) *database.Store {
	t.Helper()

	cfg := database.Config{
		Path:           filepath.Join(t.TempDir(), "test.db"),
		ReadPoolSize:   4,
		AcquireTimeout: 2 * time.Second,
		BusyTimeout:    500 * time.Millisecond,
		WriteAttempts:  3,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	s, err := database.Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}
