package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"

	"moviedb/pkg/logging"
)

// DriverName is the sqlite3 driver with the moviedb SQL functions attached.
const DriverName = "sqlite3_moviedb"

var registerOnce sync.Once

// registerDriver adds fold(text) to every connection: a Unicode-aware
// lower-casing used for case-insensitive title matching (SQLite's lower()
// only folds ASCII).
func registerDriver() {
	registerOnce.Do(func() {
		sql.Register(DriverName, &sqlite3.SQLiteDriver{
			ConnectHook: func(conn *sqlite3.SQLiteConn) error {
				return conn.RegisterFunc("fold", fold, true)
			},
		})
	})
}

func fold(s string) string {
	return strings.ToLower(s)
}

type Config struct {
	Path           string
	ReadPoolSize   int
	AcquireTimeout time.Duration
	BusyTimeout    time.Duration
	WriteAttempts  int
}

func DefaultConfig() Config {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}
	return Config{
		Path:           filepath.Join(home, ".moviedb", "data.db"),
		ReadPoolSize:   4,
		AcquireTimeout: 5 * time.Second,
		BusyTimeout:    2 * time.Second,
		WriteAttempts:  3,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Path == "" {
		c.Path = d.Path
	}
	if c.ReadPoolSize <= 0 {
		c.ReadPoolSize = d.ReadPoolSize
	}
	if c.AcquireTimeout <= 0 {
		c.AcquireTimeout = d.AcquireTimeout
	}
	if c.BusyTimeout <= 0 {
		c.BusyTimeout = d.BusyTimeout
	}
	if c.WriteAttempts <= 0 {
		c.WriteAttempts = d.WriteAttempts
	}
	return c
}

func EnsureDataDir(cfg Config) error {
	return os.MkdirAll(filepath.Dir(cfg.Path), 0o755)
}

func dsn(cfg Config, readOnly bool) string {
	params := []string{
		"_foreign_keys=on",
		"_journal_mode=WAL",
		fmt.Sprintf("_busy_timeout=%d", cfg.BusyTimeout.Milliseconds()),
	}
	if readOnly {
		params = append(params, "_query_only=true")
	} else {
		params = append(params, "_txlock=immediate")
	}
	return cfg.Path + "?" + strings.Join(params, "&")
}

// Open opens the store at cfg.Path, creating the file and applying the
// schema when needed. The writer is opened first so that WAL mode and the
// schema exist before any read-only connection attaches.
func Open(cfg Config) (*Store, error) {
	cfg = cfg.withDefaults()
	if err := EnsureDataDir(cfg); err != nil {
		return nil, fmt.Errorf("ensure data dir: %w", err)
	}
	registerDriver()

	writer, err := sql.Open(DriverName, dsn(cfg, false))
	if err != nil {
		return nil, fmt.Errorf("open sqlite writer: %w", err)
	}
	writer.SetMaxOpenConns(1)
	writer.SetMaxIdleConns(1)
	writer.SetConnMaxLifetime(0)

	if err := writer.Ping(); err != nil {
		_ = writer.Close()
		return nil, fmt.Errorf("ping sqlite writer: %w", err)
	}
	if err := Migrate(writer); err != nil {
		_ = writer.Close()
		return nil, err
	}

	reader, err := sql.Open(DriverName, dsn(cfg, true))
	if err != nil {
		_ = writer.Close()
		return nil, fmt.Errorf("open sqlite reader: %w", err)
	}
	reader.SetMaxOpenConns(cfg.ReadPoolSize)
	reader.SetMaxIdleConns(cfg.ReadPoolSize)

	if err := reader.Ping(); err != nil {
		_ = reader.Close()
		_ = writer.Close()
		return nil, fmt.Errorf("ping sqlite reader: %w", err)
	}

	logging.Info().
		Str("path", cfg.Path).
		Int("read_pool", cfg.ReadPoolSize).
		Dur("acquire_timeout", cfg.AcquireTimeout).
		Msg("store opened")

	return newStore(cfg, reader, writer), nil
}

func MustOpen(cfg Config) *Store {
	s, err := Open(cfg)
	if err != nil {
		logging.Fatal().Err(err).Str("path", cfg.Path).Msg("failed to open db")
	}
	return s
}
