// Package app wires configuration, the store and the components behind the
// command dispatcher. The server binaries share it.
package app

import (
	"context"
	"fmt"

	"moviedb/internal/auth"
	"moviedb/internal/commands"
	"moviedb/internal/dataset"
	"moviedb/internal/events"
	"moviedb/internal/metrics"
	"moviedb/internal/movies"
	"moviedb/internal/stats"
	"moviedb/pkg/database"
	"moviedb/pkg/logging"
	"moviedb/pkg/utils"
)

type App struct {
	Config     *utils.Config
	Store      *database.Store
	Auth       *auth.Service
	Hub        *events.Hub
	Dispatcher *commands.Dispatcher
}

func StoreConfig(c utils.DatabaseConfig) database.Config {
	return database.Config{
		Path:           c.Path,
		ReadPoolSize:   c.ReadPoolSize,
		AcquireTimeout: c.AcquireTimeout,
		BusyTimeout:    c.BusyTimeout,
		WriteAttempts:  c.WriteAttempts,
	}
}

// New opens the store and builds every component. The caller owns Close.
func New(ctx context.Context, cfg *utils.Config) (*App, error) {
	store, err := database.Open(StoreConfig(cfg.Database))
	if err != nil {
		return nil, err
	}
	store.SetObserver(metrics.StoreObserver{})

	tokens := auth.TokenService{
		Secret:   []byte(cfg.Auth.TokenSecret),
		Issuer:   cfg.Auth.TokenIssuer,
		Duration: cfg.Auth.TokenTTL,
	}
	authSvc, err := auth.NewService(store, tokens, cfg.Auth.BcryptCost)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("auth service: %w", err)
	}

	created, err := authSvc.Bootstrap(ctx, cfg.Auth.BootstrapAdmin, cfg.Auth.BootstrapPassword)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("bootstrap admin: %w", err)
	}
	if created {
		logging.Info().Str("username", cfg.Auth.BootstrapAdmin).Msg("bootstrap administrator created")
	}

	hub := events.NewHub()
	d := commands.NewDispatcher(commands.Services{
		Movies:  movies.NewRepo(store, cfg.Search.MaxResults),
		Stats:   stats.NewRepo(store, cfg.Stats.TopUsers, cfg.Stats.TopProfitMovies),
		Auth:    authSvc,
		Dataset: dataset.NewRepo(store),
		Events:  hub,
	})

	return &App{
		Config:     cfg,
		Store:      store,
		Auth:       authSvc,
		Hub:        hub,
		Dispatcher: d,
	}, nil
}

func (a *App) Close() error {
	return a.Store.Close()
}

// Setup loads configuration, initializes logging and builds the App, exiting
// the process on failure.
func Setup(ctx context.Context) *App {
	cfg, err := utils.LoadConfig()
	if err != nil {
		logging.Fatal().Err(err).Msg("load config failed")
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	a, err := New(ctx, cfg)
	if err != nil {
		logging.Fatal().Err(err).Str("db", cfg.Database.Path).Msg("startup failed")
	}
	return a
}
