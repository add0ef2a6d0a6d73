package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"moviedb/internal/app"
	"moviedb/internal/events"
	"moviedb/pkg/logging"
)

func main() {
	a := app.Setup(context.Background())
	defer a.Close()
	cfg := a.Config

	httpSrv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: a.Router(),
	}

	errCh := make(chan error, 2)
	var wg sync.WaitGroup

	var tcpSrv *events.Server
	if cfg.Server.EventsAddr != "" {
		tcpSrv = events.NewServer(cfg.Server.EventsAddr, a.Hub)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := tcpSrv.Run(); err != nil {
				errCh <- err
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		logging.Info().Str("addr", cfg.Server.HTTPAddr).Msg("HTTP API server listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logging.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		logging.Error().Err(err).Msg("server error")
	}

	logging.Info().Msg("shutting down servers")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logging.Warn().Err(err).Msg("http shutdown error")
	}
	if tcpSrv != nil {
		if err := tcpSrv.Close(); err != nil {
			logging.Warn().Err(err).Msg("tcp shutdown error")
		}
	}

	wg.Wait()
	logging.Info().Msg("servers stopped")
}
