package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"

	"moviedb/internal/app"
	"moviedb/internal/grpcserver"
	"moviedb/pkg/logging"
)

func main() {
	a := app.Setup(context.Background())
	defer a.Close()
	addr := a.Config.Server.GRPCAddr

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		logging.Fatal().Err(err).Str("addr", addr).Msg("grpc listen failed")
	}

	grpcServer := grpcserver.New(a.Dispatcher)

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", addr).Msg("gRPC server listening")
		errCh <- grpcServer.Serve(listener)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logging.Info().Str("signal", sig.String()).Msg("shutdown signal received")
		grpcServer.GracefulStop()
	case err := <-errCh:
		logging.Error().Err(err).Msg("grpc server stopped")
	}
	logging.Info().Msg("server stopped")
}
