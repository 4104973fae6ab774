// Command acsp-sidecar runs the broadcasting UDP listener and the HTTP read
// API side by side, wired through a shared record store. Process wiring
// follows ClusterCockpit-cc-backend's cmd/cc-backend/main.go: net.Listen up
// front, signal.Notify for graceful shutdown, http.Server.Shutdown before
// exit.
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/acsp-sidecar/sidecar/internal/api"
	"github.com/acsp-sidecar/sidecar/internal/config"
	"github.com/acsp-sidecar/sidecar/internal/pipeline"
	"github.com/acsp-sidecar/sidecar/internal/session"
	"github.com/acsp-sidecar/sidecar/internal/store"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	if err := run(logger); err != nil {
		logger.Fatal().Err(err).Msg("acsp-sidecar exited with error")
	}
}

func run(logger zerolog.Logger) error {
	cfg := config.Load()

	recordStore, err := store.Open(cfg.StorePath, logger.With().Str("component", "store").Logger())
	if err != nil {
		return fmt.Errorf("opening record store: %w", err)
	}
	defer recordStore.Close()

	udpAddr := net.JoinHostPort(cfg.UDPAddr, cfg.UDPPort)
	pl := &pipeline.Pipeline{
		Logger:  logger.With().Str("component", "pipeline").Logger(),
		Context: session.NewPipelineContext(),
		Store:   recordStore,
		Addr:    udpAddr,
	}

	httpAddr := net.JoinHostPort(cfg.HTTPAddr, cfg.HTTPPort)
	apiServer := &api.Server{
		Store:  recordStore,
		Logger: logger.With().Str("component", "api").Logger(),
	}
	listener, err := net.Listen("tcp", httpAddr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", httpAddr, err)
	}
	httpServer := &http.Server{
		Handler:      apiServer.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info().Str("addr", udpAddr).Msg("udp listener starting")
		if err := pl.Run(ctx); err != nil {
			logger.Error().Err(err).Msg("pipeline stopped with error")
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info().Str("addr", httpAddr).Msg("http server starting")
		if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server stopped with error")
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	sig := <-sigs
	logger.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http server shutdown error")
	}

	wg.Wait()
	logger.Info().Msg("shutdown complete")
	return nil
}
