package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/fgeck/pumpkin-control/internal/api"
	"github.com/fgeck/pumpkin-control/internal/services/gateway"
	"github.com/fgeck/pumpkin-control/internal/services/ssh"
	"github.com/fgeck/pumpkin-control/internal/storage"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	Long: `Open the state database and serve the HTTP API until SIGINT or SIGTERM.
In-flight requests get up to 10 seconds to finish on shutdown.`,
	RunE: serve,
}

func serve(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := log.Logger

	store, err := storage.NewSQLiteStore(cfg.Storage.Path, logger.With().Str("component", "storage").Logger())
	if err != nil {
		log.Error().Err(err).Str("path", cfg.Storage.Path).Msg("failed to open store")
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close store")
		}
	}()

	hostKeys, err := ssh.HostKeyCallback(cfg.SSH, logger)
	if err != nil {
		log.Error().Err(err).Str("policy", cfg.SSH.HostKeyPolicy).Msg("failed to set up host key verification")
		return err
	}

	executor := ssh.New(logger.With().Str("component", "ssh").Logger(), store, hostKeys)
	gw := gateway.New(logger.With().Str("component", "gateway").Logger(), store, executor, *cfg)

	srv := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           api.NewHandler(gw, logger.With().Str("component", "http").Logger(), cfg.Server.CORSOrigins),
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("listen", cfg.Server.Listen).
			Str("storage", cfg.Storage.Path).
			Str("host_key_policy", cfg.SSH.HostKeyPolicy).
			Bool("wol", cfg.WOL != nil).
			Bool("telegram", cfg.Telegram != nil).
			Msg("serving HTTP API")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("HTTP server failed")
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Warn().Msg("received signal, shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
		return err
	}

	log.Info().Msg("server stopped")
	return nil
}
