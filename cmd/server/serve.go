package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/signalist/signalist/internal/config"
	"github.com/signalist/signalist/internal/di"
	functionshandlers "github.com/signalist/signalist/internal/functions/handlers"
	markethandlers "github.com/signalist/signalist/internal/modules/market/handlers"
	notificationshandlers "github.com/signalist/signalist/internal/modules/notifications/handlers"
	"github.com/signalist/signalist/internal/modules/pages"
	watchlisthandlers "github.com/signalist/signalist/internal/modules/watchlist/handlers"
	"github.com/signalist/signalist/internal/server"
	"github.com/signalist/signalist/pkg/embedded"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server and background jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(true)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		log := newLogger(cmd, cfg)
		log.Info().Str("version", version).Msg("Starting Signalist")

		container, err := di.Wire(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		defer container.Close()

		srv, err := newServer(container, cfg, log)
		if err != nil {
			return err
		}

		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal().Err(err).Msg("HTTP server failed")
			}
		}()

		container.Scheduler.Start()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		sig := <-quit
		log.Info().Str("signal", sig.String()).Msg("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server forced to shutdown")
		}

		container.Scheduler.Stop()
		container.Functions.Stop()
		container.EventBus.Wait()

		log.Info().Msg("Server stopped")
		return nil
	},
}

// newServer builds the HTTP server from the container
func newServer(container *di.Container, cfg *config.Config, log zerolog.Logger) (*server.Server, error) {
	pageHandler, err := pages.NewHandler(embedded.Files, pages.Deps{
		Auth:      container.AuthService,
		Signer:    container.CookieSigner,
		Watchlist: container.WatchlistService,
		Market:    container.MarketGateway,
	}, log)
	if err != nil {
		return nil, err
	}

	return server.New(server.Config{
		Log:       log,
		Port:      cfg.Port,
		DevMode:   cfg.DevMode,
		Static:    embedded.Static(),
		Sessions:  container.AuthMiddleware,
		Database:  container.DB,
		Scheduler: container.Scheduler,
		API: []server.RouteRegistrar{
			watchlisthandlers.NewHandler(container.WatchlistService, log),
			markethandlers.NewHandler(container.MarketGateway, container.WatchlistService, log),
			functionshandlers.NewHandler(container.Functions, container.RunStore, container.FunctionSigner, log),
			notificationshandlers.NewUnsubscribeHandler(
				container.Unsubscribe,
				container.UserRepo,
				container.EmailRenderer,
				cfg.BaseURL,
				log,
			),
		},
		Pages: pageHandler,
	}), nil
}
