package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/Nevojt/project-chat-sub000/internal/adapters/http"
	wssignal "github.com/Nevojt/project-chat-sub000/internal/adapters/signal"
	"github.com/Nevojt/project-chat-sub000/internal/app"
	"github.com/Nevojt/project-chat-sub000/internal/auth"
	"github.com/Nevojt/project-chat-sub000/internal/config"
	"github.com/Nevojt/project-chat-sub000/internal/storage/sqlite"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil && lvl != zerolog.NoLevel {
		zerolog.SetGlobalLevel(lvl)
	}
	if cfg.Mode == "release" {
		// JSON lines for log shippers
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	store, err := sqlite.NewStore(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error().Err(err).Msg("close database")
		}
	}()
	if err := store.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}

	limiter := wssignal.NewRoomRateLimiter(cfg.RateLimit.Messages, cfg.RateLimit.Interval)
	go limiter.Janitor(ctx)

	orch := app.NewOrchestrator(store, auth.NewProvider(cfg.JWT, store), store, app.SimplePolicy{})
	orch.Limiter = limiter
	orch.HistoryLimit = cfg.Chat.HistoryLimit

	r := router.SetupRouter(ctx, cfg, orch)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("chat server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
