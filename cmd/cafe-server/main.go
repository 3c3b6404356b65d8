package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/cafe-order-service/internal/config"
	"github.com/vasiliy-maslov/cafe-order-service/internal/db"
	"github.com/vasiliy-maslov/cafe-order-service/internal/notify"
	"github.com/vasiliy-maslov/cafe-order-service/internal/transport"
)

func main() {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	log.Logger = log.With().Str("service", "cafe-order-service").Logger()

	log.Info().Msg("Cafe order service starting...")

	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	dbConn, err := db.New(cfg.Postgres)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbConn.Close()

	if err := db.ApplyMigrations(cfg.Postgres); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply migrations")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := notify.NewBus()
	listener := notify.NewListener(dbConn.Pool, bus)
	go func() {
		if err := listener.Run(ctx); err != nil {
			log.Error().Err(err).Msg("Change feed listener stopped")
		}
	}()

	router, kitchenView := transport.NewRouter(dbConn.Pool, bus)

	if err := kitchenView.Refresh(ctx); err != nil {
		// Staff can retry via the refresh endpoint once the store is back.
		log.Warn().Err(err).Msg("Initial kitchen fetch failed")
	}
	go kitchenView.Run(ctx)

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 0, // streaming endpoints hold the response open
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.App.Port).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Info().Msg("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Shutdown failed")
	}
	log.Info().Msg("Server stopped")
}
