package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/felipe/zapgateway/internal/api"
	"github.com/felipe/zapgateway/internal/config"
	"github.com/felipe/zapgateway/internal/db"
	"github.com/felipe/zapgateway/internal/db/repositories"
	"github.com/felipe/zapgateway/internal/events"
	"github.com/felipe/zapgateway/internal/logger"
	"github.com/felipe/zapgateway/internal/outbox"
	"github.com/felipe/zapgateway/internal/usage"
	"github.com/felipe/zapgateway/internal/wa"
	"github.com/felipe/zapgateway/internal/webhook"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Get().Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Pretty)
	log := logger.Get()

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	if err := cfg.EnsureStorageDir(); err != nil {
		log.Fatal().Err(err).Msg("Failed to create session storage directory")
	}

	database, err := db.New(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	container, err := database.GetSQLStore(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize WhatsApp store")
	}

	repos := repositories.New(database.DB)
	bus := events.NewBus()
	meter := usage.NewMeter(repos.Usage)
	guard := usage.NewGuard(repos.Organizations, repos.Sessions, repos.Usage)

	supervisor := wa.NewSupervisor(cfg, repos, bus, container, wa.NewFactory(), meter, guard)
	queue := outbox.NewQueue(&cfg.Queue, supervisor, repos.Messages)

	dispatcher := webhook.NewDispatcher(&cfg.Webhook, repos)
	backfill := webhook.NewBackfill(&cfg.Webhook, repos, dispatcher)

	go dispatcher.Run(ctx, bus)
	go backfill.Run(ctx)

	// Sessões com credenciais salvas voltam sozinhas após restart
	go supervisor.RestoreAll(ctx)

	server := api.NewServer(cfg, database, repos, bus, supervisor, queue, guard, meter)

	go func() {
		if err := server.Start(); err != nil {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	log.Info().
		Str("address", cfg.GetServerAddress()).
		Str("environment", cfg.Server.Environment).
		Msg("ZapGateway started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down")

	cancel()
	if err := server.Stop(); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	queue.Shutdown()
	supervisor.Shutdown()

	log.Info().Msg("Shutdown complete")
}
