package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/Banditcantcode/Banditbot/internal/api/http"
	"github.com/Banditcantcode/Banditbot/internal/api/http/handlers"
	"github.com/Banditcantcode/Banditbot/internal/auth"
	"github.com/Banditcantcode/Banditbot/internal/authz"
	"github.com/Banditcantcode/Banditbot/internal/bot/finder"
	"github.com/Banditcantcode/Banditbot/internal/bot/tickets"
	"github.com/Banditcantcode/Banditbot/internal/config"
	"github.com/Banditcantcode/Banditbot/internal/events"
	"github.com/Banditcantcode/Banditbot/internal/observability"
	"github.com/Banditcantcode/Banditbot/internal/persistence"
	"github.com/Banditcantcode/Banditbot/internal/repository"
	"github.com/Banditcantcode/Banditbot/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	gamedb, err := persistence.NewGameDB(cfg.GameDB, logger)
	if err != nil {
		logger.Fatal("failed to connect game database", zap.Error(err))
	}
	defer gamedb.Close()

	metrics := observability.NewMetrics()

	ticketRepo := repository.NewTicketRepository(pg.PoolHandle())
	playerRepo := repository.NewPlayerRepository(gamedb.Handle())
	artifacts := service.NewArtifactStore(redis)

	dispatcher := events.NewInMemoryDispatcher()
	notifications := service.NewNotificationService(dispatcher, logger, metrics)
	notifications.RegisterHandlers()

	enricher := service.NewEnrichmentService(playerRepo, redis, cfg.GameDB.CacheTTL(), logger)
	tokens := auth.NewTokenManager(cfg.Transcript.TokenSecret, cfg.App.BaseURL, cfg.Transcript.TokenTTLMinutes)

	// Tickets bot session, opened after the service graph is assembled.
	ticketsSession, err := tickets.NewSession(cfg.Discord.TicketsToken)
	if err != nil {
		logger.Fatal("failed to build tickets session", zap.Error(err))
	}
	gateway := tickets.NewGateway(ticketsSession, cfg, logger)

	transcripts := service.NewTranscriptService(service.TranscriptDependencies{
		Exporter:  tickets.NewExporter(ticketsSession),
		Store:     artifacts,
		Deliverer: tickets.NewDeliverer(ticketsSession, cfg),
		Links:     tokens,
		Gateway:   gateway,
		Retention: cfg.Transcript.Retention(),
		Logger:    logger,
	})

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  ticketRepo,
		Policy:      authz.NewPolicy(cfg.Roles),
		Gateway:     gateway,
		Prompts:     gateway,
		Enricher:    enricher,
		Transcripts: transcripts,
		Dispatcher:  dispatcher,
		Tickets:     cfg.Tickets,
		Roles:       cfg.Roles,
		Logger:      logger,
	})

	ticketsBot := tickets.New(ticketsSession, ticketService, gateway, cfg, logger, metrics)
	if err := ticketsBot.Start(); err != nil {
		logger.Fatal("failed to start tickets bot", zap.Error(err))
	}
	defer ticketsBot.Stop()

	report, err := ticketService.Rehydrate(ctx)
	if err != nil {
		logger.Error("rehydration failed", zap.Error(err))
	} else {
		logger.Info("interactive surfaces rehydrated",
			zap.String("prompt_message_id", report.PromptMessageID),
			zap.Bool("prompt_posted", report.PromptPosted),
			zap.Int("open_tickets", report.OpenTickets),
			zap.Int("missing_channels", len(report.MissingChannels)))
	}

	finderSession, err := finder.NewSession(cfg.Discord.FinderToken)
	if err != nil {
		logger.Fatal("failed to build finder session", zap.Error(err))
	}
	finderBot := finder.New(finderSession, playerRepo, cfg, logger, metrics)
	if err := finderBot.Start(); err != nil {
		logger.Fatal("failed to start finder bot", zap.Error(err))
	}
	defer finderBot.Stop()

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:      handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, gamedb, metrics),
		Transcripts: handlers.NewTranscriptHandler(artifacts, tokens),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
