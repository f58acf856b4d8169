package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/command-tower/internal/api/http"
	"github.com/spec-kit/command-tower/internal/api/http/handlers"
	"github.com/spec-kit/command-tower/internal/config"
	"github.com/spec-kit/command-tower/internal/events"
	"github.com/spec-kit/command-tower/internal/fixture"
	"github.com/spec-kit/command-tower/internal/observability"
	"github.com/spec-kit/command-tower/internal/persistence"
	"github.com/spec-kit/command-tower/internal/repository"
	"github.com/spec-kit/command-tower/internal/service"
	"github.com/spec-kit/command-tower/internal/worker"
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

	if cfg.Postgres.RunMigrations && pg.PoolHandle() != nil {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	var ticketRepo repository.TicketRepository
	var actionRepo repository.ActionRepository
	if pool := pg.PoolHandle(); pool != nil {
		ticketRepo = repository.NewTicketRepository(pool)
		actionRepo = repository.NewActionRepository(pool)
	} else {
		ticketRepo = repository.NewMemoryTicketRepository()
		actionRepo = repository.NewMemoryActionRepository()
		if cfg.Seed.Enabled {
			seedFixtures(ctx, cfg.Seed, ticketRepo, actionRepo, logger)
		}
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	queryTimeout := cfg.Postgres.QueryTimeout()
	lifecycleService := service.NewLifecycleService(service.LifecycleDependencies{
		TicketRepo:   ticketRepo,
		Dispatcher:   dispatcher,
		QueryTimeout: queryTimeout,
	})
	escalationService := service.NewEscalationService(service.EscalationDependencies{
		ActionRepo:   actionRepo,
		Dispatcher:   dispatcher,
		Logger:       logger,
		QueryTimeout: queryTimeout,
	})
	statsService := service.NewStatsService(ticketRepo, queryTimeout)

	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	notificationService.RegisterHandlers()

	escalationWorker := worker.NewEscalationWorker(escalationService, redis, metrics, logger, cfg.Scheduler)
	escalationWorker.Start(ctx)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:  handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Tickets: handlers.NewTicketsHandler(lifecycleService, statsService),
		Actions: handlers.NewActionsHandler(escalationService),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	_ = app.Shutdown()
}

func seedFixtures(ctx context.Context, cfg config.SeedConfig, tickets repository.TicketRepository, actions repository.ActionRepository, logger *zap.Logger) {
	base := time.Now()
	for _, ticket := range fixture.Tickets(cfg.Value, cfg.Tickets, base) {
		t := ticket
		if err := tickets.Create(ctx, &t); err != nil {
			logger.Warn("failed to seed ticket", zap.String("id", ticket.ID), zap.Error(err))
		}
	}
	for _, action := range fixture.Actions(cfg.Value, cfg.Actions, base) {
		a := action
		if err := actions.Create(ctx, &a); err != nil {
			logger.Warn("failed to seed action", zap.String("id", action.ID), zap.Error(err))
		}
	}
	logger.Info("seeded demo fixtures",
		zap.Int64("seed", cfg.Value),
		zap.Int("tickets", cfg.Tickets),
		zap.Int("actions", cfg.Actions))
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
