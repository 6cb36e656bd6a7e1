package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/reelforge/reelforge/internal/config"
	"github.com/reelforge/reelforge/internal/handler"
	"github.com/reelforge/reelforge/internal/infra/postgresql"
	"github.com/reelforge/reelforge/internal/infra/postgresql/migrations"
	infraredis "github.com/reelforge/reelforge/internal/infra/redis"
	"github.com/reelforge/reelforge/internal/observability"
	"github.com/reelforge/reelforge/internal/provider"
	"github.com/reelforge/reelforge/internal/queue"
	"github.com/reelforge/reelforge/internal/repository"
	"github.com/reelforge/reelforge/internal/service"
	"github.com/reelforge/reelforge/internal/transport"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("postgres initialization failed", zap.Error(err))
	}

	if err := migrations.Migrate(db); err != nil {
		logger.Fatal("database migrations failed", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("postgres underlying db init failed", zap.Error(err))
	}
	defer sqlDB.Close()

	rdb, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	rabbit, err := queue.NewRabbitMQ(cfg.RabbitMQURL)
	if err != nil {
		logger.Fatal("rabbitmq initialization failed", zap.Error(err))
	}
	defer rabbit.Close()

	publisher := queue.NewRabbitMQPublisher(rabbit)
	consumer := queue.NewRabbitMQConsumer(rabbit, cfg.WorkerConcurrency, logger)

	projectRepo := repository.NewGormProjectRepo(db)
	campaignRepo := repository.NewGormCampaignRepo(db)
	itemRepo := repository.NewGormCampaignItemRepo(db)
	attemptRepo := repository.NewGormAttemptRepo(db)

	metrics := observability.NewMetrics()

	generator, err := provider.NewHTTPGenerator(cfg.GeneratorURL)
	if err != nil {
		logger.Fatal("generation provider initialization failed", zap.Error(err))
	}

	rateLimiter, err := infraredis.NewRedisRateLimiter(rdb, cfg.RateLimitPerSec)
	if err != nil {
		logger.Fatal("rate limiter initialization failed", zap.Error(err))
	}

	wizardService, err := service.NewWizardService(projectRepo, metrics, logger)
	if err != nil {
		logger.Fatal("wizard service initialization failed", zap.Error(err))
	}

	campaignService, err := service.NewCampaignService(campaignRepo, itemRepo, publisher, logger)
	if err != nil {
		logger.Fatal("campaign service initialization failed", zap.Error(err))
	}

	workerService, err := service.NewWorkerService(
		itemRepo,
		campaignRepo,
		projectRepo,
		attemptRepo,
		consumer,
		generator,
		rateLimiter,
		cfg.WorkerConcurrency,
		logger,
	)
	if err != nil {
		logger.Fatal("worker service initialization failed", zap.Error(err))
	}
	workerService.SetMetrics(metrics)

	retryScanner, err := service.NewRetryScanner(itemRepo, campaignRepo, publisher, cfg.RetryScanInterval, 0, logger)
	if err != nil {
		logger.Fatal("retry scanner initialization failed", zap.Error(err))
	}

	var publishScanner *service.PublishScanner
	if cfg.PublishURL != "" {
		socialPublisher, err := provider.NewHTTPSocialPublisher(cfg.PublishURL, cfg.PublishAPIKey)
		if err != nil {
			logger.Fatal("social publisher initialization failed", zap.Error(err))
		}

		publishScanner, err = service.NewPublishScanner(itemRepo, campaignRepo, socialPublisher, cfg.PublishScanInterval, 0, logger)
		if err != nil {
			logger.Fatal("publish scanner initialization failed", zap.Error(err))
		}
		publishScanner.SetMetrics(metrics)
	} else {
		logger.Info("publish url not configured, scheduled publishing disabled")
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(logger),
	})
	app.Use(metrics.HTTPMiddleware())

	handler.RegisterHealthRoutes(app, sqlDB, rdb)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	if err := handler.RegisterProjectRoutes(app, wizardService); err != nil {
		logger.Fatal("failed to register project routes", zap.Error(err))
	}
	if err := handler.RegisterCampaignRoutes(app, campaignService); err != nil {
		logger.Fatal("failed to register campaign routes", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("reelforge api started", zap.Int("port", cfg.APIPort))
		return app.Listen(fmt.Sprintf(":%d", cfg.APIPort))
	})

	g.Go(func() error {
		logger.Info("generation workers started",
			zap.Int("concurrency", cfg.WorkerConcurrency),
			zap.Strings("queues", queue.WorkQueueNames()),
		)
		return workerService.Start(gctx)
	})

	g.Go(func() error {
		return retryScanner.Start(gctx)
	})

	if publishScanner != nil {
		g.Go(func() error {
			return publishScanner.Start(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		return app.ShutdownWithTimeout(shutdownTimeout)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("service exited with error", zap.Error(err))
	}

	logger.Info("shutdown complete")
}
