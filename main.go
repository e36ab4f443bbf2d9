package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/risiti/risiti-backend/config"
	"github.com/risiti/risiti-backend/db"
	"github.com/risiti/risiti-backend/handlers"
	"github.com/risiti/risiti-backend/logger"
	"github.com/risiti/risiti-backend/pkg/traportal"
	"github.com/risiti/risiti-backend/router"
	"github.com/risiti/risiti-backend/services"
	"github.com/risiti/risiti-backend/store/postgres"
)

const version = "1.0.0"

func main() {
	logger.InitLogger()
	log := logger.GetLogger()
	defer func() {
		_ = logger.Close()
	}()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := db.RunMigrations(cfg.Database.URL()); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.ConnString())
	if err != nil {
		log.Fatalf("Failed to parse database config: %v", err)
	}
	if cfg.Database.MaxOpenConns > 0 {
		poolConfig.MaxConns = int32(cfg.Database.MaxOpenConns)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	// Stores
	deviceStore := postgres.NewPgDeviceStore(pool)
	configStore := postgres.NewPgConfigStore(pool)
	submissionStore := postgres.NewPgSubmissionStore(pool)
	receiptStore := postgres.NewPgReceiptStore(pool)

	// Pipeline services
	broadcaster := services.NewBroadcaster(cfg.Stream.BufferSize)
	dispatcher := services.NewDispatchRouter(configStore)
	notifier := services.NewFanoutNotifier(broadcaster, dispatcher)

	portalClient := traportal.NewClient(cfg.Pipeline.FetchTimeout())
	fetcher := services.NewFetcher(portalClient, submissionStore,
		cfg.Pipeline.MaxFetchRetries, cfg.Pipeline.FetchRetryDelay())
	extractor := services.NewLLMExtractor()

	processor := services.NewProcessor(configStore, submissionStore, receiptStore,
		fetcher, extractor, notifier)
	runner := services.NewRunner(submissionStore, processor, cfg.Pipeline.StaleJobThreshold())
	runner.Start(ctx)

	// Handlers
	receiptHandler := handlers.NewReceiptHandler(configStore, submissionStore,
		notifier, runner, cfg.Storage)
	tasksHandler := handlers.NewTasksHandler(runner, cfg.Server.RunnerSecret)
	streamHandler := handlers.NewStreamHandler(broadcaster, cfg.Stream.KeepAlive())
	healthHandler := handlers.NewHealthHandler(pool, version)

	r := router.SetupRouter(router.Dependencies{
		Config:         cfg,
		DeviceStore:    deviceStore,
		ReceiptHandler: receiptHandler,
		TasksHandler:   tasksHandler,
		StreamHandler:  streamHandler,
		HealthHandler:  healthHandler,
		Logger:         log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Server shutdown failed", "error", err)
	}
}
