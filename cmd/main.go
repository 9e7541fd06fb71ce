/**
 * @description
 * This is the main entry point for the direct debit service. It is a
 * long-running scheduled-job process: on each cron tick it executes the due
 * direct debit mandates, and it serves a small ops HTTP surface for health
 * checks and last-run status.
 *
 * Key features:
 * - Loads configuration from environment variables (with optional .env).
 * - Connects to Postgres (accounts, identities), MongoDB (mandates,
 *   movements), Redis (tick run lock) and RabbitMQ (user notifications).
 * - Starts the cron scheduler and an HTTP server, then waits for a
 *   termination signal to shut both down gracefully.
 */
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/vervebank/directdebit-service/internal/api"
	"github.com/vervebank/directdebit-service/internal/app"
	"github.com/vervebank/directdebit-service/internal/config"
	"github.com/vervebank/directdebit-service/internal/store"
	"github.com/vervebank/directdebit-service/pkg/rabbitmq"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// Load .env file for local development.
	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found, using environment variables")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	// Postgres: accounts and identities.
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Error("unable to parse database URL", "error", err)
		os.Exit(1)
	}
	poolConfig.MaxConns = 20
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	dbpool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Error("unable to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbpool.Close()
	logger.Info("database connection established")

	// MongoDB: mandates and the movement ledger.
	mongoClient, err := mongo.Connect(options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		logger.Error("unable to connect to mongodb", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := mongoClient.Disconnect(ctx); err != nil {
			logger.Warn("mongodb disconnect failed", "error", err)
		}
	}()
	logger.Info("mongodb connection established")

	// RabbitMQ: user notifications.
	producer, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL)
	if err != nil {
		logger.Error("failed to connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer producer.Close()
	logger.Info("rabbitmq producer connected")

	// Redis run lock is optional: without REDIS_URL the service assumes it
	// is the only instance.
	var lock app.RunLock
	if cfg.RedisURL != "" {
		redisOpts, err := goredis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("unable to parse redis URL", "error", err)
			os.Exit(1)
		}
		redisClient := goredis.NewClient(redisOpts)
		defer redisClient.Close()
		lock = app.NewRedisRunLock(redisClient, time.Duration(cfg.RunLockTTLSeconds)*time.Second)
		logger.Info("redis run lock enabled")
	}

	// Wire the engine.
	accounts := store.NewAccountRepository(dbpool)
	identities := store.NewIdentityRepository(dbpool)
	mandates := store.NewMandateRepository(mongoClient, cfg.MongoDatabase)
	movements := store.NewMovementRepository(mongoClient, cfg.MongoDatabase)
	notifier := rabbitmq.NewUserNotifier(producer, cfg.NotificationExchange)

	executor := app.NewExecutor(accounts, movements, identities, notifier, logger)
	jobs := app.NewJobs(mandates, executor, lock, logger, *cfg)
	scheduler := app.NewScheduler(jobs, logger, *cfg)

	scheduler.Start()
	logger.Info("scheduler started")

	// Ops HTTP server.
	router := api.NewRouter(api.NewStatusHandler(jobs))
	server := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		logger.Info("ops server starting", "port", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		}
	}()

	// Wait for a termination signal or a server failure. Either way control
	// returns here so the deferred closes above still run.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	waitForShutdown(sigCh, serverErrCh, logger)

	logger.Info("stopping scheduler")
	stopCtx := scheduler.Stop()
	<-stopCtx.Done() // Wait for any in-flight tick to finish

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("ops server shutdown failed", "error", err)
	}

	logger.Info("service stopped gracefully")
}

// waitForShutdown blocks until a termination signal arrives or the ops
// server reports a fatal error.
func waitForShutdown(sigCh <-chan os.Signal, serverErrCh <-chan error, logger *slog.Logger) {
	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErrCh:
		logger.Error("ops server failed", "error", err)
	}
}
