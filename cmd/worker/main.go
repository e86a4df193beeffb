package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"wallet-withdrawal-engine/config"
	"wallet-withdrawal-engine/internal/adapter/notifier"
	"wallet-withdrawal-engine/internal/adapter/rail"
	pgStorage "wallet-withdrawal-engine/internal/adapter/storage/postgres"
	redisStorage "wallet-withdrawal-engine/internal/adapter/storage/redis"
	"wallet-withdrawal-engine/internal/core/ports"
	"wallet-withdrawal-engine/internal/worker"
	"wallet-withdrawal-engine/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New("worker", cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Int("concurrency", cfg.Worker.Concurrency).
		Int("max_attempts", cfg.Worker.MaxAttempts).
		Msg("Starting Wallet Withdrawal Engine worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories and stores
	withdrawalRepo := pgStorage.NewWithdrawalRepo(pool)
	ledgerRepo := pgStorage.NewLedgerRepo(pool)
	transactor := pgStorage.NewTransactor(pool)
	taskQueue := redisStorage.NewTaskQueue(rdb)
	leaseStore := redisStorage.NewLeaseStore(rdb)

	// Initialize external rails
	bankRail := rail.NewBankClient(cfg.Rail, log)
	chainRail := rail.NewChainClient(cfg.Rail, log)

	// Terminal notifications
	var notifySink ports.Notifier = notifier.NewNoop()
	if len(cfg.Kafka.Brokers) > 0 && cfg.Kafka.Topic != "" {
		notifySink = notifier.NewKafkaNotifier(cfg.Kafka, log)
	}

	// Executor drains the queue; reconciler re-drives anything that leaked
	// past it.
	executor := worker.NewExecutor(
		withdrawalRepo,
		ledgerRepo,
		taskQueue,
		leaseStore,
		bankRail,
		chainRail,
		notifySink,
		transactor,
		worker.ExecutorConfig{
			Concurrency:  cfg.Worker.Concurrency,
			MaxAttempts:  cfg.Worker.MaxAttempts,
			RetryBackoff: cfg.Worker.RetryBackoff,
			LeaseTTL:     cfg.Worker.LeaseTTL,
		},
		log,
	)
	reconciler := worker.NewReconciler(
		withdrawalRepo,
		ledgerRepo,
		taskQueue,
		notifySink,
		transactor,
		cfg.Worker.SweepInterval,
		cfg.Worker.SweepThreshold,
		cfg.Worker.MaxAttempts,
		log,
	)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		executor.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		reconciler.Run(ctx)
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down worker...")

	cancel()
	wg.Wait()

	log.Info().Msg("Worker exited")
}
