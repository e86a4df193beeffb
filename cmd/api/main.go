package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wallet-withdrawal-engine/config"
	httpHandler "wallet-withdrawal-engine/internal/adapter/http/handler"
	"wallet-withdrawal-engine/internal/adapter/notifier"
	"wallet-withdrawal-engine/internal/adapter/oracle"
	pgStorage "wallet-withdrawal-engine/internal/adapter/storage/postgres"
	redisStorage "wallet-withdrawal-engine/internal/adapter/storage/redis"
	"wallet-withdrawal-engine/internal/core/ports"
	"wallet-withdrawal-engine/internal/service"
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
	log := logger.New("api", cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting Wallet Withdrawal Engine API")

	ctx := context.Background()

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

	// Initialize repositories
	withdrawalRepo := pgStorage.NewWithdrawalRepo(pool)
	ledgerRepo := pgStorage.NewLedgerRepo(pool)
	assetRepo := pgStorage.NewAssetRepo(pool)
	credRepo := pgStorage.NewCredentialRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize Redis stores
	challengeStore := redisStorage.NewChallengeStore(rdb)
	taskQueue := redisStorage.NewTaskQueue(rdb)
	attemptStore := redisStorage.NewAttemptStore(rdb)

	// Initialize core services
	hasher := service.NewArgon2PINHasher()
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	pricingOracle := oracle.NewClient(cfg.Oracle, log)

	// Terminal notifications. Without a configured broker the API falls
	// back to a no-op sink; the worker is the primary publisher anyway.
	var notifySink ports.Notifier = notifier.NewNoop()
	if len(cfg.Kafka.Brokers) > 0 && cfg.Kafka.Topic != "" {
		notifySink = notifier.NewKafkaNotifier(cfg.Kafka, log)
	}

	// Initialize business services
	verifier := service.NewAuthorizationService(
		credRepo,
		hasher,
		challengeStore,
		attemptStore,
		cfg.Auth.MaxFailedAttempts,
		cfg.Auth.LockoutWindow,
		cfg.Auth.ChallengeTTL,
		log,
	)
	withdrawalSvc := service.NewWithdrawalService(
		withdrawalRepo,
		ledgerRepo,
		assetRepo,
		verifier,
		pricingOracle,
		taskQueue,
		notifySink,
		transactor,
		log,
	)

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		WithdrawalSvc:  withdrawalSvc,
		Verifier:       verifier,
		TokenSvc:       tokenSvc,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
