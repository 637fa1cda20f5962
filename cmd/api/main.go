package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"donation-settlement-engine/config"
	amqpAdapter "donation-settlement-engine/internal/adapter/amqp"
	httpHandler "donation-settlement-engine/internal/adapter/http/handler"
	"donation-settlement-engine/internal/adapter/ledger"
	"donation-settlement-engine/internal/adapter/mirror"
	pgStorage "donation-settlement-engine/internal/adapter/storage/postgres"
	redisStorage "donation-settlement-engine/internal/adapter/storage/redis"
	"donation-settlement-engine/internal/core/ports"
	"donation-settlement-engine/internal/service"
	"donation-settlement-engine/internal/sweeper"
	"donation-settlement-engine/internal/worker"
	"donation-settlement-engine/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Str("network", cfg.Ledger.Network).
		Int("port", cfg.Server.Port).
		Msg("Starting Donation Settlement Engine")

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

	// Initialize ledger network client
	ledgerClient, err := ledger.NewClient(cfg.Ledger, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize ledger client")
	}
	defer ledgerClient.Close()
	log.Info().Str("operator", cfg.Ledger.OperatorID).Msg("Ledger client ready")

	// Initialize mirror observer client
	observer := mirror.NewClient(cfg.Ledger.MirrorURL(), &http.Client{Timeout: cfg.Ledger.RequestTimeout}, log)

	// Initialize repositories
	walletRepo := pgStorage.NewWalletRepo(pool)
	donationRepo := pgStorage.NewDonationRepo(pool)
	projectRepo := pgStorage.NewProjectRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize Redis stores
	pendingStore := redisStorage.NewPendingStore(rdb)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Initialize custody
	var custodySvc ports.CustodyService
	if cfg.Custody.Key != "" {
		custodySvc, err = service.NewAESCustodyService(cfg.Custody.Key)
	} else {
		custodySvc, err = service.NewAESCustodyServiceFromPassphrase(cfg.Custody.Passphrase, cfg.Custody.Salt)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize custody service")
	}

	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)

	// Worker pool bounds concurrent ledger and observer round trips
	runner := worker.New(cfg.Ledger.WorkerPoolSize, log)

	// Optional notification publisher; a missing broker never blocks startup
	var notifier ports.Notifier
	if cfg.AMQP.URL != "" {
		amqpNotifier, err := amqpAdapter.NewNotifier(cfg.AMQP.URL, cfg.AMQP.Exchange, log)
		if err != nil {
			log.Warn().Err(err).Msg("AMQP unavailable, notifications disabled")
		} else {
			defer amqpNotifier.Close()
			notifier = amqpNotifier
		}
	}

	// Initialize business services
	verificationSvc := service.NewVerificationService(observer, runner, cfg.Ledger.VerifyGracePeriod, cfg.Ledger.VerifyMaxAttempts, log)
	reconciliationSvc := service.NewReconciliationService(
		transactor,
		donationRepo,
		projectRepo,
		pendingStore,
		verificationSvc,
		notifier,
		cfg.Sweep.OlderThan,
		cfg.Sweep.BatchSize,
		log,
	)
	settlementSvc, err := service.NewSettlementService(
		walletRepo,
		projectRepo,
		custodySvc,
		ledgerClient,
		runner,
		reconciliationSvc,
		cfg.Ledger.MaxTransferHbar,
		log,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize settlement service")
	}
	provisioningSvc := service.NewProvisioningService(
		walletRepo,
		custodySvc,
		ledgerClient,
		runner,
		notifier,
		cfg.Ledger.InitialBalanceHbar,
		log,
	)
	traceSvc := service.NewTraceService(verificationSvc, donationRepo, log)

	// Periodic reconciliation sweep
	sweep := sweeper.New(reconciliationSvc, cfg.Sweep.Schedule, cfg.Sweep.Timeout, log)
	if err := sweep.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start reconciliation sweeper")
	}
	defer sweep.Stop()

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		SettlementSvc:   settlementSvc,
		ProvisioningSvc: provisioningSvc,
		TraceSvc:        traceSvc,
		DonationRepo:    donationRepo,
		TokenSvc:        tokenSvc,
		RateLimitStore:  rateLimitStore,
		HealthCheckers:  []ports.HealthChecker{pgHealth, redisHealth},
		Logger:          log,
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
