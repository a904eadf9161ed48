package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vtu-wallet/config"
	fundingProvider "vtu-wallet/internal/adapter/provider/funding"
	topupProvider "vtu-wallet/internal/adapter/provider/topup"
	httpHandler "vtu-wallet/internal/adapter/http/handler"
	pgStorage "vtu-wallet/internal/adapter/storage/postgres"
	redisStorage "vtu-wallet/internal/adapter/storage/redis"
	"vtu-wallet/internal/core/ports"
	"vtu-wallet/internal/service"
	"vtu-wallet/pkg/logger"
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
		Int("port", cfg.Server.Port).
		Msg("Starting VTU wallet service")

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
	walletRepo := pgStorage.NewWalletRepo(pool)
	txRepo := pgStorage.NewTransactionRepo(pool)
	topupRepo := pgStorage.NewTopupRecordRepo(pool)
	contactRepo := pgStorage.NewFrequentContactRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize Redis stores
	refCache := redisStorage.NewReferenceCache(rdb)

	// Initialize provider clients
	topupClient := topupProvider.NewClient(cfg.Topup, &http.Client{Timeout: cfg.Topup.Timeout}, log)
	fundingClient := fundingProvider.NewClient(cfg.Funding, &http.Client{Timeout: cfg.Funding.Timeout}, log)

	// Initialize the reconciliation engine and requery sweeper
	reconciler := service.NewReconcileService(transactor, txRepo, walletRepo, topupRepo, contactRepo, log)
	scheduler := service.NewRequeryScheduler(cfg.Requery, txRepo, topupClient, fundingClient, reconciler, log)
	scheduler.Start(ctx)

	// Initialize business services
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	purchaseSvc := service.NewPurchaseService(transactor, walletRepo, txRepo, topupRepo, refCache, topupClient, reconciler, scheduler, log)
	fundingSvc := service.NewFundingService(transactor, walletRepo, txRepo, fundingClient, reconciler, scheduler, log)
	webhookSvc := service.NewWebhookService(transactor, walletRepo, txRepo, reconciler, cfg.Funding.SecretKey, log)

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		PurchaseSvc:    purchaseSvc,
		FundingSvc:     fundingSvc,
		WebhookSvc:     webhookSvc,
		Sweeper:        scheduler,
		TokenSvc:       tokenSvc,
		WalletRepo:     walletRepo,
		TxRepo:         txRepo,
		ContactRepo:    contactRepo,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		Requery:        cfg.Requery,
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

	scheduler.Stop()
	log.Info().Msg("Server exited")
}
