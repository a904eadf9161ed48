package handler

import (
	"vtu-wallet/config"
	"vtu-wallet/internal/adapter/http/middleware"
	"vtu-wallet/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	PurchaseSvc    ports.PurchaseService
	FundingSvc     ports.FundingService
	WebhookSvc     ports.WebhookIngestor
	Sweeper        ports.RequerySweeper
	TokenSvc       ports.TokenService
	WalletRepo     ports.WalletRepository
	TxRepo         ports.TransactionRepository
	ContactRepo    ports.FrequentContactRepository
	HealthCheckers []ports.HealthChecker
	Requery        config.RequeryConfig
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep, verifies PostgreSQL + Redis)
	r.GET("/healthz", HealthCheck(deps.HealthCheckers...))

	// Webhooks are unauthenticated; the HMAC signature over the body is
	// the trust anchor.
	webhookHandler := NewWebhookHandler(deps.WebhookSvc)
	r.POST("/webhooks/funding", webhookHandler.HandleFunding)

	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)

	// --- JWT-authenticated user routes ---
	v1 := r.Group("/api/v1", jwtAuth)

	topupHandler := NewTopupHandler(deps.PurchaseSvc, deps.ContactRepo)
	v1.POST("/airtime", topupHandler.BuyAirtime)
	v1.POST("/data", topupHandler.BuyData)
	v1.GET("/contacts/frequent", topupHandler.FrequentContacts)

	walletHandler := NewWalletHandler(deps.WalletRepo, deps.FundingSvc)
	wallet := v1.Group("/wallet")
	{
		wallet.GET("", walletHandler.GetWallet)
		wallet.POST("/fund", walletHandler.FundWallet)
		wallet.GET("/verify/:reference", walletHandler.VerifyFunding)
	}

	txnHandler := NewTransactionHandler(deps.TxRepo)
	transactions := v1.Group("/transactions")
	{
		transactions.GET("", txnHandler.ListTransactions)
		transactions.GET("/:reference", txnHandler.GetTransaction)
	}

	// --- Operator routes ---
	adminHandler := NewAdminHandler(deps.Sweeper, deps.TxRepo, deps.Requery)
	admin := r.Group("/admin", jwtAuth)
	{
		admin.POST("/requery/:reference", adminHandler.RequeryTransaction)
		admin.GET("/transactions/stuck", adminHandler.ListStuck)
	}

	return r
}
