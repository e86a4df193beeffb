package handler

import (
	"wallet-withdrawal-engine/internal/adapter/http/middleware"
	"wallet-withdrawal-engine/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	WithdrawalSvc  ports.WithdrawalService
	Verifier       ports.AuthorizationVerifier
	TokenSvc       ports.TokenService
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep, verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// API v1 routes
	v1 := r.Group("/api/v1")

	// --- Public routes (no auth) ---
	authHandler := NewAuthHandler(deps.Verifier)
	auth := v1.Group("/auth")
	{
		auth.POST("/challenge", authHandler.CreateChallenge)
	}

	// --- Session-authenticated routes ---
	sessionAuth := middleware.SessionAuth(deps.TokenSvc, deps.Logger)
	withdrawalHandler := NewWithdrawalHandler(deps.WithdrawalSvc)
	walletHandler := NewWalletHandler(deps.WithdrawalSvc)
	transactionHandler := NewTransactionHandler(deps.WithdrawalSvc)

	wallets := v1.Group("/wallets", sessionAuth)
	{
		wallets.POST("/withdrawals/initiate", withdrawalHandler.Initiate)
		wallets.POST("/withdrawals/authorize", withdrawalHandler.Authorize)
		wallets.POST("/withdraw", withdrawalHandler.Withdraw)
		wallets.GET("/balance/:asset_id", walletHandler.GetBalance)
	}

	transactions := v1.Group("/transactions", sessionAuth)
	{
		transactions.GET("", transactionHandler.List)
		transactions.GET("/:id", transactionHandler.Get)
	}

	return r
}
