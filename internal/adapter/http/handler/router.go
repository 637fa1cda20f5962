package handler

import (
	"donation-settlement-engine/internal/adapter/http/middleware"
	redisStore "donation-settlement-engine/internal/adapter/storage/redis"
	"donation-settlement-engine/internal/core/ports"
	"donation-settlement-engine/pkg/metrics"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	SettlementSvc   ports.SettlementService
	ProvisioningSvc ports.ProvisioningService
	TraceSvc        ports.TraceService
	DonationRepo    ports.DonationRepository
	TokenSvc        ports.TokenService
	RateLimitStore  *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers  []ports.HealthChecker
	Logger          zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep — verifies PostgreSQL + Redis + ledger)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Prometheus metrics
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Rate limit rules
	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	// API v1 routes
	v1 := r.Group("/api/v1")

	// --- Public routes (no auth) ---
	traceHandler := NewTraceHandler(deps.TraceSvc)
	transactions := v1.Group("/transactions")
	{
		transactions.GET("/:id/trace", rl("trace"), traceHandler.Trace)
	}

	// --- JWT-authenticated routes ---
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
	walletHandler := NewWalletHandler(deps.ProvisioningSvc, deps.SettlementSvc)
	donationHandler := NewDonationHandler(deps.SettlementSvc, deps.DonationRepo)
	transferHandler := NewTransferHandler(deps.SettlementSvc)

	wallets := v1.Group("/wallets", jwtAuth)
	{
		wallets.POST("", rl("wallets_create"), walletHandler.CreateWallet)
		wallets.GET("/balance", rl("dashboard"), walletHandler.GetBalance)
		wallets.GET("/validate/:address", rl("dashboard"), walletHandler.ValidateWallet)
	}

	projects := v1.Group("/projects", jwtAuth)
	{
		projects.POST("/:id/wallet", rl("wallets_create"), walletHandler.CreateProjectWallet)
	}

	donations := v1.Group("/donations", jwtAuth)
	{
		donations.POST("", rl("donations"), donationHandler.Donate)
		donations.GET("", rl("dashboard"), donationHandler.ListDonations)
	}

	transfers := v1.Group("/transfers", jwtAuth)
	{
		transfers.POST("", rl("transfers"), transferHandler.Transfer)
	}

	return r
}
