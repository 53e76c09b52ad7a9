package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/crosslane/bridge_service/internal/api/handlers"
	"github.com/crosslane/bridge_service/internal/api/middleware"
	"github.com/crosslane/bridge_service/internal/infrastructure/di"
	"github.com/crosslane/bridge_service/pkg/metrics"
	"github.com/crosslane/bridge_service/pkg/tracing"
)

// SetupRoutes configures all application routes
func SetupRoutes(container *di.Container) *gin.Engine {
	router := gin.New()

	// Global middleware - order matters
	router.Use(tracing.HTTPMiddleware())
	router.Use(middleware.RequestID())
	router.Use(middleware.Metrics())
	router.Use(middleware.RequestSizeLimit())
	router.Use(middleware.Logger(container.Logger))
	router.Use(middleware.Recovery(container.Logger))
	router.Use(middleware.CORS(container.Config.Server.AllowedOrigins))
	router.Use(middleware.RateLimit(container.Config.Server.RateLimitPerMin))
	router.Use(middleware.SecurityHeaders())

	// Handlers
	coreHandlers := handlers.NewCoreHandlers(container.DB, container.RedisClient)
	chainHandlers := handlers.NewChainHandlers(container.ChainRegistry, container.ZapLog)
	validatorHandlers := handlers.NewValidatorHandlers(container.ValidatorService, container.ZapLog)
	bridgeHandlers := handlers.NewBridgeHandlers(container.LedgerService, container.ZapLog)
	challengeHandlers := handlers.NewChallengeHandlers(container.ChallengeService, container.ZapLog)
	liquidityHandlers := handlers.NewLiquidityHandlers(container.LiquidityService, container.ZapLog)
	routeHandlers := handlers.NewRouteHandlers(container.RouteAdvisor, container.ZapLog)
	adminHandlers := handlers.NewAdminHandlers(container.ControlService, container.EventService, container.ZapLog)

	// Health checks and metrics (no auth required)
	router.GET("/health", coreHandlers.Health)
	router.GET("/ready", coreHandlers.Ready)
	router.GET("/live", coreHandlers.Live)
	router.GET("/version", coreHandlers.Version)
	router.GET("/metrics", metrics.Handler())

	governance := middleware.Governance(container.Config, container.Logger)

	v1 := router.Group("/api/v1")
	{
		// Destination chain registry
		chains := v1.Group("/chains")
		{
			chains.GET("", chainHandlers.List)
			chains.GET("/:chain_id", chainHandlers.Get)
			chains.POST("", governance, chainHandlers.Register)
			chains.PATCH("/:chain_id/active", governance, chainHandlers.SetActive)
			chains.PATCH("/:chain_id/daily-limit", governance, chainHandlers.UpdateDailyLimit)
		}

		// Validator set
		vals := v1.Group("/validators")
		{
			vals.GET("", validatorHandlers.List)
			vals.GET("/:address", validatorHandlers.Get)
			vals.POST("", validatorHandlers.Join)
		}

		// Bridge transaction ledger
		transactions := v1.Group("/transactions")
		{
			transactions.POST("", bridgeHandlers.Initiate)
			transactions.GET("", bridgeHandlers.List)
			transactions.GET("/:id", bridgeHandlers.Get)
			transactions.POST("/:id/execute", bridgeHandlers.Execute)
			transactions.POST("/:id/cancel", governance, bridgeHandlers.Cancel)
			transactions.POST("/:id/challenges", challengeHandlers.Open)
		}

		// Challenge arbitration
		challenges := v1.Group("/challenges")
		{
			challenges.GET("", challengeHandlers.List)
			challenges.GET("/:id", challengeHandlers.Get)
			challenges.POST("/:id/resolve", governance, challengeHandlers.Resolve)
		}

		// Liquidity pools and instant settlement
		pools := v1.Group("/pools")
		{
			pools.GET("", liquidityHandlers.ListPools)
			pools.GET("/:symbol", liquidityHandlers.GetPool)
			pools.GET("/:symbol/metrics", liquidityHandlers.Metrics)
			pools.GET("/:symbol/positions/:provider", liquidityHandlers.GetPosition)
			pools.POST("", governance, liquidityHandlers.CreatePool)
			pools.POST("/deposit", liquidityHandlers.AddLiquidity)
			pools.POST("/withdraw", liquidityHandlers.RemoveLiquidity)
		}
		v1.POST("/instant", liquidityHandlers.InstantBridge)

		// Route advisor
		v1.POST("/routes/quote", routeHandlers.Quote)

		// Governance control plane
		admin := v1.Group("/admin", governance)
		{
			admin.POST("/pause", adminHandlers.Pause)
			admin.POST("/resume", adminHandlers.Resume)
			admin.GET("/status", adminHandlers.Status)
			admin.GET("/events", adminHandlers.Events)
		}
	}

	return router
}
