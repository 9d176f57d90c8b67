// Package routes defines API routes.
package routes

import (
	swaggerfiles "github.com/swaggo/files"
	ginswagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	_ "keyhaven/docs"
	"keyhaven/internal/api/handlers"
	"keyhaven/internal/api/middleware"
	"keyhaven/internal/apiauth"
	"keyhaven/internal/metrics"
	"keyhaven/internal/proxydialer"
	"keyhaven/internal/repository"
	"keyhaven/internal/router"
	"keyhaven/internal/scheduler"
	"keyhaven/internal/telemetry"
)

// Services holds all component dependencies the route table wires up.
type Services struct {
	Store     *repository.Store
	Proxies   *proxydialer.Cache
	Router    *router.Router
	Scheduler *scheduler.Scheduler
	AuthGate  *apiauth.AuthGate
	Metrics   *metrics.Registry
}

// Setup configures every HTTP route: the management surface, the
// OpenAI-compatible surface, and the operational endpoints (health,
// metrics, docs).
func Setup(engine *gin.Engine, services *Services, logger *zap.Logger) {
	corsMiddleware := middleware.NewCORSMiddleware(nil)
	loggingMiddleware := middleware.NewLoggingMiddleware(logger)
	recoveryMiddleware := middleware.NewRecoveryMiddleware(logger)

	engine.Use(corsMiddleware.Handle())
	engine.Use(loggingMiddleware.Log())
	engine.Use(recoveryMiddleware.Recover())
	engine.Use(telemetry.SentryMiddleware())

	healthHandler := handlers.NewHealthHandler()
	engine.GET("/health", healthHandler.Get)

	if services.Metrics != nil {
		engine.GET("/metrics", services.Metrics.Handler())
	}

	engine.GET("/docs/*any", ginswagger.WrapHandler(swaggerfiles.Handler))

	channelHandler := handlers.NewChannelHandler(services.Store, services.Proxies, logger)
	keyHandler := handlers.NewKeyHandler(services.Store, services.Scheduler, logger)
	proxyHandler := handlers.NewProxyHandler(services.Store, services.Proxies, logger)
	tokenHandler := handlers.NewTokenHandler(services.Store, logger)
	statsHandler := handlers.NewStatsHandler(services.Store, logger)
	logHandler := handlers.NewLogHandler(services.Store, logger)
	chatHandler := handlers.NewChatHandler(services.Router, logger)
	modelsHandler := handlers.NewModelsHandler(services.Router, logger)

	api := engine.Group("/api")
	{
		channels := api.Group("/channels")
		{
			channels.GET("", channelHandler.List)
			channels.POST("", channelHandler.Create)
			channels.GET("/:id", channelHandler.Get)
			channels.PUT("/:id", channelHandler.Update)
			channels.DELETE("/:id", channelHandler.Delete)
		}

		keys := api.Group("/keys")
		{
			keys.GET("", keyHandler.List)
			keys.POST("", keyHandler.Create)
			keys.POST("/import", keyHandler.Import)
			keys.POST("/check-all", keyHandler.CheckAll)
			keys.GET("/:id", keyHandler.Get)
			keys.PUT("/:id", keyHandler.Update)
			keys.DELETE("/:id", keyHandler.Delete)
			keys.POST("/:id/check", keyHandler.Check)
		}

		proxies := api.Group("/proxies")
		{
			proxies.GET("", proxyHandler.List)
			proxies.POST("", proxyHandler.Create)
			proxies.GET("/:id", proxyHandler.Get)
			proxies.PUT("/:id", proxyHandler.Update)
			proxies.DELETE("/:id", proxyHandler.Delete)
			proxies.POST("/:id/test", proxyHandler.Test)
		}

		tokens := api.Group("/tokens")
		{
			tokens.GET("", tokenHandler.List)
			tokens.POST("", tokenHandler.Create)
			tokens.PUT("/:id", tokenHandler.Update)
			tokens.DELETE("/:id", tokenHandler.Delete)
		}

		api.GET("/stats", statsHandler.Get)
		api.GET("/logs", logHandler.List)
	}

	v1 := engine.Group("/v1")
	v1.Use(services.AuthGate.Middleware())
	{
		v1.POST("/chat/completions", chatHandler.ChatCompletion)
		v1.GET("/models", modelsHandler.List)
		v1.POST("/embeddings", chatHandler.Embeddings)
		v1.POST("/images/generations", chatHandler.ImagesGenerations)
	}
}
