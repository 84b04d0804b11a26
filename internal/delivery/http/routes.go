package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/pricelens/backend/config"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler, logger zerolog.Logger) *gin.Engine {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RequestIDMiddleware())
	router.Use(RecoveryMiddleware(logger))
	router.Use(LoggerMiddleware(logger))
	router.Use(MetricsMiddleware())
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	router.GET("/health", handler.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	v1.Use(RateLimitMiddleware(cfg.RateLimit.PerIP))
	{
		prices := v1.Group("/prices")
		{
			prices.POST("/observations", handler.RecordObservation)
			prices.GET("/:item", handler.LookupPrices)
		}

		items := v1.Group("/items")
		{
			items.POST("/resolve", handler.ResolveItem)
			items.POST("/suggest", handler.SuggestItems)
		}

		variants := v1.Group("/variants")
		{
			variants.PUT("", handler.SaveVariant)
			variants.GET("/:item", handler.ListVariants)
		}

		lists := v1.Group("/lists")
		{
			lists.POST("/compare", handler.CompareStores)
			lists.PUT("/:id/items", handler.PutListItems)
			lists.POST("/:id/switch-store", handler.SwitchStore)
			lists.POST("/:id/estimate", handler.EstimateMissing)
		}
	}

	return router
}
