package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/unicatalog/backend/config"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RecoveryMiddleware())
	router.Use(LoggerMiddleware())
	router.Use(MetricsMiddleware())
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	// Health check and metrics endpoints
	router.GET("/health", handler.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes
	v1 := router.Group("/api/v1")
	v1.Use(RateLimitMiddleware(cfg.RateLimit.PerIP))
	{
		programs := v1.Group("/programs")
		{
			programs.GET("", handler.ListPrograms)
			programs.GET("/:id", handler.GetProgram)
		}

		v1.GET("/faculties", handler.ListFaculties)
		v1.POST("/catalog/reload", handler.ReloadCatalog)

		compare := v1.Group("/compare")
		compare.Use(SessionMiddleware())
		{
			compare.GET("", handler.GetSelection)
			compare.POST("", handler.AddToSelection)
			compare.DELETE("", handler.ClearSelection)
			compare.DELETE("/:id", handler.RemoveFromSelection)
			compare.POST("/toggle", handler.ToggleSelection)

			compare.GET("/queue", handler.GetQueue)
			compare.POST("/queue", handler.ToggleQueue)
			compare.POST("/drain", handler.DrainQueue)

			compare.GET("/rank", handler.RankSelection)
			compare.GET("/table", handler.CompareTable)
			compare.GET("/summary", handler.CompareSummary)
		}
	}

	return router
}
