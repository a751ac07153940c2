package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/feichai0017/songplay-etl/api/handlers"
	"github.com/feichai0017/songplay-etl/api/middleware"
)

// SetupRoutes registers the API plus the health and metrics endpoints.
func SetupRoutes(r *gin.Engine, h *handlers.Handlers, gatherer prometheus.Gatherer, corsOrigins ...string) {
	r.Use(middleware.CORS(corsOrigins...))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	v1 := r.Group("/api/v1")

	runs := v1.Group("/runs")
	{
		runs.POST("", h.Run.StartRun)
		runs.GET("/:runId", h.Run.GetRun)
		runs.DELETE("/:runId", h.Run.CancelRun)
	}

	v1.GET("/catalog", h.Catalog.GetSources)
}
