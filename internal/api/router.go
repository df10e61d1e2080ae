package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/taylorsterlingwrites/threshold-compass/internal/auth"
)

// NewRouter wires every route. /healthz and /metrics are public.
func NewRouter(app App, provider auth.Provider, origins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestIDMiddleware(), MetricsMiddleware(), CORSMiddleware(origins))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	g := r.Group("/api", auth.AuthMiddleware(provider))
	g.POST("/doses", PostDose(app))
	g.GET("/doses", GetDoses(app))
	g.POST("/check-ins", PostCheckIn(app))
	g.GET("/check-ins", GetCheckIns(app))
	g.POST("/batches", PostBatch(app))
	g.GET("/batches", GetBatches(app))
	g.GET("/batches/:id/threshold", GetThreshold(app))
	g.GET("/carryover", GetCarryover(app))
	g.GET("/insights/patterns", GetPatterns(app))

	return r
}
