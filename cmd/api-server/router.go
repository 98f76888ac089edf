package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cinehub/internal/auth"
	"cinehub/internal/catalog"
	"cinehub/internal/middleware"
	"cinehub/internal/reviews"
	synchub "cinehub/internal/sync"
	"cinehub/pkg/models"
	"cinehub/pkg/utils"
)

// app is everything the router serves.
type app struct {
	Catalog  *catalog.Service
	Reviews  *reviews.Service
	Accounts *auth.Service
	Verifier auth.Verifier
	Hub      *synchub.Hub
	// Ping reports database health for /ready.
	Ping func(ctx context.Context) error
}

func newRouter(cfg *utils.Config, a app) *gin.Engine {
	router := gin.New()
	_ = router.SetTrustedProxies(cfg.Server.TrustedProxies)

	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.AccessLog(),
		middleware.CORS(cfg.CORS.Origins),
	)
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}

	router.GET("/ready", func(c *gin.Context) {
		stats := a.Hub.Stats()
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := a.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":      "not_ready",
				"db_error":    err.Error(),
				"tcp_clients": stats.TCPClients,
				"ws_clients":  stats.WSClients,
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":      "ready",
			"db":          "ok",
			"tcp_clients": stats.TCPClients,
			"ws_clients":  stats.WSClients,
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/ws", synchub.WSHandler(a.Hub))

	protect := auth.AuthMiddleware(a.Verifier)
	api := router.Group("/api")

	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message":   "cinehub api is running",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	auth.NewHandler(a.Accounts).RegisterRoutes(api.Group("/auth"), protect)
	catalog.NewHandler(a.Catalog, models.KindMovie).RegisterRoutes(api.Group("/movies"), protect)
	catalog.NewHandler(a.Catalog, models.KindTVShow).RegisterRoutes(api.Group("/tvshows"), protect)
	reviews.NewHandler(a.Reviews).RegisterRoutes(api.Group("/reviews"), protect)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})
	return router
}
