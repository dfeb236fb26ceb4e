package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mokosmart/internal/config"
	"mokosmart/internal/constants"
	"mokosmart/internal/logger"
	"mokosmart/pkg/health"
	"mokosmart/pkg/middleware"
	"mokosmart/pkg/ratelimit"
	"mokosmart/pkg/tracing"
)

// NewRouter builds the gin engine. ctx bounds background work started by
// middleware.
func NewRouter(ctx context.Context, cfg *config.Config, log logger.Logger, registry *health.CheckerRegistry, handler *Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware(constants.ServiceName))
	}

	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.LoggerMiddleware(log))

	var apiMiddleware []gin.HandlerFunc
	if cfg.API.RateLimit.Enabled {
		rateLimitConfig := ratelimit.FromConfig(cfg.API.RateLimit)
		apiMiddleware = append(apiMiddleware, ratelimit.RateLimitMiddleware(ctx, rateLimitConfig))
		log.InfowCtx(ctx, "Rate limiting enabled", "rps", rateLimitConfig.RPS, "burst", rateLimitConfig.Burst)
	}
	handler.RegisterRoutes(router, apiMiddleware...)

	router.GET("/health", func(c *gin.Context) {
		h := registry.Check(c.Request.Context())
		statusCode := http.StatusOK
		if h.Status == health.StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		c.JSON(statusCode, h)
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}
