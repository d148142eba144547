package admin

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/cardswitch/card-switch/internal/admin/handler"
	"github.com/cardswitch/card-switch/internal/admin/middleware"
)

// setupRouter configures the admin routes and middleware
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	auditor middleware.SecurityAuditor,
	statusHandler *handler.StatusHandler,
	routingHandler *handler.RoutingHandler,
	auditHandler *handler.AuditHandler,
) {
	r.Use(middleware.Recovery(logger, auditor))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	// Admin v1 endpoints
	v1 := r.Group("/admin/v1")
	{
		rules := v1.Group("/routing-rules")
		{
			rules.GET("", routingHandler.List)
			rules.POST("", routingHandler.Create)
			rules.PUT("/:id", routingHandler.Update)
		}

		v1.GET("/audit-records", auditHandler.ListByTimeRange)
		v1.GET("/stats", statusHandler.Stats)
	}

	// Health check endpoint for monitoring
	r.GET("/health", statusHandler.Health)
}
