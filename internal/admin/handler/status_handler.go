// Package handler exposes the switch's operational surface: health,
// processing statistics, routing rule management and audit trail queries.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// PipelineStats reports worker pool processing counters.
type PipelineStats interface {
	TotalProcessed() int64
	ApprovedCount() int64
	DeclinedCount() int64
	FaultCount() int64
	Running() int
	Capacity() int
}

// QueueStats reports inbound queue occupancy.
type QueueStats interface {
	Depth() int
	Capacity() int
}

// HealthCheck probes one external dependency.
type HealthCheck func(ctx context.Context) error

// StatusHandler handles the health and statistics endpoints.
type StatusHandler struct {
	logger *slog.Logger
	pool   PipelineStats
	queue  QueueStats
	checks map[string]HealthCheck
}

// NewStatusHandler creates a new status handler.
func NewStatusHandler(logger *slog.Logger, pool PipelineStats, queue QueueStats, checks map[string]HealthCheck) *StatusHandler {
	return &StatusHandler{
		logger: logger,
		pool:   pool,
		queue:  queue,
		checks: checks,
	}
}

// Health probes every registered dependency and reports per-check results.
// The switch keeps accepting traffic while degraded; this endpoint only
// reports, it never gates.
func (h *StatusHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status := "ok"
	results := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.logger.Warn("Health check failed", "check", name, "error", err)
			results[name] = err.Error()
			status = "degraded"
			continue
		}
		results[name] = "ok"
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":    status,
		"checks":    results,
		"timestamp": time.Now().UTC(),
	})
}

// Stats reports the processing counters and queue occupancy.
func (h *StatusHandler) Stats(c *gin.Context) {
	RespondOK(c, gin.H{
		"transactions": gin.H{
			"total":    h.pool.TotalProcessed(),
			"approved": h.pool.ApprovedCount(),
			"declined": h.pool.DeclinedCount(),
			"faults":   h.pool.FaultCount(),
		},
		"workers": gin.H{
			"running":  h.pool.Running(),
			"capacity": h.pool.Capacity(),
		},
		"queue": gin.H{
			"depth":    h.queue.Depth(),
			"capacity": h.queue.Capacity(),
		},
	})
}
