package handler

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cardswitch/card-switch/internal/audit"
)

const defaultAuditLimit = 100

// AuditHandler handles HTTP requests for audit trail queries
type AuditHandler struct {
	trail  audit.TrailStore
	logger *slog.Logger
}

// NewAuditHandler creates a new audit trail handler
func NewAuditHandler(logger *slog.Logger, trail audit.TrailStore) *AuditHandler {
	return &AuditHandler{
		trail:  trail,
		logger: logger,
	}
}

// ListByTimeRange returns audit records within the requested window.
// Query parameters: from, to (RFC 3339, both required) and limit.
func (h *AuditHandler) ListByTimeRange(c *gin.Context) {
	from, err := time.Parse(time.RFC3339, c.Query("from"))
	if err != nil {
		RespondBadRequest(c, "Invalid 'from' timestamp, expected RFC 3339")
		return
	}
	to, err := time.Parse(time.RFC3339, c.Query("to"))
	if err != nil {
		RespondBadRequest(c, "Invalid 'to' timestamp, expected RFC 3339")
		return
	}
	if !to.After(from) {
		RespondBadRequest(c, "'to' must be after 'from'")
		return
	}

	limit := int64(defaultAuditLimit)
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			RespondBadRequest(c, "Invalid 'limit', expected a positive integer")
			return
		}
		limit = parsed
	}

	records, err := h.trail.FindByTimeRange(c.Request.Context(), from, to, limit)
	if err != nil {
		h.logger.Error("Failed to query audit trail", "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, records)
}
