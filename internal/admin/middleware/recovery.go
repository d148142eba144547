package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
)

// SecurityAuditor receives security-relevant events raised by the admin
// surface. The audit recorder satisfies it.
type SecurityAuditor interface {
	RecordSecurityEvent(eventType, details, correlationID string)
}

// Recovery converts handler panics into 500 responses. The panic is logged
// with its stack and raised on the audit channel: the admin surface changes
// how transactions route, so a handler blowing up is a security event, not
// just a bug.
func Recovery(logger *slog.Logger, auditor SecurityAuditor) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}

			correlationID := GetCorrelationID(c)
			logger.Error("admin handler panic recovered",
				"panic", r,
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"correlation_id", correlationID,
				"stack", string(debug.Stack()),
			)
			if auditor != nil {
				auditor.RecordSecurityEvent("ADMIN_PANIC",
					fmt.Sprintf("%s %s: %v", c.Request.Method, c.Request.URL.Path, r),
					correlationID,
				)
			}

			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": gin.H{
					"code":    "INTERNAL_SERVER_ERROR",
					"message": "An internal server error occurred",
				},
				"correlation_id": correlationID,
			})
		}()

		c.Next()
	}
}
