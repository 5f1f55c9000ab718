package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"restaurant-ops/internal/audit"
	"restaurant-ops/internal/auth"
	"restaurant-ops/internal/bookings"
	"restaurant-ops/internal/calllog"
	"restaurant-ops/internal/knowledge"
	"restaurant-ops/internal/n8n"
	"restaurant-ops/internal/reporting"
	"restaurant-ops/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Auth      *auth.Manager
	Users     *auth.Directory
	Audit     *audit.Service
	Logs      *calllog.Service
	Bookings  *bookings.Service
	Knowledge *knowledge.Service
	Reporting *reporting.Service
	Workflows *n8n.Runner

	Now func() time.Time
}

func (h Handlers) now() time.Time {
	if h.Now == nil {
		return time.Now()
	}
	return h.Now()
}

// identity returns the caller set by auth.RequireAccessToken.
func identity(c *gin.Context) (userID, role string) {
	userID, _ = auth.UserID(c.Request.Context())
	role, _ = auth.Role(c.Request.Context())
	return userID, role
}

// record appends a staff action to the audit trail. Failures are logged and never surface to the caller.
func (h Handlers) record(c *gin.Context, fn func(*audit.Service) error) {
	if h.Audit == nil {
		return
	}
	if err := fn(h.Audit); err != nil {
		logger.FromGin(c).Warn("audit append failed", "err", err)
	}
}

// queryLimit parses ?limit, returning 0 (service default) when absent or invalid.
func queryLimit(c *gin.Context) int {
	n, err := strconv.Atoi(c.Query("limit"))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func notConfigured(c *gin.Context, what string) {
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": what + " not configured"})
}
