package httpapi

import (
	"context"
	"net/http"
	"sort"
	"time"

	"restaurant-ops/internal/i18n"
	"restaurant-ops/internal/locale"
	"restaurant-ops/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Page serves the JSON shell of a dashboard page in the request locale. Requests reach it after
// the locale router stripped the locale prefix.
func Page(page string) gin.HandlerFunc {
	return func(c *gin.Context) {
		l := locale.FromContext(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{
			"page":    page,
			"locale":  l,
			"title":   i18n.Title(l, page),
			"locales": locale.All(),
		})
	}
}

// Health reports process liveness.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Check probes one backing dependency.
type Check func(ctx context.Context) error

const readyTimeout = 2 * time.Second

// Ready runs every check and answers 503 when any of them fails.
func Ready(checks map[string]Check) gin.HandlerFunc {
	names := make([]string, 0, len(checks))
	for n := range checks {
		names = append(names, n)
	}
	sort.Strings(names)

	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
		defer cancel()

		status := http.StatusOK
		out := gin.H{}
		for _, n := range names {
			if err := checks[n](ctx); err != nil {
				logger.FromGin(c).Warn("readiness check failed", "check", n, "err", err)
				out[n] = "down"
				status = http.StatusServiceUnavailable
				continue
			}
			out[n] = "ok"
		}
		c.JSON(status, gin.H{"status": http.StatusText(status), "checks": out})
	}
}
