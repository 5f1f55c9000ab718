package httpapi

import (
	"fmt"
	"log/slog"

	"restaurant-ops/pkg/logger"

	"github.com/gin-gonic/gin"
)

// NewRouter returns the gin engine with recovery and request logging. c.ClientIP() honors
// X-Forwarded-For only from trustedProxies; with none, it is the connection's remote address.
func NewRouter(log *slog.Logger, trustedProxies []string) (*gin.Engine, error) {
	r := gin.New()
	if err := r.SetTrustedProxies(trustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))
	return r, nil
}
