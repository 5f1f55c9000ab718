package main

import (
	"restaurant-ops/internal/audit"
	"restaurant-ops/internal/auth"
	"restaurant-ops/internal/bookings"
	"restaurant-ops/internal/calllog"
	"restaurant-ops/internal/config"
	"restaurant-ops/internal/docstore"
	"restaurant-ops/internal/httpapi"
	"restaurant-ops/internal/i18n"
	"restaurant-ops/internal/knowledge"
	"restaurant-ops/internal/n8n"
	"restaurant-ops/internal/rbac"
	"restaurant-ops/internal/reporting"
	"restaurant-ops/internal/vapi"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

type deps struct {
	cfg    config.Config
	auth   *auth.Manager
	users  *auth.Directory
	store  docstore.Store
	// redis is nil when REDIS_HOST is unset.
	redis  *redis.Client
	checks map[string]httpapi.Check
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, d deps) {
	var (
		locker calllog.Locker = calllog.NewLocalLocker()
		guard  n8n.Guard      = n8n.NewLocalGuard()
		cache  reporting.Cache
	)
	if d.redis != nil {
		locker = calllog.NewRedisLocker(d.redis)
		guard = n8n.NewRedisGuard(d.redis, 0)
		cache = reporting.NewRedisCache(d.redis)
	}

	logs := calllog.NewService(d.store, locker)
	bks := bookings.NewService(d.store)
	kb := knowledge.NewService(d.store)

	h := httpapi.Handlers{
		Auth:      d.auth,
		Users:     d.users,
		Audit:     audit.NewService(audit.NewDocstoreRepo(d.store)),
		Logs:      logs,
		Bookings:  bks,
		Knowledge: kb,
		Reporting: reporting.NewService(reporting.StoreRepo{Logs: logs, Bookings: bks}).WithCache(cache, 0),
		Workflows: &n8n.Runner{Client: n8n.NewClient(d.cfg.N8N), Guard: guard},
	}

	// public
	r.GET("/api/healthz", httpapi.Health)
	r.GET("/api/readyz", httpapi.Ready(d.checks))

	// Provider webhooks (public).
	{
		vh := vapi.WebhookHandler{Dispatcher: vapi.NewDispatcher(logs)}
		r.GET("/api/vapi/webhook", vh.Status)
		r.POST("/api/vapi/webhook", vh.Receive)

		nh := n8n.WebhookHandler{Secret: d.cfg.N8N.WebhookSecret, Bookings: bks, Knowledge: kb}
		r.POST("/api/n8n/webhook", nh.Receive)
	}

	// AUTH routes (token issuance).
	limiter := httpapi.NewIPRateLimiter(d.cfg.RateLimit.LoginRPS, d.cfg.RateLimit.LoginBurst)
	r.POST("/api/auth/login", limiter.Middleware(), h.Login)
	r.POST("/api/auth/refresh", h.Refresh)

	authMW := auth.RequireAccessToken(d.auth)
	r.GET("/api/me", authMW, h.Me)

	// protected dashboard API
	dash := r.Group("/api/dashboard")
	dash.Use(authMW)
	{
		dash.GET("/logs", h.ListLogs)
		dash.GET("/stats", h.Stats)
		dash.GET("/bookings", h.ListBookings)
		dash.GET("/bookings/:id", h.GetBooking)
		dash.GET("/knowledge", h.ListKnowledge)
		dash.GET("/knowledge/:id", h.GetKnowledge)

		// Owner passes every role check.
		mgr := dash.Group("")
		mgr.Use(rbac.RequireAnyRole(rbac.RoleManager))
		mgr.POST("/knowledge", h.CreateKnowledge)
		mgr.PUT("/knowledge/:id", h.UpdateKnowledge)
		mgr.DELETE("/knowledge/:id", h.DeleteKnowledge)
		mgr.GET("/workflows", h.ListWorkflows)
		mgr.POST("/workflows/:name/trigger", h.TriggerWorkflow)

		dash.GET("/audit", rbac.RequireAnyRole(rbac.RoleOwner), h.ListAudit)
	}

	// Page shells; the locale router has already stripped /{locale}.
	for _, p := range i18n.Pages() {
		path := "/" + p
		if p == i18n.PageHome {
			path = "/"
		}
		r.GET(path, httpapi.Page(p))
	}
}
