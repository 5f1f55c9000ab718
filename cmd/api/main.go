package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"restaurant-ops/internal/auth"
	"restaurant-ops/internal/config"
	"restaurant-ops/internal/docstore"
	"restaurant-ops/internal/httpapi"
	"restaurant-ops/internal/locale"
	"restaurant-ops/internal/rbac"
	"restaurant-ops/pkg/logger"
	"restaurant-ops/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}
	users, err := auth.ParseDirectory(cfg.Auth.Users, rbac.IsValidRole)
	if err != nil {
		log.Error("dashboard users invalid", "err", err)
		os.Exit(1)
	}
	if users.Len() == 0 {
		log.Warn("no dashboard users configured; login is disabled")
	}

	checks := map[string]httpapi.Check{}

	store, storeCheck, closeStore, err := openStore(rootCtx, cfg, log)
	if err != nil {
		log.Error("store init failed", "backend", cfg.Store.Backend, "err", err)
		os.Exit(1)
	}
	defer closeStore()
	if storeCheck != nil {
		checks["store"] = storeCheck
	}

	// Redis is optional: without it locks, caps and caches stay in-process.
	var rdb *redis.Client
	if cfg.RedisEnabled() {
		rdb, err = utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
		if err != nil {
			log.Error("redis init failed", "err", err)
			os.Exit(1)
		}
		defer rdb.Close()
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	// Gin router
	r, err := httpapi.NewRouter(log, cfg.App.TrustedProxies)
	if err != nil {
		log.Error("router init failed", "err", err)
		os.Exit(1)
	}

	registerRoutes(r, deps{
		cfg:    cfg,
		auth:   authManager,
		users:  users,
		store:  store,
		redis:  rdb,
		checks: checks,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           withEdgeCountry(locale.Middleware(r)),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env, "store", cfg.Store.Backend, "redis", rdb != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}

	_ = logger.ShutdownFlush(shutdownCtx, 2*time.Second)
}

// openStore selects the document store backend. The returned check is nil for backends without
// a cheap probe; the returned func releases the backend.
func openStore(ctx context.Context, cfg config.Config, log *slog.Logger) (docstore.Store, httpapi.Check, func(), error) {
	switch cfg.Store.Backend {
	case config.StoreFirestore:
		fs, err := docstore.OpenFirestore(ctx, cfg.Firestore.ProjectID, cfg.Firestore.CredentialsFile)
		if err != nil {
			return nil, nil, nil, err
		}
		return fs, nil, closer(log, "firestore", fs), nil

	case config.StorePostgres:
		db, err := utils.OpenPostgres(ctx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
		if err != nil {
			return nil, nil, nil, err
		}
		pg := docstore.NewPostgres(db)
		if err := pg.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, nil, nil, fmt.Errorf("migrate: %w", err)
		}
		check := func(ctx context.Context) error { return utils.HealthCheck(ctx, db, time.Second) }
		return pg, check, closer(log, "postgres", dbCloser{db}), nil

	case config.StoreMemory:
		log.Warn("using in-memory store; data is lost on restart")
		return docstore.NewMemory(), nil, func() {}, nil
	}
	return nil, nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}

type dbCloser struct{ db *sql.DB }

func (c dbCloser) Close() error { return c.db.Close() }

func closer(log *slog.Logger, name string, c io.Closer) func() {
	return func() {
		if err := c.Close(); err != nil {
			log.Error("store close failed", "store", name, "err", err)
		}
	}
}

// headerEdgeCountry is set by Google frontends (App Engine, Cloud Run behind a load balancer
// with custom headers). "ZZ" means unknown.
const headerEdgeCountry = "X-Appengine-Country"

func withEdgeCountry(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c := r.Header.Get(headerEdgeCountry); c != "" && c != "ZZ" {
			r = r.WithContext(locale.WithPlatformCountry(r.Context(), c))
		}
		next.ServeHTTP(w, r)
	})
}
