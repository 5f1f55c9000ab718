package config

import (
	"strings"
	"testing"
	"time"
)

func validLocal() Config {
	return Config{
		App:  AppConfig{Env: "local", Port: 8080},
		Auth: AuthConfig{JWTSecret: "secret"},
	}
}

func TestValidate_ReportsMissingRequired(t *testing.T) {
	c := Config{}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestValidate_LocalDefaultsToMemoryStore(t *testing.T) {
	c := validLocal()
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.Store.Backend != StoreMemory {
		t.Fatalf("expected memory backend, got %q", c.Store.Backend)
	}
	if c.Auth.AccessTokenTTL != 15*time.Minute {
		t.Fatalf("expected default access ttl, got %v", c.Auth.AccessTokenTTL)
	}
	if c.RateLimit.LoginBurst != 5 {
		t.Fatalf("expected default burst, got %d", c.RateLimit.LoginBurst)
	}
}

func TestValidate_ProductionRejectsMemoryStore(t *testing.T) {
	c := validLocal()
	c.App.Env = "production"
	c.Auth.JWTIssuer = "iss"
	c.Auth.Users = "a@b.c:owner:hash"
	c.Store.Backend = StoreMemory
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for memory store in production")
	}
}

func TestValidate_FirestoreRequiresProject(t *testing.T) {
	c := validLocal()
	c.Store.Backend = StoreFirestore
	if err := c.Validate(); err == nil || !strings.Contains(err.Error(), "FIRESTORE_PROJECT_ID") {
		t.Fatalf("expected project id error, got %v", err)
	}
}

func TestValidate_PostgresLocalDefaultsSSLMode(t *testing.T) {
	c := validLocal()
	c.Store.Backend = StorePostgres
	c.DB = DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "restaurant"}
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.DB.SSLMode != "disable" {
		t.Fatalf("expected sslmode disable default, got %q", c.DB.SSLMode)
	}
}

func TestValidate_WorkflowsNeedBaseURL(t *testing.T) {
	c := validLocal()
	c.N8N.Workflows = map[string]string{"sync": "abc"}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error without N8N_BASE_URL")
	}
}

func TestParseWorkflows(t *testing.T) {
	wf, err := parseWorkflows(" sync-knowledge=/abc/ , notify=def ")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if wf["sync-knowledge"] != "abc" || wf["notify"] != "def" {
		t.Fatalf("unexpected workflows: %v", wf)
	}
	if _, err := parseWorkflows("broken"); err == nil {
		t.Fatalf("expected error for entry without '='")
	}
}

func TestLoad_ReadsEnv(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("APP_PORT", "9090")
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("REDIS_HOST", "")
	t.Setenv("LOGIN_RATE_RPS", "")
	t.Setenv("N8N_BASE_URL", "https://n8n.example.com/")
	t.Setenv("N8N_WORKFLOWS", "sync=hook-1")
	t.Setenv("TRUSTED_PROXIES", " 10.0.0.0/8, ,130.211.0.0/22")

	c, err := Load()
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if c.HTTPAddr() != ":9090" {
		t.Fatalf("unexpected addr %q", c.HTTPAddr())
	}
	if c.N8N.BaseURL != "https://n8n.example.com" {
		t.Fatalf("expected trailing slash trimmed, got %q", c.N8N.BaseURL)
	}
	if c.RedisEnabled() {
		t.Fatalf("expected redis disabled")
	}
	if len(c.App.TrustedProxies) != 2 || c.App.TrustedProxies[1] != "130.211.0.0/22" {
		t.Fatalf("unexpected trusted proxies %v", c.App.TrustedProxies)
	}
}
