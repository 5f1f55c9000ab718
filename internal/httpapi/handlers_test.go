package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"restaurant-ops/internal/audit"
	"restaurant-ops/internal/auth"
	"restaurant-ops/internal/bookings"
	"restaurant-ops/internal/calllog"
	"restaurant-ops/internal/config"
	"restaurant-ops/internal/docstore"
	"restaurant-ops/internal/knowledge"
	"restaurant-ops/internal/locale"
	"restaurant-ops/internal/n8n"
	"restaurant-ops/internal/rbac"
	"restaurant-ops/internal/reporting"
	"restaurant-ops/pkg/logger"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

type fixture struct {
	router *gin.Engine
	h      Handlers
	audit  *audit.MemoryRepo
	store  *docstore.Memory
}

func newFixture(t *testing.T, n8nURL string) fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	users, err := auth.ParseDirectory("owner@example.com:owner:"+string(hash)+";staff@example.com:staff:"+string(hash), rbac.IsValidRole)
	if err != nil {
		t.Fatalf("directory: %v", err)
	}
	mgr, err := auth.NewManager(config.AuthConfig{JWTSecret: "secret", AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}

	store := docstore.NewMemory()
	logs := calllog.NewService(store, nil)
	bks := bookings.NewService(store)
	repo := audit.NewMemoryRepo()
	h := Handlers{
		Auth:      mgr,
		Users:     users,
		Audit:     audit.NewService(repo),
		Logs:      logs,
		Bookings:  bks,
		Knowledge: knowledge.NewService(store),
		Reporting: reporting.NewService(reporting.StoreRepo{Logs: logs, Bookings: bks}),
		Workflows: &n8n.Runner{
			Client: n8n.NewClient(config.N8NConfig{BaseURL: n8nURL, Workflows: map[string]string{"daily-report": "report"}}),
			Guard:  n8n.NewLocalGuard(),
		},
	}

	r, err := NewRouter(logger.NewWithWriter(io.Discard, "test"), nil)
	if err != nil {
		t.Fatalf("router: %v", err)
	}
	r.GET("/api/healthz", Health)
	r.POST("/api/auth/login", NewIPRateLimiter(0.01, 2).Middleware(), h.Login)
	r.POST("/api/auth/refresh", h.Refresh)
	d := r.Group("/api/dashboard", auth.RequireAccessToken(mgr))
	d.GET("/logs", h.ListLogs)
	d.GET("/stats", h.Stats)
	d.GET("/bookings", h.ListBookings)
	d.GET("/bookings/:id", h.GetBooking)
	d.GET("/knowledge", h.ListKnowledge)
	d.GET("/knowledge/:id", h.GetKnowledge)
	w := d.Group("", rbac.RequireAnyRole(rbac.RoleManager))
	w.POST("/knowledge", h.CreateKnowledge)
	w.PUT("/knowledge/:id", h.UpdateKnowledge)
	w.DELETE("/knowledge/:id", h.DeleteKnowledge)
	w.POST("/workflows/:name/trigger", h.TriggerWorkflow)
	d.GET("/audit", rbac.RequireAnyRole(rbac.RoleOwner), h.ListAudit)
	r.GET("/dashboard", Page("dashboard"))

	return fixture{router: r, h: h, audit: repo, store: store}
}

func (f fixture) do(method, path, token, body string) (*httptest.ResponseRecorder, map[string]any) {
	var rdr *bytes.Buffer
	if body != "" {
		rdr = bytes.NewBufferString(body)
	} else {
		rdr = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	out := map[string]any{}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func (f fixture) login(t *testing.T, email string) (string, string) {
	t.Helper()
	w, out := f.do(http.MethodPost, "/api/auth/login", "", `{"email":"`+email+`","password":"pw"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("login %s: %d %s", email, w.Code, w.Body.String())
	}
	return out["access_token"].(string), out["refresh_token"].(string)
}

func TestLogin(t *testing.T) {
	f := newFixture(t, "")

	access, refresh := f.login(t, "owner@example.com")
	if access == "" || refresh == "" {
		t.Fatalf("expected tokens")
	}
	evs := f.audit.Events()
	if len(evs) != 1 || evs[0].Type != audit.EventTypeLogin {
		t.Fatalf("expected login audit, got %+v", evs)
	}

	if w, _ := f.do(http.MethodPost, "/api/auth/login", "", `{"email":"owner@example.com","password":"nope"}`); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if w, _ := f.do(http.MethodPost, "/api/auth/login", "", `{"email":"not-an-email","password":"pw"}`); w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected burst of 2 exhausted, got %d", w.Code)
	}
}

func TestRefresh(t *testing.T) {
	f := newFixture(t, "")
	_, refresh := f.login(t, "staff@example.com")

	w, out := f.do(http.MethodPost, "/api/auth/refresh", "", `{"refresh_token":"`+refresh+`"}`)
	if w.Code != http.StatusOK || out["role"] != "staff" {
		t.Fatalf("unexpected refresh %d %v", w.Code, out)
	}
	if w, _ := f.do(http.MethodPost, "/api/auth/refresh", "", `{"refresh_token":"garbage"}`); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestDashboardRequiresToken(t *testing.T) {
	f := newFixture(t, "")
	if w, _ := f.do(http.MethodGet, "/api/dashboard/logs", "", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestListLogsAndStats(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	_, _ = f.h.Logs.Append(ctx, calllog.Record{CallID: "c1", Status: calllog.StatusCallStarted})
	_, _, _ = f.h.Logs.MarkCallEnded(ctx, "c1", calllog.EndedFields{EndedReason: "hangup"})
	_, _ = f.h.Logs.Append(ctx, calllog.Record{CallID: "c1", Status: calllog.StatusMessage, Message: "hi"})

	token, _ := f.login(t, "staff@example.com")

	w, out := f.do(http.MethodGet, "/api/dashboard/logs?status=message", token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if logs, _ := out["logs"].([]any); len(logs) != 1 {
		t.Fatalf("expected one message log, got %v", out["logs"])
	}

	w, out = f.do(http.MethodGet, "/api/dashboard/stats", token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", w.Code, w.Body.String())
	}
	calls := out["calls"].(map[string]any)
	if calls["totalCalls"] != float64(1) || calls["endedCalls"] != float64(1) {
		t.Fatalf("unexpected stats %v", calls)
	}

	if w, _ := f.do(http.MethodGet, "/api/dashboard/stats?from=yesterday", token, ""); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestBookings(t *testing.T) {
	f := newFixture(t, "")
	b, _, err := f.h.Bookings.Upsert(context.Background(), bookings.Booking{GuestName: "Ana", PartySize: 2, Date: "2024-06-01", Time: "19:00"})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	token, _ := f.login(t, "staff@example.com")

	if w, out := f.do(http.MethodGet, "/api/dashboard/bookings?status=pending", token, ""); w.Code != http.StatusOK || len(out["bookings"].([]any)) != 1 {
		t.Fatalf("unexpected list %d %v", w.Code, out)
	}
	if w, _ := f.do(http.MethodGet, "/api/dashboard/bookings?status=bogus", token, ""); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if w, out := f.do(http.MethodGet, "/api/dashboard/bookings/"+b.ID, token, ""); w.Code != http.StatusOK || out["guestName"] != "Ana" {
		t.Fatalf("unexpected get %d %v", w.Code, out)
	}
	if w, _ := f.do(http.MethodGet, "/api/dashboard/bookings/missing", token, ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestKnowledgeCRUDIsRoleGatedAndAudited(t *testing.T) {
	f := newFixture(t, "")
	staff, _ := f.login(t, "staff@example.com")
	owner, _ := f.login(t, "owner@example.com")

	body := `{"title":"Parking","content":"Free after 18h","locale":"hr"}`
	if w, _ := f.do(http.MethodPost, "/api/dashboard/knowledge", staff, body); w.Code != http.StatusForbidden {
		t.Fatalf("expected staff forbidden, got %d", w.Code)
	}

	w, out := f.do(http.MethodPost, "/api/dashboard/knowledge", owner, body)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d %s", w.Code, w.Body.String())
	}
	id := out["id"].(string)

	if w, _ := f.do(http.MethodPut, "/api/dashboard/knowledge/"+id, owner, `{"title":"Parking","content":"Free all day"}`); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w, out := f.do(http.MethodGet, "/api/dashboard/knowledge/"+id, staff, ""); w.Code != http.StatusOK || out["content"] != "Free all day" {
		t.Fatalf("unexpected get %d %v", w.Code, out)
	}
	if w, _ := f.do(http.MethodPost, "/api/dashboard/knowledge", owner, `{"title":"x"}`); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if w, _ := f.do(http.MethodDelete, "/api/dashboard/knowledge/"+id, owner, ""); w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if w, _ := f.do(http.MethodDelete, "/api/dashboard/knowledge/"+id, owner, ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}

	var changes int
	for _, e := range f.audit.Events() {
		if e.Type == audit.EventTypeKnowledgeChanged {
			changes++
			if e.ActorUserID != "owner@example.com" || e.TargetID != id {
				t.Fatalf("unexpected audit event %+v", e)
			}
		}
	}
	if changes != 3 {
		t.Fatalf("expected 3 knowledge audit events, got %d", changes)
	}
}

func TestTriggerWorkflow(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"queued":true}`))
	}))
	defer srv.Close()

	f := newFixture(t, srv.URL)
	owner, _ := f.login(t, "owner@example.com")

	w, out := f.do(http.MethodPost, "/api/dashboard/workflows/daily-report/trigger", owner, `{"date":"2024-06-01"}`)
	if w.Code != http.StatusOK || out["success"] != true {
		t.Fatalf("unexpected trigger %d %v", w.Code, out)
	}
	if got["date"] != "2024-06-01" || got["triggeredBy"] != "owner@example.com" {
		t.Fatalf("unexpected payload %v", got)
	}
	if w, _ := f.do(http.MethodPost, "/api/dashboard/workflows/unknown/trigger", owner, ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}

	var triggered bool
	for _, e := range f.audit.Events() {
		if e.Type == audit.EventTypeWorkflowTriggered && e.TargetID == "daily-report" {
			triggered = true
		}
	}
	if !triggered {
		t.Fatalf("expected workflow audit event")
	}
}

func TestPageUsesRequestLocale(t *testing.T) {
	f := newFixture(t, "")

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req = req.WithContext(locale.WithLocale(req.Context(), locale.Russian))
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	var out map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	if out["locale"] != "ru" || out["title"] != "Панель управления" || out["page"] != "dashboard" {
		t.Fatalf("unexpected page %v", out)
	}
}

func TestIPRateLimiter(t *testing.T) {
	l := NewIPRateLimiter(1, 1)
	now := time.Unix(1700000000, 0)
	l.now = func() time.Time { return now }

	if !l.Allow("1.1.1.1") {
		t.Fatalf("expected first request allowed")
	}
	if l.Allow("1.1.1.1") {
		t.Fatalf("expected second request limited")
	}
	if !l.Allow("2.2.2.2") {
		t.Fatalf("expected other ip allowed")
	}
	now = now.Add(time.Second)
	if !l.Allow("1.1.1.1") {
		t.Fatalf("expected refill after 1s")
	}

	now = now.Add(10 * time.Minute)
	l.Allow("3.3.3.3")
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.visitors["1.1.1.1"]; ok {
		t.Fatalf("expected idle visitor swept")
	}
}

func TestListAuditOwnerOnly(t *testing.T) {
	f := newFixture(t, "")
	owner, _ := f.login(t, "owner@example.com")
	staff, _ := f.login(t, "staff@example.com")

	if w, _ := f.do(http.MethodGet, "/api/dashboard/audit", staff, ""); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for staff, got %d", w.Code)
	}
	w, out := f.do(http.MethodGet, "/api/dashboard/audit?type=login&limit=1", owner, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", w.Code, w.Body.String())
	}
	evs, _ := out["events"].([]any)
	if len(evs) != 1 {
		t.Fatalf("expected one event, got %v", out["events"])
	}
	if got := evs[0].(map[string]any)["actorUserId"]; got != "staff@example.com" {
		t.Fatalf("expected newest login first, got %v", got)
	}
}

func TestReady(t *testing.T) {
	r := gin.New()
	r.GET("/ok", Ready(map[string]Check{"store": func(context.Context) error { return nil }}))
	r.GET("/down", Ready(map[string]Check{
		"store": func(context.Context) error { return nil },
		"redis": func(context.Context) error { return errors.New("refused") },
	}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/down", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
	var out struct {
		Checks map[string]string `json:"checks"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	if out.Checks["redis"] != "down" || out.Checks["store"] != "ok" {
		t.Fatalf("unexpected checks %v", out.Checks)
	}
}

func TestLoginLimiterIgnoresForwardedForFromUntrustedPeer(t *testing.T) {
	f := newFixture(t, "")

	codes := map[int]int{}
	for i := 0; i < 10; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewBufferString(`{"email":"owner@example.com","password":"nope"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", "198.51.100."+strconv.Itoa(i))
		req.RemoteAddr = "203.0.113.7:5555"
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)
		codes[w.Code]++
	}
	if codes[http.StatusUnauthorized] != 2 || codes[http.StatusTooManyRequests] != 8 {
		t.Fatalf("expected burst of 2 then 429s, got %v", codes)
	}
}

func TestLoginAuditRecordsPeerAddress(t *testing.T) {
	f := newFixture(t, "")

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewBufferString(`{"email":"owner@example.com","password":"pw"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", "198.51.100.1")
	req.RemoteAddr = "203.0.113.7:5555"
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("login: %d %s", w.Code, w.Body.String())
	}
	evs := f.audit.Events()
	if len(evs) != 1 || evs[0].IPAddress != "203.0.113.7" {
		t.Fatalf("expected peer address in audit, got %+v", evs)
	}
}

func TestNewRouterTrustsConfiguredProxy(t *testing.T) {
	r, err := NewRouter(logger.NewWithWriter(io.Discard, "test"), []string{"10.0.0.0/8"})
	if err != nil {
		t.Fatalf("router: %v", err)
	}
	r.GET("/ip", func(c *gin.Context) { c.String(http.StatusOK, c.ClientIP()) })

	req := httptest.NewRequest(http.MethodGet, "/ip", nil)
	req.Header.Set("X-Forwarded-For", "198.51.100.1")
	req.RemoteAddr = "10.1.2.3:443"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Body.String() != "198.51.100.1" {
		t.Fatalf("expected forwarded client ip, got %q", w.Body.String())
	}

	if _, err := NewRouter(logger.NewWithWriter(io.Discard, "test"), []string{"not-an-ip"}); err == nil {
		t.Fatalf("expected error for invalid proxy")
	}
}
