package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"restaurant-ops/internal/audit"
	"restaurant-ops/internal/bookings"
	"restaurant-ops/internal/calllog"
	"restaurant-ops/internal/knowledge"
	"restaurant-ops/internal/n8n"
	"restaurant-ops/internal/reporting"
	"restaurant-ops/pkg/logger"

	"github.com/gin-gonic/gin"
)

// --- Call logs ---

func (h Handlers) ListLogs(c *gin.Context) {
	if h.Logs == nil {
		notConfigured(c, "call log")
		return
	}
	recs, err := h.Logs.List(c.Request.Context(), calllog.ListFilter{
		Status: calllog.Status(c.Query("status")),
		CallID: c.Query("callId"),
		Limit:  queryLimit(c),
	})
	if err != nil {
		logger.FromGin(c).Error("list logs failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "log lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": recs})
}

// --- Stats ---

// defaultStatsWindow is the range used when the caller gives none. The end is truncated to the
// minute so repeated dashboard loads hit the same cache entry.
const defaultStatsWindow = 24 * time.Hour

func (h Handlers) Stats(c *gin.Context) {
	if h.Reporting == nil {
		notConfigured(c, "reporting")
		return
	}
	rng, err := statsRange(c, h.now())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()
	calls, err := h.Reporting.CallsSummary(ctx, reporting.CallsSummaryRequest{Range: rng})
	if err == nil {
		var conv reporting.ConversionMetrics
		conv, err = h.Reporting.ConversionMetrics(ctx, reporting.ConversionMetricsRequest{Range: rng})
		if err == nil {
			c.JSON(http.StatusOK, gin.H{"calls": calls, "conversion": conv})
			return
		}
	}
	if errors.Is(err, reporting.ErrInvalidRequest) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid range"})
		return
	}
	logger.FromGin(c).Error("stats failed", "err", err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "stats failed"})
}

func statsRange(c *gin.Context, now time.Time) (reporting.TimeRange, error) {
	to := now.UTC().Truncate(time.Minute).Add(time.Minute)
	from := to.Add(-defaultStatsWindow)
	if v := c.Query("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return reporting.TimeRange{}, errors.New("from must be RFC3339")
		}
		from = t.UTC()
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return reporting.TimeRange{}, errors.New("to must be RFC3339")
		}
		to = t.UTC()
	}
	return reporting.TimeRange{From: from, To: to}, nil
}

// --- Bookings ---

func (h Handlers) ListBookings(c *gin.Context) {
	if h.Bookings == nil {
		notConfigured(c, "bookings")
		return
	}
	st := bookings.Status(c.Query("status"))
	if st != "" && !st.Valid() {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unknown status"})
		return
	}
	out, err := h.Bookings.List(c.Request.Context(), bookings.ListFilter{Status: st, Date: c.Query("date"), Limit: queryLimit(c)})
	if err != nil {
		logger.FromGin(c).Error("list bookings failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "booking lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": out})
}

func (h Handlers) GetBooking(c *gin.Context) {
	if h.Bookings == nil {
		notConfigured(c, "bookings")
		return
	}
	b, err := h.Bookings.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, bookings.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "booking not found"})
		return
	}
	if err != nil {
		logger.FromGin(c).Error("get booking failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "booking lookup failed"})
		return
	}
	c.JSON(http.StatusOK, b)
}

// --- Knowledge ---

type knowledgeRequest struct {
	Title    string   `json:"title" binding:"required"`
	Content  string   `json:"content" binding:"required"`
	Category string   `json:"category"`
	Locale   string   `json:"locale"`
	Tags     []string `json:"tags"`
}

func (r knowledgeRequest) entry() knowledge.Entry {
	return knowledge.Entry{Title: r.Title, Content: r.Content, Category: r.Category, Locale: r.Locale, Tags: r.Tags}
}

func (h Handlers) ListKnowledge(c *gin.Context) {
	if h.Knowledge == nil {
		notConfigured(c, "knowledge")
		return
	}
	out, err := h.Knowledge.List(c.Request.Context(), knowledge.ListFilter{
		Category: c.Query("category"),
		Locale:   c.Query("locale"),
		Limit:    queryLimit(c),
	})
	if err != nil {
		logger.FromGin(c).Error("list knowledge failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "knowledge lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": out})
}

func (h Handlers) GetKnowledge(c *gin.Context) {
	if h.Knowledge == nil {
		notConfigured(c, "knowledge")
		return
	}
	e, err := h.Knowledge.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		knowledgeError(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (h Handlers) CreateKnowledge(c *gin.Context) {
	if h.Knowledge == nil {
		notConfigured(c, "knowledge")
		return
	}
	var req knowledgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "title and content required"})
		return
	}
	e, err := h.Knowledge.Create(c.Request.Context(), req.entry())
	if err != nil {
		knowledgeError(c, err)
		return
	}
	h.auditKnowledge(c, e.ID, "created")
	c.JSON(http.StatusCreated, e)
}

func (h Handlers) UpdateKnowledge(c *gin.Context) {
	if h.Knowledge == nil {
		notConfigured(c, "knowledge")
		return
	}
	var req knowledgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "title and content required"})
		return
	}
	e, err := h.Knowledge.Update(c.Request.Context(), c.Param("id"), req.entry())
	if err != nil {
		knowledgeError(c, err)
		return
	}
	h.auditKnowledge(c, e.ID, "updated")
	c.JSON(http.StatusOK, e)
}

func (h Handlers) DeleteKnowledge(c *gin.Context) {
	if h.Knowledge == nil {
		notConfigured(c, "knowledge")
		return
	}
	id := c.Param("id")
	if err := h.Knowledge.Delete(c.Request.Context(), id); err != nil {
		knowledgeError(c, err)
		return
	}
	h.auditKnowledge(c, id, "deleted")
	c.Status(http.StatusNoContent)
}

func (h Handlers) auditKnowledge(c *gin.Context, id, action string) {
	uid, role := identity(c)
	h.record(c, func(a *audit.Service) error {
		return a.LogKnowledgeChange(c.Request.Context(), uid, role, c.ClientIP(), id, action)
	})
}

func knowledgeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, knowledge.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "entry not found"})
	case errors.Is(err, knowledge.ErrInvalidEntry):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logger.FromGin(c).Error("knowledge operation failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "knowledge operation failed"})
	}
}

// --- Workflows ---

func (h Handlers) ListWorkflows(c *gin.Context) {
	if h.Workflows == nil || h.Workflows.Client == nil {
		c.JSON(http.StatusOK, gin.H{"workflows": []string{}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"workflows": h.Workflows.Client.Workflows()})
}

// TriggerWorkflow runs a configured n8n workflow with the request body as payload.
func (h Handlers) TriggerWorkflow(c *gin.Context) {
	if h.Workflows == nil || h.Workflows.Client == nil {
		notConfigured(c, "workflows")
		return
	}
	name := c.Param("name")

	var payload map[string]any
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
	}
	if payload == nil {
		payload = map[string]any{}
	}
	uid, role := identity(c)
	payload["triggeredBy"] = uid

	res, err := h.Workflows.Run(c.Request.Context(), name, payload)
	switch {
	case errors.Is(err, n8n.ErrUnknownWorkflow):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "unknown workflow"})
		return
	case errors.Is(err, n8n.ErrWorkflowBusy):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "workflow already running"})
		return
	case err != nil:
		logger.FromGin(c).Error("workflow trigger failed", "workflow", name, "err", err)
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "workflow trigger failed", "status": res.Status})
		return
	}

	meta, _ := json.Marshal(payload)
	h.record(c, func(a *audit.Service) error {
		return a.LogWorkflowTrigger(c.Request.Context(), uid, role, c.ClientIP(), name, string(meta))
	})
	c.JSON(http.StatusOK, gin.H{"success": true, "workflow": name, "result": res})
}

// --- Audit ---

func (h Handlers) ListAudit(c *gin.Context) {
	if h.Audit == nil {
		notConfigured(c, "audit")
		return
	}
	evs, err := h.Audit.List(c.Request.Context(), audit.ListFilter{
		Type:  audit.EventType(c.Query("type")),
		Limit: queryLimit(c),
	})
	if err != nil {
		logger.FromGin(c).Error("list audit failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "audit lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": evs})
}
