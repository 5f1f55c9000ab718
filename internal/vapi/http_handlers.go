package vapi

import (
	"net/http"
	"time"

	"restaurant-ops/pkg/logger"

	"github.com/gin-gonic/gin"
)

// WebhookHandler serves the Vapi server URL.
type WebhookHandler struct {
	Dispatcher *Dispatcher
	Now        func() time.Time
}

func (h WebhookHandler) now() time.Time {
	if h.Now == nil {
		return time.Now().UTC()
	}
	return h.Now().UTC()
}

// Receive acknowledges every well-formed JSON body with 200. Persistence problems are logged only.
func (h WebhookHandler) Receive(c *gin.Context) {
	log := logger.FromGin(c)

	body, err := c.GetRawData()
	if err != nil {
		log.Error("webhook body read failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error", "message": err.Error()})
		return
	}
	ev, err := ParseEvent(body)
	if err != nil {
		log.Error("webhook body parse failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error", "message": err.Error()})
		return
	}

	if h.Dispatcher != nil {
		h.Dispatcher.Dispatch(c.Request.Context(), log, ev)
	} else {
		log.Error("webhook dispatcher not configured", "event_type", ev.Type())
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   "Processed " + ev.Type() + " event",
		"timestamp": h.now().Format(time.RFC3339Nano),
	})
}

// Status is the liveness probe for the webhook URL.
func (h WebhookHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "Webhook endpoint is active",
		"timestamp": h.now().Format(time.RFC3339Nano),
	})
}
