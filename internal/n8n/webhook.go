package n8n

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"

	"restaurant-ops/internal/bookings"
	"restaurant-ops/internal/knowledge"
	"restaurant-ops/pkg/logger"

	"github.com/gin-gonic/gin"
)

// HeaderSecret carries the shared secret n8n sends with every inbound call.
const HeaderSecret = "X-Webhook-Secret"

// Inbound event names.
const (
	EventBookingCreated    = "booking.created"
	EventBookingUpdated    = "booking.updated"
	EventBookingCancelled  = "booking.cancelled"
	EventKnowledgeUpserted = "knowledge.upserted"
	EventKnowledgeDeleted  = "knowledge.deleted"
)

type BookingWriter interface {
	Upsert(ctx context.Context, b bookings.Booking) (bookings.Booking, bool, error)
	SetStatus(ctx context.Context, id string, st bookings.Status) error
}

type KnowledgeWriter interface {
	Upsert(ctx context.Context, e knowledge.Entry) (bool, error)
	Delete(ctx context.Context, id string) error
}

// WebhookHandler receives workflow results pushed by n8n.
type WebhookHandler struct {
	// Secret disables the header check when empty.
	Secret    string
	Bookings  BookingWriter
	Knowledge KnowledgeWriter
}

type inbound struct {
	Event string          `json:"event" binding:"required"`
	Data  json.RawMessage `json:"data" binding:"required"`
}

type idOnly struct {
	ID string `json:"id" binding:"required"`
}

var errBadData = errors.New("invalid data")

func (h WebhookHandler) Receive(c *gin.Context) {
	log := logger.FromGin(c)

	if h.Secret != "" {
		got := c.GetHeader(HeaderSecret)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.Secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook secret"})
			return
		}
	}

	var in inbound
	if err := c.ShouldBindJSON(&in); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	log = log.With("event", in.Event)

	msg, err := h.apply(c.Request.Context(), in)
	switch {
	case err == nil:
		log.Info("n8n event applied", "result", msg)
		c.JSON(http.StatusOK, gin.H{"success": true, "message": msg})
	case errors.Is(err, errUnknownEvent):
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": "unknown event"})
	case errors.Is(err, errBadData), errors.Is(err, bookings.ErrInvalidBooking), errors.Is(err, knowledge.ErrInvalidEntry):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, bookings.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "booking not found"})
	default:
		log.Error("n8n event failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "store failure"})
	}
}

var errUnknownEvent = errors.New("unknown event")

func (h WebhookHandler) apply(ctx context.Context, in inbound) (string, error) {
	switch in.Event {
	case EventBookingCreated, EventBookingUpdated:
		var b bookings.Booking
		if err := json.Unmarshal(in.Data, &b); err != nil {
			return "", errBadData
		}
		b.CreatedAt, b.UpdatedAt = nil, nil
		if b.Source == "" {
			b.Source = "n8n"
		}
		saved, created, err := h.Bookings.Upsert(ctx, b)
		if err != nil {
			return "", err
		}
		if created {
			return "booking " + saved.ID + " created", nil
		}
		return "booking " + saved.ID + " updated", nil

	case EventBookingCancelled:
		var ref idOnly
		if err := json.Unmarshal(in.Data, &ref); err != nil || ref.ID == "" {
			return "", errBadData
		}
		if err := h.Bookings.SetStatus(ctx, ref.ID, bookings.StatusCancelled); err != nil {
			return "", err
		}
		return "booking " + ref.ID + " cancelled", nil

	case EventKnowledgeUpserted:
		var e knowledge.Entry
		if err := json.Unmarshal(in.Data, &e); err != nil {
			return "", errBadData
		}
		e.CreatedAt, e.UpdatedAt = nil, nil
		created, err := h.Knowledge.Upsert(ctx, e)
		if err != nil {
			return "", err
		}
		if created {
			return "knowledge entry created", nil
		}
		return "knowledge entry " + e.ID + " updated", nil

	case EventKnowledgeDeleted:
		var ref idOnly
		if err := json.Unmarshal(in.Data, &ref); err != nil || ref.ID == "" {
			return "", errBadData
		}
		// Deletes are idempotent for the workflow.
		if err := h.Knowledge.Delete(ctx, ref.ID); err != nil && !errors.Is(err, knowledge.ErrNotFound) {
			return "", err
		}
		return "knowledge entry " + ref.ID + " deleted", nil
	}
	return "", errUnknownEvent
}
