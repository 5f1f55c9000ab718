package audit

import "time"

// Event is an immutable, append-only record of a staff action.
//
// Invariants:
// - Events are never updated or deleted.
// - actor and ip capture are best-effort; do not block dashboard flows on audit failures.
type Event struct {
	ID string `json:"id"`

	// Type indicates the business category of the audit record.
	Type EventType `json:"type"`

	// ActorUserID is the authenticated staff member causing the event (if applicable).
	ActorUserID string `json:"actorUserId,omitempty"`
	ActorRole   string `json:"actorRole,omitempty"`

	// IPAddress is the resolved client IP when available.
	IPAddress string `json:"ipAddress,omitempty"`

	// TargetID identifies the affected document or workflow.
	TargetID string `json:"targetId,omitempty"`

	// Message is a short human-readable description for internal ops.
	Message string `json:"message,omitempty"`

	// Metadata is optional JSON for full details.
	Metadata string `json:"metadata,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

type EventType string

const (
	EventTypeLogin             EventType = "login"
	EventTypeKnowledgeChanged  EventType = "knowledge_changed"
	EventTypeWorkflowTriggered EventType = "workflow_triggered"
)

// ListFilter narrows List. An empty Type matches every event.
type ListFilter struct {
	Type  EventType
	Limit int
}
