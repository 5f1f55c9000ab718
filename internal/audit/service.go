package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only.
type Repository interface {
	Append(ctx context.Context, e Event) error
	// List returns events newest first.
	List(ctx context.Context, f ListFilter) ([]Event, error)
}

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// Service logs internal audit information.
//
// Callers should treat audit logging as best-effort.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	return s.repo.Append(ctx, e)
}

// List returns recent events for the owner view.
func (s *Service) List(ctx context.Context, f ListFilter) ([]Event, error) {
	if s.repo == nil {
		return nil, errors.New("audit: repository not configured")
	}
	switch {
	case f.Limit <= 0:
		f.Limit = defaultListLimit
	case f.Limit > maxListLimit:
		f.Limit = maxListLimit
	}
	return s.repo.List(ctx, f)
}

// LogLogin records a successful dashboard login.
func (s *Service) LogLogin(ctx context.Context, actorUserID, actorRole, ip string) error {
	return s.Append(ctx, Event{
		Type:        EventTypeLogin,
		ActorUserID: actorUserID,
		ActorRole:   actorRole,
		IPAddress:   ip,
		Message:     "login",
	})
}

// LogKnowledgeChange records a create, update or delete of a knowledge entry.
func (s *Service) LogKnowledgeChange(ctx context.Context, actorUserID, actorRole, ip, entryID, action string) error {
	return s.Append(ctx, Event{
		Type:        EventTypeKnowledgeChanged,
		ActorUserID: actorUserID,
		ActorRole:   actorRole,
		IPAddress:   ip,
		TargetID:    entryID,
		Message:     action,
	})
}

// LogWorkflowTrigger records a manual n8n workflow run.
func (s *Service) LogWorkflowTrigger(ctx context.Context, actorUserID, actorRole, ip, workflow, metadata string) error {
	return s.Append(ctx, Event{
		Type:        EventTypeWorkflowTriggered,
		ActorUserID: actorUserID,
		ActorRole:   actorRole,
		IPAddress:   ip,
		TargetID:    workflow,
		Message:     "workflow triggered",
		Metadata:    metadata,
	})
}
