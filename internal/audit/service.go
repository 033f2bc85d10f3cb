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
// No Update/Delete methods are provided by design.
type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service logs internal audit information.
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
	if e.Type == "" || e.ActorUserID == "" {
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

// LogManagement records a disposition. It satisfies alerts.AuditLogger.
func (s *Service) LogManagement(ctx context.Context, actorUserID, eventID, managementID string) error {
	return s.Append(ctx, Event{
		Type:         EventTypeEventManaged,
		ActorUserID:  actorUserID,
		EventID:      eventID,
		ManagementID: managementID,
		Message:      "event managed",
	})
}

// LogManualTrigger records an operator-requested ingestion cycle.
func (s *Service) LogManualTrigger(ctx context.Context, actorUserID, actorRole, ip, metadata string) error {
	return s.Append(ctx, Event{
		Type:        EventTypeManualTrigger,
		ActorUserID: actorUserID,
		ActorRole:   actorRole,
		IPAddress:   ip,
		Message:     "manual ingestion cycle",
		Metadata:    metadata,
	})
}
