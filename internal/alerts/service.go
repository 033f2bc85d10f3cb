package alerts

import (
	"context"
	"errors"
	"strings"
	"time"

	"alert-integrator/pkg/logger"

	"github.com/google/uuid"
)

// AuditLogger records internal-only audit events for dispositions.
// Implementations must be best-effort; Manage never fails because of audit.
type AuditLogger interface {
	LogManagement(ctx context.Context, actorUserID, eventID, managementID string) error
}

// Service is the read/write surface over ingested alerts:
// reconciliation for the poller, backlog and hourly reads, and dispositions.
//
// No caching: every read reflects the latest committed state of the store.
type Service struct {
	repo  Repository
	audit AuditLogger
	// origins always get a series in HourlyCounts, even on idle days.
	origins []string
	// clock is injectable for deterministic tests.
	clock func() time.Time
}

type Option func(*Service)

// WithAudit attaches a best-effort audit logger.
func WithAudit(a AuditLogger) Option {
	return func(s *Service) { s.audit = a }
}

// WithOrigins lists origins that must appear in hourly results.
func WithOrigins(origins ...string) Option {
	return func(s *Service) { s.origins = append(s.origins, origins...) }
}

func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{repo: repo, clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Reconcile writes one cycle's records as a single batch.
func (s *Service) Reconcile(ctx context.Context, records []EventRecord) (ReconcileOutcome, error) {
	if s.repo == nil {
		return ReconcileOutcome{}, unavailable(errors.New("repository not configured"))
	}
	return s.repo.Upsert(ctx, records)
}

// Unmanaged returns every event that has no management record yet.
func (s *Service) Unmanaged(ctx context.Context) ([]EventRecord, error) {
	if s.repo == nil {
		return nil, unavailable(errors.New("repository not configured"))
	}
	return s.repo.ListUnmanaged(ctx)
}

// Manage registers the single disposition of an event.
//
// Errors:
// - ErrInvalidArgument: event id or acting user missing
// - ErrEventNotFound: no such event
// - ErrDuplicateManagement: the event already has a disposition
// - ErrStoreUnavailable: anything else from storage
func (s *Service) Manage(ctx context.Context, req ManageRequest) (ManagementRecord, error) {
	req.EventID = strings.TrimSpace(req.EventID)
	req.ActingUserID = strings.TrimSpace(req.ActingUserID)
	if req.EventID == "" || req.ActingUserID == "" {
		return ManagementRecord{}, ErrInvalidArgument
	}
	if s.repo == nil {
		return ManagementRecord{}, unavailable(errors.New("repository not configured"))
	}

	rec, err := s.repo.InsertManagement(ctx, ManagementRecord{
		ID:               uuid.NewString(),
		EventID:          req.EventID,
		Comment:          req.Comment,
		ResponsibleParty: req.ResponsibleParty,
		ImpactedClient:   req.ImpactedClient,
		ImpactedSystem:   req.ImpactedSystem,
		ActingUserID:     req.ActingUserID,
		CreatedAt:        s.clock().UTC(),
	})
	if err != nil {
		return ManagementRecord{}, err
	}

	if s.audit != nil {
		if err := s.audit.LogManagement(ctx, rec.ActingUserID, rec.EventID, rec.ID); err != nil {
			logger.From(ctx).Warn("audit management failed", "event_id", rec.EventID, "err", err)
		}
	}
	return rec, nil
}
