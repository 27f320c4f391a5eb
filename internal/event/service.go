package event

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"atrium/internal/audit"
	id "atrium/pkg/domain"
	dErrors "atrium/pkg/domain-errors"
	"atrium/pkg/platform/sentinel"
)

// Store persists events. Lookups exclude soft-deleted rows unless stated
// otherwise.
type Store interface {
	Create(ctx context.Context, e *Event) error
	Update(ctx context.Context, e *Event) error
	FindByID(ctx context.Context, eventID id.EventID) (*Event, error)
	FindByIDAny(ctx context.Context, eventID id.EventID) (*Event, error)
	List(ctx context.Context, owner *id.UserID, limit, offset int) ([]Event, int, error)
}

// Auditor records audit entries. Satisfied by audit.Recorder.
type Auditor interface {
	Record(ctx context.Context, entry audit.Entry)
}

type Service struct {
	store   Store
	logger  *slog.Logger
	auditor Auditor
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditor(auditor Auditor) Option {
	return func(s *Service) {
		s.auditor = auditor
	}
}

func New(store Store, opts ...Option) *Service {
	s := &Service{store: store}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Create(ctx context.Context, ownerID id.UserID, req *CreateEventRequest) (*Event, error) {
	now := time.Now()
	e := &Event{
		ID:        id.EventID(uuid.New()),
		OwnerID:   ownerID,
		Title:     req.Title,
		StartsAt:  req.StartsAt,
		EndsAt:    req.EndsAt,
		Location:  req.Location,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(ctx, e); err != nil {
		return nil, wrapEventErr(err, "failed to create event")
	}

	s.record(ctx, audit.Entry{
		Action:      audit.ActionCreateEvent,
		EntityType:  "event",
		EntityID:    e.ID.String(),
		Description: fmt.Sprintf("created event %s", e.Title),
	})
	return e, nil
}

func (s *Service) Get(ctx context.Context, eventID id.EventID) (*Event, error) {
	e, err := s.store.FindByID(ctx, eventID)
	if err != nil {
		return nil, wrapEventErr(err, "failed to load event")
	}
	return e, nil
}

func (s *Service) GetAny(ctx context.Context, eventID id.EventID) (*Event, error) {
	e, err := s.store.FindByIDAny(ctx, eventID)
	if err != nil {
		return nil, wrapEventErr(err, "failed to load event")
	}
	return e, nil
}

func (s *Service) Update(ctx context.Context, eventID id.EventID, req *UpdateEventRequest) (*Event, error) {
	e, err := s.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		e.Title = *req.Title
	}
	if req.StartsAt != nil {
		e.StartsAt = *req.StartsAt
	}
	if req.EndsAt != nil {
		e.EndsAt = req.EndsAt
	}
	if req.Location != nil {
		e.Location = *req.Location
	}
	if e.EndsAt != nil && !e.EndsAt.After(e.StartsAt) {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "endsAt must be after startsAt")
	}
	e.UpdatedAt = time.Now()

	if err := s.store.Update(ctx, e); err != nil {
		return nil, wrapEventErr(err, "failed to update event")
	}

	s.record(ctx, audit.Entry{
		Action:      audit.ActionUpdateEvent,
		EntityType:  "event",
		EntityID:    e.ID.String(),
		Description: fmt.Sprintf("updated event %s", e.Title),
	})
	return e, nil
}

func (s *Service) List(ctx context.Context, owner *id.UserID, limit, offset int) ([]Event, int, error) {
	events, total, err := s.store.List(ctx, owner, limit, offset)
	if err != nil {
		return nil, 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list events")
	}
	return events, total, nil
}

func (s *Service) SoftDelete(ctx context.Context, eventID id.EventID) error {
	e, err := s.Get(ctx, eventID)
	if err != nil {
		return err
	}

	now := time.Now()
	e.DeletedAt = &now
	e.UpdatedAt = now
	if err := s.store.Update(ctx, e); err != nil {
		return wrapEventErr(err, "failed to delete event")
	}

	s.record(ctx, audit.Entry{
		Action:      audit.ActionDeleteEvent,
		EntityType:  "event",
		EntityID:    e.ID.String(),
		Description: fmt.Sprintf("event %s soft-deleted", e.Title),
		Severity:    audit.SeverityWarning,
	})
	return nil
}

func (s *Service) Restore(ctx context.Context, eventID id.EventID) (*Event, error) {
	e, err := s.GetAny(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !e.IsDeleted() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "event is not deleted")
	}

	e.DeletedAt = nil
	e.UpdatedAt = time.Now()
	if err := s.store.Update(ctx, e); err != nil {
		return nil, wrapEventErr(err, "failed to restore event")
	}

	s.record(ctx, audit.Entry{
		Action:      audit.ActionRestoreEvent,
		EntityType:  "event",
		EntityID:    e.ID.String(),
		Description: fmt.Sprintf("event %s restored", e.Title),
	})
	return e, nil
}

func (s *Service) record(ctx context.Context, entry audit.Entry) {
	if s.auditor != nil {
		s.auditor.Record(ctx, entry)
	}
}

func wrapEventErr(err error, msg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "event not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
