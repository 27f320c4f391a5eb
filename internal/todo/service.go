package todo

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"atrium/internal/audit"
	id "atrium/pkg/domain"
	dErrors "atrium/pkg/domain-errors"
	"atrium/pkg/platform/sentinel"
)

// Store persists todos. Lookups exclude soft-deleted rows unless stated
// otherwise.
type Store interface {
	Create(ctx context.Context, t *Todo) error
	Update(ctx context.Context, t *Todo) error
	FindByID(ctx context.Context, todoID id.TodoID) (*Todo, error)
	FindByIDAny(ctx context.Context, todoID id.TodoID) (*Todo, error)
	List(ctx context.Context, owner *id.UserID, limit, offset int) ([]Todo, int, error)
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

func (s *Service) Create(ctx context.Context, ownerID id.UserID, req *CreateTodoRequest) (*Todo, error) {
	now := time.Now()
	t := &Todo{
		ID:        id.TodoID(uuid.New()),
		OwnerID:   ownerID,
		Text:      req.Text,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(ctx, t); err != nil {
		return nil, wrapTodoErr(err, "failed to create todo")
	}

	s.record(ctx, audit.Entry{
		Action:      audit.ActionCreateTodo,
		EntityType:  "todo",
		EntityID:    t.ID.String(),
		Description: "created todo",
	})
	return t, nil
}

func (s *Service) Get(ctx context.Context, todoID id.TodoID) (*Todo, error) {
	t, err := s.store.FindByID(ctx, todoID)
	if err != nil {
		return nil, wrapTodoErr(err, "failed to load todo")
	}
	return t, nil
}

func (s *Service) GetAny(ctx context.Context, todoID id.TodoID) (*Todo, error) {
	t, err := s.store.FindByIDAny(ctx, todoID)
	if err != nil {
		return nil, wrapTodoErr(err, "failed to load todo")
	}
	return t, nil
}

func (s *Service) Update(ctx context.Context, todoID id.TodoID, req *UpdateTodoRequest) (*Todo, error) {
	t, err := s.Get(ctx, todoID)
	if err != nil {
		return nil, err
	}

	if req.Text != nil {
		t.Text = *req.Text
	}
	if req.Done != nil {
		t.Done = *req.Done
	}
	t.UpdatedAt = time.Now()

	if err := s.store.Update(ctx, t); err != nil {
		return nil, wrapTodoErr(err, "failed to update todo")
	}

	s.record(ctx, audit.Entry{
		Action:      audit.ActionUpdateTodo,
		EntityType:  "todo",
		EntityID:    t.ID.String(),
		Description: "updated todo",
	})
	return t, nil
}

func (s *Service) List(ctx context.Context, owner *id.UserID, limit, offset int) ([]Todo, int, error) {
	todos, total, err := s.store.List(ctx, owner, limit, offset)
	if err != nil {
		return nil, 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list todos")
	}
	return todos, total, nil
}

func (s *Service) SoftDelete(ctx context.Context, todoID id.TodoID) error {
	t, err := s.Get(ctx, todoID)
	if err != nil {
		return err
	}

	now := time.Now()
	t.DeletedAt = &now
	t.UpdatedAt = now
	if err := s.store.Update(ctx, t); err != nil {
		return wrapTodoErr(err, "failed to delete todo")
	}

	s.record(ctx, audit.Entry{
		Action:      audit.ActionDeleteTodo,
		EntityType:  "todo",
		EntityID:    t.ID.String(),
		Description: "todo soft-deleted",
		Severity:    audit.SeverityWarning,
	})
	return nil
}

func (s *Service) Restore(ctx context.Context, todoID id.TodoID) (*Todo, error) {
	t, err := s.GetAny(ctx, todoID)
	if err != nil {
		return nil, err
	}
	if !t.IsDeleted() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "todo is not deleted")
	}

	t.DeletedAt = nil
	t.UpdatedAt = time.Now()
	if err := s.store.Update(ctx, t); err != nil {
		return nil, wrapTodoErr(err, "failed to restore todo")
	}

	s.record(ctx, audit.Entry{
		Action:      audit.ActionRestoreTodo,
		EntityType:  "todo",
		EntityID:    t.ID.String(),
		Description: "todo restored",
	})
	return t, nil
}

func (s *Service) record(ctx context.Context, entry audit.Entry) {
	if s.auditor != nil {
		s.auditor.Record(ctx, entry)
	}
}

func wrapTodoErr(err error, msg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "todo not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
