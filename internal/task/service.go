package task

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

// Store persists tasks. Lookups exclude soft-deleted rows unless stated
// otherwise.
type Store interface {
	Create(ctx context.Context, t *Task) error
	Update(ctx context.Context, t *Task) error
	FindByID(ctx context.Context, taskID id.TaskID) (*Task, error)
	// FindByIDAny also returns soft-deleted rows (restore path).
	FindByIDAny(ctx context.Context, taskID id.TaskID) (*Task, error)
	// List scopes to an owner when owner is non-nil; admins pass nil.
	List(ctx context.Context, owner *id.UserID, limit, offset int) ([]Task, int, error)
}

// Auditor records audit entries. Satisfied by audit.Recorder.
type Auditor interface {
	Record(ctx context.Context, entry audit.Entry)
}

// Service orchestrates task management.
type Service struct {
	store   Store
	logger  *slog.Logger
	auditor Auditor
}

// Option configures the Service.
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

func (s *Service) Create(ctx context.Context, ownerID id.UserID, req *CreateTaskRequest) (*Task, error) {
	status := StatusOpen
	if req.Status != "" {
		status = Status(req.Status)
	}

	now := time.Now()
	t := &Task{
		ID:          id.TaskID(uuid.New()),
		OwnerID:     ownerID,
		Title:       req.Title,
		Description: req.Description,
		Status:      status,
		DueDate:     req.DueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Create(ctx, t); err != nil {
		return nil, wrapTaskErr(err, "failed to create task")
	}

	s.record(ctx, audit.Entry{
		Action:      audit.ActionCreateTask,
		EntityType:  "task",
		EntityID:    t.ID.String(),
		Description: fmt.Sprintf("created task %s", t.Title),
	})
	return t, nil
}

func (s *Service) Get(ctx context.Context, taskID id.TaskID) (*Task, error) {
	t, err := s.store.FindByID(ctx, taskID)
	if err != nil {
		return nil, wrapTaskErr(err, "failed to load task")
	}
	return t, nil
}

// GetAny returns a task even when soft-deleted. Used to authorize restore.
func (s *Service) GetAny(ctx context.Context, taskID id.TaskID) (*Task, error) {
	t, err := s.store.FindByIDAny(ctx, taskID)
	if err != nil {
		return nil, wrapTaskErr(err, "failed to load task")
	}
	return t, nil
}

func (s *Service) Update(ctx context.Context, taskID id.TaskID, req *UpdateTaskRequest) (*Task, error) {
	t, err := s.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		t.Title = *req.Title
	}
	if req.Description != nil {
		t.Description = *req.Description
	}
	if req.Status != nil {
		t.Status = Status(*req.Status)
	}
	if req.DueDate != nil {
		t.DueDate = req.DueDate
	}
	t.UpdatedAt = time.Now()

	if err := s.store.Update(ctx, t); err != nil {
		return nil, wrapTaskErr(err, "failed to update task")
	}

	s.record(ctx, audit.Entry{
		Action:      audit.ActionUpdateTask,
		EntityType:  "task",
		EntityID:    t.ID.String(),
		Description: fmt.Sprintf("updated task %s", t.Title),
	})
	return t, nil
}

func (s *Service) List(ctx context.Context, owner *id.UserID, limit, offset int) ([]Task, int, error) {
	tasks, total, err := s.store.List(ctx, owner, limit, offset)
	if err != nil {
		return nil, 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list tasks")
	}
	return tasks, total, nil
}

// SoftDelete marks the task deleted. Deleting an already-deleted task is
// NotFound; the row is never physically removed here.
func (s *Service) SoftDelete(ctx context.Context, taskID id.TaskID) error {
	t, err := s.Get(ctx, taskID)
	if err != nil {
		return err
	}

	now := time.Now()
	t.DeletedAt = &now
	t.UpdatedAt = now
	if err := s.store.Update(ctx, t); err != nil {
		return wrapTaskErr(err, "failed to delete task")
	}

	s.record(ctx, audit.Entry{
		Action:      audit.ActionDeleteTask,
		EntityType:  "task",
		EntityID:    t.ID.String(),
		Description: fmt.Sprintf("task %s soft-deleted", t.Title),
		Severity:    audit.SeverityWarning,
	})
	return nil
}

func (s *Service) Restore(ctx context.Context, taskID id.TaskID) (*Task, error) {
	t, err := s.GetAny(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !t.IsDeleted() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "task is not deleted")
	}

	t.DeletedAt = nil
	t.UpdatedAt = time.Now()
	if err := s.store.Update(ctx, t); err != nil {
		return nil, wrapTaskErr(err, "failed to restore task")
	}

	s.record(ctx, audit.Entry{
		Action:      audit.ActionRestoreTask,
		EntityType:  "task",
		EntityID:    t.ID.String(),
		Description: fmt.Sprintf("task %s restored", t.Title),
	})
	return t, nil
}

func (s *Service) record(ctx context.Context, entry audit.Entry) {
	if s.auditor != nil {
		s.auditor.Record(ctx, entry)
	}
}

func wrapTaskErr(err error, msg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "task not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
