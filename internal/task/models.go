package task

import (
	"strings"
	"time"

	id "atrium/pkg/domain"
	dErrors "atrium/pkg/domain-errors"
)

// Status is the task lifecycle state.
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

// ParseStatus validates a wire status value.
func ParseStatus(raw string) (Status, error) {
	switch Status(raw) {
	case StatusOpen, StatusInProgress, StatusDone:
		return Status(raw), nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "status must be open, in_progress, or done")
	}
}

// Task is an owner-scoped work item with soft delete.
type Task struct {
	ID          id.TaskID
	OwnerID     id.UserID
	Title       string
	Description string
	Status      Status
	DueDate     *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time
}

func (t *Task) IsDeleted() bool { return t.DeletedAt != nil }

type CreateTaskRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	DueDate     *time.Time `json:"dueDate"`
}

func (r *CreateTaskRequest) Normalize() {
	r.Title = strings.TrimSpace(r.Title)
	r.Status = strings.TrimSpace(r.Status)
}

func (r *CreateTaskRequest) Validate() error {
	if r.Title == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "title is required")
	}
	if r.Status != "" {
		if _, err := ParseStatus(r.Status); err != nil {
			return err
		}
	}
	return nil
}

type UpdateTaskRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Status      *string    `json:"status"`
	DueDate     *time.Time `json:"dueDate"`
}

func (r *UpdateTaskRequest) Normalize() {
	if r.Title != nil {
		trimmed := strings.TrimSpace(*r.Title)
		r.Title = &trimmed
	}
}

func (r *UpdateTaskRequest) Validate() error {
	if r.Title == nil && r.Description == nil && r.Status == nil && r.DueDate == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "no fields to update")
	}
	if r.Title != nil && *r.Title == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "title cannot be empty")
	}
	if r.Status != nil {
		if _, err := ParseStatus(*r.Status); err != nil {
			return err
		}
	}
	return nil
}

type TaskResponse struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"ownerId"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	DeletedAt   *time.Time `json:"deletedAt,omitempty"`
}

func toTaskResponse(t *Task) TaskResponse {
	return TaskResponse{
		ID:          t.ID.String(),
		OwnerID:     t.OwnerID.String(),
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		DueDate:     t.DueDate,
		CreatedAt:   t.CreatedAt,
		DeletedAt:   t.DeletedAt,
	}
}
