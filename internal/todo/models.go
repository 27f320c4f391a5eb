package todo

import (
	"strings"
	"time"

	id "atrium/pkg/domain"
	dErrors "atrium/pkg/domain-errors"
)

// Todo is a single owner-scoped checklist item with soft delete.
type Todo struct {
	ID        id.TodoID
	OwnerID   id.UserID
	Text      string
	Done      bool
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

func (t *Todo) IsDeleted() bool { return t.DeletedAt != nil }

type CreateTodoRequest struct {
	Text string `json:"text"`
}

func (r *CreateTodoRequest) Normalize() {
	r.Text = strings.TrimSpace(r.Text)
}

func (r *CreateTodoRequest) Validate() error {
	if r.Text == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "text is required")
	}
	return nil
}

type UpdateTodoRequest struct {
	Text *string `json:"text"`
	Done *bool   `json:"done"`
}

func (r *UpdateTodoRequest) Normalize() {
	if r.Text != nil {
		trimmed := strings.TrimSpace(*r.Text)
		r.Text = &trimmed
	}
}

func (r *UpdateTodoRequest) Validate() error {
	if r.Text == nil && r.Done == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "no fields to update")
	}
	if r.Text != nil && *r.Text == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "text cannot be empty")
	}
	return nil
}

type TodoResponse struct {
	ID        string     `json:"id"`
	OwnerID   string     `json:"ownerId"`
	Text      string     `json:"text"`
	Done      bool       `json:"done"`
	CreatedAt time.Time  `json:"createdAt"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

func toTodoResponse(t *Todo) TodoResponse {
	return TodoResponse{
		ID:        t.ID.String(),
		OwnerID:   t.OwnerID.String(),
		Text:      t.Text,
		Done:      t.Done,
		CreatedAt: t.CreatedAt,
		DeletedAt: t.DeletedAt,
	}
}
