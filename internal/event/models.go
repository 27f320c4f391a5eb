package event

import (
	"strings"
	"time"

	id "atrium/pkg/domain"
	dErrors "atrium/pkg/domain-errors"
)

// Event is an owner-scoped calendar entry with soft delete.
type Event struct {
	ID        id.EventID
	OwnerID   id.UserID
	Title     string
	StartsAt  time.Time
	EndsAt    *time.Time
	Location  string
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

func (e *Event) IsDeleted() bool { return e.DeletedAt != nil }

type CreateEventRequest struct {
	Title    string     `json:"title"`
	StartsAt time.Time  `json:"startsAt"`
	EndsAt   *time.Time `json:"endsAt"`
	Location string     `json:"location"`
}

func (r *CreateEventRequest) Normalize() {
	r.Title = strings.TrimSpace(r.Title)
	r.Location = strings.TrimSpace(r.Location)
}

func (r *CreateEventRequest) Validate() error {
	if r.Title == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "title is required")
	}
	if r.StartsAt.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "startsAt is required")
	}
	if r.EndsAt != nil && !r.EndsAt.After(r.StartsAt) {
		return dErrors.New(dErrors.CodeInvalidInput, "endsAt must be after startsAt")
	}
	return nil
}

type UpdateEventRequest struct {
	Title    *string    `json:"title"`
	StartsAt *time.Time `json:"startsAt"`
	EndsAt   *time.Time `json:"endsAt"`
	Location *string    `json:"location"`
}

func (r *UpdateEventRequest) Normalize() {
	if r.Title != nil {
		trimmed := strings.TrimSpace(*r.Title)
		r.Title = &trimmed
	}
	if r.Location != nil {
		trimmed := strings.TrimSpace(*r.Location)
		r.Location = &trimmed
	}
}

func (r *UpdateEventRequest) Validate() error {
	if r.Title == nil && r.StartsAt == nil && r.EndsAt == nil && r.Location == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "no fields to update")
	}
	if r.Title != nil && *r.Title == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "title cannot be empty")
	}
	return nil
}

type EventResponse struct {
	ID        string     `json:"id"`
	OwnerID   string     `json:"ownerId"`
	Title     string     `json:"title"`
	StartsAt  time.Time  `json:"startsAt"`
	EndsAt    *time.Time `json:"endsAt,omitempty"`
	Location  string     `json:"location,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

func toEventResponse(e *Event) EventResponse {
	return EventResponse{
		ID:        e.ID.String(),
		OwnerID:   e.OwnerID.String(),
		Title:     e.Title,
		StartsAt:  e.StartsAt,
		EndsAt:    e.EndsAt,
		Location:  e.Location,
		CreatedAt: e.CreatedAt,
		DeletedAt: e.DeletedAt,
	}
}
