package client

import (
	"strings"
	"time"
	"unicode"

	id "atrium/pkg/domain"
	dErrors "atrium/pkg/domain-errors"
)

// Client is a CRM contact. The slug is unique among live rows only;
// soft-deleting a client mangles the slug so the value is freed.
type Client struct {
	ID          id.ClientID
	OwnerID     id.UserID
	Name        string
	Slug        string
	Email       string
	Phone       string
	Notes       string
	Identifiers []ContactIdentifier
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time
}

func (c *Client) IsDeleted() bool { return c.DeletedAt != nil }

// ContactIdentifier is a (number, kind) pair attached to a client, e.g. a
// VAT number or a company registration code.
type ContactIdentifier struct {
	ID       id.IdentifierID
	ClientID id.ClientID
	Number   string
	Kind     string
}

// Search is a named client grouping with many-to-many membership.
type Search struct {
	ID        id.SearchID
	OwnerID   id.UserID
	Name      string
	CreatedAt time.Time
}

// IdentifierInput is the wire shape of one identifier on create/update and
// duplicate checks.
type IdentifierInput struct {
	Number string `json:"number"`
	Kind   string `json:"kind"`
}

func (i *IdentifierInput) normalize() {
	i.Number = strings.TrimSpace(i.Number)
	i.Kind = strings.ToLower(strings.TrimSpace(i.Kind))
}

func (i *IdentifierInput) validate() error {
	if i.Number == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "identifier number is required")
	}
	if i.Kind == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "identifier kind is required")
	}
	return nil
}

type CreateClientRequest struct {
	Name        string            `json:"name"`
	Email       string            `json:"email"`
	Phone       string            `json:"phone"`
	Notes       string            `json:"notes"`
	Identifiers []IdentifierInput `json:"identifiers"`
}

func (r *CreateClientRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Phone = strings.TrimSpace(r.Phone)
	for i := range r.Identifiers {
		r.Identifiers[i].normalize()
	}
}

func (r *CreateClientRequest) Validate() error {
	if r.Name == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "name is required")
	}
	for i := range r.Identifiers {
		if err := r.Identifiers[i].validate(); err != nil {
			return err
		}
	}
	return nil
}

// UpdateClientRequest leaves nil fields unchanged. A non-nil Identifiers
// slice replaces the full set.
type UpdateClientRequest struct {
	Name        *string            `json:"name"`
	Email       *string            `json:"email"`
	Phone       *string            `json:"phone"`
	Notes       *string            `json:"notes"`
	Identifiers *[]IdentifierInput `json:"identifiers"`
}

func (r *UpdateClientRequest) Normalize() {
	if r.Name != nil {
		trimmed := strings.TrimSpace(*r.Name)
		r.Name = &trimmed
	}
	if r.Email != nil {
		lowered := strings.ToLower(strings.TrimSpace(*r.Email))
		r.Email = &lowered
	}
	if r.Identifiers != nil {
		for i := range *r.Identifiers {
			(*r.Identifiers)[i].normalize()
		}
	}
}

func (r *UpdateClientRequest) Validate() error {
	if r.Name == nil && r.Email == nil && r.Phone == nil && r.Notes == nil && r.Identifiers == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "no fields to update")
	}
	if r.Name != nil && *r.Name == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "name cannot be empty")
	}
	if r.Identifiers != nil {
		for i := range *r.Identifiers {
			if err := (*r.Identifiers)[i].validate(); err != nil {
				return err
			}
		}
	}
	return nil
}

// CheckIdentifiersRequest asks whether identifiers collide with other live
// clients. ClientID, when set, excludes that client from the check (the
// edit-in-place case).
type CheckIdentifiersRequest struct {
	ClientID    string            `json:"clientId"`
	Identifiers []IdentifierInput `json:"identifiers"`
}

func (r *CheckIdentifiersRequest) Normalize() {
	r.ClientID = strings.TrimSpace(r.ClientID)
	for i := range r.Identifiers {
		r.Identifiers[i].normalize()
	}
}

func (r *CheckIdentifiersRequest) Validate() error {
	if len(r.Identifiers) == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "at least one identifier is required")
	}
	for i := range r.Identifiers {
		if err := r.Identifiers[i].validate(); err != nil {
			return err
		}
	}
	return nil
}

// IdentifierCollision reports one existing identifier that collides with a
// checked input.
type IdentifierCollision struct {
	Number     string `json:"number"`
	Kind       string `json:"kind"`
	ClientID   string `json:"clientId"`
	ClientName string `json:"clientName"`
}

// CheckIdentifiersResult separates exact matches from same-number matches of
// a different kind. Both are advisory; neither blocks a save.
type CheckIdentifiersResult struct {
	Duplicates []IdentifierCollision `json:"duplicates"`
	Warnings   []IdentifierCollision `json:"warnings"`
}

type CreateSearchRequest struct {
	Name string `json:"name"`
}

func (r *CreateSearchRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
}

func (r *CreateSearchRequest) Validate() error {
	if r.Name == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "name is required")
	}
	return nil
}

type IdentifierResponse struct {
	ID     string `json:"id"`
	Number string `json:"number"`
	Kind   string `json:"kind"`
}

type ClientResponse struct {
	ID          string               `json:"id"`
	OwnerID     string               `json:"ownerId"`
	Name        string               `json:"name"`
	Slug        string               `json:"slug"`
	Email       string               `json:"email,omitempty"`
	Phone       string               `json:"phone,omitempty"`
	Notes       string               `json:"notes,omitempty"`
	Identifiers []IdentifierResponse `json:"identifiers"`
	CreatedAt   time.Time            `json:"createdAt"`
	DeletedAt   *time.Time           `json:"deletedAt,omitempty"`
}

func toClientResponse(c *Client) ClientResponse {
	identifiers := make([]IdentifierResponse, 0, len(c.Identifiers))
	for _, ci := range c.Identifiers {
		identifiers = append(identifiers, IdentifierResponse{
			ID:     ci.ID.String(),
			Number: ci.Number,
			Kind:   ci.Kind,
		})
	}
	return ClientResponse{
		ID:          c.ID.String(),
		OwnerID:     c.OwnerID.String(),
		Name:        c.Name,
		Slug:        c.Slug,
		Email:       c.Email,
		Phone:       c.Phone,
		Notes:       c.Notes,
		Identifiers: identifiers,
		CreatedAt:   c.CreatedAt,
		DeletedAt:   c.DeletedAt,
	}
}

type SearchResponse struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

func toSearchResponse(s *Search) SearchResponse {
	return SearchResponse{
		ID:        s.ID.String(),
		OwnerID:   s.OwnerID.String(),
		Name:      s.Name,
		CreatedAt: s.CreatedAt,
	}
}

// Slugify lowercases and collapses a name into a URL-safe slug.
func Slugify(name string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteByte('-')
			lastDash = true
		}
	}
	return strings.Trim(b.String(), "-")
}
