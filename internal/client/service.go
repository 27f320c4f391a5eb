package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"atrium/internal/audit"
	id "atrium/pkg/domain"
	dErrors "atrium/pkg/domain-errors"
	"atrium/pkg/platform/sentinel"
)

// IdentifierMatch is an existing identifier on a live client, joined with
// enough of the client to present a collision to the caller.
type IdentifierMatch struct {
	ClientID   id.ClientID
	ClientName string
	Number     string
	Kind       string
}

// Store persists clients and their contact identifiers. Lookups exclude
// soft-deleted rows unless stated otherwise.
type Store interface {
	// Create persists the client together with its identifiers.
	Create(ctx context.Context, c *Client) error
	// Update persists the client row and replaces its identifier set.
	Update(ctx context.Context, c *Client) error
	FindByID(ctx context.Context, clientID id.ClientID) (*Client, error)
	// FindByIDAny also returns soft-deleted rows (restore path).
	FindByIDAny(ctx context.Context, clientID id.ClientID) (*Client, error)
	FindBySlug(ctx context.Context, slug string) (*Client, error)
	// List scopes to an owner when owner is non-nil; admins pass nil.
	List(ctx context.Context, owner *id.UserID, limit, offset int) ([]Client, int, error)
	// FindIdentifierMatches returns identifiers on live clients sharing the
	// given number, regardless of kind.
	FindIdentifierMatches(ctx context.Context, number string) ([]IdentifierMatch, error)
}

// SearchStore persists named client groupings and their membership links.
type SearchStore interface {
	CreateSearch(ctx context.Context, s *Search) error
	FindSearch(ctx context.Context, searchID id.SearchID) (*Search, error)
	ListSearches(ctx context.Context, owner *id.UserID, limit, offset int) ([]Search, int, error)
	DeleteSearch(ctx context.Context, searchID id.SearchID) error
	// Link attaches a client; reports false when the link already existed.
	Link(ctx context.Context, searchID id.SearchID, clientID id.ClientID) (bool, error)
	// Unlink detaches a client; reports false when no link existed.
	Unlink(ctx context.Context, searchID id.SearchID, clientID id.ClientID) (bool, error)
	SearchClients(ctx context.Context, searchID id.SearchID, limit, offset int) ([]Client, int, error)
}

// Auditor records audit entries. Satisfied by audit.Recorder.
type Auditor interface {
	Record(ctx context.Context, entry audit.Entry)
}

// Service orchestrates client, identifier, and search management.
type Service struct {
	store    Store
	searches SearchStore
	logger   *slog.Logger
	auditor  Auditor
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

func New(store Store, searches SearchStore, opts ...Option) *Service {
	s := &Service{store: store, searches: searches}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create persists a new client owned by the caller. The slug derives from
// the name; a live client already holding it is a conflict.
func (s *Service) Create(ctx context.Context, ownerID id.UserID, req *CreateClientRequest) (*Client, error) {
	now := time.Now()
	c := &Client{
		ID:        id.ClientID(uuid.New()),
		OwnerID:   ownerID,
		Name:      req.Name,
		Slug:      Slugify(req.Name),
		Email:     req.Email,
		Phone:     req.Phone,
		Notes:     req.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, in := range req.Identifiers {
		c.Identifiers = append(c.Identifiers, ContactIdentifier{
			ID:       id.IdentifierID(uuid.New()),
			ClientID: c.ID,
			Number:   in.Number,
			Kind:     in.Kind,
		})
	}

	if err := s.store.Create(ctx, c); err != nil {
		return nil, wrapClientErr(err, "failed to create client")
	}

	s.record(ctx, audit.Entry{
		Action:      audit.ActionCreateClient,
		EntityType:  "client",
		EntityID:    c.ID.String(),
		Description: fmt.Sprintf("created client %s", c.Name),
	})
	return c, nil
}

// Get returns a live client. Ownership is the handler's concern.
func (s *Service) Get(ctx context.Context, clientID id.ClientID) (*Client, error) {
	c, err := s.store.FindByID(ctx, clientID)
	if err != nil {
		return nil, wrapClientErr(err, "failed to load client")
	}
	return c, nil
}

// GetAny returns a client even when soft-deleted. Used to authorize restore.
func (s *Service) GetAny(ctx context.Context, clientID id.ClientID) (*Client, error) {
	c, err := s.store.FindByIDAny(ctx, clientID)
	if err != nil {
		return nil, wrapClientErr(err, "failed to load client")
	}
	return c, nil
}

// Update applies partial changes. The slug stays stable across renames;
// only deletion moves it aside.
func (s *Service) Update(ctx context.Context, clientID id.ClientID, req *UpdateClientRequest) (*Client, error) {
	c, err := s.Get(ctx, clientID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		c.Name = *req.Name
	}
	if req.Email != nil {
		c.Email = *req.Email
	}
	if req.Phone != nil {
		c.Phone = *req.Phone
	}
	if req.Notes != nil {
		c.Notes = *req.Notes
	}
	if req.Identifiers != nil {
		c.Identifiers = c.Identifiers[:0]
		for _, in := range *req.Identifiers {
			c.Identifiers = append(c.Identifiers, ContactIdentifier{
				ID:       id.IdentifierID(uuid.New()),
				ClientID: c.ID,
				Number:   in.Number,
				Kind:     in.Kind,
			})
		}
	}
	c.UpdatedAt = time.Now()

	if err := s.store.Update(ctx, c); err != nil {
		return nil, wrapClientErr(err, "failed to update client")
	}

	s.record(ctx, audit.Entry{
		Action:      audit.ActionUpdateClient,
		EntityType:  "client",
		EntityID:    c.ID.String(),
		Description: fmt.Sprintf("updated client %s", c.Name),
	})
	return c, nil
}

// List returns clients scoped to owner (nil for the admin view).
func (s *Service) List(ctx context.Context, owner *id.UserID, limit, offset int) ([]Client, int, error) {
	clients, total, err := s.store.List(ctx, owner, limit, offset)
	if err != nil {
		return nil, 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list clients")
	}
	return clients, total, nil
}

// SoftDelete marks the client deleted and mangles the slug so the value is
// freed for reuse. Deleting an already-deleted client is NotFound.
func (s *Service) SoftDelete(ctx context.Context, clientID id.ClientID) error {
	c, err := s.Get(ctx, clientID)
	if err != nil {
		return err
	}

	now := time.Now()
	c.DeletedAt = &now
	c.Slug = mangleSlug(c.Slug, c.ID)
	c.UpdatedAt = now

	if err := s.store.Update(ctx, c); err != nil {
		return wrapClientErr(err, "failed to delete client")
	}

	s.record(ctx, audit.Entry{
		Action:      audit.ActionDeleteClient,
		EntityType:  "client",
		EntityID:    c.ID.String(),
		Description: fmt.Sprintf("client %s soft-deleted", c.Name),
		Severity:    audit.SeverityWarning,
	})
	return nil
}

// Restore clears the soft-delete marker. The original slug comes back only
// if no live client claimed it in the meantime.
func (s *Service) Restore(ctx context.Context, clientID id.ClientID) (*Client, error) {
	c, err := s.store.FindByIDAny(ctx, clientID)
	if err != nil {
		return nil, wrapClientErr(err, "failed to load client")
	}
	if !c.IsDeleted() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "client is not deleted")
	}

	original := unmangleSlug(c.Slug)
	if original != c.Slug {
		_, err := s.store.FindBySlug(ctx, original)
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			c.Slug = original
		case err != nil:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check slug availability")
		default:
			if s.logger != nil {
				s.logger.InfoContext(ctx, "restore kept disambiguated slug",
					"client_id", c.ID,
					"wanted", original,
				)
			}
		}
	}

	c.DeletedAt = nil
	c.UpdatedAt = time.Now()
	if err := s.store.Update(ctx, c); err != nil {
		return nil, wrapClientErr(err, "failed to restore client")
	}

	s.record(ctx, audit.Entry{
		Action:      audit.ActionRestoreClient,
		EntityType:  "client",
		EntityID:    c.ID.String(),
		Description: fmt.Sprintf("client restored as %s", c.Slug),
	})
	return c, nil
}

// CheckIdentifiers reports collisions between the proposed identifiers and
// live clients. An exact (number, kind) match is a duplicate; a same-number
// match of another kind is a warning. Neither blocks a save.
func (s *Service) CheckIdentifiers(ctx context.Context, req *CheckIdentifiersRequest) (*CheckIdentifiersResult, error) {
	var exclude id.ClientID
	if req.ClientID != "" {
		parsed, err := id.ParseClientID(req.ClientID)
		if err != nil {
			return nil, dErrors.New(dErrors.CodeBadRequest, "invalid client id")
		}
		exclude = parsed
	}

	result := &CheckIdentifiersResult{
		Duplicates: []IdentifierCollision{},
		Warnings:   []IdentifierCollision{},
	}
	for _, in := range req.Identifiers {
		matches, err := s.store.FindIdentifierMatches(ctx, in.Number)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check identifiers")
		}
		for _, m := range matches {
			if m.ClientID == exclude {
				continue
			}
			collision := IdentifierCollision{
				Number:     m.Number,
				Kind:       m.Kind,
				ClientID:   m.ClientID.String(),
				ClientName: m.ClientName,
			}
			if m.Kind == in.Kind {
				result.Duplicates = append(result.Duplicates, collision)
			} else {
				result.Warnings = append(result.Warnings, collision)
			}
		}
	}
	return result, nil
}

func (s *Service) record(ctx context.Context, entry audit.Entry) {
	if s.auditor != nil {
		s.auditor.Record(ctx, entry)
	}
}

// wrapClientErr translates store sentinels into domain errors exactly once.
func wrapClientErr(err error, msg string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "client not found")
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		return dErrors.New(dErrors.CodeConflict, "client slug already in use")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}

// mangleSlug frees a unique slug for reuse when the owning client is
// soft-deleted.
func mangleSlug(slug string, clientID id.ClientID) string {
	return fmt.Sprintf("%s-deleted-%.8s", slug, uuid.UUID(clientID).String())
}

// unmangleSlug recovers the original slug from a mangled one. Returns the
// input unchanged if it was never mangled.
func unmangleSlug(slug string) string {
	if idx := strings.LastIndex(slug, "-deleted-"); idx > 0 {
		return slug[:idx]
	}
	return slug
}
