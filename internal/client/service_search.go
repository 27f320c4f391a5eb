package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"atrium/internal/audit"
	id "atrium/pkg/domain"
	dErrors "atrium/pkg/domain-errors"
	"atrium/pkg/platform/sentinel"
)

// CreateSearch creates a named client grouping owned by the caller.
func (s *Service) CreateSearch(ctx context.Context, ownerID id.UserID, req *CreateSearchRequest) (*Search, error) {
	search := &Search{
		ID:        id.SearchID(uuid.New()),
		OwnerID:   ownerID,
		Name:      req.Name,
		CreatedAt: time.Now(),
	}
	if err := s.searches.CreateSearch(ctx, search); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create search")
	}
	return search, nil
}

// GetSearch returns a grouping. Ownership is the handler's concern.
func (s *Service) GetSearch(ctx context.Context, searchID id.SearchID) (*Search, error) {
	search, err := s.searches.FindSearch(ctx, searchID)
	if err != nil {
		return nil, wrapSearchErr(err, "failed to load search")
	}
	return search, nil
}

// ListSearches returns groupings scoped to owner (nil for the admin view).
func (s *Service) ListSearches(ctx context.Context, owner *id.UserID, limit, offset int) ([]Search, int, error) {
	searches, total, err := s.searches.ListSearches(ctx, owner, limit, offset)
	if err != nil {
		return nil, 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list searches")
	}
	return searches, total, nil
}

// DeleteSearch removes the grouping and its membership links. Clients are
// untouched.
func (s *Service) DeleteSearch(ctx context.Context, searchID id.SearchID) error {
	if err := s.searches.DeleteSearch(ctx, searchID); err != nil {
		return wrapSearchErr(err, "failed to delete search")
	}
	return nil
}

// LinkClient attaches a client to a grouping. Linking an already-linked
// client is a no-op, not an error.
func (s *Service) LinkClient(ctx context.Context, searchID id.SearchID, clientID id.ClientID) error {
	if _, err := s.Get(ctx, clientID); err != nil {
		return err
	}
	search, err := s.GetSearch(ctx, searchID)
	if err != nil {
		return err
	}

	inserted, err := s.searches.Link(ctx, searchID, clientID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to link client")
	}
	if !inserted {
		return nil
	}

	s.record(ctx, audit.Entry{
		Action:      audit.ActionLinkSearch,
		EntityType:  "search",
		EntityID:    searchID.String(),
		Description: fmt.Sprintf("linked client to search %s", search.Name),
		Metadata:    map[string]any{"client_id": clientID.String()},
	})
	return nil
}

// UnlinkClient detaches a client from a grouping. Only the link goes away.
func (s *Service) UnlinkClient(ctx context.Context, searchID id.SearchID, clientID id.ClientID) error {
	search, err := s.GetSearch(ctx, searchID)
	if err != nil {
		return err
	}

	removed, err := s.searches.Unlink(ctx, searchID, clientID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to unlink client")
	}
	if !removed {
		return dErrors.New(dErrors.CodeNotFound, "client is not linked to this search")
	}

	s.record(ctx, audit.Entry{
		Action:      audit.ActionUnlinkSearch,
		EntityType:  "search",
		EntityID:    searchID.String(),
		Description: fmt.Sprintf("unlinked client from search %s", search.Name),
		Metadata:    map[string]any{"client_id": clientID.String()},
	})
	return nil
}

// SearchClients lists the live clients linked to a grouping.
func (s *Service) SearchClients(ctx context.Context, searchID id.SearchID, limit, offset int) ([]Client, int, error) {
	if _, err := s.GetSearch(ctx, searchID); err != nil {
		return nil, 0, err
	}
	clients, total, err := s.searches.SearchClients(ctx, searchID, limit, offset)
	if err != nil {
		return nil, 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list search clients")
	}
	return clients, total, nil
}

func wrapSearchErr(err error, msg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "search not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
