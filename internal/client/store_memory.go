package client

import (
	"context"
	"sort"
	"sync"

	id "atrium/pkg/domain"
	"atrium/pkg/platform/sentinel"
)

type link struct {
	searchID id.SearchID
	clientID id.ClientID
}

// InMemoryStore is a map-backed Store and SearchStore for tests and
// databaseless runs.
type InMemoryStore struct {
	mu       sync.RWMutex
	clients  map[id.ClientID]Client
	searches map[id.SearchID]Search
	links    map[link]struct{}
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		clients:  make(map[id.ClientID]Client),
		searches: make(map[id.SearchID]Search),
		links:    make(map[link]struct{}),
	}
}

func (s *InMemoryStore) Create(_ context.Context, c *Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.clients {
		if existing.Slug == c.Slug {
			return sentinel.ErrAlreadyUsed
		}
	}
	s.clients[c.ID] = cloneClient(*c)
	return nil
}

func (s *InMemoryStore) Update(_ context.Context, c *Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.clients[c.ID]; !ok {
		return sentinel.ErrNotFound
	}
	for otherID, existing := range s.clients {
		if otherID != c.ID && existing.Slug == c.Slug {
			return sentinel.ErrAlreadyUsed
		}
	}
	s.clients[c.ID] = cloneClient(*c)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, clientID id.ClientID) (*Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.clients[clientID]
	if !ok || c.IsDeleted() {
		return nil, sentinel.ErrNotFound
	}
	copied := cloneClient(c)
	return &copied, nil
}

func (s *InMemoryStore) FindByIDAny(_ context.Context, clientID id.ClientID) (*Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.clients[clientID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := cloneClient(c)
	return &copied, nil
}

func (s *InMemoryStore) FindBySlug(_ context.Context, slug string) (*Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.clients {
		if c.Slug == slug && !c.IsDeleted() {
			copied := cloneClient(c)
			return &copied, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) List(_ context.Context, owner *id.UserID, limit, offset int) ([]Client, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []Client
	for _, c := range s.clients {
		if c.IsDeleted() {
			continue
		}
		if owner != nil && c.OwnerID != *owner {
			continue
		}
		all = append(all, cloneClient(c))
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	return paginate(all, limit, offset)
}

func (s *InMemoryStore) FindIdentifierMatches(_ context.Context, number string) ([]IdentifierMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []IdentifierMatch
	for _, c := range s.clients {
		if c.IsDeleted() {
			continue
		}
		for _, ci := range c.Identifiers {
			if ci.Number == number {
				matches = append(matches, IdentifierMatch{
					ClientID:   c.ID,
					ClientName: c.Name,
					Number:     ci.Number,
					Kind:       ci.Kind,
				})
			}
		}
	}
	return matches, nil
}

func (s *InMemoryStore) CreateSearch(_ context.Context, search *Search) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.searches[search.ID] = *search
	return nil
}

func (s *InMemoryStore) FindSearch(_ context.Context, searchID id.SearchID) (*Search, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search, ok := s.searches[searchID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := search
	return &copied, nil
}

func (s *InMemoryStore) ListSearches(_ context.Context, owner *id.UserID, limit, offset int) ([]Search, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []Search
	for _, search := range s.searches {
		if owner != nil && search.OwnerID != *owner {
			continue
		}
		all = append(all, search)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	return paginate(all, limit, offset)
}

func (s *InMemoryStore) DeleteSearch(_ context.Context, searchID id.SearchID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.searches[searchID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.searches, searchID)
	for l := range s.links {
		if l.searchID == searchID {
			delete(s.links, l)
		}
	}
	return nil
}

func (s *InMemoryStore) Link(_ context.Context, searchID id.SearchID, clientID id.ClientID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l := link{searchID: searchID, clientID: clientID}
	if _, ok := s.links[l]; ok {
		return false, nil
	}
	s.links[l] = struct{}{}
	return true, nil
}

func (s *InMemoryStore) Unlink(_ context.Context, searchID id.SearchID, clientID id.ClientID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l := link{searchID: searchID, clientID: clientID}
	if _, ok := s.links[l]; !ok {
		return false, nil
	}
	delete(s.links, l)
	return true, nil
}

func (s *InMemoryStore) SearchClients(_ context.Context, searchID id.SearchID, limit, offset int) ([]Client, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []Client
	for l := range s.links {
		if l.searchID != searchID {
			continue
		}
		c, ok := s.clients[l.clientID]
		if !ok || c.IsDeleted() {
			continue
		}
		all = append(all, cloneClient(c))
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	return paginate(all, limit, offset)
}

func cloneClient(c Client) Client {
	c.Identifiers = append([]ContactIdentifier(nil), c.Identifiers...)
	return c
}

func paginate[T any](all []T, limit, offset int) ([]T, int, error) {
	total := len(all)
	if offset >= total {
		return []T{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

var (
	_ Store       = (*InMemoryStore)(nil)
	_ SearchStore = (*InMemoryStore)(nil)
)
