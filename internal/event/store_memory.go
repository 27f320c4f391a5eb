package event

import (
	"context"
	"sort"
	"sync"

	id "atrium/pkg/domain"
	"atrium/pkg/platform/sentinel"
)

// InMemoryStore is a map-backed Store for tests and databaseless runs.
type InMemoryStore struct {
	mu     sync.RWMutex
	events map[id.EventID]Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[id.EventID]Event)}
}

func (s *InMemoryStore) Create(_ context.Context, e *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events[e.ID] = *e
	return nil
}

func (s *InMemoryStore) Update(_ context.Context, e *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[e.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.events[e.ID] = *e
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, eventID id.EventID) (*Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.events[eventID]
	if !ok || e.IsDeleted() {
		return nil, sentinel.ErrNotFound
	}
	copied := e
	return &copied, nil
}

func (s *InMemoryStore) FindByIDAny(_ context.Context, eventID id.EventID) (*Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.events[eventID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := e
	return &copied, nil
}

func (s *InMemoryStore) List(_ context.Context, owner *id.UserID, limit, offset int) ([]Event, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []Event
	for _, e := range s.events {
		if e.IsDeleted() {
			continue
		}
		if owner != nil && e.OwnerID != *owner {
			continue
		}
		all = append(all, e)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].StartsAt.Before(all[j].StartsAt)
	})

	total := len(all)
	if offset >= total {
		return []Event{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

var _ Store = (*InMemoryStore)(nil)
