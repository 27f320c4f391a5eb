package todo

import (
	"context"
	"sort"
	"sync"

	id "atrium/pkg/domain"
	"atrium/pkg/platform/sentinel"
)

// InMemoryStore is a map-backed Store for tests and databaseless runs.
type InMemoryStore struct {
	mu    sync.RWMutex
	todos map[id.TodoID]Todo
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{todos: make(map[id.TodoID]Todo)}
}

func (s *InMemoryStore) Create(_ context.Context, t *Todo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.todos[t.ID] = *t
	return nil
}

func (s *InMemoryStore) Update(_ context.Context, t *Todo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.todos[t.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.todos[t.ID] = *t
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, todoID id.TodoID) (*Todo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.todos[todoID]
	if !ok || t.IsDeleted() {
		return nil, sentinel.ErrNotFound
	}
	copied := t
	return &copied, nil
}

func (s *InMemoryStore) FindByIDAny(_ context.Context, todoID id.TodoID) (*Todo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.todos[todoID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := t
	return &copied, nil
}

func (s *InMemoryStore) List(_ context.Context, owner *id.UserID, limit, offset int) ([]Todo, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []Todo
	for _, t := range s.todos {
		if t.IsDeleted() {
			continue
		}
		if owner != nil && t.OwnerID != *owner {
			continue
		}
		all = append(all, t)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	total := len(all)
	if offset >= total {
		return []Todo{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

var _ Store = (*InMemoryStore)(nil)
