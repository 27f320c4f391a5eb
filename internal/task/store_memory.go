package task

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
	tasks map[id.TaskID]Task
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{tasks: make(map[id.TaskID]Task)}
}

func (s *InMemoryStore) Create(_ context.Context, t *Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks[t.ID] = *t
	return nil
}

func (s *InMemoryStore) Update(_ context.Context, t *Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[t.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.tasks[t.ID] = *t
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, taskID id.TaskID) (*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[taskID]
	if !ok || t.IsDeleted() {
		return nil, sentinel.ErrNotFound
	}
	copied := t
	return &copied, nil
}

func (s *InMemoryStore) FindByIDAny(_ context.Context, taskID id.TaskID) (*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[taskID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := t
	return &copied, nil
}

func (s *InMemoryStore) List(_ context.Context, owner *id.UserID, limit, offset int) ([]Task, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []Task
	for _, t := range s.tasks {
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
		return []Task{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

var _ Store = (*InMemoryStore)(nil)
