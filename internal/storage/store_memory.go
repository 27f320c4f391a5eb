package storage

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
	files map[id.FileID]StoredFile
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{files: make(map[id.FileID]StoredFile)}
}

func (s *InMemoryStore) Create(_ context.Context, f *StoredFile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.files[f.ID] = *f
	return nil
}

func (s *InMemoryStore) Update(_ context.Context, f *StoredFile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.files[f.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.files[f.ID] = *f
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, fileID id.FileID) (*StoredFile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.files[fileID]
	if !ok || f.IsDeleted() {
		return nil, sentinel.ErrNotFound
	}
	copied := f
	return &copied, nil
}

func (s *InMemoryStore) FindByIDAny(_ context.Context, fileID id.FileID) (*StoredFile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.files[fileID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := f
	return &copied, nil
}

func (s *InMemoryStore) List(_ context.Context, owner *id.UserID, limit, offset int) ([]StoredFile, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []StoredFile
	for _, f := range s.files {
		if f.IsDeleted() {
			continue
		}
		if owner != nil && f.OwnerID != *owner {
			continue
		}
		all = append(all, f)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	total := len(all)
	if offset >= total {
		return []StoredFile{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

var _ Store = (*InMemoryStore)(nil)
