package chat

import (
	"context"
	"sort"
	"sync"
	"time"

	id "atrium/pkg/domain"
	"atrium/pkg/platform/sentinel"
)

type membership struct {
	conversationID id.ConversationID
	userID         id.UserID
}

// InMemoryStore is a map-backed Store for tests and databaseless runs.
type InMemoryStore struct {
	mu            sync.RWMutex
	conversations map[id.ConversationID]Conversation
	participants  map[membership]Participant
	messages      map[id.MessageID]Message
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		conversations: make(map[id.ConversationID]Conversation),
		participants:  make(map[membership]Participant),
		messages:      make(map[id.MessageID]Message),
	}
}

func (s *InMemoryStore) CreateConversation(_ context.Context, c *Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.conversations[c.ID] = *c
	return nil
}

func (s *InMemoryStore) FindConversation(_ context.Context, conversationID id.ConversationID) (*Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.conversations[conversationID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := c
	return &copied, nil
}

func (s *InMemoryStore) ListConversations(_ context.Context, member *id.UserID, limit, offset int) ([]Conversation, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []Conversation
	for _, c := range s.conversations {
		if member != nil {
			if _, ok := s.participants[membership{c.ID, *member}]; !ok {
				continue
			}
		}
		all = append(all, c)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	return paginate(all, limit, offset)
}

func (s *InMemoryStore) AddParticipant(_ context.Context, p *Participant) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := membership{p.ConversationID, p.UserID}
	if _, ok := s.participants[key]; ok {
		return false, nil
	}
	s.participants[key] = *p
	return true, nil
}

func (s *InMemoryStore) ListParticipants(_ context.Context, conversationID id.ConversationID) ([]Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var participants []Participant
	for _, p := range s.participants {
		if p.ConversationID == conversationID {
			participants = append(participants, p)
		}
	}
	sort.Slice(participants, func(i, j int) bool {
		return participants[i].AddedAt.Before(participants[j].AddedAt)
	})
	return participants, nil
}

func (s *InMemoryStore) IsParticipant(_ context.Context, conversationID id.ConversationID, userID id.UserID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.participants[membership{conversationID, userID}]
	return ok, nil
}

func (s *InMemoryStore) CreateMessage(_ context.Context, m *Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages[m.ID] = *m
	return nil
}

func (s *InMemoryStore) FindMessage(_ context.Context, messageID id.MessageID) (*Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.messages[messageID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := m
	return &copied, nil
}

func (s *InMemoryStore) ListMessages(_ context.Context, conversationID id.ConversationID, limit, offset int) ([]Message, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []Message
	for _, m := range s.messages {
		if m.ConversationID != conversationID || m.DeletedAt != nil {
			continue
		}
		all = append(all, m)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})
	return paginate(all, limit, offset)
}

func (s *InMemoryStore) SoftDeleteMessage(_ context.Context, messageID id.MessageID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.messages[messageID]
	if !ok || m.DeletedAt != nil {
		return sentinel.ErrNotFound
	}
	m.DeletedAt = &at
	s.messages[messageID] = m
	return nil
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

var _ Store = (*InMemoryStore)(nil)
