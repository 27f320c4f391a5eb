package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"atrium/internal/audit"
	id "atrium/pkg/domain"
	dErrors "atrium/pkg/domain-errors"
	"atrium/pkg/platform/sentinel"
)

// Store persists conversations, memberships, and messages.
type Store interface {
	CreateConversation(ctx context.Context, c *Conversation) error
	FindConversation(ctx context.Context, conversationID id.ConversationID) (*Conversation, error)
	// ListConversations returns conversations the member belongs to; a nil
	// member returns every conversation.
	ListConversations(ctx context.Context, member *id.UserID, limit, offset int) ([]Conversation, int, error)

	// AddParticipant reports whether a new membership row was inserted.
	// Adding an existing participant is a no-op.
	AddParticipant(ctx context.Context, p *Participant) (bool, error)
	ListParticipants(ctx context.Context, conversationID id.ConversationID) ([]Participant, error)
	IsParticipant(ctx context.Context, conversationID id.ConversationID, userID id.UserID) (bool, error)

	CreateMessage(ctx context.Context, m *Message) error
	FindMessage(ctx context.Context, messageID id.MessageID) (*Message, error)
	ListMessages(ctx context.Context, conversationID id.ConversationID, limit, offset int) ([]Message, int, error)
	SoftDeleteMessage(ctx context.Context, messageID id.MessageID, at time.Time) error
}

// Auditor records audit entries. Satisfied by audit.Recorder.
type Auditor interface {
	Record(ctx context.Context, entry audit.Entry)
}

// Service orchestrates conversations and messages. Authorization lives in the
// handlers; the service assumes the caller has already been admitted.
type Service struct {
	store   Store
	logger  *slog.Logger
	auditor Auditor
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

func New(store Store, opts ...Option) *Service {
	s := &Service{store: store}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateConversation creates the thread and enrolls the creator as its first
// participant.
func (s *Service) CreateConversation(ctx context.Context, creatorID id.UserID, req *CreateConversationRequest) (*Conversation, error) {
	now := time.Now()
	c := &Conversation{
		ID:        id.ConversationID(uuid.New()),
		CreatorID: creatorID,
		Title:     req.Title,
		CreatedAt: now,
	}
	if err := s.store.CreateConversation(ctx, c); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create conversation")
	}
	if _, err := s.store.AddParticipant(ctx, &Participant{
		ConversationID: c.ID,
		UserID:         creatorID,
		AddedAt:        now,
	}); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to enroll creator")
	}

	s.record(ctx, audit.Entry{
		Action:      audit.ActionCreateChat,
		EntityType:  "conversation",
		EntityID:    c.ID.String(),
		Description: fmt.Sprintf("created conversation %s", c.Title),
	})
	return c, nil
}

func (s *Service) GetConversation(ctx context.Context, conversationID id.ConversationID) (*Conversation, error) {
	c, err := s.store.FindConversation(ctx, conversationID)
	if err != nil {
		return nil, wrapConversationErr(err)
	}
	return c, nil
}

func (s *Service) ListConversations(ctx context.Context, member *id.UserID, limit, offset int) ([]Conversation, int, error) {
	conversations, total, err := s.store.ListConversations(ctx, member, limit, offset)
	if err != nil {
		return nil, 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list conversations")
	}
	return conversations, total, nil
}

// AddParticipant enrolls a user. Re-adding an existing participant succeeds
// without a second membership row or audit entry.
func (s *Service) AddParticipant(ctx context.Context, conversationID id.ConversationID, userID id.UserID) error {
	if _, err := s.store.FindConversation(ctx, conversationID); err != nil {
		return wrapConversationErr(err)
	}

	inserted, err := s.store.AddParticipant(ctx, &Participant{
		ConversationID: conversationID,
		UserID:         userID,
		AddedAt:        time.Now(),
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to add participant")
	}
	if !inserted {
		return nil
	}

	s.record(ctx, audit.Entry{
		Action:      audit.ActionAddParticipant,
		EntityType:  "conversation",
		EntityID:    conversationID.String(),
		Description: "added participant to conversation",
		Metadata:    map[string]any{"user_id": userID.String()},
	})
	return nil
}

func (s *Service) ListParticipants(ctx context.Context, conversationID id.ConversationID) ([]Participant, error) {
	if _, err := s.store.FindConversation(ctx, conversationID); err != nil {
		return nil, wrapConversationErr(err)
	}
	participants, err := s.store.ListParticipants(ctx, conversationID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list participants")
	}
	return participants, nil
}

func (s *Service) PostMessage(ctx context.Context, conversationID id.ConversationID, authorID id.UserID, req *PostMessageRequest) (*Message, error) {
	if _, err := s.store.FindConversation(ctx, conversationID); err != nil {
		return nil, wrapConversationErr(err)
	}

	m := &Message{
		ID:             id.MessageID(uuid.New()),
		ConversationID: conversationID,
		AuthorID:       authorID,
		Body:           req.Body,
		CreatedAt:      time.Now(),
	}
	if err := s.store.CreateMessage(ctx, m); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to post message")
	}

	s.record(ctx, audit.Entry{
		Action:     audit.ActionPostMessage,
		EntityType: "message",
		EntityID:   m.ID.String(),
		Metadata:   map[string]any{"conversation_id": conversationID.String()},
	})
	return m, nil
}

// GetMessage returns a live message in the given conversation. Messages are
// addressed through their conversation so a message id alone reveals nothing.
func (s *Service) GetMessage(ctx context.Context, conversationID id.ConversationID, messageID id.MessageID) (*Message, error) {
	m, err := s.store.FindMessage(ctx, messageID)
	if err != nil {
		return nil, wrapMessageErr(err)
	}
	if m.ConversationID != conversationID || m.DeletedAt != nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "message not found")
	}
	return m, nil
}

func (s *Service) ListMessages(ctx context.Context, conversationID id.ConversationID, limit, offset int) ([]Message, int, error) {
	if _, err := s.store.FindConversation(ctx, conversationID); err != nil {
		return nil, 0, wrapConversationErr(err)
	}
	messages, total, err := s.store.ListMessages(ctx, conversationID, limit, offset)
	if err != nil {
		return nil, 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list messages")
	}
	return messages, total, nil
}

// DeleteMessage soft-deletes; a second delete of the same message is 404.
func (s *Service) DeleteMessage(ctx context.Context, conversationID id.ConversationID, messageID id.MessageID) error {
	m, err := s.GetMessage(ctx, conversationID, messageID)
	if err != nil {
		return err
	}
	if err := s.store.SoftDeleteMessage(ctx, m.ID, time.Now()); err != nil {
		return wrapMessageErr(err)
	}

	s.record(ctx, audit.Entry{
		Action:     audit.ActionDeleteMessage,
		EntityType: "message",
		EntityID:   m.ID.String(),
		Metadata:   map[string]any{"conversation_id": conversationID.String()},
		Severity:   audit.SeverityWarning,
	})
	return nil
}

// IsParticipant implements the membership lookup behind ParticipantOf
// requirements.
func (s *Service) IsParticipant(ctx context.Context, conversationID id.ConversationID, userID id.UserID) (bool, error) {
	return s.store.IsParticipant(ctx, conversationID, userID)
}

func (s *Service) record(ctx context.Context, entry audit.Entry) {
	if s.auditor != nil {
		s.auditor.Record(ctx, entry)
	}
}

func wrapConversationErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "conversation not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "conversation lookup failed")
}

func wrapMessageErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "message not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "message lookup failed")
}
