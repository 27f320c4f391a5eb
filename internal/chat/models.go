package chat

import (
	"strings"
	"time"

	id "atrium/pkg/domain"
	dErrors "atrium/pkg/domain-errors"
)

// Conversation is a titled message thread. The creator is always a
// participant; further participants are added by the creator or an admin.
type Conversation struct {
	ID        id.ConversationID
	CreatorID id.UserID
	Title     string
	CreatedAt time.Time
}

// Participant is a conversation membership row.
type Participant struct {
	ConversationID id.ConversationID
	UserID         id.UserID
	AddedAt        time.Time
}

// Message belongs to a conversation. Messages are never edited; removal is a
// soft delete that hides the row from listings.
type Message struct {
	ID             id.MessageID
	ConversationID id.ConversationID
	AuthorID       id.UserID
	Body           string
	CreatedAt      time.Time
	DeletedAt      *time.Time
}

type CreateConversationRequest struct {
	Title string `json:"title"`
}

func (r *CreateConversationRequest) Normalize() {
	r.Title = strings.TrimSpace(r.Title)
}

func (r *CreateConversationRequest) Validate() error {
	if r.Title == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "title is required")
	}
	return nil
}

type AddParticipantRequest struct {
	UserID string `json:"userId"`
}

func (r *AddParticipantRequest) Normalize() {
	r.UserID = strings.TrimSpace(r.UserID)
}

func (r *AddParticipantRequest) Validate() error {
	if r.UserID == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "userId is required")
	}
	return nil
}

type PostMessageRequest struct {
	Body string `json:"body"`
}

func (r *PostMessageRequest) Normalize() {
	r.Body = strings.TrimSpace(r.Body)
}

func (r *PostMessageRequest) Validate() error {
	if r.Body == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "body is required")
	}
	return nil
}

type ConversationResponse struct {
	ID        string    `json:"id"`
	CreatorID string    `json:"creatorId"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
}

func toConversationResponse(c *Conversation) ConversationResponse {
	return ConversationResponse{
		ID:        c.ID.String(),
		CreatorID: c.CreatorID.String(),
		Title:     c.Title,
		CreatedAt: c.CreatedAt,
	}
}

type ParticipantResponse struct {
	UserID  string    `json:"userId"`
	AddedAt time.Time `json:"addedAt"`
}

func toParticipantResponse(p *Participant) ParticipantResponse {
	return ParticipantResponse{
		UserID:  p.UserID.String(),
		AddedAt: p.AddedAt,
	}
}

type MessageResponse struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	AuthorID       string    `json:"authorId"`
	Body           string    `json:"body"`
	CreatedAt      time.Time `json:"createdAt"`
}

func toMessageResponse(m *Message) MessageResponse {
	return MessageResponse{
		ID:             m.ID.String(),
		ConversationID: m.ConversationID.String(),
		AuthorID:       m.AuthorID.String(),
		Body:           m.Body,
		CreatedAt:      m.CreatedAt,
	}
}
