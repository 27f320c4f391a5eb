// Package domain provides type-safe identifiers to prevent mixing up IDs at compile time.
package domain

import (
	"github.com/google/uuid"

	dErrors "atrium/pkg/domain-errors"
)

// Distinct ID types - compiler prevents passing a TaskID where a UserID is expected.
type (
	UserID         uuid.UUID
	ClientID       uuid.UUID
	IdentifierID   uuid.UUID
	SearchID       uuid.UUID
	TaskID         uuid.UUID
	TodoID         uuid.UUID
	EventID        uuid.UUID
	WalletID       uuid.UUID
	ProjectID      uuid.UUID
	ExpenseID      uuid.UUID
	ConversationID uuid.UUID
	MessageID      uuid.UUID
	FileID         uuid.UUID
)

// Parse functions - use at trust boundaries (handlers, API inputs).

func ParseUserID(s string) (UserID, error) {
	id, err := parseUUID(s, "user ID")
	return UserID(id), err
}

func ParseClientID(s string) (ClientID, error) {
	id, err := parseUUID(s, "client ID")
	return ClientID(id), err
}

func ParseIdentifierID(s string) (IdentifierID, error) {
	id, err := parseUUID(s, "identifier ID")
	return IdentifierID(id), err
}

func ParseSearchID(s string) (SearchID, error) {
	id, err := parseUUID(s, "search ID")
	return SearchID(id), err
}

func ParseTaskID(s string) (TaskID, error) {
	id, err := parseUUID(s, "task ID")
	return TaskID(id), err
}

func ParseTodoID(s string) (TodoID, error) {
	id, err := parseUUID(s, "todo ID")
	return TodoID(id), err
}

func ParseEventID(s string) (EventID, error) {
	id, err := parseUUID(s, "event ID")
	return EventID(id), err
}

func ParseWalletID(s string) (WalletID, error) {
	id, err := parseUUID(s, "wallet ID")
	return WalletID(id), err
}

func ParseProjectID(s string) (ProjectID, error) {
	id, err := parseUUID(s, "project ID")
	return ProjectID(id), err
}

func ParseExpenseID(s string) (ExpenseID, error) {
	id, err := parseUUID(s, "expense ID")
	return ExpenseID(id), err
}

func ParseConversationID(s string) (ConversationID, error) {
	id, err := parseUUID(s, "conversation ID")
	return ConversationID(id), err
}

func ParseMessageID(s string) (MessageID, error) {
	id, err := parseUUID(s, "message ID")
	return MessageID(id), err
}

func ParseFileID(s string) (FileID, error) {
	id, err := parseUUID(s, "file ID")
	return FileID(id), err
}

// String methods - for logging and debugging.

func (id UserID) String() string         { return uuid.UUID(id).String() }
func (id ClientID) String() string       { return uuid.UUID(id).String() }
func (id IdentifierID) String() string   { return uuid.UUID(id).String() }
func (id SearchID) String() string       { return uuid.UUID(id).String() }
func (id TaskID) String() string         { return uuid.UUID(id).String() }
func (id TodoID) String() string         { return uuid.UUID(id).String() }
func (id EventID) String() string        { return uuid.UUID(id).String() }
func (id WalletID) String() string       { return uuid.UUID(id).String() }
func (id ProjectID) String() string      { return uuid.UUID(id).String() }
func (id ExpenseID) String() string      { return uuid.UUID(id).String() }
func (id ConversationID) String() string { return uuid.UUID(id).String() }
func (id MessageID) String() string      { return uuid.UUID(id).String() }
func (id FileID) String() string         { return uuid.UUID(id).String() }

// IsNil checks - used for service-layer validation.

func (id UserID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id ClientID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id IdentifierID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id SearchID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id TaskID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id TodoID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id EventID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id WalletID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id ProjectID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id ExpenseID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id ConversationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id MessageID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id FileID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }

// parseUUID is the shared validation logic.
// Note: Nil UUIDs are allowed here. Use IsNil() at the service layer for
// business validation, which allows store lookups to return proper
// "not found" errors for consistency.
func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label+" format")
	}
	return id, nil
}
