package chat

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	id "atrium/pkg/domain"
	"atrium/pkg/platform/sentinel"
)

// PostgresStore persists chat entities in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CreateConversation(ctx context.Context, c *Conversation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversations (id, creator_id, title, created_at)
		VALUES ($1, $2, $3, $4)
	`, uuid.UUID(c.ID), uuid.UUID(c.CreatorID), c.Title, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("create conversation: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindConversation(ctx context.Context, conversationID id.ConversationID) (*Conversation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, creator_id, title, created_at FROM conversations WHERE id = $1`,
		uuid.UUID(conversationID))

	var (
		c                Conversation
		rawID, creatorID uuid.UUID
	)
	if err := row.Scan(&rawID, &creatorID, &c.Title, &c.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find conversation: %w", err)
	}
	c.ID = id.ConversationID(rawID)
	c.CreatorID = id.UserID(creatorID)
	return &c, nil
}

func (s *PostgresStore) ListConversations(ctx context.Context, member *id.UserID, limit, offset int) ([]Conversation, int, error) {
	join := ``
	args := []any{}
	if member != nil {
		join = ` JOIN conversation_participants p ON p.conversation_id = c.id AND p.user_id = $1`
		args = append(args, uuid.UUID(*member))
	}

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM conversations c`+join, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count conversations: %w", err)
	}

	query := `SELECT c.id, c.creator_id, c.title, c.created_at FROM conversations c` + join +
		fmt.Sprintf(` ORDER BY c.created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	rows, err := s.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	var conversations []Conversation
	for rows.Next() {
		var (
			c                Conversation
			rawID, creatorID uuid.UUID
		)
		if err := rows.Scan(&rawID, &creatorID, &c.Title, &c.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan conversation: %w", err)
		}
		c.ID = id.ConversationID(rawID)
		c.CreatorID = id.UserID(creatorID)
		conversations = append(conversations, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate conversations: %w", err)
	}
	return conversations, total, nil
}

func (s *PostgresStore) AddParticipant(ctx context.Context, p *Participant) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO conversation_participants (conversation_id, user_id, added_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (conversation_id, user_id) DO NOTHING
	`, uuid.UUID(p.ConversationID), uuid.UUID(p.UserID), p.AddedAt)
	if err != nil {
		return false, fmt.Errorf("add participant: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("add participant rows: %w", err)
	}
	return affected > 0, nil
}

func (s *PostgresStore) ListParticipants(ctx context.Context, conversationID id.ConversationID) ([]Participant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT conversation_id, user_id, added_at
		FROM conversation_participants
		WHERE conversation_id = $1
		ORDER BY added_at ASC
	`, uuid.UUID(conversationID))
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	var participants []Participant
	for rows.Next() {
		var (
			p              Participant
			convID, userID uuid.UUID
		)
		if err := rows.Scan(&convID, &userID, &p.AddedAt); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		p.ConversationID = id.ConversationID(convID)
		p.UserID = id.UserID(userID)
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate participants: %w", err)
	}
	return participants, nil
}

func (s *PostgresStore) IsParticipant(ctx context.Context, conversationID id.ConversationID, userID id.UserID) (bool, error) {
	var member bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM conversation_participants
			WHERE conversation_id = $1 AND user_id = $2
		)
	`, uuid.UUID(conversationID), uuid.UUID(userID)).Scan(&member)
	if err != nil {
		return false, fmt.Errorf("check participant: %w", err)
	}
	return member, nil
}

func (s *PostgresStore) CreateMessage(ctx context.Context, m *Message) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, conversation_id, author_id, body, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, uuid.UUID(m.ID), uuid.UUID(m.ConversationID), uuid.UUID(m.AuthorID), m.Body, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("create message: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindMessage(ctx context.Context, messageID id.MessageID) (*Message, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, conversation_id, author_id, body, created_at, deleted_at
		FROM messages WHERE id = $1
	`, uuid.UUID(messageID))

	m, err := scanMessage(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find message: %w", err)
	}
	return &m, nil
}

func (s *PostgresStore) ListMessages(ctx context.Context, conversationID id.ConversationID, limit, offset int) ([]Message, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE conversation_id = $1 AND deleted_at IS NULL`,
		uuid.UUID(conversationID)).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count messages: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_id, author_id, body, created_at, deleted_at
		FROM messages
		WHERE conversation_id = $1 AND deleted_at IS NULL
		ORDER BY created_at ASC
		LIMIT $2 OFFSET $3
	`, uuid.UUID(conversationID), limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	var messages []Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate messages: %w", err)
	}
	return messages, total, nil
}

func (s *PostgresStore) SoftDeleteMessage(ctx context.Context, messageID id.MessageID, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE messages SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`,
		uuid.UUID(messageID), at)
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete message rows: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (Message, error) {
	var (
		m                     Message
		rawID, convID, author uuid.UUID
		deletedAt             sql.NullTime
	)
	if err := row.Scan(&rawID, &convID, &author, &m.Body, &m.CreatedAt, &deletedAt); err != nil {
		return Message{}, err
	}
	m.ID = id.MessageID(rawID)
	m.ConversationID = id.ConversationID(convID)
	m.AuthorID = id.UserID(author)
	if deletedAt.Valid {
		m.DeletedAt = &deletedAt.Time
	}
	return m, nil
}

var _ Store = (*PostgresStore)(nil)
