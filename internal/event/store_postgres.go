package event

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	id "atrium/pkg/domain"
	"atrium/pkg/platform/sentinel"
)

// PostgresStore persists events in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const eventColumns = `id, owner_id, title, starts_at, ends_at, location, created_at, updated_at, deleted_at`

func (s *PostgresStore) Create(ctx context.Context, e *Event) error {
	query := `
		INSERT INTO events (` + eventColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(e.ID),
		uuid.UUID(e.OwnerID),
		e.Title,
		e.StartsAt,
		e.EndsAt,
		e.Location,
		e.CreatedAt,
		e.UpdatedAt,
		e.DeletedAt,
	)
	if err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, e *Event) error {
	query := `
		UPDATE events
		SET title = $2, starts_at = $3, ends_at = $4, location = $5,
		    updated_at = $6, deleted_at = $7
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query,
		uuid.UUID(e.ID),
		e.Title,
		e.StartsAt,
		e.EndsAt,
		e.Location,
		e.UpdatedAt,
		e.DeletedAt,
	)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update event rows: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, eventID id.EventID) (*Event, error) {
	return s.findOne(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1 AND deleted_at IS NULL`,
		uuid.UUID(eventID))
}

func (s *PostgresStore) FindByIDAny(ctx context.Context, eventID id.EventID) (*Event, error) {
	return s.findOne(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1`,
		uuid.UUID(eventID))
}

func (s *PostgresStore) List(ctx context.Context, owner *id.UserID, limit, offset int) ([]Event, int, error) {
	where := ` WHERE deleted_at IS NULL`
	args := []any{}
	if owner != nil {
		where += ` AND owner_id = $1`
		args = append(args, uuid.UUID(*owner))
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count events: %w", err)
	}

	query := `SELECT ` + eventColumns + ` FROM events` + where +
		fmt.Sprintf(` ORDER BY starts_at ASC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	rows, err := s.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	var events []Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate events: %w", err)
	}
	return events, total, nil
}

func (s *PostgresStore) findOne(ctx context.Context, query string, arg any) (*Event, error) {
	row := s.db.QueryRowContext(ctx, query, arg)
	e, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find event: %w", err)
	}
	return &e, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (Event, error) {
	var (
		e              Event
		rawID, ownerID uuid.UUID
		endsAt         sql.NullTime
		deletedAt      sql.NullTime
	)
	if err := row.Scan(
		&rawID,
		&ownerID,
		&e.Title,
		&e.StartsAt,
		&endsAt,
		&e.Location,
		&e.CreatedAt,
		&e.UpdatedAt,
		&deletedAt,
	); err != nil {
		return Event{}, err
	}
	e.ID = id.EventID(rawID)
	e.OwnerID = id.UserID(ownerID)
	if endsAt.Valid {
		t := endsAt.Time
		e.EndsAt = &t
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		e.DeletedAt = &t
	}
	return e, nil
}

var _ Store = (*PostgresStore)(nil)
