package todo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	id "atrium/pkg/domain"
	"atrium/pkg/platform/sentinel"
)

// PostgresStore persists todos in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const todoColumns = `id, owner_id, text, done, created_at, updated_at, deleted_at`

func (s *PostgresStore) Create(ctx context.Context, t *Todo) error {
	query := `
		INSERT INTO todos (` + todoColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(t.ID),
		uuid.UUID(t.OwnerID),
		t.Text,
		t.Done,
		t.CreatedAt,
		t.UpdatedAt,
		t.DeletedAt,
	)
	if err != nil {
		return fmt.Errorf("create todo: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, t *Todo) error {
	query := `
		UPDATE todos
		SET text = $2, done = $3, updated_at = $4, deleted_at = $5
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query,
		uuid.UUID(t.ID),
		t.Text,
		t.Done,
		t.UpdatedAt,
		t.DeletedAt,
	)
	if err != nil {
		return fmt.Errorf("update todo: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update todo rows: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, todoID id.TodoID) (*Todo, error) {
	return s.findOne(ctx,
		`SELECT `+todoColumns+` FROM todos WHERE id = $1 AND deleted_at IS NULL`,
		uuid.UUID(todoID))
}

func (s *PostgresStore) FindByIDAny(ctx context.Context, todoID id.TodoID) (*Todo, error) {
	return s.findOne(ctx,
		`SELECT `+todoColumns+` FROM todos WHERE id = $1`,
		uuid.UUID(todoID))
}

func (s *PostgresStore) List(ctx context.Context, owner *id.UserID, limit, offset int) ([]Todo, int, error) {
	where := ` WHERE deleted_at IS NULL`
	args := []any{}
	if owner != nil {
		where += ` AND owner_id = $1`
		args = append(args, uuid.UUID(*owner))
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM todos`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count todos: %w", err)
	}

	query := `SELECT ` + todoColumns + ` FROM todos` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	rows, err := s.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list todos: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	var todos []Todo
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan todo: %w", err)
		}
		todos = append(todos, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate todos: %w", err)
	}
	return todos, total, nil
}

func (s *PostgresStore) findOne(ctx context.Context, query string, arg any) (*Todo, error) {
	row := s.db.QueryRowContext(ctx, query, arg)
	t, err := scanTodo(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find todo: %w", err)
	}
	return &t, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTodo(row rowScanner) (Todo, error) {
	var (
		t              Todo
		rawID, ownerID uuid.UUID
		deletedAt      sql.NullTime
	)
	if err := row.Scan(
		&rawID,
		&ownerID,
		&t.Text,
		&t.Done,
		&t.CreatedAt,
		&t.UpdatedAt,
		&deletedAt,
	); err != nil {
		return Todo{}, err
	}
	t.ID = id.TodoID(rawID)
	t.OwnerID = id.UserID(ownerID)
	if deletedAt.Valid {
		d := deletedAt.Time
		t.DeletedAt = &d
	}
	return t, nil
}

var _ Store = (*PostgresStore)(nil)
