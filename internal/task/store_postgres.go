package task

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	id "atrium/pkg/domain"
	"atrium/pkg/platform/sentinel"
)

// PostgresStore persists tasks in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const taskColumns = `id, owner_id, title, description, status, due_date, created_at, updated_at, deleted_at`

func (s *PostgresStore) Create(ctx context.Context, t *Task) error {
	query := `
		INSERT INTO tasks (` + taskColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(t.ID),
		uuid.UUID(t.OwnerID),
		t.Title,
		t.Description,
		string(t.Status),
		t.DueDate,
		t.CreatedAt,
		t.UpdatedAt,
		t.DeletedAt,
	)
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, t *Task) error {
	query := `
		UPDATE tasks
		SET title = $2, description = $3, status = $4, due_date = $5,
		    updated_at = $6, deleted_at = $7
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query,
		uuid.UUID(t.ID),
		t.Title,
		t.Description,
		string(t.Status),
		t.DueDate,
		t.UpdatedAt,
		t.DeletedAt,
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update task rows: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, taskID id.TaskID) (*Task, error) {
	return s.findOne(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1 AND deleted_at IS NULL`,
		uuid.UUID(taskID))
}

func (s *PostgresStore) FindByIDAny(ctx context.Context, taskID id.TaskID) (*Task, error) {
	return s.findOne(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1`,
		uuid.UUID(taskID))
}

func (s *PostgresStore) List(ctx context.Context, owner *id.UserID, limit, offset int) ([]Task, int, error) {
	where := ` WHERE deleted_at IS NULL`
	args := []any{}
	if owner != nil {
		where += ` AND owner_id = $1`
		args = append(args, uuid.UUID(*owner))
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count tasks: %w", err)
	}

	query := `SELECT ` + taskColumns + ` FROM tasks` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	rows, err := s.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	var tasks []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate tasks: %w", err)
	}
	return tasks, total, nil
}

func (s *PostgresStore) findOne(ctx context.Context, query string, arg any) (*Task, error) {
	row := s.db.QueryRowContext(ctx, query, arg)
	t, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find task: %w", err)
	}
	return &t, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (Task, error) {
	var (
		t              Task
		rawID, ownerID uuid.UUID
		status         string
		dueDate        sql.NullTime
		deletedAt      sql.NullTime
	)
	if err := row.Scan(
		&rawID,
		&ownerID,
		&t.Title,
		&t.Description,
		&status,
		&dueDate,
		&t.CreatedAt,
		&t.UpdatedAt,
		&deletedAt,
	); err != nil {
		return Task{}, err
	}
	t.ID = id.TaskID(rawID)
	t.OwnerID = id.UserID(ownerID)
	t.Status = Status(status)
	if dueDate.Valid {
		d := dueDate.Time
		t.DueDate = &d
	}
	if deletedAt.Valid {
		d := deletedAt.Time
		t.DeletedAt = &d
	}
	return t, nil
}

var _ Store = (*PostgresStore)(nil)
