package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	id "atrium/pkg/domain"
	"atrium/pkg/platform/sentinel"
)

// PostgresStore persists file metadata in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const fileColumns = `id, owner_id, name, size, content_type, checksum, created_at, updated_at, deleted_at`

func (s *PostgresStore) Create(ctx context.Context, f *StoredFile) error {
	query := `
		INSERT INTO stored_files (` + fileColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(f.ID),
		uuid.UUID(f.OwnerID),
		f.Name,
		f.Size,
		f.ContentType,
		f.Checksum,
		f.CreatedAt,
		f.UpdatedAt,
		f.DeletedAt,
	)
	if err != nil {
		return fmt.Errorf("create stored file: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, f *StoredFile) error {
	query := `
		UPDATE stored_files
		SET name = $2, size = $3, content_type = $4, checksum = $5,
		    updated_at = $6, deleted_at = $7
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query,
		uuid.UUID(f.ID),
		f.Name,
		f.Size,
		f.ContentType,
		f.Checksum,
		f.UpdatedAt,
		f.DeletedAt,
	)
	if err != nil {
		return fmt.Errorf("update stored file: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update stored file rows: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, fileID id.FileID) (*StoredFile, error) {
	return s.findOne(ctx,
		`SELECT `+fileColumns+` FROM stored_files WHERE id = $1 AND deleted_at IS NULL`,
		uuid.UUID(fileID))
}

func (s *PostgresStore) FindByIDAny(ctx context.Context, fileID id.FileID) (*StoredFile, error) {
	return s.findOne(ctx,
		`SELECT `+fileColumns+` FROM stored_files WHERE id = $1`,
		uuid.UUID(fileID))
}

func (s *PostgresStore) List(ctx context.Context, owner *id.UserID, limit, offset int) ([]StoredFile, int, error) {
	where := ` WHERE deleted_at IS NULL`
	args := []any{}
	if owner != nil {
		where += ` AND owner_id = $1`
		args = append(args, uuid.UUID(*owner))
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM stored_files`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count stored files: %w", err)
	}

	query := `SELECT ` + fileColumns + ` FROM stored_files` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	rows, err := s.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list stored files: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	var files []StoredFile
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan stored file: %w", err)
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate stored files: %w", err)
	}
	return files, total, nil
}

func (s *PostgresStore) findOne(ctx context.Context, query string, arg any) (*StoredFile, error) {
	row := s.db.QueryRowContext(ctx, query, arg)
	f, err := scanFile(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find stored file: %w", err)
	}
	return &f, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFile(row rowScanner) (StoredFile, error) {
	var (
		f              StoredFile
		rawID, ownerID uuid.UUID
		deletedAt      sql.NullTime
	)
	if err := row.Scan(
		&rawID,
		&ownerID,
		&f.Name,
		&f.Size,
		&f.ContentType,
		&f.Checksum,
		&f.CreatedAt,
		&f.UpdatedAt,
		&deletedAt,
	); err != nil {
		return StoredFile{}, err
	}
	f.ID = id.FileID(rawID)
	f.OwnerID = id.UserID(ownerID)
	if deletedAt.Valid {
		d := deletedAt.Time
		f.DeletedAt = &d
	}
	return f, nil
}

var _ Store = (*PostgresStore)(nil)
