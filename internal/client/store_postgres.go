package client

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	id "atrium/pkg/domain"
	"atrium/pkg/platform/sentinel"
)

const pgUniqueViolation = "23505"

// PostgresStore persists clients, identifiers, searches, and links in
// PostgreSQL. Client writes touch two tables and run in a transaction.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const clientColumns = `id, owner_id, name, slug, email, phone, notes, created_at, updated_at, deleted_at`

func (s *PostgresStore) Create(ctx context.Context, c *Client) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO clients (` + clientColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`
		_, err := tx.ExecContext(ctx, query,
			uuid.UUID(c.ID),
			uuid.UUID(c.OwnerID),
			c.Name,
			c.Slug,
			c.Email,
			c.Phone,
			c.Notes,
			c.CreatedAt,
			c.UpdatedAt,
			c.DeletedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return sentinel.ErrAlreadyUsed
			}
			return fmt.Errorf("create client: %w", err)
		}
		return insertIdentifiers(ctx, tx, c)
	})
}

func (s *PostgresStore) Update(ctx context.Context, c *Client) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		query := `
			UPDATE clients
			SET name = $2, slug = $3, email = $4, phone = $5, notes = $6,
			    updated_at = $7, deleted_at = $8
			WHERE id = $1
		`
		res, err := tx.ExecContext(ctx, query,
			uuid.UUID(c.ID),
			c.Name,
			c.Slug,
			c.Email,
			c.Phone,
			c.Notes,
			c.UpdatedAt,
			c.DeletedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return sentinel.ErrAlreadyUsed
			}
			return fmt.Errorf("update client: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("update client rows: %w", err)
		}
		if affected == 0 {
			return sentinel.ErrNotFound
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM contact_identifiers WHERE client_id = $1`, uuid.UUID(c.ID)); err != nil {
			return fmt.Errorf("clear identifiers: %w", err)
		}
		return insertIdentifiers(ctx, tx, c)
	})
}

func insertIdentifiers(ctx context.Context, tx *sql.Tx, c *Client) error {
	for _, ci := range c.Identifiers {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO contact_identifiers (id, client_id, number, kind)
			VALUES ($1, $2, $3, $4)
		`, uuid.UUID(ci.ID), uuid.UUID(c.ID), ci.Number, ci.Kind)
		if err != nil {
			return fmt.Errorf("insert identifier: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, clientID id.ClientID) (*Client, error) {
	return s.findOne(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE id = $1 AND deleted_at IS NULL`,
		uuid.UUID(clientID))
}

func (s *PostgresStore) FindByIDAny(ctx context.Context, clientID id.ClientID) (*Client, error) {
	return s.findOne(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE id = $1`,
		uuid.UUID(clientID))
}

func (s *PostgresStore) FindBySlug(ctx context.Context, slug string) (*Client, error) {
	return s.findOne(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE slug = $1 AND deleted_at IS NULL`,
		slug)
}

func (s *PostgresStore) List(ctx context.Context, owner *id.UserID, limit, offset int) ([]Client, int, error) {
	where := ` WHERE deleted_at IS NULL`
	args := []any{}
	if owner != nil {
		where += ` AND owner_id = $1`
		args = append(args, uuid.UUID(*owner))
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM clients`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count clients: %w", err)
	}

	query := `SELECT ` + clientColumns + ` FROM clients` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	rows, err := s.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	var clients []Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan client: %w", err)
		}
		clients = append(clients, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate clients: %w", err)
	}

	for i := range clients {
		if err := s.loadIdentifiers(ctx, &clients[i]); err != nil {
			return nil, 0, err
		}
	}
	return clients, total, nil
}

func (s *PostgresStore) FindIdentifierMatches(ctx context.Context, number string) ([]IdentifierMatch, error) {
	query := `
		SELECT c.id, c.name, ci.number, ci.kind
		FROM contact_identifiers ci
		JOIN clients c ON c.id = ci.client_id
		WHERE ci.number = $1 AND c.deleted_at IS NULL
	`
	rows, err := s.db.QueryContext(ctx, query, number)
	if err != nil {
		return nil, fmt.Errorf("find identifier matches: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	var matches []IdentifierMatch
	for rows.Next() {
		var (
			m     IdentifierMatch
			rawID uuid.UUID
		)
		if err := rows.Scan(&rawID, &m.ClientName, &m.Number, &m.Kind); err != nil {
			return nil, fmt.Errorf("scan identifier match: %w", err)
		}
		m.ClientID = id.ClientID(rawID)
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identifier matches: %w", err)
	}
	return matches, nil
}

func (s *PostgresStore) findOne(ctx context.Context, query string, arg any) (*Client, error) {
	row := s.db.QueryRowContext(ctx, query, arg)
	c, err := scanClient(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find client: %w", err)
	}
	if err := s.loadIdentifiers(ctx, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *PostgresStore) loadIdentifiers(ctx context.Context, c *Client) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, number, kind FROM contact_identifiers WHERE client_id = $1`,
		uuid.UUID(c.ID))
	if err != nil {
		return fmt.Errorf("load identifiers: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	for rows.Next() {
		var (
			ci    ContactIdentifier
			rawID uuid.UUID
		)
		if err := rows.Scan(&rawID, &ci.Number, &ci.Kind); err != nil {
			return fmt.Errorf("scan identifier: %w", err)
		}
		ci.ID = id.IdentifierID(rawID)
		ci.ClientID = c.ID
		c.Identifiers = append(c.Identifiers, ci)
	}
	return rows.Err()
}

func (s *PostgresStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback() //nolint:errcheck // original error wins
		return err
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClient(row rowScanner) (Client, error) {
	var (
		c              Client
		rawID, ownerID uuid.UUID
		deletedAt      sql.NullTime
	)
	if err := row.Scan(
		&rawID,
		&ownerID,
		&c.Name,
		&c.Slug,
		&c.Email,
		&c.Phone,
		&c.Notes,
		&c.CreatedAt,
		&c.UpdatedAt,
		&deletedAt,
	); err != nil {
		return Client{}, err
	}
	c.ID = id.ClientID(rawID)
	c.OwnerID = id.UserID(ownerID)
	if deletedAt.Valid {
		t := deletedAt.Time
		c.DeletedAt = &t
	}
	return c, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

var _ Store = (*PostgresStore)(nil)
