package client

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	id "atrium/pkg/domain"
	"atrium/pkg/platform/sentinel"
)

func (s *PostgresStore) CreateSearch(ctx context.Context, search *Search) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO searches (id, owner_id, name, created_at)
		VALUES ($1, $2, $3, $4)
	`, uuid.UUID(search.ID), uuid.UUID(search.OwnerID), search.Name, search.CreatedAt)
	if err != nil {
		return fmt.Errorf("create search: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindSearch(ctx context.Context, searchID id.SearchID) (*Search, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, owner_id, name, created_at FROM searches WHERE id = $1`,
		uuid.UUID(searchID))

	var (
		search         Search
		rawID, ownerID uuid.UUID
	)
	if err := row.Scan(&rawID, &ownerID, &search.Name, &search.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find search: %w", err)
	}
	search.ID = id.SearchID(rawID)
	search.OwnerID = id.UserID(ownerID)
	return &search, nil
}

func (s *PostgresStore) ListSearches(ctx context.Context, owner *id.UserID, limit, offset int) ([]Search, int, error) {
	where := ``
	args := []any{}
	if owner != nil {
		where = ` WHERE owner_id = $1`
		args = append(args, uuid.UUID(*owner))
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM searches`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count searches: %w", err)
	}

	query := `SELECT id, owner_id, name, created_at FROM searches` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	rows, err := s.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list searches: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	var searches []Search
	for rows.Next() {
		var (
			search         Search
			rawID, ownerID uuid.UUID
		)
		if err := rows.Scan(&rawID, &ownerID, &search.Name, &search.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan search: %w", err)
		}
		search.ID = id.SearchID(rawID)
		search.OwnerID = id.UserID(ownerID)
		searches = append(searches, search)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate searches: %w", err)
	}
	return searches, total, nil
}

func (s *PostgresStore) DeleteSearch(ctx context.Context, searchID id.SearchID) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM search_clients WHERE search_id = $1`, uuid.UUID(searchID)); err != nil {
			return fmt.Errorf("delete search links: %w", err)
		}
		res, err := tx.ExecContext(ctx,
			`DELETE FROM searches WHERE id = $1`, uuid.UUID(searchID))
		if err != nil {
			return fmt.Errorf("delete search: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete search rows: %w", err)
		}
		if affected == 0 {
			return sentinel.ErrNotFound
		}
		return nil
	})
}

// Link relies on ON CONFLICT DO NOTHING for idempotence.
func (s *PostgresStore) Link(ctx context.Context, searchID id.SearchID, clientID id.ClientID) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO search_clients (search_id, client_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, uuid.UUID(searchID), uuid.UUID(clientID))
	if err != nil {
		return false, fmt.Errorf("link client: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("link client rows: %w", err)
	}
	return affected > 0, nil
}

func (s *PostgresStore) Unlink(ctx context.Context, searchID id.SearchID, clientID id.ClientID) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM search_clients WHERE search_id = $1 AND client_id = $2`,
		uuid.UUID(searchID), uuid.UUID(clientID))
	if err != nil {
		return false, fmt.Errorf("unlink client: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("unlink client rows: %w", err)
	}
	return affected > 0, nil
}

func (s *PostgresStore) SearchClients(ctx context.Context, searchID id.SearchID, limit, offset int) ([]Client, int, error) {
	where := `
		JOIN search_clients sc ON sc.client_id = clients.id
		WHERE sc.search_id = $1 AND clients.deleted_at IS NULL`

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM clients`+where, uuid.UUID(searchID)).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count search clients: %w", err)
	}

	query := `SELECT ` + qualifiedClientColumns + ` FROM clients` + where + `
		ORDER BY clients.created_at DESC LIMIT $2 OFFSET $3`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(searchID), limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list search clients: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	var clients []Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan search client: %w", err)
		}
		clients = append(clients, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate search clients: %w", err)
	}

	for i := range clients {
		if err := s.loadIdentifiers(ctx, &clients[i]); err != nil {
			return nil, 0, err
		}
	}
	return clients, total, nil
}

const qualifiedClientColumns = `clients.id, clients.owner_id, clients.name, clients.slug,
	clients.email, clients.phone, clients.notes, clients.created_at, clients.updated_at, clients.deleted_at`

var _ SearchStore = (*PostgresStore)(nil)
