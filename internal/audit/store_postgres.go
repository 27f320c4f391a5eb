package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	id "atrium/pkg/domain"
)

// PostgresStore persists audit entries in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed audit store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Append inserts an audit entry into the audit_entries table.
func (s *PostgresStore) Append(ctx context.Context, entry Entry) error {
	var metadata []byte
	if entry.Metadata != nil {
		var err error
		metadata, err = json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("marshal audit metadata: %w", err)
		}
	}

	var actorID any
	if entry.ActorID != nil {
		actorID = uuid.UUID(*entry.ActorID)
	}

	query := `
		INSERT INTO audit_entries (
			id, actor_id, action, entity_type, entity_id, description,
			ip_address, user_agent, device, severity, metadata, request_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := s.db.ExecContext(ctx, query,
		entry.ID,
		actorID,
		entry.Action,
		entry.EntityType,
		nullableString(entry.EntityID),
		entry.Description,
		entry.IPAddress,
		entry.UserAgent,
		entry.Device,
		string(entry.Severity),
		metadata,
		nullableString(entry.RequestID),
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

// ListPage returns entries newest-first with the total matching count.
func (s *PostgresStore) ListPage(ctx context.Context, filter ListFilter, limit, offset int) ([]Entry, int, error) {
	where, args := buildFilter(filter)

	var total int
	countQuery := `SELECT COUNT(*) FROM audit_entries` + where
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count audit entries: %w", err)
	}

	query := `
		SELECT id, actor_id, action, entity_type, entity_id, description,
		       ip_address, user_agent, device, severity, metadata, request_id, created_at
		FROM audit_entries` + where + fmt.Sprintf(`
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)

	rows, err := s.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan audit entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate audit entries: %w", err)
	}
	return entries, total, nil
}

// PurgeOlderThan deletes entries created before the cutoff. This is the only
// deletion path for audit rows.
func (s *PostgresStore) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM audit_entries WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge audit entries: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge audit entries rows: %w", err)
	}
	return rows, nil
}

func buildFilter(filter ListFilter) (string, []any) {
	var clauses []string
	var args []any

	add := func(clause string, value any) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}

	if filter.ActorID != nil {
		add("actor_id = $%d", uuid.UUID(*filter.ActorID))
	}
	if filter.Action != "" {
		add("action = $%d", filter.Action)
	}
	if filter.Severity != "" {
		add("severity = $%d", string(filter.Severity))
	}
	if !filter.Since.IsZero() {
		add("created_at >= $%d", filter.Since)
	}
	if !filter.Until.IsZero() {
		add("created_at <= $%d", filter.Until)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func scanEntry(rows *sql.Rows) (Entry, error) {
	var (
		entry     Entry
		actorID   sql.Null[uuid.UUID]
		entityID  sql.NullString
		requestID sql.NullString
		severity  string
		metadata  []byte
	)
	if err := rows.Scan(
		&entry.ID,
		&actorID,
		&entry.Action,
		&entry.EntityType,
		&entityID,
		&entry.Description,
		&entry.IPAddress,
		&entry.UserAgent,
		&entry.Device,
		&severity,
		&metadata,
		&requestID,
		&entry.CreatedAt,
	); err != nil {
		return Entry{}, err
	}

	if actorID.Valid {
		typed := id.UserID(actorID.V)
		entry.ActorID = &typed
	}
	entry.EntityID = entityID.String
	entry.RequestID = requestID.String
	entry.Severity = Severity(severity)
	if len(metadata) > 0 {
		_ = json.Unmarshal(metadata, &entry.Metadata) //nolint:errcheck // best-effort decode of stored payload
	}
	return entry, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

var _ Store = (*PostgresStore)(nil)
