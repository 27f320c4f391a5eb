package admin

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// PostgresBrowser reads and truncates raw tables. Table and column names come
// exclusively from the tableSchemas allow-list, never from the request.
type PostgresBrowser struct {
	db *sql.DB
}

func NewPostgresBrowser(db *sql.DB) *PostgresBrowser {
	return &PostgresBrowser{db: db}
}

func (b *PostgresBrowser) Browse(ctx context.Context, table Table, limit, offset int) (*TableRows, int, error) {
	schema := tableSchemas[table]
	columns := table.ColumnNames()

	var total int
	if err := b.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM %s`, table)).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count %s: %w", table, err)
	}

	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY %s LIMIT $1 OFFSET $2`,
		strings.Join(columns, ", "), table, columns[0])
	rows, err := b.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("browse %s: %w", table, err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	result := &TableRows{Table: table, Columns: columns, Rows: []Row{}}
	for rows.Next() {
		row, err := scanRow(rows, schema)
		if err != nil {
			return nil, 0, fmt.Errorf("scan %s row: %w", table, err)
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate %s: %w", table, err)
	}
	return result, total, nil
}

func (b *PostgresBrowser) Truncate(ctx context.Context, table Table) error {
	if _, err := b.db.ExecContext(ctx,
		fmt.Sprintf(`TRUNCATE TABLE %s CASCADE`, table)); err != nil {
		return fmt.Errorf("truncate %s: %w", table, err)
	}
	return nil
}

// scanRow allocates one typed destination per column kind and converts the
// scanned values into their JSON shape.
func scanRow(rows *sql.Rows, schema []column) (Row, error) {
	dests := make([]any, len(schema))
	for i, c := range schema {
		switch c.kind {
		case kindUUID:
			dests[i] = new(uuid.UUID)
		case kindText:
			dests[i] = new(string)
		case kindInt:
			dests[i] = new(int64)
		case kindBool:
			dests[i] = new(bool)
		case kindTime:
			dests[i] = new(sql.NullTime)
		case kindNullTime:
			dests[i] = new(sql.NullTime)
		case kindNullUUID:
			dests[i] = new(sql.Null[uuid.UUID])
		case kindJSON:
			dests[i] = new([]byte)
		}
	}
	if err := rows.Scan(dests...); err != nil {
		return nil, err
	}

	row := make(Row, len(schema))
	for i, c := range schema {
		switch c.kind {
		case kindUUID:
			row[c.name] = dests[i].(*uuid.UUID).String()
		case kindText:
			row[c.name] = *dests[i].(*string)
		case kindInt:
			row[c.name] = *dests[i].(*int64)
		case kindBool:
			row[c.name] = *dests[i].(*bool)
		case kindTime, kindNullTime:
			if t := dests[i].(*sql.NullTime); t.Valid {
				row[c.name] = t.Time
			} else {
				row[c.name] = nil
			}
		case kindNullUUID:
			if u := dests[i].(*sql.Null[uuid.UUID]); u.Valid {
				row[c.name] = u.V.String()
			} else {
				row[c.name] = nil
			}
		case kindJSON:
			raw := *dests[i].(*[]byte)
			var decoded map[string]any
			if len(raw) > 0 {
				if err := json.Unmarshal(raw, &decoded); err != nil {
					return nil, fmt.Errorf("decode %s: %w", c.name, err)
				}
			}
			row[c.name] = decoded
		}
	}
	return row, nil
}

var _ Browser = (*PostgresBrowser)(nil)
