package admin

import (
	"context"
	"sync"
)

// InMemoryBrowser serves canned rows for tests and databaseless runs.
type InMemoryBrowser struct {
	mu   sync.RWMutex
	data map[Table][]Row
}

func NewInMemoryBrowser() *InMemoryBrowser {
	return &InMemoryBrowser{data: make(map[Table][]Row)}
}

// Seed replaces the rows of a table.
func (b *InMemoryBrowser) Seed(table Table, rows []Row) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.data[table] = rows
}

func (b *InMemoryBrowser) Browse(_ context.Context, table Table, limit, offset int) (*TableRows, int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	all := b.data[table]
	total := len(all)

	result := &TableRows{Table: table, Columns: table.ColumnNames(), Rows: []Row{}}
	if offset >= total {
		return result, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	result.Rows = append(result.Rows, all[offset:end]...)
	return result, total, nil
}

func (b *InMemoryBrowser) Truncate(_ context.Context, table Table) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.data[table] = nil
	return nil
}

var _ Browser = (*InMemoryBrowser)(nil)
