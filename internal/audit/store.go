package audit

import (
	"context"
	"time"
)

// Store persists audit entries. Implementations are append-only: no update
// path exists and PurgeOlderThan is the only deletion.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	// ListPage returns entries newest-first, filtered, with the total count
	// for pagination.
	ListPage(ctx context.Context, filter ListFilter, limit, offset int) ([]Entry, int, error)
	// PurgeOlderThan deletes entries created before the cutoff and reports
	// how many rows were removed.
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
