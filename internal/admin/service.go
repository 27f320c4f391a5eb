package admin

import (
	"context"
	"fmt"
	"log/slog"

	"atrium/internal/audit"
	dErrors "atrium/pkg/domain-errors"
)

// Browser reads and truncates allow-listed tables.
type Browser interface {
	Browse(ctx context.Context, table Table, limit, offset int) (*TableRows, int, error)
	Truncate(ctx context.Context, table Table) error
}

// Auditor records audit entries. Satisfied by audit.Recorder.
type Auditor interface {
	Record(ctx context.Context, entry audit.Entry)
}

// Service is the data-browser backend. All callers are admins; the table
// allow-list and truncate protection are enforced here regardless.
type Service struct {
	browser Browser
	logger  *slog.Logger
	auditor Auditor
}

// Option configures the Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditor(auditor Auditor) Option {
	return func(s *Service) {
		s.auditor = auditor
	}
}

func New(browser Browser, opts ...Option) *Service {
	s := &Service{browser: browser}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Browse returns one page of raw rows from an allow-listed table.
func (s *Service) Browse(ctx context.Context, rawTable string, limit, offset int) (*TableRows, int, error) {
	table, err := ParseTable(rawTable)
	if err != nil {
		return nil, 0, err
	}

	rows, total, err := s.browser.Browse(ctx, table, limit, offset)
	if err != nil {
		return nil, 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to browse table")
	}
	return rows, total, nil
}

// Truncate empties an allow-listed table unless it is protected.
func (s *Service) Truncate(ctx context.Context, rawTable string) error {
	table, err := ParseTable(rawTable)
	if err != nil {
		return err
	}
	if table.TruncateProtected() {
		return dErrors.New(dErrors.CodeForbidden, "read-only table")
	}

	if err := s.browser.Truncate(ctx, table); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to truncate table")
	}

	s.record(ctx, audit.Entry{
		Action:      audit.ActionTruncateTable,
		EntityType:  "table",
		EntityID:    string(table),
		Description: fmt.Sprintf("truncated table %s", table),
		Severity:    audit.SeverityCritical,
	})
	return nil
}

func (s *Service) record(ctx context.Context, entry audit.Entry) {
	if s.auditor != nil {
		s.auditor.Record(ctx, entry)
	}
}
