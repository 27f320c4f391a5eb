package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"atrium/internal/audit"
	id "atrium/pkg/domain"
	dErrors "atrium/pkg/domain-errors"
	"atrium/pkg/platform/sentinel"
)

// Store persists file metadata. Lookups exclude soft-deleted rows unless
// stated otherwise.
type Store interface {
	Create(ctx context.Context, f *StoredFile) error
	Update(ctx context.Context, f *StoredFile) error
	FindByID(ctx context.Context, fileID id.FileID) (*StoredFile, error)
	// FindByIDAny also returns soft-deleted rows (restore path).
	FindByIDAny(ctx context.Context, fileID id.FileID) (*StoredFile, error)
	// List scopes to an owner when owner is non-nil; admins pass nil.
	List(ctx context.Context, owner *id.UserID, limit, offset int) ([]StoredFile, int, error)
}

// Auditor records audit entries. Satisfied by audit.Recorder.
type Auditor interface {
	Record(ctx context.Context, entry audit.Entry)
}

// Service manages stored-file metadata.
type Service struct {
	store   Store
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

func New(store Store, opts ...Option) *Service {
	s := &Service{store: store}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Create(ctx context.Context, ownerID id.UserID, req *CreateFileRequest) (*StoredFile, error) {
	now := time.Now()
	f := &StoredFile{
		ID:          id.FileID(uuid.New()),
		OwnerID:     ownerID,
		Name:        req.Name,
		Size:        req.Size,
		ContentType: req.ContentType,
		Checksum:    req.Checksum,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Create(ctx, f); err != nil {
		return nil, wrapFileErr(err, "failed to create file record")
	}

	s.record(ctx, audit.Entry{
		Action:      audit.ActionCreateFile,
		EntityType:  "stored_file",
		EntityID:    f.ID.String(),
		Description: fmt.Sprintf("registered file %s (%d bytes)", f.Name, f.Size),
	})
	return f, nil
}

func (s *Service) Get(ctx context.Context, fileID id.FileID) (*StoredFile, error) {
	f, err := s.store.FindByID(ctx, fileID)
	if err != nil {
		return nil, wrapFileErr(err, "failed to load file record")
	}
	return f, nil
}

// GetAny returns a file record even when soft-deleted. Used to authorize
// restore.
func (s *Service) GetAny(ctx context.Context, fileID id.FileID) (*StoredFile, error) {
	f, err := s.store.FindByIDAny(ctx, fileID)
	if err != nil {
		return nil, wrapFileErr(err, "failed to load file record")
	}
	return f, nil
}

func (s *Service) Update(ctx context.Context, fileID id.FileID, req *UpdateFileRequest) (*StoredFile, error) {
	f, err := s.Get(ctx, fileID)
	if err != nil {
		return nil, err
	}

	f.Name = *req.Name
	f.UpdatedAt = time.Now()

	if err := s.store.Update(ctx, f); err != nil {
		return nil, wrapFileErr(err, "failed to update file record")
	}

	s.record(ctx, audit.Entry{
		Action:      audit.ActionUpdateFile,
		EntityType:  "stored_file",
		EntityID:    f.ID.String(),
		Description: fmt.Sprintf("renamed file to %s", f.Name),
	})
	return f, nil
}

func (s *Service) List(ctx context.Context, owner *id.UserID, limit, offset int) ([]StoredFile, int, error) {
	files, total, err := s.store.List(ctx, owner, limit, offset)
	if err != nil {
		return nil, 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list file records")
	}
	return files, total, nil
}

// SoftDelete marks the record deleted. Deleting an already-deleted record is
// NotFound.
func (s *Service) SoftDelete(ctx context.Context, fileID id.FileID) error {
	f, err := s.Get(ctx, fileID)
	if err != nil {
		return err
	}

	now := time.Now()
	f.DeletedAt = &now
	f.UpdatedAt = now
	if err := s.store.Update(ctx, f); err != nil {
		return wrapFileErr(err, "failed to delete file record")
	}

	s.record(ctx, audit.Entry{
		Action:      audit.ActionDeleteFile,
		EntityType:  "stored_file",
		EntityID:    f.ID.String(),
		Description: fmt.Sprintf("file %s soft-deleted", f.Name),
		Severity:    audit.SeverityWarning,
	})
	return nil
}

func (s *Service) Restore(ctx context.Context, fileID id.FileID) (*StoredFile, error) {
	f, err := s.GetAny(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if !f.IsDeleted() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "file is not deleted")
	}

	f.DeletedAt = nil
	f.UpdatedAt = time.Now()
	if err := s.store.Update(ctx, f); err != nil {
		return nil, wrapFileErr(err, "failed to restore file record")
	}

	s.record(ctx, audit.Entry{
		Action:      audit.ActionRestoreFile,
		EntityType:  "stored_file",
		EntityID:    f.ID.String(),
		Description: fmt.Sprintf("file %s restored", f.Name),
	})
	return f, nil
}

func (s *Service) record(ctx context.Context, entry audit.Entry) {
	if s.auditor != nil {
		s.auditor.Record(ctx, entry)
	}
}

func wrapFileErr(err error, msg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "file not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
