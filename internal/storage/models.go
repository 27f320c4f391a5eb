package storage

import (
	"regexp"
	"strings"
	"time"

	id "atrium/pkg/domain"
	dErrors "atrium/pkg/domain-errors"
)

// StoredFile is metadata about an uploaded object. The bytes live elsewhere;
// this service only tracks ownership and integrity data.
type StoredFile struct {
	ID          id.FileID
	OwnerID     id.UserID
	Name        string
	Size        int64
	ContentType string
	Checksum    string // hex-encoded SHA-256 of the object bytes
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time
}

func (f *StoredFile) IsDeleted() bool {
	return f.DeletedAt != nil
}

var checksumPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

type CreateFileRequest struct {
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType"`
	Checksum    string `json:"checksum"`
}

func (r *CreateFileRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.ContentType = strings.ToLower(strings.TrimSpace(r.ContentType))
	r.Checksum = strings.ToLower(strings.TrimSpace(r.Checksum))
}

func (r *CreateFileRequest) Validate() error {
	if r.Name == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "name is required")
	}
	if r.Size < 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "size cannot be negative")
	}
	if r.ContentType == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "contentType is required")
	}
	if !checksumPattern.MatchString(r.Checksum) {
		return dErrors.New(dErrors.CodeInvalidInput, "checksum must be a hex-encoded sha-256 digest")
	}
	return nil
}

type UpdateFileRequest struct {
	Name *string `json:"name"`
}

func (r *UpdateFileRequest) Normalize() {
	if r.Name != nil {
		trimmed := strings.TrimSpace(*r.Name)
		r.Name = &trimmed
	}
}

func (r *UpdateFileRequest) Validate() error {
	if r.Name == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "no fields to update")
	}
	if *r.Name == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "name cannot be empty")
	}
	return nil
}

type FileResponse struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"ownerId"`
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	ContentType string    `json:"contentType"`
	Checksum    string    `json:"checksum"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toFileResponse(f *StoredFile) FileResponse {
	return FileResponse{
		ID:          f.ID.String(),
		OwnerID:     f.OwnerID.String(),
		Name:        f.Name,
		Size:        f.Size,
		ContentType: f.ContentType,
		Checksum:    f.Checksum,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}
