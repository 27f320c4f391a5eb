package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"atrium/internal/audit"
	id "atrium/pkg/domain"
	dErrors "atrium/pkg/domain-errors"
	"atrium/pkg/password"
	"atrium/pkg/platform/sentinel"
)

// Create provisions an account. Role defaults to standard.
func (s *Service) Create(ctx context.Context, req *CreateUserRequest) (*User, error) {
	role := id.RoleStandard
	if req.Role != "" {
		parsed, err := id.ParseRole(req.Role)
		if err != nil {
			return nil, err
		}
		role = parsed
	}

	hash, err := password.Hash(req.Password, s.hashOpts)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}

	now := time.Now()
	u := &User{
		ID:           id.UserID(uuid.New()),
		Email:        req.Email,
		Username:     req.Username,
		Name:         req.Name,
		Role:         role,
		PasswordHash: hash,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.store.Create(ctx, u); err != nil {
		return nil, wrapUserErr(err, "failed to create user")
	}

	s.record(ctx, audit.Entry{
		Action:      audit.ActionCreateUser,
		EntityType:  "user",
		EntityID:    u.ID.String(),
		Description: fmt.Sprintf("provisioned account %s (%s)", u.Username, u.Role),
	})
	return u, nil
}

// Update mutates role, active flag, or display name.
func (s *Service) Update(ctx context.Context, userID id.UserID, req *UpdateUserRequest) (*User, error) {
	u, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		u.Name = *req.Name
	}
	if req.Role != nil {
		role, err := id.ParseRole(*req.Role)
		if err != nil {
			return nil, err
		}
		u.Role = role
	}
	if req.Active != nil {
		u.Active = *req.Active
	}
	u.UpdatedAt = time.Now()

	if err := s.store.Update(ctx, u); err != nil {
		return nil, wrapUserErr(err, "failed to update user")
	}

	s.record(ctx, audit.Entry{
		Action:      audit.ActionUpdateUser,
		EntityType:  "user",
		EntityID:    u.ID.String(),
		Description: fmt.Sprintf("updated account %s", u.Username),
	})
	return u, nil
}

// SoftDelete marks the account deleted and mangles the username so the value
// is freed for reuse. Deleting an already-deleted account is NotFound.
func (s *Service) SoftDelete(ctx context.Context, userID id.UserID) error {
	u, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}

	now := time.Now()
	u.DeletedAt = &now
	u.Username = mangleUsername(u.Username, u.ID)
	u.UpdatedAt = now

	if err := s.store.Update(ctx, u); err != nil {
		return wrapUserErr(err, "failed to delete user")
	}

	s.record(ctx, audit.Entry{
		Action:      audit.ActionDeleteUser,
		EntityType:  "user",
		EntityID:    u.ID.String(),
		Description: "account soft-deleted",
		Severity:    audit.SeverityWarning,
	})
	return nil
}

// Restore clears the soft-delete marker. The original username is restored
// only if nobody claimed it while the account was deleted; otherwise the
// disambiguated (mangled) value is kept rather than overwriting the newer
// account's name.
func (s *Service) Restore(ctx context.Context, userID id.UserID) (*User, error) {
	u, err := s.store.FindByIDAny(ctx, userID)
	if err != nil {
		return nil, wrapUserErr(err, "failed to load user")
	}
	if !u.IsDeleted() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "user is not deleted")
	}

	original := unmangleUsername(u.Username)
	if original != u.Username {
		_, err := s.store.FindByUsername(ctx, original)
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			u.Username = original
		case err != nil:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check username availability")
		default:
			// Username was re-taken while this account was deleted; keep the
			// disambiguated value.
			if s.logger != nil {
				s.logger.InfoContext(ctx, "restore kept disambiguated username",
					"user_id", u.ID,
					"wanted", original,
				)
			}
		}
	}

	u.DeletedAt = nil
	u.UpdatedAt = time.Now()
	if err := s.store.Update(ctx, u); err != nil {
		return nil, wrapUserErr(err, "failed to restore user")
	}

	s.record(ctx, audit.Entry{
		Action:      audit.ActionRestoreUser,
		EntityType:  "user",
		EntityID:    u.ID.String(),
		Description: fmt.Sprintf("account restored as %s", u.Username),
	})
	return u, nil
}

// PermanentDelete physically removes an account. Admins cannot delete their
// own account through this path.
func (s *Service) PermanentDelete(ctx context.Context, actorID, userID id.UserID) error {
	if actorID == userID {
		return dErrors.New(dErrors.CodeBadRequest, "cannot permanently delete your own account")
	}

	u, err := s.store.FindByIDAny(ctx, userID)
	if err != nil {
		return wrapUserErr(err, "failed to load user")
	}

	if err := s.store.DeletePermanently(ctx, u.ID); err != nil {
		return wrapUserErr(err, "failed to delete user")
	}

	s.record(ctx, audit.Entry{
		Action:      audit.ActionPurgeUser,
		EntityType:  "user",
		EntityID:    u.ID.String(),
		Description: fmt.Sprintf("account %s permanently deleted", u.Username),
		Severity:    audit.SeverityCritical,
	})
	return nil
}

// List returns accounts, soft-deleted ones included, with the total count
// for pagination. The admin surface needs deleted rows visible to restore
// them.
func (s *Service) List(ctx context.Context, limit, offset int) ([]User, int, error) {
	users, total, err := s.store.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list users")
	}
	return users, total, nil
}
