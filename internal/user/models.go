package user

import (
	"strings"
	"time"

	id "atrium/pkg/domain"
	dErrors "atrium/pkg/domain-errors"
)

// User is an account holder. Accounts are soft-deleted (marked, not erased)
// and excluded from authentication once inactive or soft-deleted.
type User struct {
	ID           id.UserID
	Email        string
	Username     string
	Name         string
	Role         id.Role
	PasswordHash string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    *time.Time
}

// IsDeleted reports whether the soft-delete marker is set.
func (u *User) IsDeleted() bool { return u.DeletedAt != nil }

// CanAuthenticate reports whether the account may log in or pass live-role
// checks.
func (u *User) CanAuthenticate() bool { return u.Active && !u.IsDeleted() }

// LoginRequest is the credential payload for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *LoginRequest) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

func (r *LoginRequest) Validate() error {
	if r.Email == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "email is required")
	}
	if r.Password == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "password is required")
	}
	return nil
}

// CreateUserRequest provisions an account (admin surface).
type CreateUserRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	Password string `json:"password"`
}

func (r *CreateUserRequest) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Username = strings.TrimSpace(r.Username)
	r.Name = strings.TrimSpace(r.Name)
	r.Role = strings.TrimSpace(r.Role)
}

func (r *CreateUserRequest) Validate() error {
	if r.Email == "" || !strings.Contains(r.Email, "@") {
		return dErrors.New(dErrors.CodeInvalidInput, "valid email is required")
	}
	if r.Username == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "username is required")
	}
	if len(r.Password) < 8 {
		return dErrors.New(dErrors.CodeInvalidInput, "password must be at least 8 characters")
	}
	if r.Role != "" {
		if _, err := id.ParseRole(r.Role); err != nil {
			return err
		}
	}
	return nil
}

// UpdateUserRequest mutates role, active flag, or display name (admin
// surface). Nil fields are left unchanged.
type UpdateUserRequest struct {
	Name   *string `json:"name"`
	Role   *string `json:"role"`
	Active *bool   `json:"active"`
}

func (r *UpdateUserRequest) Normalize() {
	if r.Name != nil {
		trimmed := strings.TrimSpace(*r.Name)
		r.Name = &trimmed
	}
}

func (r *UpdateUserRequest) Validate() error {
	if r.Name == nil && r.Role == nil && r.Active == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "no fields to update")
	}
	if r.Role != nil {
		if _, err := id.ParseRole(*r.Role); err != nil {
			return err
		}
	}
	return nil
}

// UserResponse is the wire shape of a user. The password hash never leaves
// the service layer.
type UserResponse struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	Username  string     `json:"username"`
	Name      string     `json:"name,omitempty"`
	Role      string     `json:"role"`
	Active    bool       `json:"active"`
	CreatedAt time.Time  `json:"createdAt"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

func toUserResponse(u *User) UserResponse {
	return UserResponse{
		ID:        u.ID.String(),
		Email:     u.Email,
		Username:  u.Username,
		Name:      u.Name,
		Role:      u.Role.String(),
		Active:    u.Active,
		CreatedAt: u.CreatedAt,
		DeletedAt: u.DeletedAt,
	}
}
