package domain

import (
	"strings"

	dErrors "atrium/pkg/domain-errors"
)

// Role is the closed set of user roles. The canonical representation is
// lowercase; ParseRole normalizes once at the trust boundary so role
// comparisons elsewhere are always against the typed constants.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleStandard Role = "standard"
	RoleGuest    Role = "guest"
)

// ParseRole normalizes and validates a role string.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleStandard:
		return RoleStandard, nil
	case RoleGuest:
		return RoleGuest, nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown role")
	}
}

func (r Role) String() string { return string(r) }

// IsAdmin reports whether the role grants administrative access.
func (r Role) IsAdmin() bool { return r == RoleAdmin }
