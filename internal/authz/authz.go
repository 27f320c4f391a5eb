// Package authz centralizes authorization decisions. Handlers declare a
// Requirement and the Policy decides allow/deny; denial is always a Forbidden
// domain error, distinct from the unauthenticated 401 path which never
// reaches the policy.
package authz

import (
	"context"

	id "atrium/pkg/domain"
	dErrors "atrium/pkg/domain-errors"
	"atrium/pkg/requestcontext"
)

// MembershipChecker answers conversation membership lookups for
// ParticipantOf requirements.
type MembershipChecker interface {
	IsParticipant(ctx context.Context, conversationID id.ConversationID, userID id.UserID) (bool, error)
}

type requirementKind int

const (
	kindAnyAuthenticated requirementKind = iota
	kindAdminOnly
	kindOwnerOrAdmin
	kindParticipantOf
)

// Requirement describes the capability a handler demands.
type Requirement struct {
	kind           requirementKind
	ownerID        id.UserID
	conversationID id.ConversationID
}

// AnyAuthenticated allows every authenticated identity.
func AnyAuthenticated() Requirement {
	return Requirement{kind: kindAnyAuthenticated}
}

// AdminOnly allows only the admin role.
func AdminOnly() Requirement {
	return Requirement{kind: kindAdminOnly}
}

// OwnerOrAdmin allows the resource owner and any admin.
func OwnerOrAdmin(ownerID id.UserID) Requirement {
	return Requirement{kind: kindOwnerOrAdmin, ownerID: ownerID}
}

// ParticipantOf allows members of the given conversation (admins included).
// Absence of membership is a denial, not a 404 - non-participants learn
// nothing about whether the conversation exists.
func ParticipantOf(conversationID id.ConversationID) Requirement {
	return Requirement{kind: kindParticipantOf, conversationID: conversationID}
}

// Policy evaluates requirements against a resolved identity.
type Policy struct {
	membership MembershipChecker
}

// Option configures the Policy.
type Option func(*Policy)

// WithMembershipChecker wires the conversation membership lookup needed by
// ParticipantOf requirements.
func WithMembershipChecker(checker MembershipChecker) Option {
	return func(p *Policy) {
		p.membership = checker
	}
}

// New creates a Policy.
func New(opts ...Option) *Policy {
	p := &Policy{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var errForbidden = dErrors.New(dErrors.CodeForbidden, "insufficient permissions")

// Authorize returns nil when the identity satisfies the requirement, or a
// Forbidden domain error otherwise. The identity's role is the token claim;
// callers on the admin surface re-fetch the live record before calling.
func (p *Policy) Authorize(ctx context.Context, identity requestcontext.Identity, req Requirement) error {
	switch req.kind {
	case kindAnyAuthenticated:
		return nil

	case kindAdminOnly:
		if identity.Role.IsAdmin() {
			return nil
		}
		return errForbidden

	case kindOwnerOrAdmin:
		if identity.Role.IsAdmin() || identity.UserID == req.ownerID {
			return nil
		}
		return errForbidden

	case kindParticipantOf:
		if identity.Role.IsAdmin() {
			return nil
		}
		if p.membership == nil {
			return dErrors.New(dErrors.CodeInternal, "membership checker not configured")
		}
		member, err := p.membership.IsParticipant(ctx, req.conversationID, identity.UserID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "membership lookup failed")
		}
		if !member {
			return errForbidden
		}
		return nil

	default:
		return dErrors.New(dErrors.CodeInternal, "unknown authorization requirement")
	}
}
