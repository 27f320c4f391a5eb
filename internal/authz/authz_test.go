package authz

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	id "atrium/pkg/domain"
	dErrors "atrium/pkg/domain-errors"
	"atrium/pkg/requestcontext"
)

type stubMembership struct {
	members map[id.UserID]bool
	err     error
}

func (s *stubMembership) IsParticipant(_ context.Context, _ id.ConversationID, userID id.UserID) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.members[userID], nil
}

func TestAuthorize(t *testing.T) {
	ownerID := id.UserID(uuid.New())
	owner := requestcontext.Identity{UserID: ownerID, Role: id.RoleStandard}
	other := requestcontext.Identity{UserID: id.UserID(uuid.New()), Role: id.RoleStandard}
	admin := requestcontext.Identity{UserID: id.UserID(uuid.New()), Role: id.RoleAdmin}
	guest := requestcontext.Identity{UserID: id.UserID(uuid.New()), Role: id.RoleGuest}

	convID := id.ConversationID(uuid.New())
	membership := &stubMembership{members: map[id.UserID]bool{ownerID: true}}
	policy := New(WithMembershipChecker(membership))

	ctx := context.Background()

	t.Run("any authenticated", func(t *testing.T) {
		for _, identity := range []requestcontext.Identity{owner, other, admin, guest} {
			assert.NoError(t, policy.Authorize(ctx, identity, AnyAuthenticated()))
		}
	})

	t.Run("admin only", func(t *testing.T) {
		assert.NoError(t, policy.Authorize(ctx, admin, AdminOnly()))
		for _, identity := range []requestcontext.Identity{owner, other, guest} {
			err := policy.Authorize(ctx, identity, AdminOnly())
			assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
		}
	})

	t.Run("owner or admin", func(t *testing.T) {
		req := OwnerOrAdmin(ownerID)
		assert.NoError(t, policy.Authorize(ctx, owner, req))
		assert.NoError(t, policy.Authorize(ctx, admin, req))
		err := policy.Authorize(ctx, other, req)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	t.Run("participant of", func(t *testing.T) {
		req := ParticipantOf(convID)
		assert.NoError(t, policy.Authorize(ctx, owner, req))
		assert.NoError(t, policy.Authorize(ctx, admin, req))
		err := policy.Authorize(ctx, other, req)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

func TestParticipantOfLookupFailure(t *testing.T) {
	membership := &stubMembership{err: errors.New("store down")}
	policy := New(WithMembershipChecker(membership))

	identity := requestcontext.Identity{UserID: id.UserID(uuid.New()), Role: id.RoleStandard}
	err := policy.Authorize(context.Background(), identity, ParticipantOf(id.ConversationID(uuid.New())))
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
}

func TestParticipantOfWithoutChecker(t *testing.T) {
	policy := New()

	identity := requestcontext.Identity{UserID: id.UserID(uuid.New()), Role: id.RoleStandard}
	err := policy.Authorize(context.Background(), identity, ParticipantOf(id.ConversationID(uuid.New())))
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))

	// Admins never reach the membership lookup.
	admin := requestcontext.Identity{UserID: id.UserID(uuid.New()), Role: id.RoleAdmin}
	assert.NoError(t, policy.Authorize(context.Background(), admin, ParticipantOf(id.ConversationID(uuid.New()))))
}
