package user

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"atrium/internal/audit"
	id "atrium/pkg/domain"
	dErrors "atrium/pkg/domain-errors"
	"atrium/pkg/password"
	"atrium/pkg/platform/sentinel"
)

func (s *ServiceSuite) TestCreate() {
	ctx := context.Background()

	s.T().Run("provisions an active account with hashed password", func(t *testing.T) {
		var stored *User
		s.mockStore.EXPECT().Create(ctx, gomock.Any()).Do(func(_ context.Context, u *User) {
			stored = u
		})
		s.mockAuditor.EXPECT().Record(ctx, gomock.Any()).Do(func(_ context.Context, e audit.Entry) {
			assert.Equal(t, audit.ActionCreateUser, e.Action)
		})

		u, err := s.service.Create(ctx, &CreateUserRequest{
			Email:    "grace@example.com",
			Username: "grace",
			Password: "supersecret",
		})
		require.NoError(t, err)
		assert.Equal(t, id.RoleStandard, u.Role)
		assert.True(t, u.Active)

		require.NotNil(t, stored)
		assert.NotEqual(t, "supersecret", stored.PasswordHash)
		ok, err := password.Verify("supersecret", stored.PasswordHash)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	s.T().Run("duplicate identity maps to conflict", func(t *testing.T) {
		s.mockStore.EXPECT().Create(ctx, gomock.Any()).Return(sentinel.ErrAlreadyUsed)

		_, err := s.service.Create(ctx, &CreateUserRequest{
			Email:    "grace@example.com",
			Username: "grace",
			Password: "supersecret",
		})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *ServiceSuite) TestSoftDelete() {
	ctx := context.Background()

	s.T().Run("mangles username and sets the marker", func(t *testing.T) {
		u := s.newTestUser("pw123456")
		s.mockStore.EXPECT().FindByID(ctx, u.ID).Return(u, nil)

		var updated *User
		s.mockStore.EXPECT().Update(ctx, gomock.Any()).Do(func(_ context.Context, x *User) {
			updated = x
		})
		s.mockAuditor.EXPECT().Record(ctx, gomock.Any()).Do(func(_ context.Context, e audit.Entry) {
			assert.Equal(t, audit.ActionDeleteUser, e.Action)
			assert.Equal(t, audit.SeverityWarning, e.Severity)
		})

		require.NoError(t, s.service.SoftDelete(ctx, u.ID))
		require.NotNil(t, updated)
		assert.NotNil(t, updated.DeletedAt)
		assert.True(t, strings.HasPrefix(updated.Username, "ada#deleted-"))
	})

	s.T().Run("already deleted account is not found", func(t *testing.T) {
		u := s.newTestUser("pw123456")
		s.mockStore.EXPECT().FindByID(ctx, u.ID).Return(nil, sentinel.ErrNotFound)

		err := s.service.SoftDelete(ctx, u.ID)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestRestore() {
	ctx := context.Background()

	deleted := func() *User {
		u := s.newTestUser("pw123456")
		now := u.UpdatedAt
		u.DeletedAt = &now
		u.Username = mangleUsername("ada", u.ID)
		return u
	}

	s.T().Run("restores original username when free", func(t *testing.T) {
		u := deleted()
		s.mockStore.EXPECT().FindByIDAny(ctx, u.ID).Return(u, nil)
		s.mockStore.EXPECT().FindByUsername(ctx, "ada").Return(nil, sentinel.ErrNotFound)
		s.mockStore.EXPECT().Update(ctx, gomock.Any())
		s.mockAuditor.EXPECT().Record(ctx, gomock.Any())

		restored, err := s.service.Restore(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, "ada", restored.Username)
		assert.Nil(t, restored.DeletedAt)
	})

	s.T().Run("keeps mangled username when original was re-taken", func(t *testing.T) {
		u := deleted()
		other := s.newTestUser("pw123456")
		s.mockStore.EXPECT().FindByIDAny(ctx, u.ID).Return(u, nil)
		s.mockStore.EXPECT().FindByUsername(ctx, "ada").Return(other, nil)
		s.mockStore.EXPECT().Update(ctx, gomock.Any())
		s.mockAuditor.EXPECT().Record(ctx, gomock.Any())

		restored, err := s.service.Restore(ctx, u.ID)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(restored.Username, "ada#deleted-"))
		assert.Nil(t, restored.DeletedAt)
	})

	s.T().Run("restoring a live account is a bad request", func(t *testing.T) {
		u := s.newTestUser("pw123456")
		s.mockStore.EXPECT().FindByIDAny(ctx, u.ID).Return(u, nil)

		_, err := s.service.Restore(ctx, u.ID)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})
}

func (s *ServiceSuite) TestPermanentDelete() {
	ctx := context.Background()

	s.T().Run("removes the row and audits at critical severity", func(t *testing.T) {
		actor := id.UserID(uuid.New())
		target := s.newTestUser("pw123456")
		s.mockStore.EXPECT().FindByIDAny(ctx, target.ID).Return(target, nil)
		s.mockStore.EXPECT().DeletePermanently(ctx, target.ID)
		s.mockAuditor.EXPECT().Record(ctx, gomock.Any()).Do(func(_ context.Context, e audit.Entry) {
			assert.Equal(t, audit.ActionPurgeUser, e.Action)
			assert.Equal(t, audit.SeverityCritical, e.Severity)
		})

		require.NoError(t, s.service.PermanentDelete(ctx, actor, target.ID))
	})

	s.T().Run("self-delete is rejected before any store call", func(t *testing.T) {
		actor := id.UserID(uuid.New())

		err := s.service.PermanentDelete(ctx, actor, actor)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})
}

func TestMangleUsername(t *testing.T) {
	userID := id.UserID(uuid.MustParse("01234567-89ab-cdef-0123-456789abcdef"))

	mangled := mangleUsername("ada", userID)
	assert.Equal(t, "ada#deleted-01234567", mangled)
	assert.Equal(t, "ada", unmangleUsername(mangled))
	assert.Equal(t, "plain", unmangleUsername("plain"))
}
