package user

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"atrium/internal/audit"
	dErrors "atrium/pkg/domain-errors"
	"atrium/pkg/platform/sentinel"
)

func (s *ServiceSuite) TestLogin() {
	ctx := context.Background()

	s.T().Run("valid credentials issue a session", func(t *testing.T) {
		u := s.newTestUser("correct horse")
		s.mockStore.EXPECT().FindByEmail(ctx, u.Email).Return(u, nil)
		s.mockTokens.EXPECT().
			Issue(ctx, u.ID, u.Role, time.Duration(0)).
			Return("signed-token", nil)
		s.mockAuditor.EXPECT().Record(ctx, gomock.Any()).Do(func(_ context.Context, e audit.Entry) {
			assert.Equal(t, audit.ActionLoginUser, e.Action)
			require.NotNil(t, e.ActorID)
			assert.Equal(t, u.ID, *e.ActorID)
		})

		got, token, err := s.service.Login(ctx, &LoginRequest{Email: u.Email, Password: "correct horse"})
		require.NoError(t, err)
		assert.Equal(t, "signed-token", token)
		assert.Equal(t, u.ID, got.ID)
	})

	s.T().Run("unknown email is indistinguishable from bad password", func(t *testing.T) {
		s.mockStore.EXPECT().FindByEmail(ctx, "nobody@example.com").Return(nil, sentinel.ErrNotFound)
		s.mockAuditor.EXPECT().Record(ctx, gomock.Any()).Do(func(_ context.Context, e audit.Entry) {
			assert.Equal(t, audit.ActionLoginFailed, e.Action)
			assert.Equal(t, audit.SeverityWarning, e.Severity)
			assert.Nil(t, e.ActorID)
		})

		_, _, err := s.service.Login(ctx, &LoginRequest{Email: "nobody@example.com", Password: "whatever"})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.T().Run("wrong password rejected with same error", func(t *testing.T) {
		u := s.newTestUser("correct horse")
		s.mockStore.EXPECT().FindByEmail(ctx, u.Email).Return(u, nil)
		s.mockAuditor.EXPECT().Record(ctx, gomock.Any())

		_, _, err := s.service.Login(ctx, &LoginRequest{Email: u.Email, Password: "battery staple"})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.T().Run("inactive account cannot log in with valid password", func(t *testing.T) {
		u := s.newTestUser("correct horse")
		u.Active = false
		s.mockStore.EXPECT().FindByEmail(ctx, u.Email).Return(u, nil)
		s.mockAuditor.EXPECT().Record(ctx, gomock.Any())

		_, _, err := s.service.Login(ctx, &LoginRequest{Email: u.Email, Password: "correct horse"})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.T().Run("store failure is internal, not unauthorized", func(t *testing.T) {
		s.mockStore.EXPECT().FindByEmail(ctx, "ada@example.com").Return(nil, errors.New("db down"))

		_, _, err := s.service.Login(ctx, &LoginRequest{Email: "ada@example.com", Password: "correct horse"})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
	})

	s.T().Run("token issue failure surfaces as internal", func(t *testing.T) {
		u := s.newTestUser("correct horse")
		s.mockStore.EXPECT().FindByEmail(ctx, u.Email).Return(u, nil)
		s.mockTokens.EXPECT().
			Issue(ctx, u.ID, u.Role, time.Duration(0)).
			Return("", errors.New("key unavailable"))

		_, _, err := s.service.Login(ctx, &LoginRequest{Email: u.Email, Password: "correct horse"})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

func (s *ServiceSuite) TestLiveRole() {
	ctx := context.Background()

	s.T().Run("returns current role and active state", func(t *testing.T) {
		u := s.newTestUser("pw123456")
		s.mockStore.EXPECT().FindByID(ctx, u.ID).Return(u, nil)

		role, active, err := s.service.LiveRole(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, u.Role, role)
		assert.True(t, active)
	})

	s.T().Run("deactivated account reports inactive", func(t *testing.T) {
		u := s.newTestUser("pw123456")
		u.Active = false
		s.mockStore.EXPECT().FindByID(ctx, u.ID).Return(u, nil)

		_, active, err := s.service.LiveRole(ctx, u.ID)
		require.NoError(t, err)
		assert.False(t, active)
	})

	s.T().Run("missing account passes through the sentinel", func(t *testing.T) {
		u := s.newTestUser("pw123456")
		s.mockStore.EXPECT().FindByID(ctx, u.ID).Return(nil, sentinel.ErrNotFound)

		_, _, err := s.service.LiveRole(ctx, u.ID)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})
}
