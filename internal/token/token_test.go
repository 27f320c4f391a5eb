package token

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "atrium/pkg/domain"
	"atrium/pkg/requestcontext"
)

func TestIssueAndVerify(t *testing.T) {
	codec := New("test-secret", time.Hour)
	userID := id.UserID(uuid.New())

	tok, err := codec.Issue(context.Background(), userID, id.RoleAdmin, 0)
	require.NoError(t, err)
	require.NotEmpty(t, tok)

	claims, err := codec.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, "admin", claims.Role)
}

func TestIssueRequiresUserID(t *testing.T) {
	codec := New("test-secret", time.Hour)

	_, err := codec.Issue(context.Background(), id.UserID{}, id.RoleStandard, 0)
	assert.Error(t, err)
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	codec := New("test-secret", time.Hour)

	tok, err := codec.Issue(context.Background(), id.UserID(uuid.New()), id.RoleStandard, 0)
	require.NoError(t, err)

	_, err = codec.Verify(tok + "x")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsForeignKey(t *testing.T) {
	issuer := New("key-one", time.Hour)
	verifier := New("key-two", time.Hour)

	tok, err := issuer.Issue(context.Background(), id.UserID(uuid.New()), id.RoleStandard, 0)
	require.NoError(t, err)

	_, err = verifier.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	codec := New("test-secret", time.Hour)

	// Issue in the past via the request clock so the credential is already
	// expired when verified.
	past := time.Now().Add(-2 * time.Hour)
	ctx := requestcontext.WithClock(context.Background(), func() time.Time { return past })

	tok, err := codec.Issue(ctx, id.UserID(uuid.New()), id.RoleStandard, time.Minute)
	require.NoError(t, err)

	_, err = codec.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	codec := New("test-secret", time.Hour)

	for _, raw := range []string{"", "not.a.token", "a.b", "ey.ey.ey"} {
		_, err := codec.Verify(raw)
		assert.ErrorIs(t, err, ErrInvalidToken)
	}
}
