package session

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atrium/pkg/requestcontext"
)

type stubVerifier struct {
	claims map[string]*Claims
}

func (v *stubVerifier) Verify(token string) (*Claims, error) {
	if c, ok := v.claims[token]; ok {
		return c, nil
	}
	return nil, errors.New("invalid token")
}

func newTestHarness(t *testing.T) (*stubVerifier, http.Handler, *requestcontext.Identity) {
	t.Helper()

	verifier := &stubVerifier{claims: map[string]*Claims{}}
	resolver := NewResolver(verifier, "")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var seen requestcontext.Identity
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := requestcontext.GetIdentity(r.Context())
		require.True(t, ok)
		seen = identity
		w.WriteHeader(http.StatusNoContent)
	})

	return verifier, Require(resolver, logger)(inner), &seen
}

func TestRequireWithoutCookie(t *testing.T) {
	_, handler, _ := newTestHarness(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "unauthorized")
}

func TestRequireWithInvalidCookie(t *testing.T) {
	_, handler, _ := newTestHarness(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: "forged"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireWithValidCookie(t *testing.T) {
	verifier, handler, seen := newTestHarness(t)

	userID := uuid.NewString()
	verifier.claims["good"] = &Claims{UserID: userID, Role: "standard"}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: "good"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, userID, seen.UserID.String())
	assert.Equal(t, "standard", seen.Role.String())
}

func TestRequireRejectsMalformedClaims(t *testing.T) {
	verifier, handler, _ := newTestHarness(t)

	verifier.claims["bad-uid"] = &Claims{UserID: "not-a-uuid", Role: "standard"}
	verifier.claims["bad-role"] = &Claims{UserID: uuid.NewString(), Role: "superuser"}
	verifier.claims["nil-uid"] = &Claims{UserID: uuid.Nil.String(), Role: "standard"}

	for _, token := range []string{"bad-uid", "bad-role", "nil-uid"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: token})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code, token)
	}
}

func TestResolveStates(t *testing.T) {
	verifier := &stubVerifier{claims: map[string]*Claims{
		"good": {UserID: uuid.NewString(), Role: "admin"},
	}}
	resolver := NewResolver(verifier, "custom_cookie")

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, StateAnonymous, resolver.Resolve(r).State)

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: "custom_cookie", Value: "junk"})
	assert.Equal(t, StateRejected, resolver.Resolve(r).State)

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: "custom_cookie", Value: "good"})
	res := resolver.Resolve(r)
	assert.Equal(t, StateAuthenticated, res.State)
	assert.True(t, res.Identity.Role.IsAdmin())
}
