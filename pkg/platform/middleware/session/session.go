// Package session resolves the signed session cookie into an authenticated
// identity. Every protected route runs through Require exactly once.
package session

import (
	"fmt"
	"log/slog"
	"net/http"

	id "atrium/pkg/domain"
	"atrium/pkg/platform/device"
	"atrium/pkg/requestcontext"
)

// DefaultCookieName is the HTTP-only cookie carrying the session credential.
const DefaultCookieName = "atrium_session"

// Claims are the verified session credential claims.
type Claims struct {
	UserID string
	Role   string
}

// TokenVerifier validates a raw session token. Implementations must collapse
// all parse/signature/expiry failures into a single error so callers cannot
// distinguish why a credential was rejected.
type TokenVerifier interface {
	Verify(token string) (*Claims, error)
}

// State classifies the outcome of session resolution.
type State int

const (
	StateAnonymous State = iota // no session cookie present
	StateRejected               // cookie present but invalid/expired
	StateAuthenticated
)

// Resolution is the result of resolving a request's session cookie.
type Resolution struct {
	State    State
	Identity requestcontext.Identity
}

// Resolver reads and verifies the session cookie.
type Resolver struct {
	verifier   TokenVerifier
	cookieName string
}

// NewResolver creates a Resolver. An empty cookieName falls back to
// DefaultCookieName.
func NewResolver(verifier TokenVerifier, cookieName string) *Resolver {
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	return &Resolver{verifier: verifier, cookieName: cookieName}
}

// CookieName returns the configured session cookie name.
func (rs *Resolver) CookieName() string { return rs.cookieName }

// Resolve classifies the request as anonymous, rejected, or authenticated.
// The role in the returned identity is the token claim only; authorization
// paths that must be current re-fetch the live user record.
func (rs *Resolver) Resolve(r *http.Request) Resolution {
	cookie, err := r.Cookie(rs.cookieName)
	if err != nil || cookie == nil || cookie.Value == "" {
		return Resolution{State: StateAnonymous}
	}

	claims, err := rs.verifier.Verify(cookie.Value)
	if err != nil {
		return Resolution{State: StateRejected}
	}

	identity, err := parseClaims(claims)
	if err != nil {
		return Resolution{State: StateRejected}
	}

	return Resolution{State: StateAuthenticated, Identity: identity}
}

// parseClaims converts string claims to typed values.
func parseClaims(claims *Claims) (requestcontext.Identity, error) {
	userID, err := id.ParseUserID(claims.UserID)
	if err != nil {
		return requestcontext.Identity{}, fmt.Errorf("invalid user_id: %w", err)
	}
	if userID.IsNil() {
		return requestcontext.Identity{}, fmt.Errorf("nil user_id")
	}
	role, err := id.ParseRole(claims.Role)
	if err != nil {
		return requestcontext.Identity{}, fmt.Errorf("invalid role: %w", err)
	}
	return requestcontext.Identity{UserID: userID, Role: role}, nil
}

// writeJSONError writes a JSON error response with the given status code and error details.
func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(fmt.Appendf(nil, `{"error":"%s","error_description":"%s"}`, errCode, errDesc))
}

// Require returns middleware that rejects anonymous and invalid sessions with
// 401 and populates the context with the authenticated identity plus a device
// summary derived from the User-Agent.
func Require(resolver *Resolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			res := resolver.Resolve(r)
			switch res.State {
			case StateAnonymous:
				logger.WarnContext(ctx, "unauthorized access - missing session cookie",
					"request_id", requestcontext.RequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing session credential")
				return
			case StateRejected:
				logger.WarnContext(ctx, "unauthorized access - invalid session credential",
					"request_id", requestcontext.RequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired session")
				return
			}

			ctx = requestcontext.WithIdentity(ctx, res.Identity)
			if ua := requestcontext.UserAgent(ctx); ua != "" {
				ctx = requestcontext.WithDeviceSummary(ctx, device.Summarize(ua))
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
