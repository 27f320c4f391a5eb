package authz

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	id "atrium/pkg/domain"
	dErrors "atrium/pkg/domain-errors"
	"atrium/pkg/platform/httputil"
	"atrium/pkg/platform/sentinel"
	"atrium/pkg/requestcontext"
)

// UserDirectory re-fetches the live user record. Role claims embedded in a
// session credential stay valid until natural expiry, so the admin surface
// must not trust them.
type UserDirectory interface {
	LiveRole(ctx context.Context, userID id.UserID) (role id.Role, active bool, err error)
}

// RequireAdmin returns middleware for admin-only route groups. It re-fetches
// the live user record and rejects callers whose current role is not admin or
// whose account is inactive or soft-deleted, regardless of the token claim.
func RequireAdmin(directory UserDirectory, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			identity, ok := requestcontext.GetIdentity(ctx)
			if !ok {
				logger.ErrorContext(ctx, "identity missing from context on admin route",
					"request_id", requestID)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
				return
			}

			role, active, err := directory.LiveRole(ctx, identity.UserID)
			if err != nil {
				if errors.Is(err, sentinel.ErrNotFound) {
					// Token outlived the account.
					httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "account no longer exists"))
					return
				}
				logger.ErrorContext(ctx, "live role lookup failed",
					"error", err,
					"request_id", requestID,
					"user_id", identity.UserID,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authorization check failed"))
				return
			}

			if !active || !role.IsAdmin() {
				logger.WarnContext(ctx, "forbidden - admin route denied",
					"request_id", requestID,
					"user_id", identity.UserID,
					"live_role", role,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "admin access required"))
				return
			}

			// Carry the confirmed live role forward for handlers.
			identity.Role = role
			next.ServeHTTP(w, r.WithContext(requestcontext.WithIdentity(ctx, identity)))
		})
	}
}
