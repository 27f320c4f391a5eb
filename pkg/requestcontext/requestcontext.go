// Package requestcontext carries per-request values (correlation ID, client
// metadata, authenticated identity) through context.Context. Keys are unexported
// types so other packages cannot collide with them.
package requestcontext

import (
	"context"
	"time"

	id "atrium/pkg/domain"
)

type (
	requestIDKey     struct{}
	clientIPKey      struct{}
	userAgentKey     struct{}
	deviceSummaryKey struct{}
	identityKey      struct{}
	clockKey         struct{}
)

// Identity is the resolved session identity for the current request.
// Role is the claim embedded in the session credential; callers that need
// the current role must re-fetch the live user record.
type Identity struct {
	UserID id.UserID
	Role   id.Role
}

// WithRequestID stores the correlation ID for the current request.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestID returns the correlation ID, or "" when absent.
func RequestID(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey{}).(string)
	return v
}

// WithClientMetadata stores the caller address and User-Agent.
func WithClientMetadata(ctx context.Context, ip, userAgent string) context.Context {
	ctx = context.WithValue(ctx, clientIPKey{}, ip)
	return context.WithValue(ctx, userAgentKey{}, userAgent)
}

// ClientIP returns the caller address, or "" when absent.
func ClientIP(ctx context.Context) string {
	v, _ := ctx.Value(clientIPKey{}).(string)
	return v
}

// UserAgent returns the raw User-Agent header, or "" when absent.
func UserAgent(ctx context.Context) string {
	v, _ := ctx.Value(userAgentKey{}).(string)
	return v
}

// WithDeviceSummary stores a condensed device description (e.g. "Chrome on Linux").
func WithDeviceSummary(ctx context.Context, summary string) context.Context {
	return context.WithValue(ctx, deviceSummaryKey{}, summary)
}

// DeviceSummary returns the condensed device description, or "" when absent.
func DeviceSummary(ctx context.Context) string {
	v, _ := ctx.Value(deviceSummaryKey{}).(string)
	return v
}

// WithIdentity stores the authenticated identity.
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// GetIdentity returns the authenticated identity and whether one is present.
func GetIdentity(ctx context.Context) (Identity, bool) {
	v, ok := ctx.Value(identityKey{}).(Identity)
	return v, ok
}

// WithClock overrides the request clock. Tests use this to pin time-dependent
// behavior (token expiry, timestamps) without sleeping.
func WithClock(ctx context.Context, now func() time.Time) context.Context {
	return context.WithValue(ctx, clockKey{}, now)
}

// Now returns the request time, falling back to time.Now.
func Now(ctx context.Context) time.Time {
	if fn, ok := ctx.Value(clockKey{}).(func() time.Time); ok && fn != nil {
		return fn()
	}
	return time.Now()
}
