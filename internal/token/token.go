// Package token implements the session credential codec: a signed, compact,
// time-bounded token carrying the user id and role claim.
package token

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "atrium/pkg/domain"
	"atrium/pkg/requestcontext"
)

// ErrInvalidToken is the single failure returned by Verify. Signature
// mismatches, malformed payloads, and expired credentials are deliberately
// indistinguishable to the caller so verification cannot be used as an oracle.
var ErrInvalidToken = errors.New("invalid token")

// Claims are the session credential claims.
type Claims struct {
	UserID string `json:"uid"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Codec signs and verifies session credentials with HMAC-SHA256.
type Codec struct {
	signingKey []byte
	ttl        time.Duration
}

// New creates a Codec over the given secret with a default credential TTL.
func New(signingKey string, ttl time.Duration) *Codec {
	return &Codec{signingKey: []byte(signingKey), ttl: ttl}
}

// TTL returns the default credential lifetime.
func (c *Codec) TTL() time.Duration { return c.ttl }

// Issue produces a signed credential for the user. A zero ttl uses the
// codec default. Pure function over the secret key - no side effects.
func (c *Codec) Issue(ctx context.Context, userID id.UserID, role id.Role, ttl time.Duration) (string, error) {
	if userID.IsNil() {
		return "", errors.New("user ID is required")
	}
	if ttl <= 0 {
		ttl = c.ttl
	}
	now := requestcontext.Now(ctx)

	claims := Claims{
		UserID: userID.String(),
		Role:   role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.signingKey)
}

// Verify parses and validates a credential. Any parse, signature, or expiry
// failure maps to ErrInvalidToken; Verify never panics on attacker-controlled
// input.
func (c *Codec) Verify(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{},
		func(t *jwt.Token) (any, error) { return c.signingKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
