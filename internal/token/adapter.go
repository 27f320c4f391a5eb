package token

import (
	"atrium/pkg/platform/middleware/session"
)

// SessionVerifier adapts the Codec to the session middleware's TokenVerifier
// interface.
type SessionVerifier struct {
	codec *Codec
}

// NewSessionVerifier wraps a Codec for use by the session middleware.
func NewSessionVerifier(codec *Codec) *SessionVerifier {
	return &SessionVerifier{codec: codec}
}

func (v *SessionVerifier) Verify(tokenString string) (*session.Claims, error) {
	claims, err := v.codec.Verify(tokenString)
	if err != nil {
		return nil, err
	}
	return &session.Claims{UserID: claims.UserID, Role: claims.Role}, nil
}

var _ session.TokenVerifier = (*SessionVerifier)(nil)
