// Package auth verifies platform-issued session tokens and answers the
// room-access capability query. Token issuance and the role/subscription
// records behind the gate belong to the platform, not to this service.
package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mahendrakanna/edupravahaa-web/internal/domain"
)

var ErrInvalidToken = errors.New("invalid session token")

// Claims is the subset of the platform JWT this service cares about. The
// sessionId claim is the logical id that survives page navigation within
// one authenticated visit.
type Claims struct {
	SessionID string `json:"sessionId"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

type TokenVerifier struct {
	secret []byte
}

func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret)}
}

// Verify parses and validates a session token and returns the user it
// identifies. No room event may be processed before this succeeds.
func (v *TokenVerifier) Verify(token string) (*domain.User, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.SessionID == "" {
		return nil, ErrInvalidToken
	}

	name := claims.Name
	if name == "" {
		name = "guest"
	}
	user, err := domain.NewUser(domain.UserID(claims.SessionID), name, domain.Role(claims.Role))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return user, nil
}
