package hub

import (
	"time"

	"friendlink/backend/pkg/jwt"
)

// TokenIssuer mints and verifies the short-lived tokens used to open a
// realtime subscription. Expired tokens are never renewed here; the client
// asks for a new one with its session.
type TokenIssuer struct {
	secret string
	ttl    time.Duration
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: secret, ttl: ttl}
}

// Issue returns a token for userID and its expiry.
func (i *TokenIssuer) Issue(userID uint) (string, time.Time, error) {
	expiresAt := time.Now().Add(i.ttl)
	token, err := jwt.GenerateToken(userID, jwt.ScopeRealtime, i.secret, i.ttl)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// Verify returns the user the token was issued for.
func (i *TokenIssuer) Verify(token string) (uint, error) {
	claims, err := jwt.ParseToken(token, i.secret, jwt.ScopeRealtime)
	if err != nil {
		return 0, err
	}
	return claims.UserID, nil
}
