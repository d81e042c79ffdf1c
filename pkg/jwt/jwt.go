package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// ScopeSession marks a login session token.
	ScopeSession = "session"
	// ScopeRealtime marks a short-lived token for opening a realtime subscription.
	ScopeRealtime = "realtime"
)

// Claims is the JWT payload.
type Claims struct {
	UserID uint   `json:"uid"`
	Scope  string `json:"scope"`
	jwt.RegisteredClaims
}

// GenerateToken creates a new JWT for a given user ID, scope and lifetime.
func GenerateToken(userID uint, scope, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: userID,
		Scope:  scope,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString([]byte(secret))
}

// ParseToken validates a JWT string and returns its claims. The token must
// carry the expected scope, so a session token cannot open a realtime
// subscription and vice versa.
func ParseToken(tokenStr, secret, scope string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Scope != scope {
		return nil, errors.New("token scope mismatch")
	}
	if claims.UserID == 0 {
		return nil, errors.New("token has no user")
	}
	return claims, nil
}
