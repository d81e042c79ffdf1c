package jwt_test

import (
	"testing"
	"time"

	"friendlink/backend/pkg/jwt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParse(t *testing.T) {
	token, err := jwt.GenerateToken(42, jwt.ScopeSession, "secret", time.Hour)
	require.NoError(t, err)

	claims, err := jwt.ParseToken(token, "secret", jwt.ScopeSession)
	require.NoError(t, err)
	assert.EqualValues(t, 42, claims.UserID)
	assert.NotEmpty(t, claims.ID)
}

func TestParse_Rejects(t *testing.T) {
	valid, err := jwt.GenerateToken(7, jwt.ScopeRealtime, "secret", time.Minute)
	require.NoError(t, err)
	expired, err := jwt.GenerateToken(7, jwt.ScopeRealtime, "secret", -time.Minute)
	require.NoError(t, err)

	_, err = jwt.ParseToken(valid, "other-secret", jwt.ScopeRealtime)
	assert.Error(t, err, "wrong secret")

	_, err = jwt.ParseToken(valid, "secret", jwt.ScopeSession)
	assert.Error(t, err, "wrong scope")

	_, err = jwt.ParseToken(expired, "secret", jwt.ScopeRealtime)
	assert.Error(t, err, "expired")

	_, err = jwt.ParseToken("not-a-token", "secret", jwt.ScopeRealtime)
	assert.Error(t, err)
}
