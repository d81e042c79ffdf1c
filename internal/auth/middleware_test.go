package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"friendlink/backend/internal/auth"
	"friendlink/backend/pkg/jwt"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", auth.AuthMiddleware("secret"), func(c *gin.Context) {
		id, ok := auth.CurrentUser(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": id})
	})
	return r
}

func do(r *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	r := newRouter()

	session, err := jwt.GenerateToken(9, jwt.ScopeSession, "secret", time.Hour)
	require.NoError(t, err)
	realtime, err := jwt.GenerateToken(9, jwt.ScopeRealtime, "secret", time.Hour)
	require.NoError(t, err)

	w := do(r, "Bearer "+session)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":9}`, w.Body.String())

	assert.Equal(t, http.StatusUnauthorized, do(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "Token "+session).Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "Bearer garbage").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "Bearer "+realtime).Code, "realtime tokens are not sessions")
}
