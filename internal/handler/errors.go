package handler

import (
	"errors"
	"net/http"

	"friendlink/backend/internal/friendship"
	"friendlink/backend/internal/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorResponse represents a generic error response.
type ErrorResponse struct {
	Error string `json:"error" example:"An error message"`
	Code  string `json:"code,omitempty" example:"conflict"`
}

func statusFor(kind friendship.Kind) int {
	switch kind {
	case friendship.KindInvalid:
		return http.StatusBadRequest
	case friendship.KindNotFound:
		return http.StatusNotFound
	case friendship.KindForbidden:
		return http.StatusForbidden
	case friendship.KindConflict:
		return http.StatusConflict
	case friendship.KindUnauthorized:
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

// respondError writes rejections as user-facing messages. Anything else is
// logged and reported as a generic internal error.
func respondError(c *gin.Context, log *zap.Logger, err error) {
	var rej *friendship.Error
	if errors.As(err, &rej) {
		c.JSON(statusFor(rej.Kind), ErrorResponse{Error: rej.Message, Code: rej.Kind.String()})
		return
	}
	log.Error("request failed",
		zap.Error(err),
		zap.String("path", c.FullPath()),
		zap.String("trace_id", middleware.GetTraceID(c)),
	)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg, Code: friendship.KindInvalid.String()})
}

func unauthorized(c *gin.Context, msg string) {
	c.JSON(http.StatusUnauthorized, ErrorResponse{Error: msg, Code: friendship.KindUnauthorized.String()})
}
