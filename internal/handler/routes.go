package handler

import (
	"friendlink/backend/internal/auth"

	"github.com/gin-gonic/gin"
)

// Handlers bundles the route handlers mounted under /api/v1.
type Handlers struct {
	Users     *UserHandler
	Relations *RelationHandler
	Realtime  *RealtimeHandler
}

// Register mounts the API routes on api. secret verifies session tokens.
func Register(api *gin.RouterGroup, secret string, h Handlers) {
	requireSession := auth.AuthMiddleware(secret)

	authRoutes := api.Group("/auth")
	{
		authRoutes.POST("/register", h.Users.RegisterUser)
		authRoutes.POST("/login", h.Users.LoginUser)
	}

	userRoutes := api.Group("/users")
	userRoutes.Use(requireSession)
	{
		userRoutes.GET("/me", h.Users.GetMe)
		userRoutes.GET("/:id", h.Users.GetUserByID)
	}

	friendRoutes := api.Group("/friends")
	friendRoutes.Use(requireSession)
	{
		friendRoutes.GET("", h.Relations.ListRelationships)
		friendRoutes.GET("/pending-count", h.Relations.GetPendingCount)
		friendRoutes.POST("/requests", h.Relations.SendRequest)
		friendRoutes.POST("/:id/respond", h.Relations.RespondToRequest)
	}

	realtimeRoutes := api.Group("/realtime")
	{
		// The stream endpoints authenticate with the realtime token instead
		// of a session header, since EventSource cannot set headers.
		realtimeRoutes.POST("/token", requireSession, h.Realtime.IssueToken)
		realtimeRoutes.GET("/sse", h.Realtime.ServeSSE)
		realtimeRoutes.GET("/ws", h.Realtime.ServeWS)
	}
}
