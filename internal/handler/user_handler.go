package handler

import (
	"errors"
	"net/http"
	"time"

	"friendlink/backend/internal/auth"
	"friendlink/backend/internal/friendship"
	"friendlink/backend/internal/models"
	"friendlink/backend/internal/repository"
	"friendlink/backend/pkg/jwt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// region --- DTOs ---

// RegisterInput defines the structure for user registration.
type RegisterInput struct {
	Nickname  string `json:"nickname" binding:"required,min=3,max=32" example:"testuser"`
	Email     string `json:"email" binding:"required,email" example:"test@example.com"`
	Password  string `json:"password" binding:"required,min=8" example:"password123"`
	AvatarURL string `json:"avatar_url" binding:"omitempty,url" example:"https://cdn.example.com/a.png"`
}

// LoginInput defines the structure for user login.
type LoginInput struct {
	Login    string `json:"login" binding:"required" example:"testuser"`
	Password string `json:"password" binding:"required" example:"password123"`
}

// TokenResponse carries a session token.
type TokenResponse struct {
	Token string `json:"token"`
}

// UserURI binds the user id path parameter.
type UserURI struct {
	ID uint `uri:"id" binding:"required,min=1"`
}

// PublicUserResponse defines the structure for a user's public profile.
type PublicUserResponse struct {
	ID           uint                         `json:"id" example:"2"`
	Nickname     string                       `json:"nickname" example:"otheruser"`
	AvatarURL    string                       `json:"avatar_url,omitempty"`
	Relationship *friendship.RelationshipView `json:"relationship,omitempty"`
}

// PrivateUserResponse defines the structure for the authenticated user's own profile.
type PrivateUserResponse struct {
	ID           uint   `json:"id" example:"1"`
	Nickname     string `json:"nickname" example:"testuser"`
	Email        string `json:"email" example:"test@example.com"`
	AvatarURL    string `json:"avatar_url,omitempty"`
	PendingCount int64  `json:"pending_count" example:"2"`
}

// endregion

// UserHandler serves the account and profile endpoints.
type UserHandler struct {
	users      repository.UserStore
	friends    *friendship.Service
	secret     string
	sessionTTL time.Duration
	logger     *zap.Logger
}

func NewUserHandler(users repository.UserStore, friends *friendship.Service, secret string, sessionTTL time.Duration, logger *zap.Logger) *UserHandler {
	return &UserHandler{users: users, friends: friends, secret: secret, sessionTTL: sessionTTL, logger: logger}
}

// region --- Auth Handlers ---

// RegisterUser godoc
// @Summary      Register a new user
// @Description  Creates a new user and returns a session token.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        input body RegisterInput true "Registration Info"
// @Success      201  {object}  TokenResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /auth/register [post]
func (h *UserHandler) RegisterUser(c *gin.Context) {
	var input RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err.Error())
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	user := models.User{
		Nickname:     input.Nickname,
		Email:        input.Email,
		PasswordHash: string(hashedPassword),
		AvatarURL:    input.AvatarURL,
	}
	if err := h.users.Create(c.Request.Context(), &user); err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			c.JSON(http.StatusConflict, ErrorResponse{Error: "Nickname or email already exists", Code: friendship.KindConflict.String()})
			return
		}
		respondError(c, h.logger, err)
		return
	}

	h.issueSession(c, http.StatusCreated, user.ID)
}

// LoginUser godoc
// @Summary      Log in a user
// @Description  Authenticates a user with nickname/email and password, and returns a new session token.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        input body LoginInput true "Login Info"
// @Success      200  {object}  TokenResponse
// @Failure      400  {object}  ErrorResponse "Invalid input"
// @Failure      401  {object}  ErrorResponse "Invalid credentials"
// @Failure      500  {object}  ErrorResponse "Internal server error"
// @Router       /auth/login [post]
func (h *UserHandler) LoginUser(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err.Error())
		return
	}

	user, err := h.users.FindByLogin(c.Request.Context(), input.Login)
	if errors.Is(err, repository.ErrNotFound) {
		unauthorized(c, "Invalid credentials")
		return
	}
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		unauthorized(c, "Invalid credentials")
		return
	}

	h.issueSession(c, http.StatusOK, user.ID)
}

func (h *UserHandler) issueSession(c *gin.Context, status int, userID uint) {
	token, err := jwt.GenerateToken(userID, jwt.ScopeSession, h.secret, h.sessionTTL)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(status, TokenResponse{Token: token})
}

// endregion

// region --- User Handlers ---

// GetMe godoc
// @Summary      Get current user's info
// @Description  Retrieves the private profile of the caller, including the number of friend requests waiting for them.
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  PrivateUserResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /users/me [get]
func (h *UserHandler) GetMe(c *gin.Context) {
	viewerID, ok := auth.CurrentUser(c)
	if !ok {
		unauthorized(c, "User not authenticated")
		return
	}

	user, err := h.users.FindByID(c.Request.Context(), viewerID)
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "User not found", Code: friendship.KindNotFound.String()})
		return
	}
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	pending, err := h.friends.PendingCount(c.Request.Context(), viewerID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, PrivateUserResponse{
		ID:           user.ID,
		Nickname:     user.Nickname,
		Email:        user.Email,
		AvatarURL:    user.AvatarURL,
		PendingCount: pending,
	})
}

// GetUserByID godoc
// @Summary      Get user by ID
// @Description  Retrieves the public profile of a user together with the caller's relationship to them.
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "User ID"
// @Success      200  {object}  PublicUserResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /users/{id} [get]
func (h *UserHandler) GetUserByID(c *gin.Context) {
	viewerID, ok := auth.CurrentUser(c)
	if !ok {
		unauthorized(c, "User not authenticated")
		return
	}

	var uri UserURI
	if err := c.ShouldBindUri(&uri); err != nil {
		badRequest(c, "Invalid user ID")
		return
	}
	if uri.ID == viewerID {
		h.GetMe(c)
		return
	}

	target, err := h.users.FindByID(c.Request.Context(), uri.ID)
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "User not found", Code: friendship.KindNotFound.String()})
		return
	}
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	rel, err := h.friends.RelationshipWith(c.Request.Context(), viewerID, target.ID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if rel != nil {
		rel.Counterpart = friendship.Summarize(*target)
	}

	c.JSON(http.StatusOK, PublicUserResponse{
		ID:           target.ID,
		Nickname:     target.Nickname,
		AvatarURL:    target.AvatarURL,
		Relationship: rel,
	})
}

// endregion
