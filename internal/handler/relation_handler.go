package handler

import (
	"net/http"

	"friendlink/backend/internal/auth"
	"friendlink/backend/internal/friendship"
	"friendlink/backend/internal/repository"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// region --- DTOs ---

// ListRelationshipsQuery is the query string of GET /friends.
type ListRelationshipsQuery struct {
	Filter string `form:"filter" binding:"omitempty,oneof=all received sent blocked" example:"received"`
	Page   int    `form:"page" binding:"omitempty,min=1" example:"1"`
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=100" example:"20"`
}

// SendRequestInput is the body of POST /friends/requests.
type SendRequestInput struct {
	TargetUserID uint `json:"target_user_id" binding:"required" example:"2"`
}

// RelationshipURI binds the relationship id path parameter.
type RelationshipURI struct {
	ID string `uri:"id" binding:"required,uuid"`
}

// RespondInput is the body of POST /friends/{id}/respond.
type RespondInput struct {
	Action string `json:"action" binding:"required,oneof=accept decline cancel block unblock" example:"accept"`
}

// PendingCountResponse is the body of GET /friends/pending-count.
type PendingCountResponse struct {
	Count int64 `json:"count" example:"3"`
}

// PaginatedRelationshipResponse documents the list response.
type PaginatedRelationshipResponse struct {
	Data []friendship.RelationshipView `json:"data"`
	Meta repository.PaginationMeta     `json:"meta"`
}

// endregion

// RelationHandler serves the friends endpoints.
type RelationHandler struct {
	svc    *friendship.Service
	logger *zap.Logger
}

func NewRelationHandler(svc *friendship.Service, logger *zap.Logger) *RelationHandler {
	return &RelationHandler{svc: svc, logger: logger}
}

// ListRelationships godoc
// @Summary      List my relationships
// @Description  Lists the caller's relationships, newest first. Filters: all, received (pending requests to me), sent (my pending requests), blocked (users I blocked).
// @Tags         friendship
// @Produce      json
// @Security     BearerAuth
// @Param        filter  query     string  false  "all | received | sent | blocked" default(all)
// @Param        page    query     int     false  "Page number" default(1)
// @Param        limit   query     int     false  "Items per page" default(20)
// @Success      200     {object}  PaginatedRelationshipResponse
// @Failure      400     {object}  ErrorResponse
// @Failure      401     {object}  ErrorResponse
// @Router       /friends [get]
func (h *RelationHandler) ListRelationships(c *gin.Context) {
	caller, ok := auth.CurrentUser(c)
	if !ok {
		unauthorized(c, "User not authenticated")
		return
	}

	var query ListRelationshipsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		badRequest(c, err.Error())
		return
	}

	page, err := h.svc.List(c.Request.Context(), caller, repository.ListFilter(query.Filter), query.Page, query.Limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// SendRequest godoc
// @Summary      Send friend request
// @Description  Sends a friend request, or re-sends one the target previously declined.
// @Tags         friendship
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input  body      SendRequestInput  true  "Target user"
// @Success      201    {object}  friendship.Outcome
// @Failure      400    {object}  ErrorResponse
// @Failure      401    {object}  ErrorResponse
// @Failure      403    {object}  ErrorResponse
// @Failure      404    {object}  ErrorResponse "Target user not found"
// @Failure      409    {object}  ErrorResponse "Relationship already exists or blocked"
// @Failure      500    {object}  ErrorResponse
// @Router       /friends/requests [post]
func (h *RelationHandler) SendRequest(c *gin.Context) {
	caller, ok := auth.CurrentUser(c)
	if !ok {
		unauthorized(c, "User not authenticated")
		return
	}

	var input SendRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err.Error())
		return
	}

	outcome, err := h.svc.SendRequest(c.Request.Context(), caller, input.TargetUserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, outcome)
}

// RespondToRequest godoc
// @Summary      Act on a relationship
// @Description  Accept, decline, cancel, block or unblock. Accept/decline are for the recipient of a pending request, cancel for its sender, block/unblock for either party.
// @Tags         friendship
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id     path      string        true  "Relationship ID"
// @Param        input  body      RespondInput  true  "Action"
// @Success      200    {object}  friendship.Outcome
// @Failure      400    {object}  ErrorResponse
// @Failure      401    {object}  ErrorResponse
// @Failure      403    {object}  ErrorResponse
// @Failure      404    {object}  ErrorResponse
// @Failure      409    {object}  ErrorResponse
// @Failure      500    {object}  ErrorResponse
// @Router       /friends/{id}/respond [post]
func (h *RelationHandler) RespondToRequest(c *gin.Context) {
	caller, ok := auth.CurrentUser(c)
	if !ok {
		unauthorized(c, "User not authenticated")
		return
	}

	var uri RelationshipURI
	if err := c.ShouldBindUri(&uri); err != nil {
		badRequest(c, "Invalid relationship ID")
		return
	}
	var input RespondInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err.Error())
		return
	}

	outcome, err := h.svc.Respond(c.Request.Context(), caller, uri.ID, friendship.Action(input.Action))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

// GetPendingCount godoc
// @Summary      Pending request count
// @Description  Number of friend requests waiting for the caller.
// @Tags         friendship
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  PendingCountResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /friends/pending-count [get]
func (h *RelationHandler) GetPendingCount(c *gin.Context) {
	caller, ok := auth.CurrentUser(c)
	if !ok {
		unauthorized(c, "User not authenticated")
		return
	}

	count, err := h.svc.PendingCount(c.Request.Context(), caller)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, PendingCountResponse{Count: count})
}
