package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"gocms/internal/middleware"
	"gocms/internal/service"
)

// CommentHandler handles comment endpoints.
type CommentHandler struct {
	commentService service.CommentService
}

// NewCommentHandler creates a new comment handler.
func NewCommentHandler(commentService service.CommentService) *CommentHandler {
	return &CommentHandler{commentService: commentService}
}

// CommentRequest represents a comment creation request.
type CommentRequest struct {
	Content  string `json:"content" validate:"required"`
	ParentID *uint  `json:"parent_id"`
}

// CommentUpdateRequest represents a comment edit request.
type CommentUpdateRequest struct {
	Content string `json:"content" validate:"required"`
}

// VoteRequest represents a comment vote: 1 like, -1 dislike, 0 withdraw.
type VoteRequest struct {
	Vote int `json:"vote" validate:"oneof=-1 0 1"`
}

// ListTree godoc
// @Summary Get a post's comments as a nested tree
// @Tags comments
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {array} service.CommentNode
// @Router /posts/{id}/comments [get]
func (h *CommentHandler) ListTree(c echo.Context) error {
	postID, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "invalid post id")
	}
	tree, err := h.commentService.Tree(c.Request().Context(), postID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, tree)
}

// Create godoc
// @Summary Comment on a post
// @Tags comments
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Post ID"
// @Param request body CommentRequest true "Comment data"
// @Success 201 {object} model.Comment
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /posts/{id}/comments [post]
func (h *CommentHandler) Create(c echo.Context) error {
	postID, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "invalid post id")
	}
	var req CommentRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, err.Error())
	}

	comment, err := h.commentService.Create(c.Request().Context(), middleware.IdentityFrom(c), service.CommentInput{
		PostID:    postID,
		ParentID:  req.ParentID,
		Content:   req.Content,
		IPAddress: c.RealIP(),
		UserAgent: c.Request().UserAgent(),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, comment)
}

// Update godoc
// @Summary Edit a comment
// @Tags comments
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Comment ID"
// @Param request body CommentUpdateRequest true "New content"
// @Success 200 {object} model.Comment
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /comments/{id} [patch]
func (h *CommentHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "invalid comment id")
	}
	var req CommentUpdateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, err.Error())
	}

	comment, err := h.commentService.Update(c.Request().Context(), middleware.IdentityFrom(c), id, req.Content)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, comment)
}

// Delete godoc
// @Summary Delete a comment
// @Tags comments
// @Security BearerAuth
// @Param id path int true "Comment ID"
// @Success 204
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /comments/{id} [delete]
func (h *CommentHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "invalid comment id")
	}
	if err := h.commentService.Delete(c.Request().Context(), middleware.IdentityFrom(c), id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Vote godoc
// @Summary Like or dislike a comment, replacing any prior vote
// @Tags comments
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Comment ID"
// @Param request body VoteRequest true "Vote value"
// @Success 200 {object} map[string]int
// @Failure 404 {object} errors.ErrorResponse
// @Router /comments/{id}/vote [post]
func (h *CommentHandler) Vote(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "invalid comment id")
	}
	var req VoteRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, err.Error())
	}

	likes, dislikes, err := h.commentService.Vote(c.Request().Context(), middleware.IdentityFrom(c), c.RealIP(), id, req.Vote)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]int{
		"likes_count":    likes,
		"dislikes_count": dislikes,
	})
}
