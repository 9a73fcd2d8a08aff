package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"gocms/internal/middleware"
	"gocms/internal/model"
	"gocms/internal/repository"
	"gocms/internal/service"
)

// PostHandler handles post endpoints.
type PostHandler struct {
	postService service.PostService
}

// NewPostHandler creates a new post handler.
func NewPostHandler(postService service.PostService) *PostHandler {
	return &PostHandler{postService: postService}
}

// PostRequest represents a post create/update request.
type PostRequest struct {
	Title         string     `json:"title" validate:"required,max=255"`
	ShortContent  string     `json:"short_content"`
	FullContent   string     `json:"full_content" validate:"required"`
	Thumbnail     string     `json:"thumbnail"`
	IsPublished   bool       `json:"is_published"`
	IsFeatured    bool       `json:"is_featured"`
	IsPinned      bool       `json:"is_pinned"`
	AllowComments *bool      `json:"allow_comments"`
	PublishDate   *time.Time `json:"publish_date"`

	MetaTitle       string `json:"meta_title"`
	MetaDescription string `json:"meta_description"`
	MetaKeywords    string `json:"meta_keywords"`

	CategoryIDs []uint   `json:"category_ids"`
	Tags        []string `json:"tags"`
}

func (r *PostRequest) toInput() service.PostInput {
	allowComments := true
	if r.AllowComments != nil {
		allowComments = *r.AllowComments
	}
	return service.PostInput{
		Title:           r.Title,
		ShortContent:    r.ShortContent,
		FullContent:     r.FullContent,
		Thumbnail:       r.Thumbnail,
		IsPublished:     r.IsPublished,
		IsFeatured:      r.IsFeatured,
		IsPinned:        r.IsPinned,
		AllowComments:   allowComments,
		PublishDate:     r.PublishDate,
		MetaTitle:       r.MetaTitle,
		MetaDescription: r.MetaDescription,
		MetaKeywords:    r.MetaKeywords,
		CategoryIDs:     r.CategoryIDs,
		Tags:            r.Tags,
	}
}

// RateRequest represents a rating request.
type RateRequest struct {
	Rating int `json:"rating" validate:"required,min=1,max=5"`
}

// PostListResponse represents a paginated post listing.
type PostListResponse struct {
	Posts   []model.Post `json:"posts"`
	Total   int64        `json:"total"`
	Page    int          `json:"page"`
	PerPage int          `json:"per_page"`
}

// List godoc
// @Summary List published posts
// @Tags posts
// @Produce json
// @Param page query int false "Page"
// @Param per_page query int false "Page size"
// @Param category_id query int false "Filter by category"
// @Param tag query string false "Filter by tag slug"
// @Param author_id query int false "Filter by author"
// @Param search query string false "Search in title and content"
// @Param featured query bool false "Only featured posts"
// @Param sort query string false "Sort column"
// @Param order query string false "asc or desc"
// @Success 200 {object} PostListResponse
// @Router /posts [get]
func (h *PostHandler) List(c echo.Context) error {
	published := true
	filter := repository.PostFilter{
		Page:       queryInt(c, "page", 1),
		PerPage:    queryInt(c, "per_page", 20),
		CategoryID: uint(queryInt(c, "category_id", 0)),
		TagSlug:    c.QueryParam("tag"),
		AuthorID:   uint(queryInt(c, "author_id", 0)),
		Search:     c.QueryParam("search"),
		Published:  &published,
		SortBy:     c.QueryParam("sort"),
		SortOrder:  c.QueryParam("order"),
	}
	if v := c.QueryParam("featured"); v == "true" {
		featured := true
		filter.Featured = &featured
	}
	// Unpublished listings are visible only to holders of the edit capability.
	if c.QueryParam("published") == "false" {
		if ident := middleware.IdentityFrom(c); ident != nil && ident.Can(model.CapEditPosts) {
			filter.Published = nil
		}
	}

	posts, total, err := h.postService.List(c.Request().Context(), filter)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, PostListResponse{
		Posts:   posts,
		Total:   total,
		Page:    filter.Page,
		PerPage: filter.PerPage,
	})
}

// Get godoc
// @Summary Get a post by slug
// @Tags posts
// @Produce json
// @Param slug path string true "Post slug"
// @Success 200 {object} model.Post
// @Failure 404 {object} errors.ErrorResponse
// @Router /posts/{slug} [get]
func (h *PostHandler) Get(c echo.Context) error {
	post, err := h.postService.GetBySlug(c.Request().Context(), c.Param("slug"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, post)
}

// Related godoc
// @Summary List posts related by category
// @Tags posts
// @Produce json
// @Param slug path string true "Post slug"
// @Success 200 {array} model.Post
// @Router /posts/{slug}/related [get]
func (h *PostHandler) Related(c echo.Context) error {
	ctx := c.Request().Context()
	post, err := h.postService.GetBySlug(ctx, c.Param("slug"))
	if err != nil {
		return respondError(c, err)
	}
	related, err := h.postService.ListRelated(ctx, post, queryInt(c, "limit", 5))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, related)
}

// Create godoc
// @Summary Create a post
// @Tags posts
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body PostRequest true "Post data"
// @Success 201 {object} model.Post
// @Failure 403 {object} errors.ErrorResponse
// @Router /posts [post]
func (h *PostHandler) Create(c echo.Context) error {
	var req PostRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, err.Error())
	}

	post, err := h.postService.Create(c.Request().Context(), middleware.IdentityFrom(c), req.toInput())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, post)
}

// Update godoc
// @Summary Update a post
// @Tags posts
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Post ID"
// @Param request body PostRequest true "Post data"
// @Success 200 {object} model.Post
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /posts/{id} [patch]
func (h *PostHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "invalid post id")
	}
	var req PostRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, err.Error())
	}

	post, err := h.postService.Update(c.Request().Context(), middleware.IdentityFrom(c), id, req.toInput())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, post)
}

// Delete godoc
// @Summary Delete a post
// @Tags posts
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 204
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /posts/{id} [delete]
func (h *PostHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "invalid post id")
	}
	if err := h.postService.Delete(c.Request().Context(), middleware.IdentityFrom(c), id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Rate godoc
// @Summary Rate a post (1-5), replacing any prior rating by the same voter
// @Tags posts
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Post ID"
// @Param request body RateRequest true "Rating"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} errors.ErrorResponse
// @Router /posts/{id}/rating [post]
func (h *PostHandler) Rate(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "invalid post id")
	}
	var req RateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, err.Error())
	}

	rating, votes, err := h.postService.Rate(c.Request().Context(), middleware.IdentityFrom(c), c.RealIP(), id, req.Rating)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"rating":      rating,
		"votes_count": votes,
	})
}

// View godoc
// @Summary Record a post view, deduplicated per viewer per window
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} map[string]bool
// @Failure 404 {object} errors.ErrorResponse
// @Router /posts/{id}/view [post]
func (h *PostHandler) View(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "invalid post id")
	}
	counted, err := h.postService.TrackView(
		c.Request().Context(),
		id,
		middleware.IdentityFrom(c),
		c.RealIP(),
		c.Request().UserAgent(),
		c.Request().Referer(),
	)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"counted": counted})
}

// Favorite godoc
// @Summary Toggle a bookmark on a post
// @Tags posts
// @Security BearerAuth
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} map[string]bool
// @Failure 404 {object} errors.ErrorResponse
// @Router /posts/{id}/favorite [post]
func (h *PostHandler) Favorite(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "invalid post id")
	}
	favorited, err := h.postService.ToggleFavorite(c.Request().Context(), middleware.IdentityFrom(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"favorited": favorited})
}

// ListTags godoc
// @Summary List tags by popularity
// @Tags tags
// @Produce json
// @Success 200 {array} model.Tag
// @Router /tags [get]
func (h *PostHandler) ListTags(c echo.Context) error {
	tags, err := h.postService.ListTags(c.Request().Context(), queryInt(c, "limit", 100))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, tags)
}
