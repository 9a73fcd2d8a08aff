package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"gocms/internal/middleware"
	"gocms/internal/model"
	"gocms/internal/service"
)

// UserHandler handles user and admin endpoints.
type UserHandler struct {
	userService service.UserService
}

// NewUserHandler creates a new user handler.
func NewUserHandler(userService service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// ProfileRequest represents a profile update request.
type ProfileRequest struct {
	FullName string `json:"full_name" validate:"max=100"`
	Avatar   string `json:"avatar" validate:"max=255"`
	Bio      string `json:"bio"`
	Website  string `json:"website" validate:"omitempty,url"`
}

// BanRequest represents a ban request.
type BanRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// UserListResponse represents a paginated user listing.
type UserListResponse struct {
	Users []model.User `json:"users"`
	Total int64        `json:"total"`
}

// Me godoc
// @Summary Get the authenticated user
// @Tags users
// @Security BearerAuth
// @Produce json
// @Success 200 {object} model.User
// @Failure 401 {object} errors.ErrorResponse
// @Router /users/me [get]
func (h *UserHandler) Me(c echo.Context) error {
	ident := middleware.IdentityFrom(c)
	user, err := h.userService.GetByID(c.Request().Context(), ident.UserID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, user)
}

// UpdateMe godoc
// @Summary Update the authenticated user's profile
// @Tags users
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body ProfileRequest true "Profile data"
// @Success 200 {object} model.User
// @Failure 401 {object} errors.ErrorResponse
// @Router /users/me [patch]
func (h *UserHandler) UpdateMe(c echo.Context) error {
	var req ProfileRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, err.Error())
	}

	ident := middleware.IdentityFrom(c)
	user, err := h.userService.UpdateProfile(c.Request().Context(), ident.UserID, service.ProfileInput{
		FullName: req.FullName,
		Avatar:   req.Avatar,
		Bio:      req.Bio,
		Website:  req.Website,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, user)
}

// Get godoc
// @Summary Get a user's public profile
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} model.User
// @Failure 404 {object} errors.ErrorResponse
// @Router /users/{id} [get]
func (h *UserHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "invalid user id")
	}
	user, err := h.userService.GetByID(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, user)
}

// List godoc
// @Summary List users (admin)
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Param page query int false "Page"
// @Param per_page query int false "Page size"
// @Success 200 {object} UserListResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /admin/users [get]
func (h *UserHandler) List(c echo.Context) error {
	users, total, err := h.userService.List(c.Request().Context(), queryInt(c, "page", 1), queryInt(c, "per_page", 20))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, UserListResponse{Users: users, Total: total})
}

// Ban godoc
// @Summary Ban a user (admin)
// @Tags admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "User ID"
// @Param request body BanRequest true "Ban reason"
// @Success 200 {object} map[string]string
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /admin/users/{id}/ban [post]
func (h *UserHandler) Ban(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "invalid user id")
	}
	var req BanRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.userService.Ban(c.Request().Context(), id, req.Reason); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "user banned"})
}

// Unban godoc
// @Summary Lift a user's ban (admin)
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} map[string]string
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /admin/users/{id}/unban [post]
func (h *UserHandler) Unban(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "invalid user id")
	}
	if err := h.userService.Unban(c.Request().Context(), id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "ban lifted"})
}

// ListGroups godoc
// @Summary List user groups (admin)
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Success 200 {array} model.UserGroup
// @Failure 403 {object} errors.ErrorResponse
// @Router /admin/groups [get]
func (h *UserHandler) ListGroups(c echo.Context) error {
	groups, err := h.userService.ListGroups(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, groups)
}
