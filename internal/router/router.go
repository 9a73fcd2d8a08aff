package router

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"

	"gocms/internal/auth"
	"gocms/internal/handler"
	appmw "gocms/internal/middleware"
	"gocms/internal/model"
)

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	jwtService *auth.JWTService,
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
	categoryHandler *handler.CategoryHandler,
	postHandler *handler.PostHandler,
	commentHandler *handler.CommentHandler,
) {
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())

	e.Validator = &CustomValidator{validator: validator.New()}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// Every API route runs through the session middleware: requests without a
	// credential proceed anonymously, requests with a bad credential stop
	// with 401 before any handler runs.
	api := e.Group("/api", appmw.Session(jwtService))

	// Auth
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/refresh", authHandler.Refresh)
	api.POST("/auth/logout", authHandler.Logout)
	api.POST("/auth/password", authHandler.ChangePassword, appmw.RequireAuth())

	// Users
	api.GET("/users/me", userHandler.Me, appmw.RequireAuth())
	api.PATCH("/users/me", userHandler.UpdateMe, appmw.RequireAuth())
	api.GET("/users/:id", userHandler.Get)

	// Categories: reads are public, writes are admin operations.
	api.GET("/categories", categoryHandler.List)
	api.GET("/categories/tree", categoryHandler.Tree)
	api.GET("/categories/:slug", categoryHandler.Get)
	api.POST("/categories", categoryHandler.Create, appmw.RequirePermission(model.CapAccessAdmin))
	api.PATCH("/categories/:id", categoryHandler.Update, appmw.RequirePermission(model.CapAccessAdmin))
	api.POST("/categories/:id/move", categoryHandler.Move, appmw.RequirePermission(model.CapAccessAdmin))
	api.DELETE("/categories/:id", categoryHandler.Delete, appmw.RequirePermission(model.CapAccessAdmin))

	// Posts. Ratings and views accept anonymous traffic and key the vote on
	// the client IP; favorites are tied to an account.
	api.GET("/posts", postHandler.List)
	api.GET("/posts/:slug", postHandler.Get)
	api.GET("/posts/:slug/related", postHandler.Related)
	api.POST("/posts", postHandler.Create, appmw.RequirePermission(model.CapAddPosts))
	api.PATCH("/posts/:id", postHandler.Update, appmw.RequireAuth())
	api.DELETE("/posts/:id", postHandler.Delete, appmw.RequireAuth())
	api.POST("/posts/:id/rating", postHandler.Rate)
	api.POST("/posts/:id/view", postHandler.View)
	api.POST("/posts/:id/favorite", postHandler.Favorite, appmw.RequireAuth())

	// Tags
	api.GET("/tags", postHandler.ListTags)

	// Comments. Writing one takes an account whose group grants the
	// add-comments capability; votes stay open and key on the client IP.
	// Edits and deletes need the author's account or a moderation
	// capability, enforced in the service.
	api.GET("/posts/:id/comments", commentHandler.ListTree)
	api.POST("/posts/:id/comments", commentHandler.Create, appmw.RequirePermission(model.CapAddComments))
	api.PATCH("/comments/:id", commentHandler.Update, appmw.RequireAuth())
	api.DELETE("/comments/:id", commentHandler.Delete, appmw.RequireAuth())
	api.POST("/comments/:id/vote", commentHandler.Vote)

	// Admin
	admin := api.Group("/admin", appmw.RequirePermission(model.CapAccessAdmin))
	admin.GET("/users", userHandler.List)
	admin.POST("/users/:id/ban", userHandler.Ban)
	admin.POST("/users/:id/unban", userHandler.Unban)
	admin.GET("/groups", userHandler.ListGroups)
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
