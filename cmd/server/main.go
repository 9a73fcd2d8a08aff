package main

import (
	"log"
	"net/http"
	"os"

	_ "gocms/docs" // swagger docs

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"gocms/internal/auth"
	"gocms/internal/cache"
	"gocms/internal/config"
	"gocms/internal/db"
	"gocms/internal/handler"
	"gocms/internal/model"
	"gocms/internal/repository"
	"gocms/internal/router"
	"gocms/internal/service"
)

// @title CMS API
// @version 1.0
// @description Content management API with posts, hierarchical categories, threaded comments, and JWT authentication.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg := config.Load()

	e := echo.New()
	e.Use(middleware.RequestID())

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("database init: %v", err)
	}

	if os.Getenv("RESET_DB") == "true" {
		log.Println("RESET_DB=true detected, dropping all tables...")
		tables := []interface{}{
			&model.CommentVote{},
			&model.Comment{},
			&model.Favorite{},
			&model.PostRating{},
			&model.PostView{},
			&model.Post{},
			&model.Tag{},
			&model.Category{},
			&model.User{},
			&model.UserGroup{},
		}
		for _, table := range tables {
			if err := gormDB.Migrator().DropTable(table); err != nil {
				log.Printf("Warning: Failed to drop table (may not exist): %v", err)
			}
		}
		log.Println("Tables dropped")
	}

	if err := gormDB.AutoMigrate(
		&model.UserGroup{},
		&model.User{},
		&model.Category{},
		&model.Tag{},
		&model.Post{},
		&model.PostView{},
		&model.PostRating{},
		&model.Favorite{},
		&model.Comment{},
		&model.CommentVote{},
	); err != nil {
		log.Fatalf("auto-migrate: %v", err)
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)

	// Repositories
	userRepo := repository.NewUserRepository(gormDB)
	categoryRepo := repository.NewCategoryRepository(gormDB)
	postRepo := repository.NewPostRepository(gormDB)
	commentRepo := repository.NewCommentRepository(gormDB)
	txManager := repository.NewTxManager(gormDB)

	// Auth components
	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	tokenStore := auth.NewTokenStore(cacheClient)

	// Services
	authService := service.NewAuthService(userRepo, jwtService, tokenStore, cfg.DefaultGroupID)
	userService := service.NewUserService(userRepo)
	categoryService := service.NewCategoryService(categoryRepo)
	postService := service.NewPostService(txManager, postRepo, cacheClient, cfg.ViewDedupWindow)
	commentService := service.NewCommentService(txManager, commentRepo)

	// Handlers
	authHandler := handler.NewAuthHandler(authService, cfg.AccessTokenTTL)
	userHandler := handler.NewUserHandler(userService)
	categoryHandler := handler.NewCategoryHandler(categoryService)
	postHandler := handler.NewPostHandler(postService)
	commentHandler := handler.NewCommentHandler(commentService)

	router.Register(
		e,
		jwtService,
		authHandler,
		userHandler,
		categoryHandler,
		postHandler,
		commentHandler,
	)

	if cfg.SwaggerHost != "" {
		log.Printf("Swagger documentation available at: http://%s/swagger/index.html", cfg.SwaggerHost)
	} else {
		log.Printf("Swagger documentation available at: http://localhost:%s/swagger/index.html", cfg.ServerPort)
	}

	addr := ":" + cfg.ServerPort
	if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server start: %v", err)
	}
}
