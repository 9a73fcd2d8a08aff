package main

import (
	"context"
	"errors"
	"log"
	"os"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"gocms/internal/config"
	"gocms/internal/db"
	"gocms/internal/model"
	"gocms/internal/repository"
)

func main() {
	log.Println("Starting seed script...")

	cfg := config.Load()

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Println("Connected to database")

	if err := gormDB.AutoMigrate(&model.UserGroup{}, &model.User{}); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	userRepo := repository.NewUserRepository(gormDB)
	ctx := context.Background()

	created, err := seedGroups(ctx, userRepo)
	if err != nil {
		log.Fatalf("Failed to seed groups: %v", err)
	}
	log.Printf("Groups seeded (%d created)", created)

	if err := seedAdmin(ctx, userRepo); err != nil {
		log.Fatalf("Failed to seed admin user: %v", err)
	}

	log.Println("Seed completed successfully!")
}

// defaultGroups mirrors the groups the application expects: ID 1 is the
// administrator group, ID 2 the registration default.
func defaultGroups() []model.UserGroup {
	return []model.UserGroup{
		{
			ID:   1,
			Name: "Administrator",
			CanAddPosts: true, CanEditPosts: true, CanDeletePosts: true,
			CanAddComments: true, CanEditComments: true, CanDeleteComments: true,
			CanUploadFiles: true, CanAccessAdmin: true, IsAdmin: true,
		},
		{
			ID:   2,
			Name: "User",
			CanAddComments: true,
		},
		{
			ID:   3,
			Name: "Editor",
			CanAddPosts: true, CanEditPosts: true,
			CanAddComments: true, CanUploadFiles: true,
		},
		{
			ID:   4,
			Name: "Moderator",
			CanAddPosts: true, CanEditPosts: true, CanDeletePosts: true,
			CanAddComments: true, CanEditComments: true, CanDeleteComments: true,
			CanUploadFiles: true,
		},
	}
}

func seedGroups(ctx context.Context, repo repository.UserRepository) (int, error) {
	created := 0
	for _, group := range defaultGroups() {
		_, err := repo.FindGroupByID(ctx, group.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return created, err
		}
		g := group
		if err := repo.CreateGroup(ctx, &g); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}

func seedAdmin(ctx context.Context, repo repository.UserRepository) error {
	username := envOr("ADMIN_USERNAME", "admin")
	email := envOr("ADMIN_EMAIL", "admin@example.com")
	password := envOr("ADMIN_PASSWORD", "admin123")

	if _, err := repo.FindByUsername(ctx, username); err == nil {
		log.Printf("Admin user %q already exists, skipping", username)
		return nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hashed),
		GroupID:      1,
		IsActive:     true,
		IsVerified:   true,
	}
	if err := repo.Create(ctx, admin); err != nil {
		return err
	}
	log.Printf("Admin user %q created", username)
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
