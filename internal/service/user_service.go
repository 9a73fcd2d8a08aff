package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	apperrors "gocms/internal/errors"
	"gocms/internal/model"
	"gocms/internal/repository"
)

// ProfileInput carries user profile update fields.
type ProfileInput struct {
	FullName string
	Avatar   string
	Bio      string
	Website  string
}

// UserService handles profile and moderation operations on users.
type UserService interface {
	GetByID(ctx context.Context, id uint) (*model.User, error)
	UpdateProfile(ctx context.Context, id uint, in ProfileInput) (*model.User, error)
	List(ctx context.Context, page, perPage int) ([]model.User, int64, error)
	Ban(ctx context.Context, id uint, reason string) error
	Unban(ctx context.Context, id uint) error
	ListGroups(ctx context.Context) ([]model.UserGroup, error)
}

type userService struct {
	userRepo repository.UserRepository
}

// NewUserService creates a new user service.
func NewUserService(userRepo repository.UserRepository) UserService {
	return &userService{userRepo: userRepo}
}

func (s *userService) GetByID(ctx context.Context, id uint) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *userService) UpdateProfile(ctx context.Context, id uint, in ProfileInput) (*model.User, error) {
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	user.FullName = in.FullName
	user.Avatar = in.Avatar
	user.Bio = in.Bio
	user.Website = in.Website
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return user, nil
}

func (s *userService) List(ctx context.Context, page, perPage int) ([]model.User, int64, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	return s.userRepo.List(ctx, (page-1)*perPage, perPage)
}

// Ban soft-disables an account. The user row stays so authored content keeps
// a valid author reference.
func (s *userService) Ban(ctx context.Context, id uint, reason string) error {
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	user.IsBanned = true
	user.BanReason = reason
	return s.userRepo.Update(ctx, user)
}

func (s *userService) Unban(ctx context.Context, id uint) error {
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	user.IsBanned = false
	user.BanReason = ""
	return s.userRepo.Update(ctx, user)
}

func (s *userService) ListGroups(ctx context.Context) ([]model.UserGroup, error) {
	return s.userRepo.ListGroups(ctx)
}
