package repository

import (
	"context"

	"gorm.io/gorm"

	"gocms/internal/model"
)

// UserRepository defines user and group persistence operations.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	Update(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id uint) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context, offset, limit int) ([]model.User, int64, error)
	AdjustPostsCount(ctx context.Context, id uint, delta int) error
	AdjustCommentsCount(ctx context.Context, id uint, delta int) error

	FindGroupByID(ctx context.Context, id uint) (*model.UserGroup, error)
	ListGroups(ctx context.Context) ([]model.UserGroup, error)
	CreateGroup(ctx context.Context, group *model.UserGroup) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository builds a GORM-backed repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) Update(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

func (r *userRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	err := retryRead(ctx, func() error {
		return r.db.WithContext(ctx).Preload("Group").First(&user, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	err := retryRead(ctx, func() error {
		return r.db.WithContext(ctx).Preload("Group").Where("username = ?", username).First(&user).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := retryRead(ctx, func() error {
		return r.db.WithContext(ctx).Preload("Group").Where("email = ?", email).First(&user).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) List(ctx context.Context, offset, limit int) ([]model.User, int64, error) {
	var users []model.User
	var total int64
	if err := r.db.WithContext(ctx).Model(&model.User{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := r.db.WithContext(ctx).Preload("Group").
		Order("created_at DESC").Offset(offset).Limit(limit).Find(&users).Error
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *userRepository) AdjustPostsCount(ctx context.Context, id uint, delta int) error {
	return r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).
		Update("posts_count", gorm.Expr("posts_count + ?", delta)).Error
}

func (r *userRepository) AdjustCommentsCount(ctx context.Context, id uint, delta int) error {
	return r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).
		Update("comments_count", gorm.Expr("comments_count + ?", delta)).Error
}

func (r *userRepository) FindGroupByID(ctx context.Context, id uint) (*model.UserGroup, error) {
	var group model.UserGroup
	err := retryRead(ctx, func() error {
		return r.db.WithContext(ctx).First(&group, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &group, nil
}

func (r *userRepository) ListGroups(ctx context.Context) ([]model.UserGroup, error) {
	var groups []model.UserGroup
	if err := r.db.WithContext(ctx).Order("id").Find(&groups).Error; err != nil {
		return nil, err
	}
	return groups, nil
}

func (r *userRepository) CreateGroup(ctx context.Context, group *model.UserGroup) error {
	return r.db.WithContext(ctx).Create(group).Error
}
