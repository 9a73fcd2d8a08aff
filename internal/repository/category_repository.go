package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gocms/internal/model"
)

// CategoryRepository defines category persistence operations.
type CategoryRepository interface {
	Create(ctx context.Context, category *model.Category) error
	Update(ctx context.Context, category *model.Category) error
	Delete(ctx context.Context, category *model.Category) error
	FindByID(ctx context.Context, id uint) (*model.Category, error)
	FindByIDForUpdate(ctx context.Context, id uint) (*model.Category, error)
	FindBySlug(ctx context.Context, slug string) (*model.Category, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	// ListAll returns every category ordered by (position, name), the
	// sibling order used by the tree projection.
	ListAll(ctx context.Context, activeOnly bool) ([]model.Category, error)
	AdjustPostsCount(ctx context.Context, id uint, delta int) error
	WithTransaction(ctx context.Context, fn func(ctx context.Context, repo CategoryRepository) error) error
}

type categoryRepository struct {
	db *gorm.DB
}

// NewCategoryRepository creates a new category repository.
func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) Create(ctx context.Context, category *model.Category) error {
	return r.db.WithContext(ctx).Create(category).Error
}

func (r *categoryRepository) Update(ctx context.Context, category *model.Category) error {
	return r.db.WithContext(ctx).Save(category).Error
}

func (r *categoryRepository) Delete(ctx context.Context, category *model.Category) error {
	return r.db.WithContext(ctx).Delete(category).Error
}

func (r *categoryRepository) FindByID(ctx context.Context, id uint) (*model.Category, error) {
	var category model.Category
	err := retryRead(ctx, func() error {
		return r.db.WithContext(ctx).First(&category, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// FindByIDForUpdate fetches a category with a row-level lock. Cycle checks
// walk parent links through this method so a concurrent move cannot slip a
// half-updated link past the check.
func (r *categoryRepository) FindByIDForUpdate(ctx context.Context, id uint) (*model.Category, error) {
	var category model.Category
	if err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&category, id).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *categoryRepository) FindBySlug(ctx context.Context, slug string) (*model.Category, error) {
	var category model.Category
	err := retryRead(ctx, func() error {
		return r.db.WithContext(ctx).Where("slug = ?", slug).First(&category).Error
	})
	if err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *categoryRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Category{}).
		Where("slug = ?", slug).Count(&count).Error
	return count > 0, err
}

func (r *categoryRepository) ListAll(ctx context.Context, activeOnly bool) ([]model.Category, error) {
	var categories []model.Category
	err := retryRead(ctx, func() error {
		q := r.db.WithContext(ctx).Order("position, name")
		if activeOnly {
			q = q.Where("is_active = ?", true)
		}
		categories = categories[:0]
		return q.Find(&categories).Error
	})
	if err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *categoryRepository) AdjustPostsCount(ctx context.Context, id uint, delta int) error {
	return r.db.WithContext(ctx).Model(&model.Category{}).Where("id = ?", id).
		Update("posts_count", gorm.Expr("posts_count + ?", delta)).Error
}

// WithTransaction executes a function within a database transaction.
func (r *categoryRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context, repo CategoryRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &categoryRepository{db: tx})
	})
}
