package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gocms/internal/model"
)

// PostFilter narrows and pages post listings.
type PostFilter struct {
	Page       int
	PerPage    int
	CategoryID uint
	TagSlug    string
	AuthorID   uint
	Search     string
	Published  *bool
	Featured   *bool
	SortBy     string
	SortOrder  string
}

var postSortColumns = map[string]bool{
	"created_at":  true,
	"views_count": true,
	"rating":      true,
	"title":       true,
}

// PostRepository defines post, tag, rating, view and favorite persistence.
type PostRepository interface {
	Create(ctx context.Context, post *model.Post) error
	Update(ctx context.Context, post *model.Post) error
	Delete(ctx context.Context, post *model.Post) error
	FindByID(ctx context.Context, id uint) (*model.Post, error)
	FindByIDForUpdate(ctx context.Context, id uint) (*model.Post, error)
	FindBySlug(ctx context.Context, slug string) (*model.Post, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	List(ctx context.Context, filter PostFilter) ([]model.Post, int64, error)
	ListRelated(ctx context.Context, post *model.Post, limit int) ([]model.Post, error)

	ReplaceCategories(ctx context.Context, post *model.Post, categories []model.Category) error
	ReplaceTags(ctx context.Context, post *model.Post, tags []model.Tag) error
	FindTagBySlug(ctx context.Context, slug string) (*model.Tag, error)
	CreateTag(ctx context.Context, tag *model.Tag) error
	ListTags(ctx context.Context, limit int) ([]model.Tag, error)
	AdjustTagPostsCount(ctx context.Context, id uint, delta int) error

	IncrementViews(ctx context.Context, id uint) error
	CreateView(ctx context.Context, view *model.PostView) error

	FindRating(ctx context.Context, postID uint, voterKey string) (*model.PostRating, error)
	SaveRating(ctx context.Context, rating *model.PostRating) error
	SetRatingAggregate(ctx context.Context, postID uint, rating float64, votesCount int) error

	AdjustCommentsCount(ctx context.Context, id uint, delta int) error
	AdjustFavoritesCount(ctx context.Context, id uint, delta int) error
	FindFavorite(ctx context.Context, userID, postID uint) (*model.Favorite, error)
	CreateFavorite(ctx context.Context, favorite *model.Favorite) error
	DeleteFavorite(ctx context.Context, favorite *model.Favorite) error

	WithTransaction(ctx context.Context, fn func(ctx context.Context, repo PostRepository) error) error
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository.
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *model.Post) error {
	return r.db.WithContext(ctx).Create(post).Error
}

func (r *postRepository) Update(ctx context.Context, post *model.Post) error {
	return r.db.WithContext(ctx).Save(post).Error
}

func (r *postRepository) Delete(ctx context.Context, post *model.Post) error {
	return r.db.WithContext(ctx).Delete(post).Error
}

func (r *postRepository) FindByID(ctx context.Context, id uint) (*model.Post, error) {
	var post model.Post
	err := retryRead(ctx, func() error {
		return r.db.WithContext(ctx).
			Preload("Author").Preload("Categories").Preload("Tags").
			First(&post, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) FindByIDForUpdate(ctx context.Context, id uint) (*model.Post, error) {
	var post model.Post
	if err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&post, id).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) FindBySlug(ctx context.Context, slug string) (*model.Post, error) {
	var post model.Post
	err := retryRead(ctx, func() error {
		return r.db.WithContext(ctx).
			Preload("Author").Preload("Categories").Preload("Tags").
			Where("slug = ?", slug).First(&post).Error
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Post{}).
		Where("slug = ?", slug).Count(&count).Error
	return count > 0, err
}

func (r *postRepository) List(ctx context.Context, filter PostFilter) ([]model.Post, int64, error) {
	base := r.db.WithContext(ctx).Model(&model.Post{})

	if filter.Published != nil {
		base = base.Where("posts.is_published = ?", *filter.Published)
	}
	if filter.Featured != nil {
		base = base.Where("posts.is_featured = ?", *filter.Featured)
	}
	if filter.AuthorID != 0 {
		base = base.Where("posts.author_id = ?", filter.AuthorID)
	}
	if filter.CategoryID != 0 {
		base = base.Joins("JOIN post_categories pc ON pc.post_id = posts.id").
			Where("pc.category_id = ?", filter.CategoryID)
	}
	if filter.TagSlug != "" {
		base = base.Joins("JOIN post_tags pt ON pt.post_id = posts.id").
			Joins("JOIN tags ON tags.id = pt.tag_id").
			Where("tags.slug = ?", filter.TagSlug)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		base = base.Where("posts.title LIKE ? OR posts.short_content LIKE ? OR posts.full_content LIKE ?", like, like, like)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sortBy := filter.SortBy
	if !postSortColumns[sortBy] {
		sortBy = "created_at"
	}
	order := "DESC"
	if filter.SortOrder == "asc" {
		order = "ASC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	perPage := filter.PerPage
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	var posts []model.Post
	err := base.Session(&gorm.Session{}).
		Preload("Author").Preload("Categories").Preload("Tags").
		Order("posts.is_pinned DESC").
		Order("posts." + sortBy + " " + order).
		Offset((page - 1) * perPage).Limit(perPage).
		Find(&posts).Error
	if err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

// ListRelated returns published posts sharing at least one category with the
// given post, newest first.
func (r *postRepository) ListRelated(ctx context.Context, post *model.Post, limit int) ([]model.Post, error) {
	if len(post.Categories) == 0 {
		return nil, nil
	}
	ids := make([]uint, 0, len(post.Categories))
	for _, c := range post.Categories {
		ids = append(ids, c.ID)
	}

	var posts []model.Post
	err := r.db.WithContext(ctx).
		Preload("Author").Preload("Categories").
		Joins("JOIN post_categories pc ON pc.post_id = posts.id").
		Where("pc.category_id IN ?", ids).
		Where("posts.id <> ? AND posts.is_published = ?", post.ID, true).
		Group("posts.id").
		Order("posts.created_at DESC").
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, err
	}
	return posts, nil
}

func (r *postRepository) ReplaceCategories(ctx context.Context, post *model.Post, categories []model.Category) error {
	return r.db.WithContext(ctx).Model(post).Association("Categories").Replace(categories)
}

func (r *postRepository) ReplaceTags(ctx context.Context, post *model.Post, tags []model.Tag) error {
	return r.db.WithContext(ctx).Model(post).Association("Tags").Replace(tags)
}

func (r *postRepository) FindTagBySlug(ctx context.Context, slug string) (*model.Tag, error) {
	var tag model.Tag
	err := retryRead(ctx, func() error {
		return r.db.WithContext(ctx).Where("slug = ?", slug).First(&tag).Error
	})
	if err != nil {
		return nil, err
	}
	return &tag, nil
}

func (r *postRepository) CreateTag(ctx context.Context, tag *model.Tag) error {
	return r.db.WithContext(ctx).Create(tag).Error
}

func (r *postRepository) ListTags(ctx context.Context, limit int) ([]model.Tag, error) {
	var tags []model.Tag
	err := r.db.WithContext(ctx).Order("posts_count DESC").Limit(limit).Find(&tags).Error
	if err != nil {
		return nil, err
	}
	return tags, nil
}

func (r *postRepository) AdjustTagPostsCount(ctx context.Context, id uint, delta int) error {
	return r.db.WithContext(ctx).Model(&model.Tag{}).Where("id = ?", id).
		Update("posts_count", gorm.Expr("posts_count + ?", delta)).Error
}

// IncrementViews bumps the denormalized view counter with a single atomic
// column expression.
func (r *postRepository) IncrementViews(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&model.Post{}).Where("id = ?", id).
		Update("views_count", gorm.Expr("views_count + 1")).Error
}

func (r *postRepository) CreateView(ctx context.Context, view *model.PostView) error {
	return r.db.WithContext(ctx).Create(view).Error
}

func (r *postRepository) FindRating(ctx context.Context, postID uint, voterKey string) (*model.PostRating, error) {
	var rating model.PostRating
	err := r.db.WithContext(ctx).
		Where("post_id = ? AND voter_key = ?", postID, voterKey).
		First(&rating).Error
	if err != nil {
		return nil, err
	}
	return &rating, nil
}

func (r *postRepository) SaveRating(ctx context.Context, rating *model.PostRating) error {
	return r.db.WithContext(ctx).Save(rating).Error
}

func (r *postRepository) SetRatingAggregate(ctx context.Context, postID uint, rating float64, votesCount int) error {
	return r.db.WithContext(ctx).Model(&model.Post{}).Where("id = ?", postID).
		Updates(map[string]interface{}{"rating": rating, "votes_count": votesCount}).Error
}

func (r *postRepository) AdjustCommentsCount(ctx context.Context, id uint, delta int) error {
	return r.db.WithContext(ctx).Model(&model.Post{}).Where("id = ?", id).
		Update("comments_count", gorm.Expr("comments_count + ?", delta)).Error
}

func (r *postRepository) AdjustFavoritesCount(ctx context.Context, id uint, delta int) error {
	return r.db.WithContext(ctx).Model(&model.Post{}).Where("id = ?", id).
		Update("favorites_count", gorm.Expr("favorites_count + ?", delta)).Error
}

func (r *postRepository) FindFavorite(ctx context.Context, userID, postID uint) (*model.Favorite, error) {
	var favorite model.Favorite
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND post_id = ?", userID, postID).
		First(&favorite).Error
	if err != nil {
		return nil, err
	}
	return &favorite, nil
}

func (r *postRepository) CreateFavorite(ctx context.Context, favorite *model.Favorite) error {
	return r.db.WithContext(ctx).Create(favorite).Error
}

func (r *postRepository) DeleteFavorite(ctx context.Context, favorite *model.Favorite) error {
	return r.db.WithContext(ctx).Delete(favorite).Error
}

// WithTransaction executes a function within a database transaction.
func (r *postRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context, repo PostRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &postRepository{db: tx})
	})
}
