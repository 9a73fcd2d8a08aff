package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gocms/internal/model"
)

// CommentRepository defines comment and comment-vote persistence.
type CommentRepository interface {
	Create(ctx context.Context, comment *model.Comment) error
	Update(ctx context.Context, comment *model.Comment) error
	Delete(ctx context.Context, comment *model.Comment) error
	FindByID(ctx context.Context, id uint) (*model.Comment, error)
	FindByIDForUpdate(ctx context.Context, id uint) (*model.Comment, error)
	// ListByPost returns all comments of a post in chronological order,
	// the single fetch backing the in-memory tree grouping.
	ListByPost(ctx context.Context, postID uint, approvedOnly bool) ([]model.Comment, error)
	ListByUser(ctx context.Context, userID uint, offset, limit int) ([]model.Comment, int64, error)

	FindVote(ctx context.Context, commentID uint, voterKey string) (*model.CommentVote, error)
	SaveVote(ctx context.Context, vote *model.CommentVote) error
	DeleteVote(ctx context.Context, vote *model.CommentVote) error
	SetTallies(ctx context.Context, commentID uint, likes, dislikes int) error

	WithTransaction(ctx context.Context, fn func(ctx context.Context, repo CommentRepository) error) error
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new comment repository.
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, comment *model.Comment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

func (r *commentRepository) Update(ctx context.Context, comment *model.Comment) error {
	return r.db.WithContext(ctx).Save(comment).Error
}

func (r *commentRepository) Delete(ctx context.Context, comment *model.Comment) error {
	return r.db.WithContext(ctx).Delete(comment).Error
}

func (r *commentRepository) FindByID(ctx context.Context, id uint) (*model.Comment, error) {
	var comment model.Comment
	err := retryRead(ctx, func() error {
		return r.db.WithContext(ctx).Preload("Author").First(&comment, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

func (r *commentRepository) FindByIDForUpdate(ctx context.Context, id uint) (*model.Comment, error) {
	var comment model.Comment
	if err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&comment, id).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

func (r *commentRepository) ListByPost(ctx context.Context, postID uint, approvedOnly bool) ([]model.Comment, error) {
	var comments []model.Comment
	err := retryRead(ctx, func() error {
		q := r.db.WithContext(ctx).Preload("Author").
			Where("post_id = ?", postID).
			Order("created_at, id")
		if approvedOnly {
			q = q.Where("is_approved = ?", true)
		}
		comments = comments[:0]
		return q.Find(&comments).Error
	})
	if err != nil {
		return nil, err
	}
	return comments, nil
}

func (r *commentRepository) ListByUser(ctx context.Context, userID uint, offset, limit int) ([]model.Comment, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&model.Comment{}).
		Where("author_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var comments []model.Comment
	err := r.db.WithContext(ctx).
		Where("author_id = ?", userID).
		Order("created_at DESC").Offset(offset).Limit(limit).
		Find(&comments).Error
	if err != nil {
		return nil, 0, err
	}
	return comments, total, nil
}

func (r *commentRepository) FindVote(ctx context.Context, commentID uint, voterKey string) (*model.CommentVote, error) {
	var vote model.CommentVote
	err := r.db.WithContext(ctx).
		Where("comment_id = ? AND voter_key = ?", commentID, voterKey).
		First(&vote).Error
	if err != nil {
		return nil, err
	}
	return &vote, nil
}

func (r *commentRepository) SaveVote(ctx context.Context, vote *model.CommentVote) error {
	return r.db.WithContext(ctx).Save(vote).Error
}

func (r *commentRepository) DeleteVote(ctx context.Context, vote *model.CommentVote) error {
	return r.db.WithContext(ctx).Delete(vote).Error
}

func (r *commentRepository) SetTallies(ctx context.Context, commentID uint, likes, dislikes int) error {
	return r.db.WithContext(ctx).Model(&model.Comment{}).Where("id = ?", commentID).
		Updates(map[string]interface{}{"likes_count": likes, "dislikes_count": dislikes}).Error
}

// WithTransaction executes a function within a database transaction.
func (r *commentRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context, repo CommentRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &commentRepository{db: tx})
	})
}
