package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repos bundles every repository bound to one transaction handle.
type Repos struct {
	Users      UserRepository
	Posts      PostRepository
	Categories CategoryRepository
	Comments   CommentRepository
}

// TxManager runs multi-repository work inside a single database transaction,
// for writes that must land atomically with the counters they maintain.
type TxManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context, repos Repos) error) error
}

type txManager struct {
	db *gorm.DB
}

// NewTxManager creates a transaction manager over the shared pool.
func NewTxManager(db *gorm.DB) TxManager {
	return &txManager{db: db}
}

func (m *txManager) WithTransaction(ctx context.Context, fn func(ctx context.Context, repos Repos) error) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, Repos{
			Users:      NewUserRepository(tx),
			Posts:      NewPostRepository(tx),
			Categories: NewCategoryRepository(tx),
			Comments:   NewCommentRepository(tx),
		})
	})
}
