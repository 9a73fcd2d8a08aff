package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"

	"gocms/internal/auth"
	apperrors "gocms/internal/errors"
	"gocms/internal/model"
	"gocms/internal/repository"
)

func commentTestEnv() (*MockUserRepository, *MockPostRepository, *MockCommentRepository, CommentService) {
	userRepo := new(MockUserRepository)
	postRepo := new(MockPostRepository)
	commentRepo := new(MockCommentRepository)
	tx := &stubTxManager{repos: repository.Repos{
		Users:    userRepo,
		Posts:    postRepo,
		Comments: commentRepo,
	}}
	return userRepo, postRepo, commentRepo, NewCommentService(tx, commentRepo)
}

func TestCommentService_Create(t *testing.T) {
	t.Run("parent from another post rejected", func(t *testing.T) {
		_, postRepo, commentRepo, svc := commentTestEnv()
		postRepo.On("FindByIDForUpdate", mock.Anything, uint(10)).
			Return(&model.Post{ID: 10, AllowComments: true}, nil)
		commentRepo.On("FindByID", mock.Anything, uint(5)).
			Return(&model.Comment{ID: 5, PostID: 99}, nil)

		comment, err := svc.Create(context.Background(), &auth.Identity{UserID: 1}, CommentInput{
			PostID:   10,
			ParentID: uintPtr(5),
			Content:  "reply",
		})
		assert.ErrorIs(t, err, apperrors.ErrInvalidParent)
		assert.Nil(t, comment)
		commentRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("comments closed", func(t *testing.T) {
		_, postRepo, commentRepo, svc := commentTestEnv()
		postRepo.On("FindByIDForUpdate", mock.Anything, uint(10)).
			Return(&model.Post{ID: 10, AllowComments: false}, nil)

		comment, err := svc.Create(context.Background(), &auth.Identity{UserID: 1}, CommentInput{
			PostID:  10,
			Content: "too late",
		})
		assert.ErrorIs(t, err, apperrors.ErrCommentsClosed)
		assert.Nil(t, comment)
		commentRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("missing post", func(t *testing.T) {
		_, postRepo, _, svc := commentTestEnv()
		postRepo.On("FindByIDForUpdate", mock.Anything, uint(404)).Return(nil, gorm.ErrRecordNotFound)

		comment, err := svc.Create(context.Background(), nil, CommentInput{PostID: 404, Content: "hi"})
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
		assert.Nil(t, comment)
	})

	t.Run("authenticated comment adjusts both counters", func(t *testing.T) {
		userRepo, postRepo, commentRepo, svc := commentTestEnv()
		postRepo.On("FindByIDForUpdate", mock.Anything, uint(10)).
			Return(&model.Post{ID: 10, AllowComments: true}, nil)
		commentRepo.On("Create", mock.Anything, mock.AnythingOfType("*model.Comment")).Return(nil)
		postRepo.On("AdjustCommentsCount", mock.Anything, uint(10), 1).Return(nil)
		userRepo.On("AdjustCommentsCount", mock.Anything, uint(7), 1).Return(nil)

		comment, err := svc.Create(context.Background(), &auth.Identity{UserID: 7}, CommentInput{
			PostID:    10,
			Content:   "nice post",
			IPAddress: "10.0.0.1",
		})
		assert.NoError(t, err)
		assert.Equal(t, uint(7), *comment.AuthorID)
		assert.True(t, comment.IsApproved)
		userRepo.AssertExpectations(t)
		postRepo.AssertExpectations(t)
		commentRepo.AssertExpectations(t)
	})

	t.Run("guest comment skips the user counter", func(t *testing.T) {
		userRepo, postRepo, commentRepo, svc := commentTestEnv()
		postRepo.On("FindByIDForUpdate", mock.Anything, uint(10)).
			Return(&model.Post{ID: 10, AllowComments: true}, nil)
		commentRepo.On("Create", mock.Anything, mock.AnythingOfType("*model.Comment")).Return(nil)
		postRepo.On("AdjustCommentsCount", mock.Anything, uint(10), 1).Return(nil)

		comment, err := svc.Create(context.Background(), nil, CommentInput{PostID: 10, Content: "anon"})
		assert.NoError(t, err)
		assert.Nil(t, comment.AuthorID)
		userRepo.AssertNotCalled(t, "AdjustCommentsCount", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestCommentService_Tree(t *testing.T) {
	// Flat chronological fetch; grouping happens in memory. Comment 4's
	// parent (99) is gone, so it surfaces at the top level.
	comments := []model.Comment{
		{ID: 1, PostID: 10, Content: "first"},
		{ID: 2, PostID: 10, Content: "reply to first", ParentID: uintPtr(1)},
		{ID: 3, PostID: 10, Content: "second"},
		{ID: 4, PostID: 10, Content: "orphaned reply", ParentID: uintPtr(99)},
		{ID: 5, PostID: 10, Content: "nested reply", ParentID: uintPtr(2)},
	}

	_, _, commentRepo, svc := commentTestEnv()
	commentRepo.On("ListByPost", mock.Anything, uint(10), true).Return(comments, nil)

	tree, err := svc.Tree(context.Background(), 10)
	assert.NoError(t, err)
	assert.Len(t, tree, 3)
	assert.Equal(t, uint(1), tree[0].ID)
	assert.Equal(t, uint(3), tree[1].ID)
	assert.Equal(t, uint(4), tree[2].ID)

	assert.Len(t, tree[0].Replies, 1)
	assert.Equal(t, uint(2), tree[0].Replies[0].ID)
	assert.Len(t, tree[0].Replies[0].Replies, 1)
	assert.Equal(t, uint(5), tree[0].Replies[0].Replies[0].ID)
}

func TestCommentService_Vote(t *testing.T) {
	ident := &auth.Identity{UserID: 7}

	t.Run("first vote", func(t *testing.T) {
		_, _, commentRepo, svc := commentTestEnv()
		commentRepo.On("FindByIDForUpdate", mock.Anything, uint(1)).
			Return(&model.Comment{ID: 1, LikesCount: 2, DislikesCount: 0}, nil)
		commentRepo.On("FindVote", mock.Anything, uint(1), "user:7").Return(nil, gorm.ErrRecordNotFound)
		commentRepo.On("SaveVote", mock.Anything, mock.MatchedBy(func(v *model.CommentVote) bool {
			return v.Vote == 1 && v.VoterKey == "user:7"
		})).Return(nil)
		commentRepo.On("SetTallies", mock.Anything, uint(1), 3, 0).Return(nil)

		likes, dislikes, err := svc.Vote(context.Background(), ident, "10.0.0.1", 1, 1)
		assert.NoError(t, err)
		assert.Equal(t, 3, likes)
		assert.Equal(t, 0, dislikes)
		commentRepo.AssertExpectations(t)
	})

	t.Run("changed vote moves both tallies", func(t *testing.T) {
		_, _, commentRepo, svc := commentTestEnv()
		commentRepo.On("FindByIDForUpdate", mock.Anything, uint(1)).
			Return(&model.Comment{ID: 1, LikesCount: 3, DislikesCount: 1}, nil)
		commentRepo.On("FindVote", mock.Anything, uint(1), "user:7").
			Return(&model.CommentVote{ID: 50, CommentID: 1, VoterKey: "user:7", Vote: 1}, nil)
		commentRepo.On("SaveVote", mock.Anything, mock.MatchedBy(func(v *model.CommentVote) bool {
			return v.ID == 50 && v.Vote == -1
		})).Return(nil)
		commentRepo.On("SetTallies", mock.Anything, uint(1), 2, 2).Return(nil)

		likes, dislikes, err := svc.Vote(context.Background(), ident, "", 1, -1)
		assert.NoError(t, err)
		assert.Equal(t, 2, likes)
		assert.Equal(t, 2, dislikes)
	})

	t.Run("same vote resubmitted is a no-op", func(t *testing.T) {
		_, _, commentRepo, svc := commentTestEnv()
		commentRepo.On("FindByIDForUpdate", mock.Anything, uint(1)).
			Return(&model.Comment{ID: 1, LikesCount: 3}, nil)
		commentRepo.On("FindVote", mock.Anything, uint(1), "user:7").
			Return(&model.CommentVote{ID: 50, CommentID: 1, Vote: 1}, nil)

		likes, dislikes, err := svc.Vote(context.Background(), ident, "", 1, 1)
		assert.NoError(t, err)
		assert.Equal(t, 3, likes)
		assert.Equal(t, 0, dislikes)
		commentRepo.AssertNotCalled(t, "SaveVote", mock.Anything, mock.Anything)
		commentRepo.AssertNotCalled(t, "SetTallies", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("withdrawal deletes the vote", func(t *testing.T) {
		_, _, commentRepo, svc := commentTestEnv()
		existing := &model.CommentVote{ID: 50, CommentID: 1, Vote: 1}
		commentRepo.On("FindByIDForUpdate", mock.Anything, uint(1)).
			Return(&model.Comment{ID: 1, LikesCount: 3}, nil)
		commentRepo.On("FindVote", mock.Anything, uint(1), "user:7").Return(existing, nil)
		commentRepo.On("DeleteVote", mock.Anything, existing).Return(nil)
		commentRepo.On("SetTallies", mock.Anything, uint(1), 2, 0).Return(nil)

		likes, dislikes, err := svc.Vote(context.Background(), ident, "", 1, 0)
		assert.NoError(t, err)
		assert.Equal(t, 2, likes)
		assert.Equal(t, 0, dislikes)
	})

	t.Run("anonymous voter keyed by ip", func(t *testing.T) {
		_, _, commentRepo, svc := commentTestEnv()
		commentRepo.On("FindByIDForUpdate", mock.Anything, uint(1)).
			Return(&model.Comment{ID: 1}, nil)
		commentRepo.On("FindVote", mock.Anything, uint(1), "ip:203.0.113.9").Return(nil, gorm.ErrRecordNotFound)
		commentRepo.On("SaveVote", mock.Anything, mock.MatchedBy(func(v *model.CommentVote) bool {
			return v.VoterKey == "ip:203.0.113.9" && v.UserID == nil
		})).Return(nil)
		commentRepo.On("SetTallies", mock.Anything, uint(1), 1, 0).Return(nil)

		likes, _, err := svc.Vote(context.Background(), nil, "203.0.113.9", 1, 1)
		assert.NoError(t, err)
		assert.Equal(t, 1, likes)
	})
}

func TestCommentService_UpdateAuthorization(t *testing.T) {
	tests := []struct {
		name    string
		ident   *auth.Identity
		comment *model.Comment
		wantErr error
	}{
		{
			name:    "author edits own comment",
			ident:   &auth.Identity{UserID: 7},
			comment: &model.Comment{ID: 1, AuthorID: uintPtr(7)},
		},
		{
			name:    "moderator edits someone else's comment",
			ident:   &auth.Identity{UserID: 8, Permissions: model.PermissionSet{CanEditComments: true}},
			comment: &model.Comment{ID: 1, AuthorID: uintPtr(7)},
		},
		{
			name:    "unrelated user rejected",
			ident:   &auth.Identity{UserID: 8},
			comment: &model.Comment{ID: 1, AuthorID: uintPtr(7)},
			wantErr: apperrors.ErrForbidden,
		},
		{
			name:    "anonymous rejected",
			ident:   nil,
			comment: &model.Comment{ID: 1},
			wantErr: apperrors.ErrForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, commentRepo, svc := commentTestEnv()
			commentRepo.On("FindByIDForUpdate", mock.Anything, uint(1)).Return(tt.comment, nil)
			if tt.wantErr == nil {
				commentRepo.On("Update", mock.Anything, tt.comment).Return(nil)
			}

			updated, err := svc.Update(context.Background(), tt.ident, 1, "edited")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, updated)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, "edited", updated.Content)
			}
		})
	}
}
