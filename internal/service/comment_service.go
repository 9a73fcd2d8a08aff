package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"gocms/internal/auth"
	apperrors "gocms/internal/errors"
	"gocms/internal/model"
	"gocms/internal/repository"
)

// CommentInput carries comment creation fields.
type CommentInput struct {
	PostID    uint
	ParentID  *uint
	Content   string
	IPAddress string
	UserAgent string
}

// CommentNode is a comment with its replies nested, as rendered to clients.
type CommentNode struct {
	model.Comment
	Replies []*CommentNode `json:"replies"`
}

// CommentService maintains the per-post comment forest and its vote tallies.
type CommentService interface {
	Create(ctx context.Context, ident *auth.Identity, in CommentInput) (*model.Comment, error)
	Update(ctx context.Context, ident *auth.Identity, id uint, content string) (*model.Comment, error)
	Delete(ctx context.Context, ident *auth.Identity, id uint) error
	Tree(ctx context.Context, postID uint) ([]*CommentNode, error)
	Vote(ctx context.Context, ident *auth.Identity, ip string, commentID uint, value int) (likes, dislikes int, err error)
}

type commentService struct {
	tx          repository.TxManager
	commentRepo repository.CommentRepository
}

// NewCommentService creates a new comment service.
func NewCommentService(tx repository.TxManager, commentRepo repository.CommentRepository) CommentService {
	return &commentService{tx: tx, commentRepo: commentRepo}
}

// Create inserts a comment after validating that the parent, if any, belongs
// to the same post. The insert and the comment counters land in one
// transaction with the post row locked.
func (s *commentService) Create(ctx context.Context, ident *auth.Identity, in CommentInput) (*model.Comment, error) {
	var created *model.Comment
	err := s.tx.WithTransaction(ctx, func(ctx context.Context, repos repository.Repos) error {
		post, err := repos.Posts.FindByIDForUpdate(ctx, in.PostID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("post: %w", apperrors.ErrNotFound)
			}
			return err
		}
		if !post.AllowComments {
			return apperrors.ErrCommentsClosed
		}

		if in.ParentID != nil {
			parent, err := repos.Comments.FindByID(ctx, *in.ParentID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("parent comment: %w", apperrors.ErrNotFound)
				}
				return err
			}
			if parent.PostID != in.PostID {
				return apperrors.ErrInvalidParent
			}
		}

		comment := &model.Comment{
			Content:    in.Content,
			PostID:     in.PostID,
			ParentID:   in.ParentID,
			IsApproved: true,
			IPAddress:  in.IPAddress,
			UserAgent:  truncate(in.UserAgent, 255),
		}
		if ident != nil {
			comment.AuthorID = &ident.UserID
		}
		if err := repos.Comments.Create(ctx, comment); err != nil {
			return fmt.Errorf("create comment: %w", err)
		}
		if err := repos.Posts.AdjustCommentsCount(ctx, in.PostID, 1); err != nil {
			return err
		}
		if ident != nil {
			if err := repos.Users.AdjustCommentsCount(ctx, ident.UserID, 1); err != nil {
				return err
			}
		}
		created = comment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Update edits a comment's content; allowed for the author or holders of the
// edit-comments capability.
func (s *commentService) Update(ctx context.Context, ident *auth.Identity, id uint, content string) (*model.Comment, error) {
	var updated *model.Comment
	err := s.tx.WithTransaction(ctx, func(ctx context.Context, repos repository.Repos) error {
		comment, err := repos.Comments.FindByIDForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrNotFound
			}
			return err
		}
		if !canTouchComment(ident, comment, model.CapEditComments) {
			return apperrors.ErrForbidden
		}
		comment.Content = content
		if err := repos.Comments.Update(ctx, comment); err != nil {
			return err
		}
		updated = comment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete soft-deletes a comment and decrements the derived counters in the
// same transaction.
func (s *commentService) Delete(ctx context.Context, ident *auth.Identity, id uint) error {
	return s.tx.WithTransaction(ctx, func(ctx context.Context, repos repository.Repos) error {
		comment, err := repos.Comments.FindByIDForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrNotFound
			}
			return err
		}
		if !canTouchComment(ident, comment, model.CapDeleteComments) {
			return apperrors.ErrForbidden
		}
		if err := repos.Comments.Delete(ctx, comment); err != nil {
			return err
		}
		if err := repos.Posts.AdjustCommentsCount(ctx, comment.PostID, -1); err != nil {
			return err
		}
		if comment.AuthorID != nil {
			if err := repos.Users.AdjustCommentsCount(ctx, *comment.AuthorID, -1); err != nil {
				return err
			}
		}
		return nil
	})
}

// Tree fetches all of a post's comments in one query and groups them by
// parent in memory; siblings stay chronological. Replies whose parent was
// removed surface at the top level rather than disappearing.
func (s *commentService) Tree(ctx context.Context, postID uint) ([]*CommentNode, error) {
	comments, err := s.commentRepo.ListByPost(ctx, postID, true)
	if err != nil {
		return nil, err
	}

	nodes := make(map[uint]*CommentNode, len(comments))
	for i := range comments {
		nodes[comments[i].ID] = &CommentNode{Comment: comments[i]}
	}

	roots := make([]*CommentNode, 0, len(comments))
	for i := range comments {
		node := nodes[comments[i].ID]
		if pid := comments[i].ParentID; pid != nil {
			if parent, ok := nodes[*pid]; ok {
				parent.Replies = append(parent.Replies, node)
				continue
			}
		}
		roots = append(roots, node)
	}
	return roots, nil
}

// Vote upserts a like/dislike for one (voter, comment) pair. value is +1,
// -1, or 0 to withdraw. The comment row is locked so the tallies move by the
// exact old-to-new delta even under concurrent votes.
func (s *commentService) Vote(ctx context.Context, ident *auth.Identity, ip string, commentID uint, value int) (int, int, error) {
	var likes, dislikes int
	err := s.tx.WithTransaction(ctx, func(ctx context.Context, repos repository.Repos) error {
		comment, err := repos.Comments.FindByIDForUpdate(ctx, commentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrNotFound
			}
			return err
		}

		key := voterKey(ident, ip)
		likes, dislikes = comment.LikesCount, comment.DislikesCount

		existing, err := repos.Comments.FindVote(ctx, commentID, key)
		switch {
		case err == nil:
			old := existing.Vote
			if value == 0 {
				if err := repos.Comments.DeleteVote(ctx, existing); err != nil {
					return err
				}
			} else if value != old {
				existing.Vote = value
				if err := repos.Comments.SaveVote(ctx, existing); err != nil {
					return err
				}
			} else {
				return nil // same vote resubmitted, nothing to do
			}
			if old == 1 {
				likes--
			} else {
				dislikes--
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			if value == 0 {
				return nil
			}
			vote := &model.CommentVote{
				CommentID: commentID,
				VoterKey:  key,
				IPAddress: ip,
				Vote:      value,
			}
			if ident != nil {
				vote.UserID = &ident.UserID
			}
			if err := repos.Comments.SaveVote(ctx, vote); err != nil {
				return err
			}
		default:
			return err
		}

		if value == 1 {
			likes++
		} else if value == -1 {
			dislikes++
		}
		return repos.Comments.SetTallies(ctx, commentID, likes, dislikes)
	})
	if err != nil {
		return 0, 0, err
	}
	return likes, dislikes, nil
}

func canTouchComment(ident *auth.Identity, comment *model.Comment, cap model.Capability) bool {
	if ident == nil {
		return false
	}
	if comment.AuthorID != nil && *comment.AuthorID == ident.UserID {
		return true
	}
	return ident.Can(cap)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
