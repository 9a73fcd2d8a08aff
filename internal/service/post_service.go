package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"gocms/internal/auth"
	"gocms/internal/cache"
	apperrors "gocms/internal/errors"
	"gocms/internal/model"
	"gocms/internal/repository"
)

// PostInput carries post create/update fields.
type PostInput struct {
	Title         string
	ShortContent  string
	FullContent   string
	Thumbnail     string
	IsPublished   bool
	IsFeatured    bool
	IsPinned      bool
	AllowComments bool
	PublishDate   *time.Time

	MetaTitle       string
	MetaDescription string
	MetaKeywords    string

	CategoryIDs []uint
	Tags        []string
}

// PostService handles posts, tags, ratings, views and favorites.
type PostService interface {
	Create(ctx context.Context, ident *auth.Identity, in PostInput) (*model.Post, error)
	Update(ctx context.Context, ident *auth.Identity, id uint, in PostInput) (*model.Post, error)
	Delete(ctx context.Context, ident *auth.Identity, id uint) error
	GetBySlug(ctx context.Context, slug string) (*model.Post, error)
	GetByID(ctx context.Context, id uint) (*model.Post, error)
	List(ctx context.Context, filter repository.PostFilter) ([]model.Post, int64, error)
	ListRelated(ctx context.Context, post *model.Post, limit int) ([]model.Post, error)
	ListTags(ctx context.Context, limit int) ([]model.Tag, error)

	Rate(ctx context.Context, ident *auth.Identity, ip string, postID uint, value int) (rating float64, votes int, err error)
	TrackView(ctx context.Context, postID uint, ident *auth.Identity, ip, userAgent, referer string) (counted bool, err error)
	ToggleFavorite(ctx context.Context, ident *auth.Identity, postID uint) (favorited bool, err error)
}

type postService struct {
	tx         repository.TxManager
	postRepo   repository.PostRepository
	cache      *cache.Client
	viewWindow time.Duration
}

// NewPostService creates a new post service.
func NewPostService(tx repository.TxManager, postRepo repository.PostRepository, cache *cache.Client, viewWindow time.Duration) PostService {
	return &postService{
		tx:         tx,
		postRepo:   postRepo,
		cache:      cache,
		viewWindow: viewWindow,
	}
}

// Create inserts a post with a deduplicated slug and wires categories and
// tags; the per-category, per-tag and per-author counters move in the same
// transaction.
func (s *postService) Create(ctx context.Context, ident *auth.Identity, in PostInput) (*model.Post, error) {
	var created *model.Post
	err := s.tx.WithTransaction(ctx, func(ctx context.Context, repos repository.Repos) error {
		slug, err := uniqueSlug(ctx, slugify(in.Title), "", repos.Posts.SlugExists)
		if err != nil {
			return err
		}

		post := &model.Post{
			Title:           in.Title,
			Slug:            slug,
			ShortContent:    in.ShortContent,
			FullContent:     in.FullContent,
			Thumbnail:       in.Thumbnail,
			AuthorID:        ident.UserID,
			IsPublished:     in.IsPublished,
			IsFeatured:      in.IsFeatured,
			IsPinned:        in.IsPinned,
			AllowComments:   in.AllowComments,
			PublishDate:     in.PublishDate,
			MetaTitle:       in.MetaTitle,
			MetaDescription: in.MetaDescription,
			MetaKeywords:    in.MetaKeywords,
		}
		if err := repos.Posts.Create(ctx, post); err != nil {
			return fmt.Errorf("create post: %w", err)
		}

		if err := s.setCategories(ctx, repos, post, in.CategoryIDs, nil); err != nil {
			return err
		}
		if err := s.setTags(ctx, repos, post, in.Tags, nil); err != nil {
			return err
		}
		if err := repos.Users.AdjustPostsCount(ctx, ident.UserID, 1); err != nil {
			return err
		}
		created = post
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidateListings(ctx)
	return created, nil
}

// Update edits a post; allowed for the author or holders of the edit-posts
// capability. A title change re-runs slug dedup; category and tag changes
// adjust the affected counters by the set difference.
func (s *postService) Update(ctx context.Context, ident *auth.Identity, id uint, in PostInput) (*model.Post, error) {
	var updated *model.Post
	err := s.tx.WithTransaction(ctx, func(ctx context.Context, repos repository.Repos) error {
		post, err := repos.Posts.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrNotFound
			}
			return err
		}
		if post.AuthorID != ident.UserID && !ident.Can(model.CapEditPosts) {
			return apperrors.ErrForbidden
		}

		if in.Title != "" && in.Title != post.Title {
			slug, err := uniqueSlug(ctx, slugify(in.Title), post.Slug, repos.Posts.SlugExists)
			if err != nil {
				return err
			}
			post.Title = in.Title
			post.Slug = slug
		}
		post.ShortContent = in.ShortContent
		post.FullContent = in.FullContent
		post.Thumbnail = in.Thumbnail
		post.IsPublished = in.IsPublished
		post.IsFeatured = in.IsFeatured
		post.IsPinned = in.IsPinned
		post.AllowComments = in.AllowComments
		post.PublishDate = in.PublishDate
		post.MetaTitle = in.MetaTitle
		post.MetaDescription = in.MetaDescription
		post.MetaKeywords = in.MetaKeywords

		oldCategories := post.Categories
		oldTags := post.Tags

		if err := repos.Posts.Update(ctx, post); err != nil {
			return fmt.Errorf("update post: %w", err)
		}
		if err := s.setCategories(ctx, repos, post, in.CategoryIDs, oldCategories); err != nil {
			return err
		}
		if err := s.setTags(ctx, repos, post, in.Tags, oldTags); err != nil {
			return err
		}
		updated = post
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidateListings(ctx)
	return updated, nil
}

// Delete soft-deletes a post; allowed for the author or holders of the
// delete-posts capability. Category, tag and author counters drop in the
// same transaction.
func (s *postService) Delete(ctx context.Context, ident *auth.Identity, id uint) error {
	err := s.tx.WithTransaction(ctx, func(ctx context.Context, repos repository.Repos) error {
		post, err := repos.Posts.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrNotFound
			}
			return err
		}
		if post.AuthorID != ident.UserID && !ident.Can(model.CapDeletePosts) {
			return apperrors.ErrForbidden
		}

		for _, c := range post.Categories {
			if err := repos.Categories.AdjustPostsCount(ctx, c.ID, -1); err != nil {
				return err
			}
		}
		for _, t := range post.Tags {
			if err := repos.Posts.AdjustTagPostsCount(ctx, t.ID, -1); err != nil {
				return err
			}
		}
		if err := repos.Users.AdjustPostsCount(ctx, post.AuthorID, -1); err != nil {
			return err
		}
		return repos.Posts.Delete(ctx, post)
	})
	if err != nil {
		return err
	}
	s.invalidateListings(ctx)
	return nil
}

func (s *postService) GetBySlug(ctx context.Context, slug string) (*model.Post, error) {
	post, err := s.postRepo.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return post, nil
}

func (s *postService) GetByID(ctx context.Context, id uint) (*model.Post, error) {
	post, err := s.postRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return post, nil
}

// List serves listings through a short-lived cache copy; every content
// write invalidates the whole prefix, so the store stays the source of truth.
func (s *postService) List(ctx context.Context, filter repository.PostFilter) ([]model.Post, int64, error) {
	key := listCacheKey(filter)
	if data, _ := s.cache.Get(ctx, key); data != nil {
		var cached postListing
		if err := json.Unmarshal(data, &cached); err == nil {
			return cached.Posts, cached.Total, nil
		}
	}

	posts, total, err := s.postRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	if data, err := json.Marshal(postListing{Posts: posts, Total: total}); err == nil {
		_ = s.cache.Set(ctx, key, data, listCacheTTL)
	}
	return posts, total, nil
}

type postListing struct {
	Posts []model.Post `json:"posts"`
	Total int64        `json:"total"`
}

const listCacheTTL = time.Minute

func listCacheKey(f repository.PostFilter) string {
	published, featured := "", ""
	if f.Published != nil {
		published = fmt.Sprintf("%t", *f.Published)
	}
	if f.Featured != nil {
		featured = fmt.Sprintf("%t", *f.Featured)
	}
	return fmt.Sprintf("posts:list:%d:%d:%d:%s:%d:%s:%s:%s:%s:%s",
		f.Page, f.PerPage, f.CategoryID, f.TagSlug, f.AuthorID, f.Search,
		published, featured, f.SortBy, f.SortOrder)
}

func (s *postService) ListRelated(ctx context.Context, post *model.Post, limit int) ([]model.Post, error) {
	return s.postRepo.ListRelated(ctx, post, limit)
}

func (s *postService) ListTags(ctx context.Context, limit int) ([]model.Tag, error) {
	return s.postRepo.ListTags(ctx, limit)
}

// Rate upserts a 1..5 rating for one (voter, post) pair. The post row is
// locked and the average moves by the old-to-new delta, so a double
// submission replaces rather than double-counts and concurrent distinct
// voters both land.
func (s *postService) Rate(ctx context.Context, ident *auth.Identity, ip string, postID uint, value int) (float64, int, error) {
	var rating float64
	var votes int
	err := s.tx.WithTransaction(ctx, func(ctx context.Context, repos repository.Repos) error {
		post, err := repos.Posts.FindByIDForUpdate(ctx, postID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrNotFound
			}
			return err
		}

		key := voterKey(ident, ip)
		existing, err := repos.Posts.FindRating(ctx, postID, key)
		switch {
		case err == nil:
			old := existing.Rating
			existing.Rating = value
			if err := repos.Posts.SaveRating(ctx, existing); err != nil {
				return err
			}
			votes = post.VotesCount
			if votes < 1 {
				// A rating row survived a zeroed counter; rebuild from
				// this vote instead of dividing by zero.
				votes = 1
				rating = float64(value)
			} else {
				rating = (post.Rating*float64(votes) - float64(old) + float64(value)) / float64(votes)
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			record := &model.PostRating{
				PostID:    postID,
				VoterKey:  key,
				IPAddress: ip,
				Rating:    value,
			}
			if ident != nil {
				record.UserID = &ident.UserID
			}
			if err := repos.Posts.SaveRating(ctx, record); err != nil {
				return err
			}
			votes = post.VotesCount + 1
			rating = (post.Rating*float64(post.VotesCount) + float64(value)) / float64(votes)
		default:
			return err
		}

		return repos.Posts.SetRatingAggregate(ctx, postID, rating, votes)
	})
	if err != nil {
		return 0, 0, err
	}
	return rating, votes, nil
}

// TrackView counts one view per viewer per dedup window. The redis bucket
// claim happens first; only the claiming request inserts the analytics row
// and bumps the counter, both in one transaction.
func (s *postService) TrackView(ctx context.Context, postID uint, ident *auth.Identity, ip, userAgent, referer string) (bool, error) {
	if _, err := s.GetByID(ctx, postID); err != nil {
		return false, err
	}

	bucket := fmt.Sprintf("view:%d:%s", postID, voterKey(ident, ip))
	claimed, err := s.cache.SetNX(ctx, bucket, []byte("1"), s.viewWindow)
	if err != nil || !claimed {
		return false, err
	}

	err = s.tx.WithTransaction(ctx, func(ctx context.Context, repos repository.Repos) error {
		view := &model.PostView{
			PostID:    postID,
			IPAddress: ip,
			UserAgent: truncate(userAgent, 255),
			Referer:   truncate(referer, 255),
		}
		if ident != nil {
			view.UserID = &ident.UserID
		}
		if err := repos.Posts.CreateView(ctx, view); err != nil {
			return err
		}
		return repos.Posts.IncrementViews(ctx, postID)
	})
	if err != nil {
		// The write never landed; release the bucket so the viewer's next
		// attempt inside the window still counts.
		_ = s.cache.Delete(ctx, bucket)
		return false, err
	}
	return true, nil
}

// ToggleFavorite bookmarks a post or removes an existing bookmark.
func (s *postService) ToggleFavorite(ctx context.Context, ident *auth.Identity, postID uint) (bool, error) {
	var favorited bool
	err := s.tx.WithTransaction(ctx, func(ctx context.Context, repos repository.Repos) error {
		if _, err := repos.Posts.FindByIDForUpdate(ctx, postID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrNotFound
			}
			return err
		}

		existing, err := repos.Posts.FindFavorite(ctx, ident.UserID, postID)
		switch {
		case err == nil:
			if err := repos.Posts.DeleteFavorite(ctx, existing); err != nil {
				return err
			}
			return repos.Posts.AdjustFavoritesCount(ctx, postID, -1)
		case errors.Is(err, gorm.ErrRecordNotFound):
			favorite := &model.Favorite{UserID: ident.UserID, PostID: postID}
			if err := repos.Posts.CreateFavorite(ctx, favorite); err != nil {
				return err
			}
			favorited = true
			return repos.Posts.AdjustFavoritesCount(ctx, postID, 1)
		default:
			return err
		}
	})
	if err != nil {
		return false, err
	}
	return favorited, nil
}

// setCategories replaces a post's category set and adjusts the per-category
// post counters by the difference between old and new.
func (s *postService) setCategories(ctx context.Context, repos repository.Repos, post *model.Post, ids []uint, old []model.Category) error {
	oldSet := make(map[uint]bool, len(old))
	for _, c := range old {
		oldSet[c.ID] = true
	}

	categories := make([]model.Category, 0, len(ids))
	newSet := make(map[uint]bool, len(ids))
	for _, id := range ids {
		category, err := repos.Categories.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("category %d: %w", id, apperrors.ErrNotFound)
			}
			return err
		}
		categories = append(categories, *category)
		newSet[id] = true
	}

	if err := repos.Posts.ReplaceCategories(ctx, post, categories); err != nil {
		return fmt.Errorf("set categories: %w", err)
	}

	for id := range newSet {
		if !oldSet[id] {
			if err := repos.Categories.AdjustPostsCount(ctx, id, 1); err != nil {
				return err
			}
		}
	}
	for id := range oldSet {
		if !newSet[id] {
			if err := repos.Categories.AdjustPostsCount(ctx, id, -1); err != nil {
				return err
			}
		}
	}
	post.Categories = categories
	return nil
}

// setTags replaces a post's tags, creating missing ones, and adjusts the
// per-tag counters by the difference.
func (s *postService) setTags(ctx context.Context, repos repository.Repos, post *model.Post, names []string, old []model.Tag) error {
	oldSet := make(map[uint]bool, len(old))
	for _, t := range old {
		oldSet[t.ID] = true
	}

	tags := make([]model.Tag, 0, len(names))
	newSet := make(map[uint]bool, len(names))
	for _, name := range names {
		slug := slugify(name)
		tag, err := repos.Posts.FindTagBySlug(ctx, slug)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			tag = &model.Tag{Name: name, Slug: slug}
			if err := repos.Posts.CreateTag(ctx, tag); err != nil {
				return fmt.Errorf("create tag: %w", err)
			}
		} else if err != nil {
			return err
		}
		if newSet[tag.ID] {
			continue
		}
		tags = append(tags, *tag)
		newSet[tag.ID] = true
	}

	if err := repos.Posts.ReplaceTags(ctx, post, tags); err != nil {
		return fmt.Errorf("set tags: %w", err)
	}

	for id := range newSet {
		if !oldSet[id] {
			if err := repos.Posts.AdjustTagPostsCount(ctx, id, 1); err != nil {
				return err
			}
		}
	}
	for id := range oldSet {
		if !newSet[id] {
			if err := repos.Posts.AdjustTagPostsCount(ctx, id, -1); err != nil {
				return err
			}
		}
	}
	post.Tags = tags
	return nil
}

// invalidateListings drops read-through copies of listing responses after a
// content write.
func (s *postService) invalidateListings(ctx context.Context) {
	_ = s.cache.DeleteByPrefix(ctx, "posts:list:")
}
