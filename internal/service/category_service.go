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

// CategoryInput carries category create/update fields.
type CategoryInput struct {
	Name        string
	Description string
	ParentID    *uint
	Position    int
	IsActive    bool
	ShowInMenu  bool
}

// TreeEntry pairs a category with its depth in the pre-order projection.
type TreeEntry struct {
	Category model.Category `json:"category"`
	Depth    int            `json:"depth"`
}

// CategoryService maintains the category tree.
type CategoryService interface {
	Create(ctx context.Context, in CategoryInput) (*model.Category, error)
	Update(ctx context.Context, id uint, in CategoryInput) (*model.Category, error)
	Move(ctx context.Context, id uint, parentID *uint) (*model.Category, error)
	Delete(ctx context.Context, id uint) error
	GetBySlug(ctx context.Context, slug string) (*model.Category, error)
	List(ctx context.Context, activeOnly bool) ([]model.Category, error)
	Tree(ctx context.Context, activeOnly bool) ([]TreeEntry, error)
}

type categoryService struct {
	categoryRepo repository.CategoryRepository
}

// NewCategoryService creates a new category service.
func NewCategoryService(categoryRepo repository.CategoryRepository) CategoryService {
	return &categoryService{categoryRepo: categoryRepo}
}

// Create inserts a category, deduplicating the slug and validating the parent.
func (s *categoryService) Create(ctx context.Context, in CategoryInput) (*model.Category, error) {
	if in.ParentID != nil {
		if _, err := s.categoryRepo.FindByID(ctx, *in.ParentID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("parent category: %w", apperrors.ErrNotFound)
			}
			return nil, err
		}
	}

	slug, err := uniqueSlug(ctx, slugify(in.Name), "", s.categoryRepo.SlugExists)
	if err != nil {
		return nil, err
	}

	category := &model.Category{
		Name:        in.Name,
		Slug:        slug,
		Description: in.Description,
		ParentID:    in.ParentID,
		Position:    in.Position,
		IsActive:    in.IsActive,
		ShowInMenu:  in.ShowInMenu,
	}
	if err := s.categoryRepo.Create(ctx, category); err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	return category, nil
}

// Update changes scalar fields; parent changes go through Move.
func (s *categoryService) Update(ctx context.Context, id uint, in CategoryInput) (*model.Category, error) {
	category, err := s.categoryRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}

	if in.Name != "" && in.Name != category.Name {
		slug, err := uniqueSlug(ctx, slugify(in.Name), category.Slug, s.categoryRepo.SlugExists)
		if err != nil {
			return nil, err
		}
		category.Name = in.Name
		category.Slug = slug
	}
	category.Description = in.Description
	category.Position = in.Position
	category.IsActive = in.IsActive
	category.ShowInMenu = in.ShowInMenu

	if err := s.categoryRepo.Update(ctx, category); err != nil {
		return nil, fmt.Errorf("update category: %w", err)
	}
	return category, nil
}

// Move re-parents a category. The candidate parent's ancestor chain is
// walked under row locks inside one transaction; if it contains the moving
// node the move fails with ErrCyclicHierarchy and the tree is untouched.
func (s *categoryService) Move(ctx context.Context, id uint, parentID *uint) (*model.Category, error) {
	var moved *model.Category
	err := s.categoryRepo.WithTransaction(ctx, func(ctx context.Context, repo repository.CategoryRepository) error {
		category, err := repo.FindByIDForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrNotFound
			}
			return err
		}

		if parentID != nil {
			if *parentID == id {
				return apperrors.ErrCyclicHierarchy
			}
			ancestor, err := repo.FindByIDForUpdate(ctx, *parentID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("parent category: %w", apperrors.ErrNotFound)
				}
				return err
			}
			seen := map[uint]bool{ancestor.ID: true}
			for ancestor.ParentID != nil {
				next := *ancestor.ParentID
				if next == id {
					return apperrors.ErrCyclicHierarchy
				}
				if seen[next] {
					// Pre-existing cycle; refuse rather than loop.
					return apperrors.ErrCyclicHierarchy
				}
				seen[next] = true
				ancestor, err = repo.FindByIDForUpdate(ctx, next)
				if err != nil {
					return err
				}
			}
		}

		category.ParentID = parentID
		if err := repo.Update(ctx, category); err != nil {
			return fmt.Errorf("move category: %w", err)
		}
		moved = category
		return nil
	})
	if err != nil {
		return nil, err
	}
	return moved, nil
}

// Delete removes a category; children are re-parented to the deleted node's
// parent so the rest of the subtree stays reachable.
func (s *categoryService) Delete(ctx context.Context, id uint) error {
	return s.categoryRepo.WithTransaction(ctx, func(ctx context.Context, repo repository.CategoryRepository) error {
		category, err := repo.FindByIDForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrNotFound
			}
			return err
		}

		all, err := repo.ListAll(ctx, false)
		if err != nil {
			return err
		}
		for i := range all {
			if all[i].ParentID != nil && *all[i].ParentID == id {
				child := all[i]
				child.ParentID = category.ParentID
				if err := repo.Update(ctx, &child); err != nil {
					return err
				}
			}
		}

		return repo.Delete(ctx, category)
	})
}

func (s *categoryService) GetBySlug(ctx context.Context, slug string) (*model.Category, error) {
	category, err := s.categoryRepo.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return category, nil
}

func (s *categoryService) List(ctx context.Context, activeOnly bool) ([]model.Category, error) {
	return s.categoryRepo.ListAll(ctx, activeOnly)
}

// Tree produces the pre-order projection: one flat fetch ordered by
// (position, name), then an in-memory walk emitting each node with its
// depth. A parent always precedes its children; nodes whose parent is
// missing or filtered out are treated as roots.
func (s *categoryService) Tree(ctx context.Context, activeOnly bool) ([]TreeEntry, error) {
	categories, err := s.categoryRepo.ListAll(ctx, activeOnly)
	if err != nil {
		return nil, err
	}

	present := make(map[uint]bool, len(categories))
	for i := range categories {
		present[categories[i].ID] = true
	}

	children := make(map[uint][]*model.Category)
	var roots []*model.Category
	for i := range categories {
		c := &categories[i]
		if c.ParentID != nil && present[*c.ParentID] {
			children[*c.ParentID] = append(children[*c.ParentID], c)
		} else {
			roots = append(roots, c)
		}
	}

	entries := make([]TreeEntry, 0, len(categories))
	var walk func(node *model.Category, depth int)
	walk = func(node *model.Category, depth int) {
		entries = append(entries, TreeEntry{Category: *node, Depth: depth})
		for _, child := range children[node.ID] {
			walk(child, depth+1)
		}
	}
	for _, root := range roots {
		walk(root, 0)
	}
	return entries, nil
}
