// Package categories provides database operations for the catalog's
// category tree.
//
// Parent links form a tree: a category may reference one active parent, the
// graph must stay acyclic, and deletion is a soft delete so historical book
// references remain resolvable.
package categories

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/mrlokans/circulation/internal/database"
	"github.com/mrlokans/circulation/internal/entities"
)

var (
	ErrCategoryNotFound = errors.New("category not found")
	ErrParentNotFound   = errors.New("parent category not found")
	ErrCategoryCycle    = errors.New("category cannot be its own ancestor")
	ErrHasSubcategories = errors.New("cannot delete category that has subcategories")
	ErrCategoryInUse    = errors.New("cannot delete category that is assigned to books")
	ErrNameTaken        = errors.New("category with this name already exists")
)

// maxDepth bounds the ancestor walk; a legitimate tree never gets close.
const maxDepth = 64

// Repository handles all category database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new categories repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) conn(ctx context.Context) *gorm.DB {
	return database.FromContext(ctx, r.db)
}

// CreateCategory adds a category, optionally parented to an existing active
// one.
func (r *Repository) CreateCategory(ctx context.Context, category *entities.Category) error {
	category.IsActive = true

	if taken, err := r.nameTaken(ctx, category.Name, 0); err != nil {
		return err
	} else if taken {
		return ErrNameTaken
	}

	if category.ParentID != nil {
		if _, err := r.activeByID(ctx, *category.ParentID); err != nil {
			if errors.Is(err, ErrCategoryNotFound) {
				return ErrParentNotFound
			}
			return err
		}
	}

	if err := r.conn(ctx).Create(category).Error; err != nil {
		return fmt.Errorf("failed to create category: %w", err)
	}
	return nil
}

// UpdateCategory applies name/description/sort changes and reparenting.
// Reparenting walks the proposed ancestor chain to keep the tree acyclic:
// the original system only rejected direct self-parenting, but this
// hierarchy supports moving whole subtrees, so the full walk is required.
func (r *Repository) UpdateCategory(ctx context.Context, id uint, updates CategoryUpdate) (*entities.Category, error) {
	category, err := r.GetCategoryByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if updates.Name != nil && *updates.Name != category.Name {
		if taken, err := r.nameTaken(ctx, *updates.Name, id); err != nil {
			return nil, err
		} else if taken {
			return nil, ErrNameTaken
		}
		category.Name = *updates.Name
	}
	if updates.Description != nil {
		category.Description = *updates.Description
	}
	if updates.SortOrder != nil {
		category.SortOrder = *updates.SortOrder
	}

	if updates.ParentID != nil {
		newParent := *updates.ParentID
		if newParent == nil {
			category.ParentID = nil
		} else {
			if *newParent == id {
				return nil, ErrCategoryCycle
			}
			if _, err := r.activeByID(ctx, *newParent); err != nil {
				if errors.Is(err, ErrCategoryNotFound) {
					return nil, ErrParentNotFound
				}
				return nil, err
			}
			cyclic, err := r.wouldCreateCycle(ctx, id, *newParent)
			if err != nil {
				return nil, err
			}
			if cyclic {
				return nil, ErrCategoryCycle
			}
			category.ParentID = newParent
		}
	}

	if err := r.conn(ctx).Save(category).Error; err != nil {
		return nil, fmt.Errorf("failed to update category %d: %w", id, err)
	}
	return category, nil
}

// DeleteCategory soft-deletes a category. Blocked while active
// subcategories point at it or any book is filed under it.
func (r *Repository) DeleteCategory(ctx context.Context, id uint) error {
	if _, err := r.GetCategoryByID(ctx, id); err != nil {
		return err
	}

	var subcategories int64
	err := r.conn(ctx).Model(&entities.Category{}).
		Where("parent_id = ? AND is_active = ?", id, true).
		Count(&subcategories).Error
	if err != nil {
		return fmt.Errorf("failed to count subcategories of %d: %w", id, err)
	}
	if subcategories > 0 {
		return ErrHasSubcategories
	}

	var books int64
	err = r.conn(ctx).Table("book_categories").Where("category_id = ?", id).Count(&books).Error
	if err != nil {
		return fmt.Errorf("failed to count books in category %d: %w", id, err)
	}
	if books > 0 {
		return ErrCategoryInUse
	}

	res := r.conn(ctx).Model(&entities.Category{}).Where("id = ?", id).Update("is_active", false)
	if res.Error != nil {
		return fmt.Errorf("failed to delete category %d: %w", id, res.Error)
	}
	return nil
}

// GetCategoryByID retrieves an active category.
func (r *Repository) GetCategoryByID(ctx context.Context, id uint) (*entities.Category, error) {
	return r.activeByID(ctx, id)
}

// Subcategories lists the active children of a category, in sort order.
func (r *Repository) Subcategories(ctx context.Context, id uint) ([]entities.Category, error) {
	var children []entities.Category
	err := r.conn(ctx).
		Where("parent_id = ? AND is_active = ?", id, true).
		Order("sort_order ASC, name ASC").
		Find(&children).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list subcategories of %d: %w", id, err)
	}
	return children, nil
}

// ListRoots lists the active top-level categories, in sort order.
func (r *Repository) ListRoots(ctx context.Context) ([]entities.Category, error) {
	var roots []entities.Category
	err := r.conn(ctx).
		Where("parent_id IS NULL AND is_active = ?", true).
		Order("sort_order ASC, name ASC").
		Find(&roots).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list root categories: %w", err)
	}
	return roots, nil
}

// CategoryUpdate carries the optional fields for UpdateCategory. ParentID
// is a pointer-to-pointer so "set parent to X", "clear parent" and "leave
// parent alone" stay distinct.
type CategoryUpdate struct {
	Name        *string
	Description *string
	SortOrder   *int
	ParentID    **uint
}

func (r *Repository) activeByID(ctx context.Context, id uint) (*entities.Category, error) {
	var category entities.Category
	err := r.conn(ctx).Where("id = ? AND is_active = ?", id, true).First(&category).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to fetch category %d: %w", id, err)
	}
	return &category, nil
}

func (r *Repository) nameTaken(ctx context.Context, name string, excludeID uint) (bool, error) {
	var count int64
	query := r.conn(ctx).Model(&entities.Category{}).Where("name = ?", name)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check category name %q: %w", name, err)
	}
	return count > 0, nil
}

// wouldCreateCycle walks up from the proposed parent; finding the category
// itself among the ancestors means the reparent would close a loop.
func (r *Repository) wouldCreateCycle(ctx context.Context, id, parentID uint) (bool, error) {
	current := parentID
	for depth := 0; depth < maxDepth; depth++ {
		if current == id {
			return true, nil
		}
		var row struct{ ParentID *uint }
		err := r.conn(ctx).Model(&entities.Category{}).
			Select("parent_id").
			Where("id = ?", current).
			Take(&row).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return false, nil
			}
			return false, fmt.Errorf("failed to walk ancestors of category %d: %w", parentID, err)
		}
		if row.ParentID == nil {
			return false, nil
		}
		current = *row.ParentID
	}
	return true, nil
}
