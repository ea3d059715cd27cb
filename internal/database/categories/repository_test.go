package categories

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mrlokans/circulation/internal/entities"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&entities.Book{}, &entities.Category{})
	require.NoError(t, err)

	return db
}

func mustCreate(t *testing.T, repo *Repository, name string, parentID *uint) *entities.Category {
	t.Helper()
	category := &entities.Category{Name: name, ParentID: parentID}
	require.NoError(t, repo.CreateCategory(context.Background(), category))
	return category
}

func TestRepository_CreateCategory(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	fiction := mustCreate(t, repo, "Fiction", nil)
	assert.NotZero(t, fiction.ID)
	assert.True(t, fiction.IsActive)

	scifi := mustCreate(t, repo, "Science Fiction", &fiction.ID)
	assert.Equal(t, fiction.ID, *scifi.ParentID)

	err := repo.CreateCategory(ctx, &entities.Category{Name: "Fiction"})
	assert.ErrorIs(t, err, ErrNameTaken)

	missing := uint(9999)
	err = repo.CreateCategory(ctx, &entities.Category{Name: "Orphan", ParentID: &missing})
	assert.ErrorIs(t, err, ErrParentNotFound)
}

func TestRepository_UpdateCategory(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	fiction := mustCreate(t, repo, "Fiction", nil)

	newName := "Literary Fiction"
	newDesc := "Novels and short stories"
	newSort := 3
	updated, err := repo.UpdateCategory(ctx, fiction.ID, CategoryUpdate{
		Name:        &newName,
		Description: &newDesc,
		SortOrder:   &newSort,
	})
	require.NoError(t, err)
	assert.Equal(t, "Literary Fiction", updated.Name)
	assert.Equal(t, "Novels and short stories", updated.Description)
	assert.Equal(t, 3, updated.SortOrder)
}

func TestRepository_UpdateCategoryNameTaken(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	mustCreate(t, repo, "Fiction", nil)
	history := mustCreate(t, repo, "History", nil)

	taken := "Fiction"
	_, err := repo.UpdateCategory(ctx, history.ID, CategoryUpdate{Name: &taken})
	assert.ErrorIs(t, err, ErrNameTaken)
}

func TestRepository_UpdateCategoryReparent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	fiction := mustCreate(t, repo, "Fiction", nil)
	scifi := mustCreate(t, repo, "Science Fiction", nil)

	parent := &fiction.ID
	updated, err := repo.UpdateCategory(ctx, scifi.ID, CategoryUpdate{ParentID: &parent})
	require.NoError(t, err)
	require.NotNil(t, updated.ParentID)
	assert.Equal(t, fiction.ID, *updated.ParentID)

	// Clearing the parent promotes the category back to a root
	var noParent *uint
	updated, err = repo.UpdateCategory(ctx, scifi.ID, CategoryUpdate{ParentID: &noParent})
	require.NoError(t, err)
	assert.Nil(t, updated.ParentID)
}

func TestRepository_UpdateCategoryRejectsSelfParent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	fiction := mustCreate(t, repo, "Fiction", nil)

	parent := &fiction.ID
	_, err := repo.UpdateCategory(ctx, fiction.ID, CategoryUpdate{ParentID: &parent})
	assert.ErrorIs(t, err, ErrCategoryCycle)
}

func TestRepository_UpdateCategoryRejectsCycle(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	// A -> B -> C, then trying to hang A under C closes a loop
	a := mustCreate(t, repo, "A", nil)
	b := mustCreate(t, repo, "B", &a.ID)
	c := mustCreate(t, repo, "C", &b.ID)

	parent := &c.ID
	_, err := repo.UpdateCategory(ctx, a.ID, CategoryUpdate{ParentID: &parent})
	assert.ErrorIs(t, err, ErrCategoryCycle)

	// The direct two-node loop as well
	parentA := &b.ID
	_, err = repo.UpdateCategory(ctx, a.ID, CategoryUpdate{ParentID: &parentA})
	assert.ErrorIs(t, err, ErrCategoryCycle)
}

func TestRepository_DeleteCategory(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	fiction := mustCreate(t, repo, "Fiction", nil)

	require.NoError(t, repo.DeleteCategory(ctx, fiction.ID))

	// Soft delete: the row survives with is_active=false
	_, err := repo.GetCategoryByID(ctx, fiction.ID)
	assert.ErrorIs(t, err, ErrCategoryNotFound)

	var raw entities.Category
	require.NoError(t, db.First(&raw, fiction.ID).Error)
	assert.False(t, raw.IsActive)
}

func TestRepository_DeleteCategoryBlockedBySubcategories(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	fiction := mustCreate(t, repo, "Fiction", nil)
	scifi := mustCreate(t, repo, "Science Fiction", &fiction.ID)

	err := repo.DeleteCategory(ctx, fiction.ID)
	assert.ErrorIs(t, err, ErrHasSubcategories)

	// Removing the child unblocks the parent
	require.NoError(t, repo.DeleteCategory(ctx, scifi.ID))
	require.NoError(t, repo.DeleteCategory(ctx, fiction.ID))
}

func TestRepository_DeleteCategoryBlockedByBooks(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	fiction := mustCreate(t, repo, "Fiction", nil)

	book := entities.Book{Title: "Dune", ISBN: "978-0441172719", TotalCopies: 1, AvailableCopies: 1}
	require.NoError(t, db.Create(&book).Error)
	require.NoError(t, db.Model(&book).Association("Categories").Append(fiction))

	err := repo.DeleteCategory(ctx, fiction.ID)
	assert.ErrorIs(t, err, ErrCategoryInUse)
}

func TestRepository_SubcategoriesAndRoots(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	fiction := mustCreate(t, repo, "Fiction", nil)
	history := mustCreate(t, repo, "History", nil)
	scifi := mustCreate(t, repo, "Science Fiction", &fiction.ID)
	fantasy := mustCreate(t, repo, "Fantasy", &fiction.ID)
	require.NoError(t, repo.DeleteCategory(ctx, fantasy.ID))

	roots, err := repo.ListRoots(ctx)
	require.NoError(t, err)
	require.Len(t, roots, 2)
	assert.Equal(t, fiction.Name, roots[0].Name)
	assert.Equal(t, history.Name, roots[1].Name)

	children, err := repo.Subcategories(ctx, fiction.ID)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, scifi.Name, children[0].Name)
}
