// Package catalog provides database operations for the book catalog and its
// copy-availability counters.
//
// # Interface Implementation
//
//	var _ lending.CatalogStore = (*Repository)(nil)
package catalog

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/mrlokans/circulation/internal/database"
	"github.com/mrlokans/circulation/internal/entities"
	"github.com/mrlokans/circulation/internal/lending"
)

var _ lending.CatalogStore = (*Repository)(nil)

// Repository handles all book catalog database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new catalog repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) conn(ctx context.Context) *gorm.DB {
	return database.FromContext(ctx, r.db)
}

// CreateBook adds a title to the catalog. A zero AvailableCopies is
// initialized to TotalCopies.
func (r *Repository) CreateBook(ctx context.Context, book *entities.Book) error {
	if book.TotalCopies < 0 || book.AvailableCopies < 0 || book.AvailableCopies > book.TotalCopies {
		return fmt.Errorf("%w: copy counters out of range", lending.ErrInvalidInput)
	}
	if book.AvailableCopies == 0 && book.Status != entities.BookStatusMaintenance && book.TotalCopies > 0 {
		book.AvailableCopies = book.TotalCopies
	}
	if book.Status == "" {
		book.Status = entities.BookStatusAvailable
	}
	if err := r.conn(ctx).Create(book).Error; err != nil {
		return fmt.Errorf("failed to create book: %w", err)
	}
	return nil
}

// GetBook retrieves a book by its ID.
func (r *Repository) GetBook(ctx context.Context, id uint) (*entities.Book, error) {
	var book entities.Book
	err := r.conn(ctx).First(&book, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, lending.ErrBookNotFound
		}
		return nil, fmt.Errorf("failed to fetch book %d: %w", id, err)
	}
	return &book, nil
}

// GetBookByISBN retrieves a book by its ISBN.
func (r *Repository) GetBookByISBN(ctx context.Context, isbn string) (*entities.Book, error) {
	var book entities.Book
	err := r.conn(ctx).Where("isbn = ?", isbn).First(&book).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, lending.ErrBookNotFound
		}
		return nil, fmt.Errorf("failed to fetch book %q: %w", isbn, err)
	}
	return &book, nil
}

// AdjustAvailableCopies applies delta to the available-copies counter with
// the range guard evaluated inside the UPDATE itself, so two concurrent
// borrows of the last copy cannot both succeed. Returns the remaining count
// and whether the write was applied.
func (r *Repository) AdjustAvailableCopies(ctx context.Context, id uint, delta int) (int, bool, error) {
	conn := r.conn(ctx)

	res := conn.Model(&entities.Book{}).
		Where("id = ? AND available_copies + ? BETWEEN 0 AND total_copies", id, delta).
		Update("available_copies", gorm.Expr("available_copies + ?", delta))
	if res.Error != nil {
		return 0, false, fmt.Errorf("failed to adjust copies for book %d: %w", id, res.Error)
	}

	var book entities.Book
	if err := conn.Select("available_copies").First(&book, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, false, lending.ErrBookNotFound
		}
		return 0, false, fmt.Errorf("failed to re-read book %d: %w", id, err)
	}

	return book.AvailableCopies, res.RowsAffected > 0, nil
}

// SetBookStatus updates a book's availability status.
func (r *Repository) SetBookStatus(ctx context.Context, id uint, status entities.BookStatus) error {
	res := r.conn(ctx).Model(&entities.Book{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return fmt.Errorf("failed to set status for book %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return lending.ErrBookNotFound
	}
	return nil
}

// CountBooksInCategory counts catalog entries filed under a category.
func (r *Repository) CountBooksInCategory(ctx context.Context, categoryID uint) (int64, error) {
	var count int64
	err := r.conn(ctx).Table("book_categories").Where("category_id = ?", categoryID).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count books in category %d: %w", categoryID, err)
	}
	return count, nil
}

// AssignCategories replaces a book's category associations.
func (r *Repository) AssignCategories(ctx context.Context, bookID uint, categories []entities.Category) error {
	book, err := r.GetBook(ctx, bookID)
	if err != nil {
		return err
	}
	if err := r.conn(ctx).Model(book).Association("Categories").Replace(categories); err != nil {
		return fmt.Errorf("failed to assign categories to book %d: %w", bookID, err)
	}
	return nil
}
