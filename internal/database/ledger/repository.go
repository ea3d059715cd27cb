// Package ledger provides database operations for borrowing records, the
// system of record for lending history.
//
// # Interface Implementation
//
//	var _ lending.LedgerStore = (*Repository)(nil)
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/circulation/internal/database"
	"github.com/mrlokans/circulation/internal/entities"
	"github.com/mrlokans/circulation/internal/lending"
)

var _ lending.LedgerStore = (*Repository)(nil)

// Repository handles all borrowing ledger database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new ledger repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) conn(ctx context.Context) *gorm.DB {
	return database.FromContext(ctx, r.db)
}

// CreateBorrowing appends a new record to the ledger.
func (r *Repository) CreateBorrowing(ctx context.Context, b *entities.Borrowing) error {
	if err := r.conn(ctx).Create(b).Error; err != nil {
		return fmt.Errorf("failed to create borrowing: %w", err)
	}
	return nil
}

// GetBorrowing retrieves one borrowing record by its ID.
func (r *Repository) GetBorrowing(ctx context.Context, id uint) (*entities.Borrowing, error) {
	var b entities.Borrowing
	err := r.conn(ctx).First(&b, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, lending.ErrBorrowingNotFound
		}
		return nil, fmt.Errorf("failed to fetch borrowing %d: %w", id, err)
	}
	return &b, nil
}

// UpdateBorrowing persists the mutable lifecycle fields of a record.
func (r *Repository) UpdateBorrowing(ctx context.Context, b *entities.Borrowing) error {
	res := r.conn(ctx).Model(&entities.Borrowing{}).
		Where("id = ?", b.ID).
		Updates(map[string]interface{}{
			"due_date":      b.DueDate,
			"return_date":   b.ReturnDate,
			"status":        b.Status,
			"renewal_count": b.RenewalCount,
			"fine_cents":    b.FineCents,
			"librarian":     b.Librarian,
			"notes":         b.Notes,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update borrowing %d: %w", b.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return lending.ErrBorrowingNotFound
	}
	return nil
}

// ListOverdue returns open loans past due at asOf. The filter is the
// due-date predicate, not the materialized status: records the sweep has
// not reconciled yet still match, already-Overdue ones are included so
// their advisory fine keeps advancing.
func (r *Repository) ListOverdue(ctx context.Context, asOf time.Time) ([]entities.Borrowing, error) {
	var overdue []entities.Borrowing
	err := r.conn(ctx).
		Where("status IN ? AND due_date < ?", []entities.BorrowingStatus{entities.BorrowingActive, entities.BorrowingOverdue}, asOf).
		Order("due_date ASC").
		Find(&overdue).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list overdue borrowings: %w", err)
	}
	return overdue, nil
}

// ListForMember returns a member's borrowing history, most recent first. An
// empty status filter returns all records.
func (r *Repository) ListForMember(ctx context.Context, memberID uint, status entities.BorrowingStatus) ([]entities.Borrowing, error) {
	query := r.conn(ctx).Where("member_id = ?", memberID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var records []entities.Borrowing
	if err := query.Order("borrow_date DESC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list borrowings for member %d: %w", memberID, err)
	}
	return records, nil
}

// CountOpenForMember counts a member's loans in Active or Overdue state,
// the number their quota counter must agree with.
func (r *Repository) CountOpenForMember(ctx context.Context, memberID uint) (int64, error) {
	var count int64
	err := r.conn(ctx).Model(&entities.Borrowing{}).
		Where("member_id = ? AND status IN ?", memberID, []entities.BorrowingStatus{entities.BorrowingActive, entities.BorrowingOverdue}).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count open borrowings for member %d: %w", memberID, err)
	}
	return count, nil
}

// MarkLost administratively closes a record as Lost. Terminal; the lending
// engine never produces this transition itself.
func (r *Repository) MarkLost(ctx context.Context, id uint, librarian string) error {
	res := r.conn(ctx).Model(&entities.Borrowing{}).
		Where("id = ? AND status IN ?", id, []entities.BorrowingStatus{entities.BorrowingActive, entities.BorrowingOverdue}).
		Updates(map[string]interface{}{
			"status":    entities.BorrowingLost,
			"librarian": librarian,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to mark borrowing %d lost: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := r.GetBorrowing(ctx, id); err != nil {
			return err
		}
		return lending.ErrAlreadyReturned
	}
	return nil
}
