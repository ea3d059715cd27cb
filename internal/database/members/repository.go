// Package members provides database operations for library members, their
// borrowing quotas and accumulated fines.
//
// # Interface Implementation
//
//	var _ lending.MembershipStore = (*Repository)(nil)
package members

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/mrlokans/circulation/internal/database"
	"github.com/mrlokans/circulation/internal/entities"
	"github.com/mrlokans/circulation/internal/lending"
)

var _ lending.MembershipStore = (*Repository)(nil)

// Repository handles all member database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new members repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) conn(ctx context.Context) *gorm.DB {
	return database.FromContext(ctx, r.db)
}

// CreateMember registers a new member.
func (r *Repository) CreateMember(ctx context.Context, member *entities.Member) error {
	if member.MembershipStatus == "" {
		member.MembershipStatus = entities.MembershipActive
	}
	if member.MaxBooksAllowed == 0 {
		member.MaxBooksAllowed = 5
	}
	if member.JoinDate.IsZero() {
		member.JoinDate = r.conn(ctx).NowFunc()
	}
	if err := r.conn(ctx).Create(member).Error; err != nil {
		return fmt.Errorf("failed to create member: %w", err)
	}
	return nil
}

// GetMember retrieves a member by their ID.
func (r *Repository) GetMember(ctx context.Context, id uint) (*entities.Member, error) {
	var member entities.Member
	err := r.conn(ctx).First(&member, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, lending.ErrMemberNotFound
		}
		return nil, fmt.Errorf("failed to fetch member %d: %w", id, err)
	}
	return &member, nil
}

// AdjustCounters applies booksDelta to the open-loan counter and
// fineDeltaCents to the fine balance in one write. The counter is kept
// non-negative at the database level.
func (r *Repository) AdjustCounters(ctx context.Context, id uint, booksDelta int, fineDeltaCents int64) error {
	res := r.conn(ctx).Model(&entities.Member{}).
		Where("id = ? AND current_books_count + ? >= 0", id, booksDelta).
		Updates(map[string]interface{}{
			"current_books_count": gorm.Expr("current_books_count + ?", booksDelta),
			"fine_cents":          gorm.Expr("fine_cents + ?", fineDeltaCents),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to adjust counters for member %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := r.conn(ctx).Model(&entities.Member{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check member %d: %w", id, err)
		}
		if count == 0 {
			return lending.ErrMemberNotFound
		}
		return fmt.Errorf("counter adjustment rejected for member %d (books delta %d)", id, booksDelta)
	}
	return nil
}

// RecordFinePayment reduces a member's fine balance by amountCents, clamped
// so the balance never goes negative. Returns the remaining balance.
func (r *Repository) RecordFinePayment(ctx context.Context, id uint, amountCents int64) (int64, error) {
	if amountCents <= 0 {
		return 0, fmt.Errorf("%w: payment amount must be positive", lending.ErrInvalidInput)
	}

	res := r.conn(ctx).Model(&entities.Member{}).
		Where("id = ?", id).
		Update("fine_cents", gorm.Expr("MAX(fine_cents - ?, 0)", amountCents))
	if res.Error != nil {
		return 0, fmt.Errorf("failed to record payment for member %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, lending.ErrMemberNotFound
	}

	member, err := r.GetMember(ctx, id)
	if err != nil {
		return 0, err
	}
	return member.FineCents, nil
}

// SetMembershipStatus updates a member's standing (Active, Suspended, ...).
func (r *Repository) SetMembershipStatus(ctx context.Context, id uint, status entities.MembershipStatus) error {
	res := r.conn(ctx).Model(&entities.Member{}).Where("id = ?", id).Update("membership_status", status)
	if res.Error != nil {
		return fmt.Errorf("failed to set status for member %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return lending.ErrMemberNotFound
	}
	return nil
}
