package lending

import (
	"context"
	"time"

	"github.com/mrlokans/circulation/internal/entities"
)

// The engine is specified against these narrow store contracts rather than a
// storage technology. The gorm repositories under internal/database
// implement them; tests use in-memory fakes.
//
// Implementations translate their missing-row conditions into the
// ErrBookNotFound / ErrMemberNotFound / ErrBorrowingNotFound sentinels and
// any other failure into an error the engine wraps as
// ErrPersistenceUnavailable.

// CatalogStore holds book records and their copy-availability counters.
type CatalogStore interface {
	GetBook(ctx context.Context, id uint) (*entities.Book, error)

	// AdjustAvailableCopies applies delta to a book's available-copies
	// counter only if the result stays within [0, total_copies], reporting
	// the remaining count and whether the write was applied. The guard is
	// evaluated atomically at write time, which is what closes the race
	// between two borrowers taking the last copy.
	AdjustAvailableCopies(ctx context.Context, id uint, delta int) (remaining int, applied bool, err error)

	SetBookStatus(ctx context.Context, id uint, status entities.BookStatus) error
}

// MembershipStore holds member records, quotas and fines.
type MembershipStore interface {
	GetMember(ctx context.Context, id uint) (*entities.Member, error)

	// AdjustCounters applies booksDelta to the member's open-loan counter
	// and fineDeltaCents to their accumulated fines, in one write.
	AdjustCounters(ctx context.Context, id uint, booksDelta int, fineDeltaCents int64) error
}

// LedgerStore holds borrowing records, the system of record for lending
// history.
type LedgerStore interface {
	CreateBorrowing(ctx context.Context, b *entities.Borrowing) error
	GetBorrowing(ctx context.Context, id uint) (*entities.Borrowing, error)
	UpdateBorrowing(ctx context.Context, b *entities.Borrowing) error

	// ListOverdue returns open loans whose due date is before asOf, using
	// the due-date predicate rather than the materialized status field
	// (materialization may lag behind the clock).
	ListOverdue(ctx context.Context, asOf time.Time) ([]entities.Borrowing, error)
}

// TxRunner is the unit-of-work boundary: fn's store mutations either all
// commit or all have no effect. database.Database satisfies this.
type TxRunner interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Auditor receives a notification after each committed engine operation.
// Implementations must not block; the engine calls them outside the
// transaction and ignores their failures.
type Auditor interface {
	LogBorrow(b *entities.Borrowing)
	LogReturn(b *entities.Borrowing, fineCents int64)
	LogRenew(b *entities.Borrowing)
}
