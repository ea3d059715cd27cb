// Package lending implements the lending transaction engine: the rules for
// moving a book copy between availability states, walking a borrowing record
// through its lifecycle, computing renewal windows and overdue fines, and
// keeping the catalog and membership counters consistent while doing so.
//
// The engine holds no long-lived state. Every operation is a request-scoped
// unit of work applied through a TxRunner, so it is safe to call
// concurrently from multiple goroutines.
package lending

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/mrlokans/circulation/internal/entities"
)

const day = 24 * time.Hour

// Policy carries the tunable lending rules.
type Policy struct {
	LoanPeriodDays     int           // length of one loan and of one renewal extension
	FinePerDayCents    int64         // charged per full or started day overdue
	MaxRenewals        int           // renewals allowed per loan
	PersistenceTimeout time.Duration // bound on one operation's store calls
}

// DefaultPolicy returns the standard library rules: two-week loans, $0.50
// per day overdue, two renewals.
func DefaultPolicy() Policy {
	return Policy{
		LoanPeriodDays:     14,
		FinePerDayCents:    50,
		MaxRenewals:        2,
		PersistenceTimeout: 5 * time.Second,
	}
}

func (p Policy) loanPeriod() time.Duration {
	return time.Duration(p.LoanPeriodDays) * day
}

// Service is the lending engine. Construct with NewService; clock and
// auditor may be nil (system clock, no audit trail).
type Service struct {
	catalog CatalogStore
	members MembershipStore
	ledger  LedgerStore
	tx      TxRunner
	policy  Policy
	clock   Clock
	auditor Auditor
}

func NewService(catalog CatalogStore, members MembershipStore, ledger LedgerStore, tx TxRunner, policy Policy, clock Clock, auditor Auditor) *Service {
	if clock == nil {
		clock = SystemClock()
	}
	return &Service{
		catalog: catalog,
		members: members,
		ledger:  ledger,
		tx:      tx,
		policy:  policy,
		clock:   clock,
		auditor: auditor,
	}
}

// BorrowRequest identifies what is being lent to whom. DueDate overrides the
// policy's loan period when set; Librarian defaults to "System".
type BorrowRequest struct {
	BookID    uint
	MemberID  uint
	Librarian string
	DueDate   *time.Time
}

// ReturnReceipt reports the outcome of a Return.
type ReturnReceipt struct {
	BorrowingID uint
	ReturnDate  time.Time
	FineCents   int64
	WasOverdue  bool
}

// RenewalReceipt reports the outcome of a Renew.
type RenewalReceipt struct {
	BorrowingID       uint
	DueDate           time.Time
	RenewalCount      int
	RemainingRenewals int
}

// Borrow lends one copy of a book to a member. Preconditions are checked in
// a fixed order, each with its own error: the book must exist and be
// borrowable, the member must exist, be active, be under quota and have no
// outstanding fines. On success one ledger entry is created, the book's
// available-copies counter drops by one (flipping the book to Borrowed when
// it reaches zero) and the member's open-loan counter rises by one, all as a
// single atomic unit.
func (s *Service) Borrow(ctx context.Context, req BorrowRequest) (*entities.Borrowing, error) {
	if req.BookID == 0 || req.MemberID == 0 {
		return nil, fmt.Errorf("%w: book and member identifiers are required", ErrInvalidInput)
	}

	now := s.clock.Now()
	dueDate := now.Add(s.policy.loanPeriod())
	if req.DueDate != nil {
		if !req.DueDate.After(now) {
			return nil, fmt.Errorf("%w: due date must be in the future", ErrInvalidInput)
		}
		dueDate = *req.DueDate
	}

	var rec *entities.Borrowing
	err := s.run(ctx, func(ctx context.Context) error {
		book, err := s.catalog.GetBook(ctx, req.BookID)
		if err != nil {
			return err
		}
		if !book.Borrowable() {
			return ErrBookUnavailable
		}

		member, err := s.members.GetMember(ctx, req.MemberID)
		if err != nil {
			return err
		}
		if member.MembershipStatus != entities.MembershipActive {
			return ErrMemberInactive
		}
		if member.CurrentBooksCount >= member.MaxBooksAllowed {
			return ErrQuotaExceeded
		}
		if member.FineCents > 0 {
			return ErrOutstandingFines
		}

		rec = &entities.Borrowing{
			BookID:      req.BookID,
			MemberID:    req.MemberID,
			BorrowDate:  now,
			DueDate:     dueDate,
			Status:      entities.BorrowingActive,
			MaxRenewals: s.policy.MaxRenewals,
			Librarian:   librarianOrSystem(req.Librarian),
		}
		if err := s.ledger.CreateBorrowing(ctx, rec); err != nil {
			return err
		}

		// The guarded decrement re-validates availability at write time.
		// Losing the race here rolls the ledger insert back with us.
		remaining, applied, err := s.catalog.AdjustAvailableCopies(ctx, req.BookID, -1)
		if err != nil {
			return err
		}
		if !applied {
			return ErrBookUnavailable
		}
		if remaining == 0 {
			if err := s.catalog.SetBookStatus(ctx, req.BookID, entities.BookStatusBorrowed); err != nil {
				return err
			}
		}

		return s.members.AdjustCounters(ctx, req.MemberID, +1, 0)
	})
	if err != nil {
		return nil, err
	}

	if s.auditor != nil {
		s.auditor.LogBorrow(rec)
	}
	return rec, nil
}

// Return closes a loan: sets the return date, computes the overdue fine with
// a ceiling day count (any overage into a new day charges the full day),
// releases the copy back to the catalog and updates the member's counters.
// Works on Active and Overdue loans; anything else is already settled.
func (s *Service) Return(ctx context.Context, borrowingID uint, librarian string) (*ReturnReceipt, error) {
	if borrowingID == 0 {
		return nil, fmt.Errorf("%w: borrowing identifier is required", ErrInvalidInput)
	}

	var receipt *ReturnReceipt
	var rec *entities.Borrowing
	err := s.run(ctx, func(ctx context.Context) error {
		b, err := s.ledger.GetBorrowing(ctx, borrowingID)
		if err != nil {
			return err
		}
		if !b.Open() {
			return ErrAlreadyReturned
		}

		returnDate := s.clock.Now()
		fineCents := daysOverdue(b.DueDate, returnDate) * s.policy.FinePerDayCents

		b.ReturnDate = &returnDate
		b.Status = entities.BorrowingReturned
		b.FineCents = fineCents
		b.Librarian = librarianOrSystem(librarian)
		if err := s.ledger.UpdateBorrowing(ctx, b); err != nil {
			return err
		}

		_, applied, err := s.catalog.AdjustAvailableCopies(ctx, b.BookID, +1)
		if err != nil {
			return err
		}
		if !applied {
			// Counter already at total_copies; a desync we tolerate rather
			// than block the return.
			log.Printf("Return: available copies for book %d already at capacity, skipping increment", b.BookID)
		}
		if err := s.catalog.SetBookStatus(ctx, b.BookID, entities.BookStatusAvailable); err != nil {
			return err
		}

		if err := s.members.AdjustCounters(ctx, b.MemberID, -1, fineCents); err != nil {
			return err
		}

		rec = b
		receipt = &ReturnReceipt{
			BorrowingID: b.ID,
			ReturnDate:  returnDate,
			FineCents:   fineCents,
			WasOverdue:  fineCents > 0,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.auditor != nil {
		s.auditor.LogReturn(rec, receipt.FineCents)
	}
	return receipt, nil
}

// Renew extends an active loan by one loan period, counted from the current
// due date. An overdue loan cannot be renewed, only returned; fines keep
// accruing instead. Book and member counters are untouched.
func (s *Service) Renew(ctx context.Context, borrowingID uint, librarian string) (*RenewalReceipt, error) {
	if borrowingID == 0 {
		return nil, fmt.Errorf("%w: borrowing identifier is required", ErrInvalidInput)
	}

	var receipt *RenewalReceipt
	var rec *entities.Borrowing
	err := s.run(ctx, func(ctx context.Context) error {
		b, err := s.ledger.GetBorrowing(ctx, borrowingID)
		if err != nil {
			return err
		}
		if b.Status != entities.BorrowingActive {
			return ErrNotActive
		}
		if b.RenewalCount >= b.MaxRenewals {
			return ErrRenewalLimitReached
		}
		if s.clock.Now().After(b.DueDate) {
			return ErrCannotRenewOverdue
		}

		b.DueDate = b.DueDate.Add(s.policy.loanPeriod())
		b.RenewalCount++
		b.Librarian = librarianOrSystem(librarian)
		if err := s.ledger.UpdateBorrowing(ctx, b); err != nil {
			return err
		}

		rec = b
		receipt = &RenewalReceipt{
			BorrowingID:       b.ID,
			DueDate:           b.DueDate,
			RenewalCount:      b.RenewalCount,
			RemainingRenewals: b.MaxRenewals - b.RenewalCount,
		}
		return nil
	})
	if errors.Is(err, ErrCannotRenewOverdue) {
		// The rejected renewal observed the threshold; materialize the
		// overdue status outside the rolled-back transaction.
		if _, recErr := s.Reconcile(ctx, borrowingID); recErr != nil {
			log.Printf("Renew: failed to materialize overdue status for borrowing %d: %v", borrowingID, recErr)
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	if s.auditor != nil {
		s.auditor.LogRenew(rec)
	}
	return receipt, nil
}

// Reconcile materializes the overdue state of one borrowing: when an open
// loan is past its due date, the stored status flips to Overdue and the
// advisory fine (same ceiling formula as Return, evaluated against now) is
// persisted with it. Already-Overdue loans get their advisory fine advanced. Safe to call repeatedly; it is invoked on every engine
// read path and by the overdue sweep tasks.
func (s *Service) Reconcile(ctx context.Context, borrowingID uint) (*entities.Borrowing, error) {
	if borrowingID == 0 {
		return nil, fmt.Errorf("%w: borrowing identifier is required", ErrInvalidInput)
	}

	var rec *entities.Borrowing
	err := s.run(ctx, func(ctx context.Context) error {
		b, err := s.ledger.GetBorrowing(ctx, borrowingID)
		if err != nil {
			return err
		}
		if b.Open() && s.clock.Now().After(b.DueDate) {
			b.Status = entities.BorrowingOverdue
			b.FineCents = daysOverdue(b.DueDate, s.clock.Now()) * s.policy.FinePerDayCents
			if err := s.ledger.UpdateBorrowing(ctx, b); err != nil {
				return err
			}
		}
		rec = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// GetBorrowing fetches one borrowing, materializing its overdue status on
// the way out.
func (s *Service) GetBorrowing(ctx context.Context, borrowingID uint) (*entities.Borrowing, error) {
	return s.Reconcile(ctx, borrowingID)
}

// ListOverdue returns open loans already past due at the engine's current
// time, selected by the due-date predicate rather than the possibly stale
// materialized status.
func (s *Service) ListOverdue(ctx context.Context) ([]entities.Borrowing, error) {
	ctx, cancel := context.WithTimeout(ctx, s.policy.PersistenceTimeout)
	defer cancel()

	overdue, err := s.ledger.ListOverdue(ctx, s.clock.Now())
	if err != nil {
		return nil, classify(err)
	}
	return overdue, nil
}

// run executes fn as one bounded, atomic unit of work.
func (s *Service) run(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.policy.PersistenceTimeout)
	defer cancel()

	if err := s.tx.Transaction(ctx, fn); err != nil {
		return classify(err)
	}
	return nil
}

// classify passes taxonomy errors through untouched and folds everything
// else (timeouts, driver failures) into ErrPersistenceUnavailable.
func classify(err error) error {
	if IsNotFound(err) || IsConflict(err) || errors.Is(err, ErrInvalidInput) {
		return err
	}
	if errors.Is(err, ErrPersistenceUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrPersistenceUnavailable, err)
}

// daysOverdue counts whole days between due and at, rounding any partial day
// up. Returning on or before the due date counts zero days.
func daysOverdue(due, at time.Time) int64 {
	if !at.After(due) {
		return 0
	}
	overdue := at.Sub(due)
	days := int64(overdue / day)
	if overdue%day != 0 {
		days++
	}
	return days
}

func librarianOrSystem(librarian string) string {
	if librarian == "" {
		return "System"
	}
	return librarian
}
