package lending

import "errors"

// Error taxonomy for the lending engine. Store implementations translate
// their storage-level errors into these sentinels, so callers can branch
// with errors.Is regardless of the persistence technology behind the engine.
var (
	// Not-found: a referenced entity does not exist.
	ErrBookNotFound      = errors.New("book not found")
	ErrMemberNotFound    = errors.New("member not found")
	ErrBorrowingNotFound = errors.New("borrowing not found")

	// Conflicts: a business rule blocks the operation.
	ErrBookUnavailable     = errors.New("book is not available for borrowing")
	ErrMemberInactive      = errors.New("member account is not active")
	ErrQuotaExceeded       = errors.New("member has reached maximum book limit")
	ErrOutstandingFines    = errors.New("member has outstanding fines")
	ErrAlreadyReturned     = errors.New("book is already returned")
	ErrNotActive           = errors.New("only active borrowings can be renewed")
	ErrRenewalLimitReached = errors.New("maximum renewal limit reached")
	ErrCannotRenewOverdue  = errors.New("cannot renew overdue books")

	// ErrInvalidInput covers malformed identifiers or out-of-range values
	// supplied by the caller.
	ErrInvalidInput = errors.New("invalid input")

	// ErrPersistenceUnavailable means the storage boundary failed or timed
	// out. It is the only retryable error in the taxonomy; everything else
	// needs new input. Note that operations are not idempotent: a retry
	// after an ambiguous timeout may duplicate a successful Borrow, so
	// callers must retry only confirmed-failed attempts.
	ErrPersistenceUnavailable = errors.New("persistence unavailable")
)

// IsNotFound reports whether err is one of the not-found sentinels.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrBookNotFound) ||
		errors.Is(err, ErrMemberNotFound) ||
		errors.Is(err, ErrBorrowingNotFound)
}

// IsConflict reports whether err is a business-rule conflict.
func IsConflict(err error) bool {
	for _, sentinel := range []error{
		ErrBookUnavailable,
		ErrMemberInactive,
		ErrQuotaExceeded,
		ErrOutstandingFines,
		ErrAlreadyReturned,
		ErrNotActive,
		ErrRenewalLimitReached,
		ErrCannotRenewOverdue,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

// IsRetryable reports whether the caller may safely retry the operation
// without new input.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrPersistenceUnavailable)
}
