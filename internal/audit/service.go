// Package audit records the circulation trail: which librarian processed
// which borrow, return or renewal, and with what outcome. Writes are
// asynchronous so the lending path never blocks on bookkeeping.
package audit

import (
	"encoding/json"
	"log"
	"strconv"

	auditrepo "github.com/mrlokans/circulation/internal/database/audit"
	"github.com/mrlokans/circulation/internal/entities"
	"github.com/mrlokans/circulation/internal/lending"
)

var _ lending.Auditor = (*Service)(nil)

// Service provides high-level circulation event logging.
type Service struct {
	repo *auditrepo.Repository
}

// NewService creates a new audit service.
func NewService(repo *auditrepo.Repository) *Service {
	return &Service{repo: repo}
}

// Log records a circulation event synchronously.
func (s *Service) Log(event *entities.CirculationEvent) error {
	return s.repo.LogEvent(event)
}

// LogAsync records a circulation event in the background (non-blocking).
func (s *Service) LogAsync(event *entities.CirculationEvent) {
	go func() {
		if err := s.repo.LogEvent(event); err != nil {
			log.Printf("Failed to log circulation event: %v", err)
		}
	}()
}

// LogBorrow records a successful borrow.
func (s *Service) LogBorrow(b *entities.Borrowing) {
	event := s.eventFor(b, entities.CirculationEventBorrow,
		"Borrowed book "+itoa(b.BookID)+" to member "+itoa(b.MemberID))

	metadata := map[string]any{
		"due_date":     b.DueDate,
		"max_renewals": b.MaxRenewals,
	}
	if mdBytes, err := json.Marshal(metadata); err == nil {
		event.Metadata = string(mdBytes)
	}

	s.LogAsync(event)
}

// LogReturn records a completed return with the finalized fine.
func (s *Service) LogReturn(b *entities.Borrowing, fineCents int64) {
	event := s.eventFor(b, entities.CirculationEventReturn,
		"Returned book "+itoa(b.BookID)+" from member "+itoa(b.MemberID))

	metadata := map[string]any{
		"fine_cents":  fineCents,
		"was_overdue": fineCents > 0,
	}
	if mdBytes, err := json.Marshal(metadata); err == nil {
		event.Metadata = string(mdBytes)
	}

	s.LogAsync(event)
}

// LogRenew records a successful renewal.
func (s *Service) LogRenew(b *entities.Borrowing) {
	event := s.eventFor(b, entities.CirculationEventRenew,
		"Renewed borrowing "+itoa(b.ID))

	metadata := map[string]any{
		"due_date":      b.DueDate,
		"renewal_count": b.RenewalCount,
	}
	if mdBytes, err := json.Marshal(metadata); err == nil {
		event.Metadata = string(mdBytes)
	}

	s.LogAsync(event)
}

// LogReconcile records an overdue materialization performed by the sweep.
func (s *Service) LogReconcile(b *entities.Borrowing, err error) {
	event := s.eventFor(b, entities.CirculationEventReconcile,
		"Materialized overdue status for borrowing "+itoa(b.ID))

	if err != nil {
		event.Status = entities.CirculationStatusFailed
		event.ErrorMsg = truncate(err.Error(), 500)
	}

	s.LogAsync(event)
}

func (s *Service) eventFor(b *entities.Borrowing, eventType entities.CirculationEventType, description string) *entities.CirculationEvent {
	borrowingID := b.ID
	bookID := b.BookID
	memberID := b.MemberID
	return &entities.CirculationEvent{
		EventType:   eventType,
		Description: description,
		BorrowingID: &borrowingID,
		BookID:      &bookID,
		MemberID:    &memberID,
		Librarian:   b.Librarian,
		Status:      entities.CirculationStatusSuccess,
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func itoa(n uint) string {
	return strconv.FormatUint(uint64(n), 10)
}
