package entities

import "time"

type CirculationEventType string

const (
	CirculationEventBorrow    CirculationEventType = "borrow"
	CirculationEventReturn    CirculationEventType = "return"
	CirculationEventRenew     CirculationEventType = "renew"
	CirculationEventReconcile CirculationEventType = "reconcile"
)

type CirculationEventStatus string

const (
	CirculationStatusSuccess CirculationEventStatus = "success"
	CirculationStatusFailed  CirculationEventStatus = "failed"
)

// CirculationEvent is one row of the circulation audit trail: who processed
// which lending operation and with what outcome.
type CirculationEvent struct {
	ID          uint                   `gorm:"primaryKey" json:"id"`
	EventType   CirculationEventType   `gorm:"index;size:50" json:"event_type"`
	Description string                 `gorm:"size:500" json:"description"`
	BorrowingID *uint                  `gorm:"index" json:"borrowing_id,omitempty"`
	BookID      *uint                  `gorm:"index" json:"book_id,omitempty"`
	MemberID    *uint                  `gorm:"index" json:"member_id,omitempty"`
	Librarian   string                 `gorm:"size:100" json:"librarian,omitempty"`
	Metadata    string                 `gorm:"type:text" json:"metadata,omitempty"` // JSON for extra data
	Status      CirculationEventStatus `gorm:"size:20" json:"status"`
	ErrorMsg    string                 `gorm:"size:500" json:"error_msg,omitempty"`
	CreatedAt   time.Time              `gorm:"index" json:"created_at"`
}

func (CirculationEvent) TableName() string {
	return "circulation_events"
}
