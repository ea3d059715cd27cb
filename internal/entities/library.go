package entities

import (
	"time"

	"gorm.io/gorm"
)

type BookStatus string

const (
	BookStatusAvailable   BookStatus = "Available"
	BookStatusBorrowed    BookStatus = "Borrowed"
	BookStatusReserved    BookStatus = "Reserved"
	BookStatusMaintenance BookStatus = "Maintenance"
)

type MembershipStatus string

const (
	MembershipActive    MembershipStatus = "Active"
	MembershipSuspended MembershipStatus = "Suspended"
	MembershipExpired   MembershipStatus = "Expired"
	MembershipPending   MembershipStatus = "Pending"
)

type MembershipType string

const (
	MembershipTypeBasic   MembershipType = "Basic"
	MembershipTypePremium MembershipType = "Premium"
	MembershipTypeStudent MembershipType = "Student"
	MembershipTypeSenior  MembershipType = "Senior"
)

type BorrowingStatus string

const (
	BorrowingActive   BorrowingStatus = "Active"
	BorrowingOverdue  BorrowingStatus = "Overdue"
	BorrowingReturned BorrowingStatus = "Returned"
	BorrowingLost     BorrowingStatus = "Lost"
)

type Author struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	FirstName   string         `gorm:"size:100" json:"first_name"`
	LastName    string         `gorm:"index;size:100" json:"last_name"`
	Email       string         `gorm:"uniqueIndex;size:255;default:null" json:"email,omitempty"`
	Biography   string         `gorm:"type:text" json:"biography,omitempty"`
	Nationality string         `gorm:"size:100" json:"nationality,omitempty"`
	IsActive    bool           `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (a *Author) FullName() string {
	return a.FirstName + " " + a.LastName
}

// Book is a catalogued title. AvailableCopies counts copies not currently
// lent out and must stay within [0, TotalCopies]; the lending engine is the
// only writer of that counter.
type Book struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	Title           string     `gorm:"index;size:512" json:"title"`
	Author          string     `gorm:"index;size:256" json:"author"`
	AuthorID        *uint      `gorm:"index" json:"author_id,omitempty"`
	ISBN            string     `gorm:"uniqueIndex;size:20" json:"isbn"`
	Description     string     `gorm:"type:text" json:"description,omitempty"`
	Publisher       string     `gorm:"size:256" json:"publisher,omitempty"`
	PublicationYear int        `json:"publication_year,omitempty"`
	TotalCopies     int        `gorm:"default:1" json:"total_copies"`
	AvailableCopies int        `gorm:"default:1" json:"available_copies"`
	Status          BookStatus `gorm:"index;size:20;default:'Available'" json:"status"`
	Categories      []Category `gorm:"many2many:book_categories;" json:"categories,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Borrowable reports whether a copy can be lent right now. Maintenance and
// Reserved are administrative holds that block lending even with copies on
// the shelf.
func (b *Book) Borrowable() bool {
	return b.Status == BookStatusAvailable && b.AvailableCopies > 0
}

// Member is a registered borrower. CurrentBooksCount mirrors the number of
// ledger entries in Active or Overdue state; FineCents is accumulated unpaid
// fines in cents.
type Member struct {
	ID                uint             `gorm:"primaryKey" json:"id"`
	FirstName         string           `gorm:"size:100" json:"first_name"`
	LastName          string           `gorm:"size:100" json:"last_name"`
	Email             string           `gorm:"uniqueIndex;size:255" json:"email"`
	Phone             string           `gorm:"size:30" json:"phone,omitempty"`
	MembershipType    MembershipType   `gorm:"size:20;default:'Basic'" json:"membership_type"`
	MembershipStatus  MembershipStatus `gorm:"index;size:20;default:'Active'" json:"membership_status"`
	JoinDate          time.Time        `json:"join_date"`
	MaxBooksAllowed   int              `gorm:"default:5" json:"max_books_allowed"`
	CurrentBooksCount int              `gorm:"default:0" json:"current_books_count"`
	FineCents         int64            `gorm:"default:0" json:"fine_cents"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
	DeletedAt         gorm.DeletedAt   `gorm:"index" json:"deleted_at,omitempty"`
}

func (m *Member) FullName() string {
	return m.FirstName + " " + m.LastName
}

// CanBorrow checks member-side eligibility only; book availability and quota
// race handling live in the lending engine.
func (m *Member) CanBorrow() bool {
	return m.MembershipStatus == MembershipActive &&
		m.CurrentBooksCount < m.MaxBooksAllowed &&
		m.FineCents == 0
}

// Borrowing is one ledger entry: a copy of a book held by a member for a
// bounded period. Status is materialized from DueDate on every engine read,
// so a stored Active past its due date is treated as Overdue until the next
// reconcile persists it.
type Borrowing struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	BookID       uint            `gorm:"index:idx_borrowings_book_member" json:"book_id"`
	MemberID     uint            `gorm:"index:idx_borrowings_book_member" json:"member_id"`
	Book         Book            `gorm:"foreignKey:BookID" json:"book,omitempty"`
	Member       Member          `gorm:"foreignKey:MemberID" json:"member,omitempty"`
	BorrowDate   time.Time       `json:"borrow_date"`
	DueDate      time.Time       `gorm:"index:idx_borrowings_status_due" json:"due_date"`
	ReturnDate   *time.Time      `json:"return_date,omitempty"`
	Status       BorrowingStatus `gorm:"index:idx_borrowings_status_due;size:20;default:'Active'" json:"status"`
	RenewalCount int             `gorm:"default:0" json:"renewal_count"`
	MaxRenewals  int             `gorm:"default:2" json:"max_renewals"`
	FineCents    int64           `gorm:"default:0" json:"fine_cents"`
	Librarian    string          `gorm:"size:100" json:"librarian,omitempty"`
	Notes        string          `gorm:"size:500" json:"notes,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// IsOverdue evaluates the due-date predicate against the given instant
// without trusting the materialized Status field.
func (b *Borrowing) IsOverdue(now time.Time) bool {
	return b.Status == BorrowingActive && now.After(b.DueDate)
}

// Open reports whether the loan still counts against the member's quota.
func (b *Borrowing) Open() bool {
	return b.Status == BorrowingActive || b.Status == BorrowingOverdue
}

// Category is a node in the catalog's category tree. Deletion is a soft
// delete (IsActive=false) so historical book references stay resolvable.
type Category struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"uniqueIndex;size:100" json:"name"`
	Description string    `gorm:"size:500" json:"description,omitempty"`
	ParentID    *uint     `gorm:"index" json:"parent_id,omitempty"`
	IsActive    bool      `gorm:"default:true" json:"is_active"`
	SortOrder   int       `gorm:"default:0" json:"sort_order"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
