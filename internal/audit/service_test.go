package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	auditrepo "github.com/mrlokans/circulation/internal/database/audit"
	"github.com/mrlokans/circulation/internal/entities"
)

func setupService(t *testing.T) (*Service, *auditrepo.Repository) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&entities.CirculationEvent{}))

	repo := auditrepo.NewRepository(db)
	return NewService(repo), repo
}

func borrowing() *entities.Borrowing {
	return &entities.Borrowing{
		ID:          1,
		BookID:      2,
		MemberID:    3,
		DueDate:     time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		Status:      entities.BorrowingActive,
		MaxRenewals: 2,
		Librarian:   "Alice",
	}
}

func waitForEvents(t *testing.T, repo *auditrepo.Repository, want int) []entities.CirculationEvent {
	t.Helper()
	var events []entities.CirculationEvent
	require.Eventually(t, func() bool {
		var err error
		events, _, err = repo.GetEvents(0, 50, 0)
		require.NoError(t, err)
		return len(events) == want
	}, 2*time.Second, 10*time.Millisecond)
	return events
}

func TestService_LogBorrow(t *testing.T) {
	svc, repo := setupService(t)

	svc.LogBorrow(borrowing())

	events := waitForEvents(t, repo, 1)
	event := events[0]
	assert.Equal(t, entities.CirculationEventBorrow, event.EventType)
	assert.Equal(t, entities.CirculationStatusSuccess, event.Status)
	assert.Equal(t, "Alice", event.Librarian)
	require.NotNil(t, event.BorrowingID)
	assert.Equal(t, uint(1), *event.BorrowingID)
	require.NotNil(t, event.BookID)
	assert.Equal(t, uint(2), *event.BookID)
	assert.Contains(t, event.Metadata, "due_date")
}

func TestService_LogReturn(t *testing.T) {
	svc, repo := setupService(t)

	svc.LogReturn(borrowing(), 150)

	events := waitForEvents(t, repo, 1)
	assert.Equal(t, entities.CirculationEventReturn, events[0].EventType)
	assert.Contains(t, events[0].Metadata, `"fine_cents":150`)
	assert.Contains(t, events[0].Metadata, `"was_overdue":true`)
}

func TestService_LogRenew(t *testing.T) {
	svc, repo := setupService(t)

	b := borrowing()
	b.RenewalCount = 1
	svc.LogRenew(b)

	events := waitForEvents(t, repo, 1)
	assert.Equal(t, entities.CirculationEventRenew, events[0].EventType)
	assert.Contains(t, events[0].Metadata, `"renewal_count":1`)
}

func TestService_LogReconcileFailure(t *testing.T) {
	svc, repo := setupService(t)

	svc.LogReconcile(borrowing(), assert.AnError)

	events := waitForEvents(t, repo, 1)
	assert.Equal(t, entities.CirculationEventReconcile, events[0].EventType)
	assert.Equal(t, entities.CirculationStatusFailed, events[0].Status)
	assert.NotEmpty(t, events[0].ErrorMsg)
}
