package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mrlokans/circulation/internal/entities"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&entities.CirculationEvent{})
	require.NoError(t, err)

	return db
}

func eventFor(memberID uint, eventType entities.CirculationEventType) *entities.CirculationEvent {
	m := memberID
	return &entities.CirculationEvent{
		EventType:   eventType,
		Description: "test event",
		MemberID:    &m,
		Librarian:   "System",
		Status:      entities.CirculationStatusSuccess,
	}
}

func TestRepository_LogEvent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	event := eventFor(1, entities.CirculationEventBorrow)
	err := repo.LogEvent(event)
	require.NoError(t, err)
	assert.NotZero(t, event.ID)
	assert.False(t, event.CreatedAt.IsZero())
}

func TestRepository_GetEvents(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	for i := 0; i < 5; i++ {
		event := eventFor(1, entities.CirculationEventBorrow)
		event.CreatedAt = time.Now().Add(time.Duration(-i) * time.Hour)
		require.NoError(t, repo.LogEvent(event))
	}
	require.NoError(t, repo.LogEvent(eventFor(2, entities.CirculationEventReturn)))

	events, total, err := repo.GetEvents(1, 3, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Len(t, events, 3)

	// Zero memberID returns the whole trail
	all, total, err := repo.GetEvents(0, 50, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(6), total)
	assert.Len(t, all, 6)
}

func TestRepository_GetEventsForBorrowing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	borrowingID := uint(7)
	borrow := eventFor(1, entities.CirculationEventBorrow)
	borrow.BorrowingID = &borrowingID
	borrow.CreatedAt = time.Now().Add(-2 * time.Hour)
	require.NoError(t, repo.LogEvent(borrow))

	ret := eventFor(1, entities.CirculationEventReturn)
	ret.BorrowingID = &borrowingID
	ret.CreatedAt = time.Now().Add(-1 * time.Hour)
	require.NoError(t, repo.LogEvent(ret))

	require.NoError(t, repo.LogEvent(eventFor(1, entities.CirculationEventRenew)))

	events, err := repo.GetEventsForBorrowing(borrowingID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	// Oldest first: the trail reads as a timeline
	assert.Equal(t, entities.CirculationEventBorrow, events[0].EventType)
	assert.Equal(t, entities.CirculationEventReturn, events[1].EventType)
}

func TestRepository_DeleteOldEvents(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	old := eventFor(1, entities.CirculationEventBorrow)
	old.CreatedAt = time.Now().Add(-48 * time.Hour)
	require.NoError(t, repo.LogEvent(old))

	recent := eventFor(1, entities.CirculationEventReturn)
	recent.CreatedAt = time.Now().Add(-1 * time.Hour)
	require.NoError(t, repo.LogEvent(recent))

	deleted, err := repo.DeleteOldEvents(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	events, total, err := repo.GetEvents(0, 50, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, events, 1)
	assert.Equal(t, entities.CirculationEventReturn, events[0].EventType)
}
