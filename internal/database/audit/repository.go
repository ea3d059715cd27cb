package audit

import (
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/circulation/internal/entities"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// LogEvent saves a circulation event to the database.
func (r *Repository) LogEvent(event *entities.CirculationEvent) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	return r.db.Create(event).Error
}

// GetEvents retrieves paginated circulation events, most recent first. A
// zero memberID returns events for all members.
func (r *Repository) GetEvents(memberID uint, limit, offset int) ([]entities.CirculationEvent, int64, error) {
	var events []entities.CirculationEvent
	var total int64

	query := r.db.Model(&entities.CirculationEvent{})
	if memberID > 0 {
		query = query.Where("member_id = ?", memberID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = 50
	}
	err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&events).Error
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

// GetEventsForBorrowing retrieves the trail of one loan, oldest first.
func (r *Repository) GetEventsForBorrowing(borrowingID uint) ([]entities.CirculationEvent, error) {
	var events []entities.CirculationEvent
	err := r.db.Where("borrowing_id = ?", borrowingID).
		Order("created_at ASC").
		Find(&events).Error
	return events, err
}

// DeleteOldEvents removes events older than the retention period and
// returns the number deleted.
func (r *Repository) DeleteOldEvents(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	res := r.db.Where("created_at < ?", cutoff).Delete(&entities.CirculationEvent{})
	return res.RowsAffected, res.Error
}
