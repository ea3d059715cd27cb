package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"
)

// CirculationEventCleaner provides the ability to delete old circulation
// events.
type CirculationEventCleaner interface {
	DeleteOldEvents(retention time.Duration) (int64, error)
}

// CleanupCirculationEventsTask removes circulation events older than the
// configured retention period.
type CleanupCirculationEventsTask struct {
	RetentionDays int `json:"retention_days"`
}

// Config returns the queue configuration for event cleanup tasks.
func (t CleanupCirculationEventsTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "cleanup_circulation_events",
		MaxAttempts: 3,
		Backoff:     5 * time.Minute,
		Timeout:     2 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// CleanupCirculationEventsProcessor creates a processor function for
// CleanupCirculationEventsTask.
func CleanupCirculationEventsProcessor(cleaner CirculationEventCleaner) backlite.QueueProcessor[CleanupCirculationEventsTask] {
	return func(ctx context.Context, task CleanupCirculationEventsTask) error {
		if cleaner == nil {
			return fmt.Errorf("circulation event cleaner not configured")
		}

		retentionDays := task.RetentionDays
		if retentionDays <= 0 {
			retentionDays = 365
		}
		retention := time.Duration(retentionDays) * 24 * time.Hour

		deleted, err := cleaner.DeleteOldEvents(retention)
		if err != nil {
			return fmt.Errorf("cleanup circulation events: %w", err)
		}

		log.Printf("[TASK] Cleaned up %d circulation events older than %d days", deleted, retentionDays)
		return nil
	}
}

// NewCleanupCirculationEventsQueue creates a backlite queue for event
// cleanup tasks.
func NewCleanupCirculationEventsQueue(cleaner CirculationEventCleaner) backlite.Queue {
	return backlite.NewQueue(CleanupCirculationEventsProcessor(cleaner))
}
