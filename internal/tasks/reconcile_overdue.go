package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/mrlokans/circulation/internal/entities"
)

// BorrowingReconciler materializes the overdue state of a single borrowing.
// The lending service satisfies this.
type BorrowingReconciler interface {
	Reconcile(ctx context.Context, borrowingID uint) (*entities.Borrowing, error)
}

// ReconcileOverdueTask materializes overdue status and the advisory fine for
// one borrowing. The overdue sweep enqueues one of these per candidate loan
// so a failing record retries on its own without stalling the batch.
type ReconcileOverdueTask struct {
	BorrowingID uint `json:"borrowing_id"`
}

// Config returns the queue configuration for overdue reconcile tasks.
func (t ReconcileOverdueTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "reconcile_overdue",
		MaxAttempts: 3,
		Backoff:     30 * time.Second,
		Timeout:     30 * time.Second,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// ReconcileOverdueProcessor creates a processor function for
// ReconcileOverdueTask.
func ReconcileOverdueProcessor(reconciler BorrowingReconciler) backlite.QueueProcessor[ReconcileOverdueTask] {
	return func(ctx context.Context, task ReconcileOverdueTask) error {
		if reconciler == nil {
			return fmt.Errorf("reconciler not configured")
		}

		b, err := reconciler.Reconcile(ctx, task.BorrowingID)
		if err != nil {
			return fmt.Errorf("reconcile borrowing %d: %w", task.BorrowingID, err)
		}

		if b.Status == entities.BorrowingOverdue {
			log.Printf("[TASK] Borrowing %d materialized as overdue (advisory fine %d cents)",
				b.ID, b.FineCents)
		} else {
			log.Printf("[TASK] Borrowing %d no longer overdue, nothing to materialize", b.ID)
		}

		return nil
	}
}

// NewReconcileOverdueQueue creates a backlite queue for overdue reconcile
// tasks.
func NewReconcileOverdueQueue(reconciler BorrowingReconciler) backlite.Queue {
	return backlite.NewQueue(ReconcileOverdueProcessor(reconciler))
}
