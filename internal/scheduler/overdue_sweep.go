package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/mrlokans/circulation/internal/config"
	"github.com/mrlokans/circulation/internal/entities"
	"github.com/mrlokans/circulation/internal/tasks"
	"github.com/robfig/cron/v3"
)

// CirculationEngine is the part of the lending service the sweep needs:
// finding open loans past due and materializing their overdue state.
type CirculationEngine interface {
	ListOverdue(ctx context.Context) ([]entities.Borrowing, error)
	Reconcile(ctx context.Context, borrowingID uint) (*entities.Borrowing, error)
}

// OverdueSweepScheduler periodically scans the ledger for loans past their
// due date and fans out one reconcile task per loan, so a record that fails
// to materialize retries on its own without stalling the rest of the batch.
// When no task client is configured the sweep reconciles inline instead.
type OverdueSweepScheduler struct {
	engine     CirculationEngine
	taskClient *tasks.Client
	cfg        *config.Config

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	isSweeping bool
	cancelFunc context.CancelFunc
}

// NewOverdueSweepScheduler creates a new scheduler instance. taskClient may
// be nil.
func NewOverdueSweepScheduler(engine CirculationEngine, taskClient *tasks.Client, cfg *config.Config) *OverdueSweepScheduler {
	return &OverdueSweepScheduler{
		engine:     engine,
		taskClient: taskClient,
		cfg:        cfg,
		cron:       cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
	}
}

// Start begins the scheduler if the sweep is enabled
func (s *OverdueSweepScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if !s.cfg.OverdueSweep.Enabled {
		log.Printf("Overdue sweep scheduler: disabled")
		return nil
	}

	schedule := s.cfg.OverdueSweep.Schedule
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", schedule, err)
	}

	entryID, err := s.cron.AddFunc(schedule, func() {
		s.runSweep()
	})
	if err != nil {
		return fmt.Errorf("failed to schedule overdue sweep: %w", err)
	}
	s.entryID = entryID

	// Daily audit trail cleanup rides on the same cron instance.
	if s.cfg.Audit.Enabled && s.taskClient != nil {
		_, err := s.cron.AddFunc("30 3 * * *", func() {
			s.enqueueCleanup()
		})
		if err != nil {
			return fmt.Errorf("failed to schedule event cleanup: %w", err)
		}
	}

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true

	log.Printf("Overdue sweep scheduler: started with schedule '%s'", schedule)

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop gracefully stops the scheduler
func (s *OverdueSweepScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	// Stop accepting new jobs and wait for running jobs to complete
	ctx := s.cron.Stop()
	<-ctx.Done()

	s.isRunning = false
	s.cancelFunc = nil

	log.Printf("Overdue sweep scheduler: stopped")
}

// RunNow triggers an immediate sweep
func (s *OverdueSweepScheduler) RunNow() error {
	go s.runSweep()
	return nil
}

// SweepOnce performs a single synchronous sweep, reconciling every overdue
// loan inline. Used by the one-shot CLI command.
func (s *OverdueSweepScheduler) SweepOnce(ctx context.Context) (int, error) {
	overdue, err := s.engine.ListOverdue(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list overdue loans: %w", err)
	}

	var reconciled int
	for _, b := range overdue {
		if _, err := s.engine.Reconcile(ctx, b.ID); err != nil {
			log.Printf("Overdue sweep: failed to reconcile borrowing %d: %v", b.ID, err)
			continue
		}
		reconciled++
	}
	return reconciled, nil
}

// IsRunning returns whether the scheduler is active
func (s *OverdueSweepScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// IsSweeping returns whether a sweep is currently in progress
func (s *OverdueSweepScheduler) IsSweeping() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isSweeping
}

// GetNextRunTime returns when the next sweep will occur
func (s *OverdueSweepScheduler) GetNextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}

	entries := s.cron.Entries()
	for _, entry := range entries {
		if entry.ID == s.entryID {
			t := entry.Next
			return &t
		}
	}
	return nil
}

// runSweep performs the actual sweep operation
func (s *OverdueSweepScheduler) runSweep() {
	s.mu.Lock()
	if s.isSweeping {
		s.mu.Unlock()
		log.Printf("Overdue sweep: skipped (already sweeping)")
		return
	}
	s.isSweeping = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isSweeping = false
		s.mu.Unlock()
	}()

	log.Printf("Overdue sweep: scanning ledger for loans past due")
	startTime := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	overdue, err := s.engine.ListOverdue(ctx)
	if err != nil {
		log.Printf("Overdue sweep: failed to list overdue loans: %v", err)
		return
	}

	if len(overdue) == 0 {
		log.Printf("Overdue sweep: no overdue loans found")
		return
	}

	if s.taskClient == nil {
		reconciled, err := s.SweepOnce(ctx)
		if err != nil {
			log.Printf("Overdue sweep: %v", err)
			return
		}
		log.Printf("Overdue sweep: reconciled %d loans inline in %v",
			reconciled, time.Since(startTime).Round(time.Millisecond))
		return
	}

	var enqueued int
	for _, b := range overdue {
		if _, err := s.taskClient.Add(tasks.ReconcileOverdueTask{BorrowingID: b.ID}).Save(); err != nil {
			log.Printf("Overdue sweep: failed to enqueue reconcile for borrowing %d: %v", b.ID, err)
			continue
		}
		enqueued++
	}

	log.Printf("Overdue sweep: enqueued %d of %d reconcile tasks in %v",
		enqueued, len(overdue), time.Since(startTime).Round(time.Millisecond))
}

func (s *OverdueSweepScheduler) enqueueCleanup() {
	task := tasks.CleanupCirculationEventsTask{RetentionDays: s.cfg.Audit.RetentionDays}
	if _, err := s.taskClient.Add(task).Save(); err != nil {
		log.Printf("Overdue sweep: failed to enqueue event cleanup: %v", err)
	}
}
