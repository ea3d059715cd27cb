package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/circulation/internal/config"
	"github.com/mrlokans/circulation/internal/entities"
)

type fakeEngine struct {
	mu         sync.Mutex
	overdue    []entities.Borrowing
	reconciled []uint
	failFor    map[uint]error
}

func (f *fakeEngine) ListOverdue(ctx context.Context) ([]entities.Borrowing, error) {
	return f.overdue, nil
}

func (f *fakeEngine) Reconcile(ctx context.Context, borrowingID uint) (*entities.Borrowing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failFor[borrowingID]; ok {
		return nil, err
	}
	f.reconciled = append(f.reconciled, borrowingID)
	return &entities.Borrowing{ID: borrowingID, Status: entities.BorrowingOverdue}, nil
}

func sweepConfig(enabled bool, schedule string) *config.Config {
	return &config.Config{
		OverdueSweep: config.OverdueSweep{Enabled: enabled, Schedule: schedule},
	}
}

func TestSweepOnce(t *testing.T) {
	engine := &fakeEngine{
		overdue: []entities.Borrowing{{ID: 1}, {ID: 2}, {ID: 3}},
		failFor: map[uint]error{2: errors.New("locked")},
	}
	s := NewOverdueSweepScheduler(engine, nil, sweepConfig(true, "0 * * * *"))

	reconciled, err := s.SweepOnce(context.Background())
	require.NoError(t, err)

	// A failing record is skipped, not fatal
	assert.Equal(t, 2, reconciled)
	assert.Equal(t, []uint{1, 3}, engine.reconciled)
}

func TestStartDisabled(t *testing.T) {
	engine := &fakeEngine{}
	s := NewOverdueSweepScheduler(engine, nil, sweepConfig(false, "0 * * * *"))

	require.NoError(t, s.Start(context.Background()))
	assert.False(t, s.IsRunning())
}

func TestStartAndStop(t *testing.T) {
	engine := &fakeEngine{}
	s := NewOverdueSweepScheduler(engine, nil, sweepConfig(true, "0 * * * *"))

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())

	next := s.GetNextRunTime()
	require.NotNil(t, next)
	assert.True(t, next.After(time.Now()))

	// Starting twice is a no-op
	require.NoError(t, s.Start(context.Background()))

	s.Stop()
	assert.False(t, s.IsRunning())
	assert.Nil(t, s.GetNextRunTime())
}

func TestStartRejectsInvalidSchedule(t *testing.T) {
	engine := &fakeEngine{}
	s := NewOverdueSweepScheduler(engine, nil, sweepConfig(true, "not a schedule"))

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.False(t, s.IsRunning())
}

func TestRunNowReconcilesInline(t *testing.T) {
	engine := &fakeEngine{overdue: []entities.Borrowing{{ID: 7}}}
	s := NewOverdueSweepScheduler(engine, nil, sweepConfig(true, "0 * * * *"))

	require.NoError(t, s.RunNow())

	require.Eventually(t, func() bool {
		engine.mu.Lock()
		defer engine.mu.Unlock()
		return len(engine.reconciled) == 1
	}, 2*time.Second, 10*time.Millisecond)
}
