package scheduler

import (
	"context"
	"sync"
	"testing"

	"github.com/mikestefanello/backlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/gallery/internal/tasks"
)

type queued struct {
	mu    sync.Mutex
	tasks []backlite.Task
}

func (q *queued) enqueue(task backlite.Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, task)
	return nil
}

func TestValidateSchedule(t *testing.T) {
	assert.NoError(t, ValidateSchedule("0 3 * * *"))
	assert.NoError(t, ValidateSchedule("*/15 * * * *"))
	assert.Error(t, ValidateSchedule("every day"))
	assert.Error(t, ValidateSchedule("0 0 3 * * *"), "seconds field is not accepted")
}

func TestMaintenanceScheduler_RunNow(t *testing.T) {
	q := &queued{}
	s := NewMaintenanceScheduler(q.enqueue, Config{AuditRetentionDays: 14})

	require.NoError(t, s.RunTagSweep())
	require.NoError(t, s.RunAuditCleanup())

	require.Len(t, q.tasks, 2)
	assert.Equal(t, tasks.CleanupOrphanTagsTask{Trigger: "scheduled"}, q.tasks[0])
	assert.Equal(t, tasks.PruneAuditTrailTask{RetentionDays: 14, Trigger: "scheduled"}, q.tasks[1])
}

func TestMaintenanceScheduler_StartStop(t *testing.T) {
	q := &queued{}
	s := NewMaintenanceScheduler(q.enqueue, Config{
		TagSweepEnabled:  true,
		TagSweepSchedule: "0 3 * * *",
		AuditCleanup:     "30 3 * * 0",
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, s.Start(ctx))
	assert.True(t, s.IsRunning())
	assert.NotNil(t, s.NextRun())

	require.NoError(t, s.Start(ctx), "second start is a no-op")

	s.Stop()
	assert.False(t, s.IsRunning())
	assert.Nil(t, s.NextRun())
}

func TestMaintenanceScheduler_NothingEnabled(t *testing.T) {
	s := NewMaintenanceScheduler((&queued{}).enqueue, Config{})
	require.NoError(t, s.Start(context.Background()))
	assert.False(t, s.IsRunning())
}

func TestMaintenanceScheduler_InvalidSchedule(t *testing.T) {
	s := NewMaintenanceScheduler((&queued{}).enqueue, Config{TagSweepEnabled: true, TagSweepSchedule: "bogus"})
	err := s.Start(context.Background())
	assert.ErrorContains(t, err, "invalid tag sweep schedule")
	assert.False(t, s.IsRunning())
}
