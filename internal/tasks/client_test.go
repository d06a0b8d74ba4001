package tasks

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/mrlokans/gallery/internal/config"
	"github.com/mrlokans/gallery/internal/database"
	"github.com/mrlokans/gallery/internal/database/albums"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// database/sql keeps a connection opener per pool until Close.
		goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"),
	)
}

func newTestClient(t *testing.T) *Client {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Workers = 1

	client, err := NewClient(filepath.Join(t.TempDir(), "test.db"), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func startClient(t *testing.T, client *Client) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	client.Start(ctx)
	t.Cleanup(func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer stopCancel()
		client.Stop(stopCtx)
		cancel()
	})
}

func TestNewClient(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	cfg := DefaultConfig()
	cfg.Workers = 1

	client, err := NewClient(dbPath, cfg)
	require.NoError(t, err)
	require.NotNil(t, client)

	tasksDBPath := filepath.Join(tmpDir, "test-tasks.db")
	_, err = os.Stat(tasksDBPath)
	assert.NoError(t, err, "tasks database should be created")

	err = client.Close()
	assert.NoError(t, err)
}

func TestClientStartStop(t *testing.T) {
	client := newTestClient(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	client.Start(ctx)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()

	success := client.Stop(stopCtx)
	assert.True(t, success, "stop should succeed gracefully")
}

func TestClientStopWithoutStart(t *testing.T) {
	client := newTestClient(t)
	assert.True(t, client.Stop(context.Background()))
}

type fakeCleaner struct {
	deleted int64
	err     error
	calls   chan struct{}
}

func (f *fakeCleaner) DeleteUnusedTags() (int64, error) {
	f.calls <- struct{}{}
	return f.deleted, f.err
}

type fakeRecorder struct {
	sweeps chan string
	tasks  chan error
}

func (f *fakeRecorder) LogSweep(trigger string, _ int64, _ error) {
	f.sweeps <- trigger
}

func (f *fakeRecorder) LogBackgroundTask(_, _ string, err error) {
	f.tasks <- err
}

func TestCleanupOrphanTagsQueue(t *testing.T) {
	client := newTestClient(t)
	cleaner := &fakeCleaner{deleted: 3, calls: make(chan struct{}, 1)}
	recorder := &fakeRecorder{sweeps: make(chan string, 1)}
	client.Register(NewCleanupOrphanTagsQueue(cleaner, recorder))
	startClient(t, client)

	ids, err := client.Add(CleanupOrphanTagsTask{Trigger: "test"}).Save()
	require.NoError(t, err)
	assert.Len(t, ids, 1)

	select {
	case trigger := <-recorder.sweeps:
		assert.Equal(t, "test", trigger)
	case <-time.After(5 * time.Second):
		t.Fatal("sweep was not executed within timeout")
	}
	assert.Len(t, cleaner.calls, 1)
}

func TestCleanupOrphanTagsProcessor(t *testing.T) {
	t.Run("nil cleaner", func(t *testing.T) {
		err := CleanupOrphanTagsProcessor(nil, nil)(context.Background(), CleanupOrphanTagsTask{})
		assert.Error(t, err)
	})

	t.Run("cleaner error", func(t *testing.T) {
		cleaner := &fakeCleaner{err: errors.New("locked"), calls: make(chan struct{}, 1)}
		err := CleanupOrphanTagsProcessor(cleaner, nil)(context.Background(), CleanupOrphanTagsTask{})
		assert.ErrorContains(t, err, "locked")
	})
}

type fakeAuditCleaner struct {
	retention time.Duration
	err       error
}

func (f *fakeAuditCleaner) DeleteOldEvents(retention time.Duration) (int64, error) {
	f.retention = retention
	return 0, f.err
}

func TestPruneAuditTrailProcessor(t *testing.T) {
	t.Run("configured retention", func(t *testing.T) {
		cleaner := &fakeAuditCleaner{}
		recorder := &fakeRecorder{tasks: make(chan error, 1)}
		require.NoError(t, PruneAuditTrailProcessor(cleaner, recorder, 14)(context.Background(), PruneAuditTrailTask{}))
		assert.Equal(t, 14*24*time.Hour, cleaner.retention)
		assert.NoError(t, <-recorder.tasks)
	})

	t.Run("task overrides configured retention", func(t *testing.T) {
		cleaner := &fakeAuditCleaner{}
		require.NoError(t, PruneAuditTrailProcessor(cleaner, nil, 14)(context.Background(), PruneAuditTrailTask{RetentionDays: 7}))
		assert.Equal(t, 7*24*time.Hour, cleaner.retention)
	})

	t.Run("falls back to default", func(t *testing.T) {
		cleaner := &fakeAuditCleaner{}
		require.NoError(t, PruneAuditTrailProcessor(cleaner, nil, 0)(context.Background(), PruneAuditTrailTask{}))
		assert.Equal(t, time.Duration(config.DefaultAuditRetentionDays)*24*time.Hour, cleaner.retention)
	})

	t.Run("failure is recorded and returned", func(t *testing.T) {
		cleaner := &fakeAuditCleaner{err: errors.New("locked")}
		recorder := &fakeRecorder{tasks: make(chan error, 1)}
		err := PruneAuditTrailProcessor(cleaner, recorder, 14)(context.Background(), PruneAuditTrailTask{})
		assert.ErrorContains(t, err, "locked")
		assert.ErrorContains(t, <-recorder.tasks, "locked")
	})

	t.Run("nil cleaner", func(t *testing.T) {
		assert.Error(t, PruneAuditTrailProcessor(nil, nil, 14)(context.Background(), PruneAuditTrailTask{}))
	})
}

type fakeDeleter struct {
	err error
	ids []uint
}

func (f *fakeDeleter) DeleteAlbumByID(id uint) (*albums.CascadeResult, error) {
	f.ids = append(f.ids, id)
	if f.err != nil {
		return nil, f.err
	}
	return &albums.CascadeResult{Albums: []uint{id}}, nil
}

func TestDeleteAlbumProcessor(t *testing.T) {
	t.Run("deletes and records", func(t *testing.T) {
		deleter := &fakeDeleter{}
		recorder := &fakeRecorder{tasks: make(chan error, 1)}
		require.NoError(t, DeleteAlbumProcessor(deleter, recorder)(context.Background(), DeleteAlbumTask{AlbumID: 5}))
		assert.Equal(t, []uint{5}, deleter.ids)
		assert.NoError(t, <-recorder.tasks)
	})

	t.Run("missing album is done", func(t *testing.T) {
		deleter := &fakeDeleter{err: database.ErrNotFound}
		assert.NoError(t, DeleteAlbumProcessor(deleter, nil)(context.Background(), DeleteAlbumTask{AlbumID: 5}))
	})

	t.Run("failure is returned for retry", func(t *testing.T) {
		deleter := &fakeDeleter{err: database.ErrConcurrencyConflict}
		recorder := &fakeRecorder{tasks: make(chan error, 1)}
		err := DeleteAlbumProcessor(deleter, recorder)(context.Background(), DeleteAlbumTask{AlbumID: 5})
		assert.ErrorIs(t, err, database.ErrConcurrencyConflict)
		assert.ErrorIs(t, <-recorder.tasks, database.ErrConcurrencyConflict)
	})

	t.Run("nil deleter", func(t *testing.T) {
		assert.Error(t, DeleteAlbumProcessor(nil, nil)(context.Background(), DeleteAlbumTask{}))
	})
}

func TestTaskConfigs(t *testing.T) {
	tests := []struct {
		task        backlite.Task
		name        string
		maxAttempts int
	}{
		{CleanupOrphanTagsTask{}, "cleanup_orphan_tags", 1},
		{PruneAuditTrailTask{}, "prune_audit_trail", 3},
		{DeleteAlbumTask{}, "delete_album", 3},
	}

	for _, tc := range tests {
		cfg := tc.task.Config()
		assert.Equal(t, tc.name, cfg.Name)
		assert.Equal(t, tc.maxAttempts, cfg.MaxAttempts)
		assert.NotNil(t, cfg.Retention)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, 15*time.Minute, cfg.ReleaseAfter)
	assert.Equal(t, time.Hour, cfg.CleanupInterval)
}
