package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/rs/zerolog/log"
)

// OrphanTagsCleaner provides the ability to delete orphan tags.
type OrphanTagsCleaner interface {
	DeleteUnusedTags() (int64, error)
}

// SweepRecorder is notified of every sweep run by the queue.
type SweepRecorder interface {
	LogSweep(trigger string, deleted int64, err error)
}

// CleanupOrphanTagsTask removes tags that no metadata item references.
type CleanupOrphanTagsTask struct {
	Trigger string `json:"trigger"`
}

// Config returns the queue configuration for cleanup tasks.
func (t CleanupOrphanTagsTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "cleanup_orphan_tags",
		MaxAttempts: 1,
		Backoff:     time.Minute,
		Timeout:     time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// CleanupOrphanTagsProcessor creates a processor function for CleanupOrphanTagsTask.
// recorder may be nil.
func CleanupOrphanTagsProcessor(cleaner OrphanTagsCleaner, recorder SweepRecorder) backlite.QueueProcessor[CleanupOrphanTagsTask] {
	return func(ctx context.Context, task CleanupOrphanTagsTask) error {
		if cleaner == nil {
			return fmt.Errorf("orphan tags cleaner not configured")
		}

		deleted, err := cleaner.DeleteUnusedTags()
		if recorder != nil {
			recorder.LogSweep(task.Trigger, deleted, err)
		}
		if err != nil {
			return fmt.Errorf("cleanup orphan tags: %w", err)
		}

		log.Info().Int64("deleted", deleted).Str("trigger", task.Trigger).Msg("cleaned up orphan tags")
		return nil
	}
}

// NewCleanupOrphanTagsQueue creates a backlite queue for tag cleanup tasks.
func NewCleanupOrphanTagsQueue(cleaner OrphanTagsCleaner, recorder SweepRecorder) backlite.Queue {
	return backlite.NewQueue(CleanupOrphanTagsProcessor(cleaner, recorder))
}
