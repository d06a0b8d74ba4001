package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/rs/zerolog/log"

	"github.com/mrlokans/gallery/internal/config"
)

const pruneAuditAction = "prune_audit_trail"

// AuditEventCleaner deletes audit events older than a cutoff age.
type AuditEventCleaner interface {
	DeleteOldEvents(retention time.Duration) (int64, error)
}

// PruneAuditTrailTask drops gallery audit events past their retention age.
// A zero RetentionDays falls back to the queue's configured window.
type PruneAuditTrailTask struct {
	RetentionDays int    `json:"retention_days"`
	Trigger       string `json:"trigger"`
}

// Config returns the queue configuration for audit pruning.
func (t PruneAuditTrailTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        pruneAuditAction,
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

// retentionDays picks the task's own window, then the configured one, then
// the package default.
func (t PruneAuditTrailTask) retentionDays(configured int) int {
	switch {
	case t.RetentionDays > 0:
		return t.RetentionDays
	case configured > 0:
		return configured
	default:
		return config.DefaultAuditRetentionDays
	}
}

// PruneAuditTrailProcessor creates a processor function for PruneAuditTrailTask.
// Each run is reported to recorder, which may be nil.
func PruneAuditTrailProcessor(cleaner AuditEventCleaner, recorder TaskRecorder, retentionDays int) backlite.QueueProcessor[PruneAuditTrailTask] {
	return func(ctx context.Context, task PruneAuditTrailTask) error {
		if cleaner == nil {
			return fmt.Errorf("audit event cleaner not configured")
		}

		days := task.retentionDays(retentionDays)
		deleted, err := cleaner.DeleteOldEvents(time.Duration(days) * 24 * time.Hour)
		if recorder != nil {
			recorder.LogBackgroundTask(pruneAuditAction,
				fmt.Sprintf("Pruned %d audit events older than %d days (%s)", deleted, days, triggerOrDefault(task.Trigger)), err)
		}
		if err != nil {
			return fmt.Errorf("prune audit trail: %w", err)
		}

		log.Info().
			Int64("deleted", deleted).
			Int("retention_days", days).
			Str("trigger", task.Trigger).
			Msg("pruned audit trail")
		return nil
	}
}

func triggerOrDefault(trigger string) string {
	if trigger == "" {
		return "manual"
	}
	return trigger
}

// NewPruneAuditTrailQueue creates a backlite queue for audit pruning.
func NewPruneAuditTrailQueue(cleaner AuditEventCleaner, recorder TaskRecorder, retentionDays int) backlite.Queue {
	return backlite.NewQueue(PruneAuditTrailProcessor(cleaner, recorder, retentionDays))
}
