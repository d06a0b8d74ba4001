package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/mrlokans/gallery/internal/tasks"
)

// Enqueue hands a task to the background queue.
type Enqueue func(task backlite.Task) error

// Config selects the maintenance jobs and their cron schedules.
type Config struct {
	TagSweepEnabled    bool
	TagSweepSchedule   string
	AuditCleanup       string // empty disables audit cleanup
	AuditRetentionDays int
}

// MaintenanceScheduler periodically enqueues the orphan tag sweep and the
// audit event cleanup.
type MaintenanceScheduler struct {
	enqueue Enqueue
	config  Config

	cron       *cron.Cron
	mu         sync.RWMutex
	isRunning  bool
	cancelFunc context.CancelFunc
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateSchedule checks that schedule is a five-field cron expression.
func ValidateSchedule(schedule string) error {
	_, err := parser.Parse(schedule)
	return err
}

// NewMaintenanceScheduler creates a new scheduler instance
func NewMaintenanceScheduler(enqueue Enqueue, config Config) *MaintenanceScheduler {
	return &MaintenanceScheduler{
		enqueue: enqueue,
		config:  config,
		cron:    cron.New(cron.WithParser(parser)),
	}
}

// Start schedules the enabled jobs. It stops on its own when ctx is done.
func (s *MaintenanceScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	jobs := 0
	if s.config.TagSweepEnabled {
		if err := s.add(s.config.TagSweepSchedule, "tag sweep", s.RunTagSweep); err != nil {
			return err
		}
		jobs++
	}
	if s.config.AuditCleanup != "" {
		if err := s.add(s.config.AuditCleanup, "audit cleanup", s.RunAuditCleanup); err != nil {
			return err
		}
		jobs++
	}
	if jobs == 0 {
		log.Info().Msg("maintenance scheduler: no jobs enabled")
		return nil
	}

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true
	log.Info().Int("jobs", jobs).Msg("maintenance scheduler: started")

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

func (s *MaintenanceScheduler) add(schedule, name string, run func() error) error {
	if err := ValidateSchedule(schedule); err != nil {
		return fmt.Errorf("invalid %s schedule '%s': %w", name, schedule, err)
	}
	_, err := s.cron.AddFunc(schedule, func() {
		if err := run(); err != nil {
			log.Error().Err(err).Str("job", name).Msg("failed to enqueue maintenance task")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule %s: %w", name, err)
	}
	return nil
}

// Stop stops accepting new runs and waits for running ones.
func (s *MaintenanceScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()

	s.isRunning = false
	if s.cancelFunc != nil {
		s.cancelFunc()
		s.cancelFunc = nil
	}

	log.Info().Msg("maintenance scheduler: stopped")
}

// RunTagSweep enqueues a sweep immediately.
func (s *MaintenanceScheduler) RunTagSweep() error {
	return s.enqueue(tasks.CleanupOrphanTagsTask{Trigger: "scheduled"})
}

// RunAuditCleanup enqueues an audit prune immediately.
func (s *MaintenanceScheduler) RunAuditCleanup() error {
	return s.enqueue(tasks.PruneAuditTrailTask{RetentionDays: s.config.AuditRetentionDays, Trigger: "scheduled"})
}

// IsRunning returns whether the scheduler is active
func (s *MaintenanceScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRun returns the earliest upcoming job time, or nil when stopped.
func (s *MaintenanceScheduler) NextRun() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}

	var next *time.Time
	for _, entry := range s.cron.Entries() {
		if entry.Next.IsZero() {
			continue
		}
		if next == nil || entry.Next.Before(*next) {
			t := entry.Next
			next = &t
		}
	}
	return next
}
