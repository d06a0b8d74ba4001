package audit

import (
	"encoding/json"
	"errors"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mrlokans/gallery/internal/database"
	"github.com/mrlokans/gallery/internal/database/audit"
	"github.com/mrlokans/gallery/internal/entities"
)

// Service provides high-level audit logging functionality. It is the event
// sink of gallery.Service.
type Service struct {
	repo  *audit.Repository
	clock clockwork.Clock
	wg    sync.WaitGroup
}

type Option func(*Service)

// WithClock replaces the wall clock used for retention cutoffs.
func WithClock(clock clockwork.Clock) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

// NewService creates a new audit service.
func NewService(repo *audit.Repository, opts ...Option) *Service {
	s := &Service{repo: repo, clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Log records a generic audit event.
func (s *Service) Log(event *entities.AuditEvent) error {
	return s.repo.LogEvent(event)
}

// LogAsync records an audit event in the background (non-blocking).
func (s *Service) LogAsync(event *entities.AuditEvent) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.repo.LogEvent(event); err != nil {
			log.Error().Err(err).Str("action", event.Action).Msg("failed to log audit event")
		}
	}()
}

// Wait blocks until every LogAsync call has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// LogRetriesExhausted records a save abandoned after the concurrency retry bound.
func (s *Service) LogRetriesExhausted(operation string, err error) {
	event := &entities.AuditEvent{
		EventType:   entities.AuditEventConcurrency,
		Action:      operation,
		Description: "Concurrency retries exhausted",
		Status:      entities.AuditStatusFailed,
		ErrorMsg:    truncate(errorText(err), 500),
	}
	s.LogAsync(event)
}

// LogPersistenceFailure records any other failed write.
func (s *Service) LogPersistenceFailure(operation string, err error) {
	event := &entities.AuditEvent{
		EventType:   entities.AuditEventPersistence,
		Action:      operation,
		Description: "Persistence failure: " + classify(err),
		Status:      entities.AuditStatusFailed,
		ErrorMsg:    truncate(errorText(err), 500),
	}
	s.LogAsync(event)
}

// LogDelete records a cascade delete and the number of rows it removed.
func (s *Service) LogDelete(galleryID uint, entityType string, entityID uint, entityName string, removed map[string]int) {
	event := &entities.AuditEvent{
		GalleryID:   galleryID,
		EventType:   entities.AuditEventDelete,
		Action:      entityType + "_delete",
		Description: truncate("Deleted "+entityType+": "+entityName, 500),
		EntityType:  entityType,
		EntityID:    &entityID,
		Status:      entities.AuditStatusSuccess,
	}
	if mdBytes, e := json.Marshal(removed); e == nil {
		event.Metadata = string(mdBytes)
	}
	s.LogAsync(event)
}

// LogSweep records a full orphan tag sweep.
func (s *Service) LogSweep(trigger string, deleted int64, err error) {
	event := &entities.AuditEvent{
		EventType:   entities.AuditEventTagSweep,
		Action:      "tag_sweep",
		Description: "Unused tag sweep (" + trigger + ")",
		Status:      entities.AuditStatusSuccess,
	}

	metadata := map[string]any{
		"deleted": deleted,
		"trigger": trigger,
	}
	if mdBytes, e := json.Marshal(metadata); e == nil {
		event.Metadata = string(mdBytes)
	}

	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), 500)
	}

	s.LogAsync(event)
}

// LogBackgroundTask records the outcome of a queued task.
func (s *Service) LogBackgroundTask(action, description string, err error) {
	event := &entities.AuditEvent{
		EventType:   entities.AuditEventBackgroundTask,
		Action:      action,
		Description: description,
		Status:      entities.AuditStatusSuccess,
	}

	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), 500)
	}

	s.LogAsync(event)
}

// GetEvents retrieves paginated audit events.
func (s *Service) GetEvents(galleryID uint, limit, offset int) ([]entities.AuditEvent, int64, error) {
	return s.repo.GetEvents(galleryID, limit, offset)
}

// GetEventsByType retrieves audit events filtered by type.
func (s *Service) GetEventsByType(eventType entities.AuditEventType, galleryID uint, limit, offset int) ([]entities.AuditEvent, int64, error) {
	return s.repo.GetEventsByType(eventType, galleryID, limit, offset)
}

// DeleteOldEvents removes events older than the specified duration.
func (s *Service) DeleteOldEvents(retention time.Duration) (int64, error) {
	cutoff := s.clock.Now().Add(-retention)
	return s.repo.DeleteOldEvents(cutoff)
}

func classify(err error) string {
	switch {
	case errors.Is(err, database.ErrNotFound):
		return "not found"
	case errors.Is(err, database.ErrConstraintViolation):
		return "constraint violation"
	case errors.Is(err, database.ErrValidation):
		return "validation"
	default:
		return "error"
	}
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// truncate shortens s to at most maxLen bytes without splitting a rune.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
