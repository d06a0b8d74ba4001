package entities

import "time"

type AuditEventType string

const (
	AuditEventPersistence    AuditEventType = "persistence"
	AuditEventConcurrency    AuditEventType = "concurrency"
	AuditEventDelete         AuditEventType = "delete"
	AuditEventTagSweep       AuditEventType = "tag_sweep"
	AuditEventBackgroundTask AuditEventType = "background_task"
)

type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusFailed  AuditStatus = "failed"
)

type AuditEvent struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	GalleryID   uint           `gorm:"index" json:"gallery_id"`
	EventType   AuditEventType `gorm:"index;size:50" json:"event_type"`
	Action      string         `gorm:"size:100" json:"action"`      // e.g., "save_album", "delete_album"
	Description string         `gorm:"size:500" json:"description"` // Human-readable summary
	EntityType  string         `gorm:"size:50" json:"entity_type"`  // "album", "media_object", "metadata"
	EntityID    *uint          `gorm:"index" json:"entity_id,omitempty"`
	Metadata    string         `gorm:"type:text" json:"metadata,omitempty"` // JSON for extra data
	Status      AuditStatus    `gorm:"size:20" json:"status"`
	ErrorMsg    string         `gorm:"size:500" json:"error_msg,omitempty"`
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`
}

func (AuditEvent) TableName() string {
	return "audit_events"
}
