package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/mrlokans/gallery/internal/audit"
	"github.com/mrlokans/gallery/internal/gallery"
	"github.com/mrlokans/gallery/internal/tasks"
)

// =============================================================================
// Persistence Reporting
// =============================================================================

// EventSink implementations
var _ gallery.EventSink = (*audit.Service)(nil)

// DeleteRecorder implementations
var _ gallery.DeleteRecorder = (*audit.Service)(nil)

// SnapshotWriter implementations
var _ gallery.SnapshotWriter = (*audit.Snapshotter)(nil)

// =============================================================================
// Background Tasks
// =============================================================================

// OrphanTagsCleaner implementations
var _ tasks.OrphanTagsCleaner = (*gallery.Service)(nil)

// AlbumDeleter implementations
var _ tasks.AlbumDeleter = (*gallery.Service)(nil)

// AuditEventCleaner implementations
var _ tasks.AuditEventCleaner = (*audit.Service)(nil)

// SweepRecorder implementations
var _ tasks.SweepRecorder = (*audit.Service)(nil)

// TaskRecorder implementations
var _ tasks.TaskRecorder = (*audit.Service)(nil)
