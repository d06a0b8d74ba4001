// Package interfaces documents the abstractions that connect the gallery
// persistence core to its reporting and background layers.
//
// # Interface Categories
//
// ## Persistence Reporting
//
//   - EventSink: failures and exhausted retries of a save or delete (internal/gallery/service.go)
//   - DeleteRecorder: what a cascade removed (internal/gallery/service.go)
//   - SnapshotWriter: JSON copy of an album graph before it is deleted (internal/gallery/service.go)
//
// ## Background Tasks
//
//   - OrphanTagsCleaner: the tag sweep (internal/tasks/cleanup_tags.go)
//   - AlbumDeleter: deletes queued by album ID (internal/tasks/delete_album.go)
//   - AuditEventCleaner: audit retention (internal/tasks/prune_audit.go)
//   - SweepRecorder, TaskRecorder: audit entries for task runs
//
// # Adding a New Background Task
//
//  1. Define the task and its dependency in internal/tasks/
//
//     type RebuildThumbnailsTask struct {
//         AlbumID uint `json:"album_id"`
//     }
//
//     func (t RebuildThumbnailsTask) Config() backlite.QueueConfig
//
//     func NewRebuildThumbnailsQueue(builder ThumbnailBuilder) backlite.Queue
//
//  2. Return the queue from App.Queues in internal/entrypoint/entrypoint.go
//
//  3. Add a compile-time check to checks.go
//
// # Adding a New Persisted Entity
//
//  1. Add the model to internal/entities/ with an embedded RowVersion and
//     register it in database.Models.
//
//  2. Create a sub-package under internal/database/ whose Repository takes a
//     *uow.Store, queues its writes and calls store.Save once.
//
//  3. Expose it through gallery.Service so failures reach the EventSink.
//
// # Compile-Time Interface Checks
//
// All implementations should include compile-time checks to ensure they satisfy
// their interfaces. This catches missing methods at compile time rather than runtime:
//
//	var _ SomeInterface = (*MyImplementation)(nil)
//
// This pattern is used throughout the codebase. See checks.go for examples.
package interfaces
