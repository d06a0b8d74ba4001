package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/rs/zerolog/log"

	"github.com/mrlokans/gallery/internal/database"
	"github.com/mrlokans/gallery/internal/database/albums"
)

// AlbumDeleter removes an album subtree after reloading it.
type AlbumDeleter interface {
	DeleteAlbumByID(id uint) (*albums.CascadeResult, error)
}

// TaskRecorder is notified of the outcome of background deletes.
type TaskRecorder interface {
	LogBackgroundTask(action, description string, err error)
}

// DeleteAlbumTask removes a large album subtree off the caller's goroutine.
type DeleteAlbumTask struct {
	AlbumID uint `json:"album_id"`
}

// Config returns the queue configuration for album deletes.
func (t DeleteAlbumTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "delete_album",
		MaxAttempts: 3,
		Backoff:     30 * time.Second,
		Timeout:     30 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   7 * 24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// DeleteAlbumProcessor creates a processor function for DeleteAlbumTask.
// An album that no longer exists counts as done. recorder may be nil.
func DeleteAlbumProcessor(deleter AlbumDeleter, recorder TaskRecorder) backlite.QueueProcessor[DeleteAlbumTask] {
	return func(ctx context.Context, task DeleteAlbumTask) error {
		if deleter == nil {
			return fmt.Errorf("album deleter not configured")
		}

		result, err := deleter.DeleteAlbumByID(task.AlbumID)
		if errors.Is(err, database.ErrNotFound) {
			log.Info().Uint("album_id", task.AlbumID).Msg("album already deleted")
			return nil
		}
		if recorder != nil {
			recorder.LogBackgroundTask("delete_album", fmt.Sprintf("Delete album %d", task.AlbumID), err)
		}
		if err != nil {
			return fmt.Errorf("delete album %d: %w", task.AlbumID, err)
		}

		log.Info().
			Uint("album_id", task.AlbumID).
			Int("albums", len(result.Albums)).
			Int("media_objects", result.MediaObjects).
			Msg("deleted album in background")
		return nil
	}
}

// NewDeleteAlbumQueue creates a backlite queue for album deletes.
func NewDeleteAlbumQueue(deleter AlbumDeleter, recorder TaskRecorder) backlite.Queue {
	return backlite.NewQueue(DeleteAlbumProcessor(deleter, recorder))
}
