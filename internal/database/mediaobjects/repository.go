// Package mediaobjects persists media objects and their metadata.
package mediaobjects

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/mrlokans/gallery/internal/database"
	"github.com/mrlokans/gallery/internal/database/metadata"
	"github.com/mrlokans/gallery/internal/database/tags"
	"github.com/mrlokans/gallery/internal/database/uow"
	"github.com/mrlokans/gallery/internal/entities"
	"github.com/mrlokans/gallery/internal/metrics"
)

// DeleteResult describes what one Delete removed.
type DeleteResult struct {
	metadata.Removal
	TagsSwept int64
}

// Repository handles media object persistence.
type Repository struct {
	store    *uow.Store
	metadata *metadata.Repository
	tags     *tags.Repository
}

// NewRepository creates a media objects repository working in store.
func NewRepository(store *uow.Store) *Repository {
	return &Repository{
		store:    store,
		metadata: metadata.NewRepository(store),
		tags:     tags.NewRepository(store),
	}
}

// Save inserts or updates mediaObject, then saves its dirty metadata items.
func (r *Repository) Save(mediaObject *entities.MediaObject) error {
	if mediaObject == nil {
		return fmt.Errorf("%w: nil media object", database.ErrValidation)
	}
	if err := database.Validate(mediaObject); err != nil {
		return err
	}

	var album entities.Album
	if err := r.store.Find(&album, mediaObject.AlbumID); err != nil {
		return fmt.Errorf("album %d: %w", mediaObject.AlbumID, err)
	}

	if mediaObject.ID == entities.UnsavedID {
		r.store.Add(mediaObject)
	} else {
		r.store.MarkModified(mediaObject)
	}
	if err := r.store.Save(); err != nil {
		return err
	}

	for _, item := range mediaObject.Metadata {
		if item == nil || item.AlbumID != nil {
			continue
		}
		if item.MediaObjectID == nil || *item.MediaObjectID == entities.UnsavedID {
			id := mediaObject.ID
			item.MediaObjectID = &id
		}
		if item.GalleryID == 0 {
			item.GalleryID = album.GalleryID
		}
	}
	if _, err := r.metadata.SaveCollection(&mediaObject.Metadata); err != nil {
		return fmt.Errorf("save metadata of media object %d: %w", mediaObject.ID, err)
	}
	return nil
}

// Load retrieves a media object with its metadata.
func (r *Repository) Load(id uint) (*entities.MediaObject, error) {
	var mediaObject entities.MediaObject
	if err := r.store.DB().Preload("Metadata").Take(&mediaObject, id).Error; err != nil {
		return nil, fmt.Errorf("media object %d: %w", id, database.TranslateError(err))
	}
	return &mediaObject, nil
}

// ListForAlbum retrieves the media objects of an album in display order.
func (r *Repository) ListForAlbum(albumID uint) ([]*entities.MediaObject, error) {
	var mediaObjects []*entities.MediaObject
	err := r.store.DB().Preload("Metadata").
		Where("album_id = ?", albumID).
		Order("seq ASC, id ASC").
		Find(&mediaObjects).Error
	return mediaObjects, database.TranslateError(err)
}

// Delete removes mediaObject with its metadata and tag links, then sweeps
// unreferenced tags.
func (r *Repository) Delete(mediaObject *entities.MediaObject) (*DeleteResult, error) {
	if mediaObject == nil {
		return nil, fmt.Errorf("%w: nil media object", database.ErrValidation)
	}
	if mediaObject.ID == entities.UnsavedID {
		return nil, fmt.Errorf("%w: media object %q has not been saved", database.ErrValidation, mediaObject.Title)
	}

	removal, err := r.metadata.QueueDeleteOwned(nil, []uint{mediaObject.ID})
	if err != nil {
		return nil, err
	}
	r.store.Delete(mediaObject)
	if err := r.store.Save(); err != nil {
		return nil, err
	}

	metrics.CascadeDeletesTotal.WithLabelValues("media_object").Inc()
	metrics.CascadeDeletesTotal.WithLabelValues("metadata_item").Add(float64(removal.MetadataItems))
	metrics.CascadeDeletesTotal.WithLabelValues("metadata_tag").Add(float64(removal.MetadataTags))

	swept, err := r.tags.DeleteUnusedTags()
	if err != nil {
		return nil, fmt.Errorf("sweep tags after deleting media object %d: %w", mediaObject.ID, err)
	}

	log.Debug().
		Str("store", r.store.ID()).
		Uint("media_object_id", mediaObject.ID).
		Int("metadata_items", removal.MetadataItems).
		Int64("tags_swept", swept).
		Msg("deleted media object")

	return &DeleteResult{Removal: removal, TagsSwept: swept}, nil
}
