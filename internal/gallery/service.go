// Package gallery is the entry point into the persistence core.
//
// Every call opens its own uow.Store, so a Service can be shared between
// goroutines while each logical operation keeps its session to itself.
// Failures are reported to the EventSink and returned unchanged.
//
// # Usage
//
//	svc := gallery.NewService(db.DB, auditService, gallery.WithMaxRetries(cfg.Database.MaxConcurrencyRetries))
//	err := svc.SaveAlbum(album)
//	result, err := svc.DeleteAlbumByID(album.ID)
package gallery

import (
	"errors"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/mrlokans/gallery/internal/database"
	"github.com/mrlokans/gallery/internal/database/albums"
	"github.com/mrlokans/gallery/internal/database/mediaobjects"
	"github.com/mrlokans/gallery/internal/database/metadata"
	"github.com/mrlokans/gallery/internal/database/tags"
	"github.com/mrlokans/gallery/internal/database/uow"
	"github.com/mrlokans/gallery/internal/entities"
)

// EventSink records failures the caller wants to keep track of.
type EventSink interface {
	LogRetriesExhausted(operation string, err error)
	LogPersistenceFailure(operation string, err error)
}

// DeleteRecorder is an optional EventSink extension notified of completed
// cascade deletes.
type DeleteRecorder interface {
	LogDelete(galleryID uint, entityType string, entityID uint, entityName string, removed map[string]int)
}

// SnapshotWriter keeps a copy of an album graph before it is deleted.
type SnapshotWriter interface {
	SaveJSON(data any) (string, error)
}

type Service struct {
	db         *gorm.DB
	sink       EventSink
	snapshots  SnapshotWriter
	maxRetries int
}

type Option func(*Service)

// WithMaxRetries sets the concurrency retry bound of every store the service opens.
func WithMaxRetries(n int) Option {
	return func(s *Service) {
		s.maxRetries = n
	}
}

// WithSnapshots makes DeleteAlbumByID write the loaded graph before deleting it.
func WithSnapshots(w SnapshotWriter) Option {
	return func(s *Service) {
		s.snapshots = w
	}
}

// NewService creates a gallery service. A nil sink discards events.
func NewService(db *gorm.DB, sink EventSink, opts ...Option) *Service {
	if sink == nil {
		sink = nopSink{}
	}
	s := &Service{db: db, sink: sink, maxRetries: uow.DefaultMaxRetries}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) newStore() *uow.Store {
	return uow.NewStore(s.db, uow.WithMaxRetries(s.maxRetries))
}

// report hands err to the sink. Validation errors are the caller's own
// mistake and are not reported.
func (s *Service) report(operation string, err error) error {
	switch {
	case err == nil:
	case errors.Is(err, database.ErrConcurrencyConflict):
		s.sink.LogRetriesExhausted(operation, err)
	case errors.Is(err, database.ErrValidation):
	default:
		s.sink.LogPersistenceFailure(operation, err)
	}
	return err
}

func (s *Service) SaveAlbum(album *entities.Album) error {
	return s.report("save_album", albums.NewRepository(s.newStore()).Save(album))
}

// LoadAlbum returns the album id with its whole subtree, media objects and metadata.
func (s *Service) LoadAlbum(id uint) (*entities.Album, error) {
	return albums.NewRepository(s.newStore()).LoadGraph(id)
}

// DeleteAlbum removes album and the subtree loaded under it. The graph must
// be current; DeleteAlbumByID reloads it first.
func (s *Service) DeleteAlbum(album *entities.Album) (*albums.CascadeResult, error) {
	result, err := albums.NewRepository(s.newStore()).Delete(album)
	if err != nil {
		return nil, s.report("delete_album", err)
	}
	if rec, ok := s.sink.(DeleteRecorder); ok {
		rec.LogDelete(album.GalleryID, "album", album.ID, album.Title, map[string]int{
			"albums":         len(result.Albums),
			"media_objects":  result.MediaObjects,
			"metadata_items": result.MetadataItems,
			"metadata_tags":  result.MetadataTags,
			"tags_swept":     int(result.TagsSwept),
		})
	}
	return result, nil
}

// DeleteAlbumByID loads the current graph of album id and deletes it.
func (s *Service) DeleteAlbumByID(id uint) (*albums.CascadeResult, error) {
	graph, err := albums.NewRepository(s.newStore()).LoadGraph(id)
	if err != nil {
		return nil, s.report("delete_album", err)
	}
	if s.snapshots != nil {
		if _, err := s.snapshots.SaveJSON(graph); err != nil {
			log.Warn().Err(err).Uint("album_id", id).Msg("failed to snapshot album before delete")
		}
	}
	return s.DeleteAlbum(graph)
}

func (s *Service) SaveMediaObject(mediaObject *entities.MediaObject) error {
	return s.report("save_media_object", mediaobjects.NewRepository(s.newStore()).Save(mediaObject))
}

func (s *Service) LoadMediaObject(id uint) (*entities.MediaObject, error) {
	return mediaobjects.NewRepository(s.newStore()).Load(id)
}

func (s *Service) DeleteMediaObject(mediaObject *entities.MediaObject) (*mediaobjects.DeleteResult, error) {
	result, err := mediaobjects.NewRepository(s.newStore()).Delete(mediaObject)
	if err != nil {
		return nil, s.report("delete_media_object", err)
	}
	if rec, ok := s.sink.(DeleteRecorder); ok {
		rec.LogDelete(0, "media_object", mediaObject.ID, mediaObject.Title, map[string]int{
			"metadata_items": result.MetadataItems,
			"metadata_tags":  result.MetadataTags,
			"tags_swept":     int(result.TagsSwept),
		})
	}
	return result, nil
}

// SaveMetadata writes the dirty and deleted items of a collection and prunes
// the deleted ones from it.
func (s *Service) SaveMetadata(items *[]*entities.MetadataItem) (*metadata.SaveResult, error) {
	result, err := metadata.NewRepository(s.newStore()).SaveCollection(items)
	return result, s.report("save_metadata", err)
}

func (s *Service) SaveMetadataItem(item *entities.MetadataItem) (metadata.Outcome, error) {
	outcome, err := metadata.NewRepository(s.newStore()).Save(item)
	return outcome, s.report("save_metadata", err)
}

// DeleteUnusedTags runs a full orphan tag sweep.
func (s *Service) DeleteUnusedTags() (int64, error) {
	deleted, err := tags.NewRepository(s.newStore()).DeleteUnusedTags()
	return deleted, s.report("delete_unused_tags", err)
}

func (s *Service) ListTags(galleryID uint) ([]entities.Tag, error) {
	return tags.NewRepository(s.newStore()).ListTags(galleryID)
}

func (s *Service) SearchTags(query string, galleryID uint) ([]entities.Tag, error) {
	return tags.NewRepository(s.newStore()).SearchTags(query, galleryID)
}

type nopSink struct{}

func (nopSink) LogRetriesExhausted(string, error)   {}
func (nopSink) LogPersistenceFailure(string, error) {}
