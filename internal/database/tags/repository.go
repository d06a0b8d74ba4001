// Package tags keeps the tag table consistent with Tags and People metadata.
//
// The Repository owns the tag table itself: it creates missing tag rows and
// collects rows nobody references any more. The Synchronizer reconciles the
// metadata_tags junction rows of one metadata item against the tokens of its
// current value and uses the Repository for every tag row it creates or
// deletes.
//
// Every tag row insert or delete happens under one process-wide lock. SQLite
// has no atomic "insert if absent", so two writers adding the same new tag
// would otherwise both try to insert it and one would hit the primary key.
//
// # Usage
//
//	store := uow.NewStore(db)
//	repo := tags.NewRepository(store)
//	created, err := repo.EnsureTagsExist([]string{"Vacation", "Family"})
//	deleted, err := repo.DeleteUnusedTags()
package tags

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/mrlokans/gallery/internal/database/uow"
	"github.com/mrlokans/gallery/internal/entities"
	"github.com/mrlokans/gallery/internal/metrics"
	"github.com/mrlokans/gallery/internal/syncutil"
)

// tagLock serializes check-then-insert (and delete) on the tag table across
// every Repository in the process.
var tagLock syncutil.Mutex

// Repository handles all tag table operations.
type Repository struct {
	store *uow.Store
}

// NewRepository creates a tag repository working in store.
func NewRepository(store *uow.Store) *Repository {
	return &Repository{store: store}
}

// EnsureTagsExist inserts a tag row for every trimmed name not already in
// the table (exact match) and returns the names it created.
func (r *Repository) EnsureTagsExist(names []string) ([]string, error) {
	tagLock.Lock()
	defer tagLock.Unlock()

	created, err := r.queueMissingTags(names)
	if err != nil {
		return nil, err
	}
	if err := r.store.Save(); err != nil {
		return nil, err
	}
	metrics.TagsCreatedTotal.Add(float64(len(created)))
	return created, nil
}

// queueMissingTags adds the missing tag rows to the store without flushing.
// Callers must hold tagLock until the store is saved.
func (r *Repository) queueMissingTags(names []string) ([]string, error) {
	wanted := normalize(names)
	if len(wanted) == 0 {
		return nil, nil
	}

	var existing []entities.Tag
	if err := r.store.Query(&existing, "name IN ?", wanted); err != nil {
		return nil, fmt.Errorf("load tags: %w", err)
	}
	present := make(map[string]struct{}, len(existing))
	for _, tag := range existing {
		present[tag.Name] = struct{}{}
	}

	var created []string
	for _, name := range wanted {
		if _, ok := present[name]; ok {
			continue
		}
		r.store.Add(&entities.Tag{Name: name})
		created = append(created, name)
	}
	return created, nil
}

// DeleteUnusedTags removes every tag row without a metadata_tags reference.
// It is a full sweep, meant for after subtree deletes where many tags can be
// orphaned at once.
func (r *Repository) DeleteUnusedTags() (int64, error) {
	tagLock.Lock()
	defer tagLock.Unlock()

	result := r.store.DB().Exec(`
		DELETE FROM tags
		WHERE name NOT IN (SELECT tag_name FROM metadata_tags)
	`)
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected > 0 {
		metrics.OrphanTagsDeletedTotal.WithLabelValues("sweep").Add(float64(result.RowsAffected))
		log.Info().Int64("deleted", result.RowsAffected).Msg("swept unused tags")
	}
	return result.RowsAffected, nil
}

// IsTagOrphan reports whether no metadata_tags row references name. The
// comparison ignores case.
func (r *Repository) IsTagOrphan(name string) (bool, error) {
	var count int64
	err := r.store.DB().Model(&entities.MetadataTag{}).
		Where("LOWER(tag_name) = LOWER(?)", name).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count == 0, nil
}

// deleteTagsIfOrphan queues the deletion of every name in names that
// IsTagOrphan reports as unreferenced. Callers must hold tagLock and save.
func (r *Repository) deleteTagsIfOrphan(names []string) ([]string, error) {
	var deleted []string
	for _, name := range names {
		orphan, err := r.IsTagOrphan(name)
		if err != nil {
			return nil, err
		}
		if orphan {
			r.store.Delete(&entities.Tag{Name: name})
			deleted = append(deleted, name)
		}
	}
	return deleted, nil
}

// GetTag retrieves a tag by its exact name.
func (r *Repository) GetTag(name string) (*entities.Tag, error) {
	var tag entities.Tag
	if err := r.store.Find(&tag, "name = ?", name); err != nil {
		return nil, err
	}
	return &tag, nil
}

// ListTags returns the tags referenced from a gallery, ordered by name.
func (r *Repository) ListTags(galleryID uint) ([]entities.Tag, error) {
	var tags []entities.Tag
	err := r.store.DB().
		Where("name IN (?)", r.store.DB().Model(&entities.MetadataTag{}).Select("tag_name").Where("gallery_id = ?", galleryID)).
		Order("name ASC").
		Find(&tags).Error
	return tags, err
}

// SearchTags searches tags referenced from a gallery by name (case-insensitive partial match).
func (r *Repository) SearchTags(query string, galleryID uint) ([]entities.Tag, error) {
	var tags []entities.Tag
	searchPattern := "%" + strings.ToLower(query) + "%"
	err := r.store.DB().
		Where("LOWER(name) LIKE ?", searchPattern).
		Where("name IN (?)", r.store.DB().Model(&entities.MetadataTag{}).Select("tag_name").Where("gallery_id = ?", galleryID)).
		Order("name ASC").
		Find(&tags).Error
	return tags, err
}

// GetTagsForMetadata returns the junction rows of one metadata item.
func (r *Repository) GetTagsForMetadata(metadataID uint) ([]entities.MetadataTag, error) {
	var rows []entities.MetadataTag
	err := r.store.DB().Where("metadata_id = ?", metadataID).Order("tag_name ASC").Find(&rows).Error
	return rows, err
}
