package tags

import (
	"fmt"
	"slices"

	"github.com/rs/zerolog/log"

	"github.com/mrlokans/gallery/internal/database/uow"
	"github.com/mrlokans/gallery/internal/entities"
	"github.com/mrlokans/gallery/internal/metrics"
)

// SyncResult lists the writes one Sync call performed.
type SyncResult struct {
	Added       []string // junction rows inserted
	Removed     []string // junction rows deleted
	TagsCreated []string
	TagsDeleted []string // tag rows left without any reference
}

// Writes returns the number of junction rows inserted or deleted.
func (r *SyncResult) Writes() int {
	return len(r.Added) + len(r.Removed)
}

// Synchronizer reconciles the metadata_tags rows of a metadata item with the
// tag names of its value.
type Synchronizer struct {
	store *uow.Store
	repo  *Repository
}

// NewSynchronizer creates a synchronizer working in store.
func NewSynchronizer(store *uow.Store) *Synchronizer {
	return &Synchronizer{store: store, repo: NewRepository(store)}
}

// Sync makes the junction rows of metadataID equal to desired.
//
// Rows whose tag name is already in desired are left alone (exact-case
// match). Rows that are not are deleted, and the new names are inserted,
// creating missing tag rows first. Afterwards every removed name that no
// junction row references any more, compared case-insensitively, loses its
// tag row. Calling Sync twice with the same list writes nothing the second
// time.
func (s *Synchronizer) Sync(metadataID uint, desired []string, galleryID uint) (_ *SyncResult, err error) {
	defer func() {
		if err != nil {
			s.store.Discard()
		}
	}()

	var current []entities.MetadataTag
	if err := s.store.Query(&current, "metadata_id = ?", metadataID); err != nil {
		return nil, fmt.Errorf("load metadata tags for %d: %w", metadataID, err)
	}

	toPersist := normalize(desired)
	var toDelete []entities.MetadataTag
	for _, row := range current {
		if i := slices.Index(toPersist, row.TagName); i >= 0 {
			toPersist = slices.Delete(toPersist, i, i+1)
			continue
		}
		toDelete = append(toDelete, row)
	}

	result := &SyncResult{}
	if len(toDelete) == 0 && len(toPersist) == 0 {
		return result, nil
	}

	tagLock.Lock()
	defer tagLock.Unlock()

	for i := range toDelete {
		s.store.Delete(&toDelete[i])
		result.Removed = append(result.Removed, toDelete[i].TagName)
	}

	created, err := s.repo.queueMissingTags(toPersist)
	if err != nil {
		return nil, err
	}
	for _, name := range toPersist {
		s.store.Add(&entities.MetadataTag{MetadataID: metadataID, TagName: name, GalleryID: galleryID})
		result.Added = append(result.Added, name)
	}

	if err := s.store.Save(); err != nil {
		return nil, err
	}
	result.TagsCreated = created
	metrics.TagsCreatedTotal.Add(float64(len(created)))
	metrics.MetadataTagWritesTotal.WithLabelValues("insert").Add(float64(len(result.Added)))
	metrics.MetadataTagWritesTotal.WithLabelValues("delete").Add(float64(len(result.Removed)))

	if len(result.Removed) > 0 {
		deleted, err := s.repo.deleteTagsIfOrphan(result.Removed)
		if err != nil {
			return nil, err
		}
		if err := s.store.Save(); err != nil {
			return nil, err
		}
		result.TagsDeleted = deleted
		metrics.OrphanTagsDeletedTotal.WithLabelValues("sync").Add(float64(len(deleted)))
	}

	log.Debug().
		Uint("metadata_id", metadataID).
		Strs("added", result.Added).
		Strs("removed", result.Removed).
		Strs("tags_deleted", result.TagsDeleted).
		Msg("synchronized metadata tags")

	return result, nil
}
