// Package metadata persists the metadata items attached to albums and media
// objects.
//
// Only items that are dirty or marked deleted are written. Each of them ends
// a save as exactly one of Inserted, Updated or Deleted. Tags and People
// items additionally have their tag associations reconciled through
// tags.Synchronizer once their row id is known.
package metadata

import (
	"fmt"

	"github.com/mrlokans/gallery/internal/database"
	"github.com/mrlokans/gallery/internal/database/tags"
	"github.com/mrlokans/gallery/internal/database/uow"
	"github.com/mrlokans/gallery/internal/entities"
)

type Outcome int

const (
	OutcomeUnchanged Outcome = iota
	OutcomeInserted
	OutcomeUpdated
	OutcomeDeleted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeInserted:
		return "inserted"
	case OutcomeUpdated:
		return "updated"
	case OutcomeDeleted:
		return "deleted"
	default:
		return "unchanged"
	}
}

// SaveResult classifies the items written by one save.
type SaveResult struct {
	Inserted []*entities.MetadataItem
	Updated  []*entities.MetadataItem
	Deleted  []*entities.MetadataItem
	Tags     map[uint]*tags.SyncResult // keyed by metadata id
}

// Outcome returns how item was handled, or OutcomeUnchanged if it was skipped.
func (r *SaveResult) Outcome(item *entities.MetadataItem) Outcome {
	for _, group := range []struct {
		items   []*entities.MetadataItem
		outcome Outcome
	}{
		{r.Inserted, OutcomeInserted},
		{r.Updated, OutcomeUpdated},
		{r.Deleted, OutcomeDeleted},
	} {
		for _, candidate := range group.items {
			if candidate == item {
				return group.outcome
			}
		}
	}
	return OutcomeUnchanged
}

// Repository handles metadata item persistence.
type Repository struct {
	store *uow.Store
	sync  *tags.Synchronizer
}

// NewRepository creates a metadata repository working in store.
func NewRepository(store *uow.Store) *Repository {
	return &Repository{store: store, sync: tags.NewSynchronizer(store)}
}

// SaveCollection writes the dirty and deleted items of an owner's collection.
// Deleted items are removed from *items.
func (r *Repository) SaveCollection(items *[]*entities.MetadataItem) (*SaveResult, error) {
	if items == nil {
		return nil, fmt.Errorf("%w: nil metadata collection", database.ErrValidation)
	}

	result, err := r.persist(*items)
	if err != nil {
		return nil, err
	}

	if len(result.Deleted) > 0 {
		kept := (*items)[:0]
		for _, item := range *items {
			if !item.IsDeleted() {
				kept = append(kept, item)
			}
		}
		clear((*items)[len(kept):])
		*items = kept
	}
	return result, nil
}

// Save writes a single item. A deleted item is not removed from any owner
// collection; use SaveCollection for that.
func (r *Repository) Save(item *entities.MetadataItem) (Outcome, error) {
	if item == nil {
		return OutcomeUnchanged, fmt.Errorf("%w: nil metadata item", database.ErrValidation)
	}
	result, err := r.persist([]*entities.MetadataItem{item})
	if err != nil {
		return OutcomeUnchanged, err
	}
	return result.Outcome(item), nil
}

// Removal counts the rows queued by QueueDeleteOwned.
type Removal struct {
	MetadataItems int
	MetadataTags  int
}

// QueueDeleteOwned queues the deletion of every metadata row attached to the
// given albums or media objects, tag links first. Nothing is flushed.
//
// Rows are selected from the store rather than from in-memory collections
// because metadata_items has no cascading foreign key.
func (r *Repository) QueueDeleteOwned(albumIDs, mediaObjectIDs []uint) (Removal, error) {
	var removal Removal
	if len(albumIDs) == 0 && len(mediaObjectIDs) == 0 {
		return removal, nil
	}

	var rows []*entities.MetadataItem
	err := r.store.Query(&rows, "album_id IN ? OR media_object_id IN ?", nonEmpty(albumIDs), nonEmpty(mediaObjectIDs))
	if err != nil {
		return removal, fmt.Errorf("load metadata for removal: %w", err)
	}
	if len(rows) == 0 {
		return removal, nil
	}

	ids := make([]uint, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	var links []*entities.MetadataTag
	if err := r.store.Query(&links, "metadata_id IN ?", ids); err != nil {
		return removal, fmt.Errorf("load metadata tags for removal: %w", err)
	}

	for _, link := range links {
		r.store.Delete(link)
	}
	for _, row := range rows {
		r.store.Delete(row)
	}
	removal.MetadataTags = len(links)
	removal.MetadataItems = len(rows)
	return removal, nil
}

// nonEmpty keeps "IN ?" well formed for an empty id list.
func nonEmpty(ids []uint) []uint {
	if len(ids) == 0 {
		return []uint{entities.UnsavedID}
	}
	return ids
}

type pendingRow struct {
	item *entities.MetadataItem
	row  *entities.MetadataItem
}

// persist leaves nothing queued on the store when it fails.
func (r *Repository) persist(items []*entities.MetadataItem) (_ *SaveResult, err error) {
	defer func() {
		if err != nil {
			r.store.Discard()
		}
	}()

	result := &SaveResult{Tags: make(map[uint]*tags.SyncResult)}

	var dirty []*entities.MetadataItem
	for _, item := range items {
		if item == nil {
			return nil, fmt.Errorf("%w: nil metadata item in collection", database.ErrValidation)
		}
		if item.HasChanges() || item.IsDeleted() {
			dirty = append(dirty, item)
		}
	}
	if len(dirty) == 0 {
		return result, nil
	}

	for _, item := range dirty {
		if item.IsDeleted() {
			continue
		}
		if err := database.Validate(item); err != nil {
			return nil, err
		}
	}

	// Associations of deleted Tags/People items go first: nothing cascades
	// from metadata_items to metadata_tags.
	for _, item := range dirty {
		if item.IsDeleted() && !item.IsNew() && item.Name.IsTagLike() {
			tagResult, err := r.sync.Sync(item.ID, nil, item.GalleryID)
			if err != nil {
				return nil, fmt.Errorf("clear tags of metadata %d: %w", item.ID, err)
			}
			result.Tags[item.ID] = tagResult
		}
	}

	// Correlation table: position in the dirty batch -> inserted row.
	inserted := make(map[int]pendingRow)
	updated := make(map[int]pendingRow)

	for i, item := range dirty {
		switch {
		case item.IsDeleted():
			if !item.IsNew() {
				r.store.Delete(item.Row())
			}
			result.Deleted = append(result.Deleted, item)

		case item.IsNew():
			row := item.Row()
			r.store.Add(row)
			inserted[i] = pendingRow{item: item, row: row}
			result.Inserted = append(result.Inserted, item)

		default:
			row := &entities.MetadataItem{}
			if err := r.store.Find(row, item.ID); err != nil {
				return nil, fmt.Errorf("metadata item %d: %w", item.ID, err)
			}
			row.AlbumID = item.AlbumID
			row.MediaObjectID = item.MediaObjectID
			row.GalleryID = item.GalleryID
			row.Name = item.Name
			row.Value = item.Value
			row.RawValue = item.RawValue
			r.store.MarkModified(row)
			updated[i] = pendingRow{item: item, row: row}
			result.Updated = append(result.Updated, item)
		}
	}

	if err := r.store.Save(); err != nil {
		return nil, err
	}

	for i := range dirty {
		if p, ok := inserted[i]; ok {
			p.item.ID = p.row.ID
			p.item.Version = p.row.Version
			p.item.CreatedAt = p.row.CreatedAt
			p.item.UpdatedAt = p.row.UpdatedAt
		}
		if p, ok := updated[i]; ok {
			p.item.Version = p.row.Version
			p.item.UpdatedAt = p.row.UpdatedAt
		}
	}

	for _, item := range dirty {
		if item.IsDeleted() {
			continue
		}
		item.ClearChanges()
		if !item.Name.IsTagLike() {
			continue
		}
		tagResult, err := r.sync.Sync(item.ID, tags.ParseTokens(item.RawValue), item.GalleryID)
		if err != nil {
			return nil, fmt.Errorf("sync tags of metadata %d: %w", item.ID, err)
		}
		result.Tags[item.ID] = tagResult
	}

	return result, nil
}
