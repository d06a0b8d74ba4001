// Package albums persists albums and removes whole album subtrees.
//
// Only media_objects cascade from albums in the schema. Metadata rows and
// their tag links under a deleted subtree are removed explicitly by Delete,
// which then sweeps the tag table once.
//
// # Usage
//
//	store := uow.NewStore(db)
//	repo := albums.NewRepository(store)
//	root, err := repo.LoadGraph(id)
//	result, err := repo.Delete(root)
package albums

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/mrlokans/gallery/internal/database"
	"github.com/mrlokans/gallery/internal/database/metadata"
	"github.com/mrlokans/gallery/internal/database/tags"
	"github.com/mrlokans/gallery/internal/database/uow"
	"github.com/mrlokans/gallery/internal/entities"
	"github.com/mrlokans/gallery/internal/metrics"
)

// CascadeResult describes what one Delete removed.
type CascadeResult struct {
	Albums       []uint // deepest first
	MediaObjects int
	metadata.Removal
	TagsSwept int64
}

// Repository handles album persistence.
type Repository struct {
	store    *uow.Store
	metadata *metadata.Repository
	tags     *tags.Repository
}

// NewRepository creates an albums repository working in store.
func NewRepository(store *uow.Store) *Repository {
	return &Repository{
		store:    store,
		metadata: metadata.NewRepository(store),
		tags:     tags.NewRepository(store),
	}
}

// Save inserts or updates album, then saves its dirty metadata items.
// Child albums and media objects are not saved.
func (r *Repository) Save(album *entities.Album) error {
	if album == nil {
		return fmt.Errorf("%w: nil album", database.ErrValidation)
	}
	if err := database.Validate(album); err != nil {
		return err
	}

	if album.ParentID != nil {
		if album.ID != entities.UnsavedID && *album.ParentID == album.ID {
			return fmt.Errorf("%w: album %d cannot be its own parent", database.ErrValidation, album.ID)
		}
		var parent entities.Album
		if err := r.store.Find(&parent, *album.ParentID); err != nil {
			return fmt.Errorf("parent album %d: %w", *album.ParentID, err)
		}
		if parent.GalleryID != album.GalleryID {
			return fmt.Errorf("%w: parent album %d belongs to gallery %d", database.ErrValidation, parent.ID, parent.GalleryID)
		}
	}

	if album.ID == entities.UnsavedID {
		r.store.Add(album)
	} else {
		r.store.MarkModified(album)
	}
	if err := r.store.Save(); err != nil {
		return err
	}

	for _, item := range album.Metadata {
		if item == nil || item.MediaObjectID != nil {
			continue
		}
		if item.AlbumID == nil || *item.AlbumID == entities.UnsavedID {
			id := album.ID
			item.AlbumID = &id
		}
		if item.GalleryID == 0 {
			item.GalleryID = album.GalleryID
		}
	}
	if _, err := r.metadata.SaveCollection(&album.Metadata); err != nil {
		return fmt.Errorf("save metadata of album %d: %w", album.ID, err)
	}
	return nil
}

// Get loads a single album with its metadata, without children.
func (r *Repository) Get(id uint) (*entities.Album, error) {
	var album entities.Album
	if err := r.store.DB().Preload("Metadata").Take(&album, id).Error; err != nil {
		return nil, fmt.Errorf("album %d: %w", id, database.TranslateError(err))
	}
	return &album, nil
}

// LoadGraph loads the album id with every descendant album, their media
// objects and all attached metadata. The tree is fetched one level per query.
func (r *Repository) LoadGraph(id uint) (*entities.Album, error) {
	root := &entities.Album{}
	if err := r.withContents(r.store.DB()).Take(root, id).Error; err != nil {
		return nil, fmt.Errorf("album %d: %w", id, database.TranslateError(err))
	}

	seen := map[uint]*entities.Album{root.ID: root}
	frontier := []uint{root.ID}
	for len(frontier) > 0 {
		var children []*entities.Album
		err := r.withContents(r.store.DB()).
			Where("parent_id IN ?", frontier).
			Order("seq ASC, id ASC").
			Find(&children).Error
		if err != nil {
			return nil, fmt.Errorf("load children of album %d: %w", id, database.TranslateError(err))
		}

		frontier = frontier[:0]
		for _, child := range children {
			if _, dup := seen[child.ID]; dup {
				return nil, fmt.Errorf("%w: album %d reached twice below %d", database.ErrValidation, child.ID, id)
			}
			parent := seen[*child.ParentID]
			parent.Children = append(parent.Children, child)
			seen[child.ID] = child
			frontier = append(frontier, child.ID)
		}
	}
	return root, nil
}

func (r *Repository) withContents(db *gorm.DB) *gorm.DB {
	return db.Preload("Metadata").
		Preload("MediaObjects", func(db *gorm.DB) *gorm.DB {
			return db.Order("seq ASC, id ASC")
		}).
		Preload("MediaObjects.Metadata")
}

// Delete removes album and its loaded subtree: tag links and metadata of
// every album and media object in it, then the albums deepest first. Media
// object rows go with their album through the schema cascade. After the
// flush every unreferenced tag is swept.
//
// The graph must be current; an album missing from it but still present in
// the store makes the flush fail on the parent foreign key.
func (r *Repository) Delete(album *entities.Album) (*CascadeResult, error) {
	tree, err := CollectSubtree(album)
	if err != nil {
		return nil, err
	}
	albumIDs := tree.IDs()

	var mediaObjectIDs []uint
	err = r.store.DB().Model(&entities.MediaObject{}).
		Where("album_id IN ?", albumIDs).
		Pluck("id", &mediaObjectIDs).Error
	if err != nil {
		return nil, fmt.Errorf("load media objects of album %d: %w", tree.Root(), database.TranslateError(err))
	}

	removal, err := r.metadata.QueueDeleteOwned(albumIDs, mediaObjectIDs)
	if err != nil {
		return nil, err
	}

	result := &CascadeResult{MediaObjects: len(mediaObjectIDs), Removal: removal}
	for _, node := range tree.DeepestFirst() {
		r.store.Delete(node)
		result.Albums = append(result.Albums, node.ID)
	}

	if err := r.store.Save(); err != nil {
		return nil, err
	}

	metrics.CascadeDeletesTotal.WithLabelValues("album").Add(float64(len(result.Albums)))
	metrics.CascadeDeletesTotal.WithLabelValues("media_object").Add(float64(result.MediaObjects))
	metrics.CascadeDeletesTotal.WithLabelValues("metadata_item").Add(float64(result.MetadataItems))
	metrics.CascadeDeletesTotal.WithLabelValues("metadata_tag").Add(float64(result.MetadataTags))

	swept, err := r.tags.DeleteUnusedTags()
	if err != nil {
		return nil, fmt.Errorf("sweep tags after deleting album %d: %w", tree.Root(), err)
	}
	result.TagsSwept = swept

	log.Info().
		Str("store", r.store.ID()).
		Uint("album_id", tree.Root()).
		Int("albums", len(result.Albums)).
		Int("media_objects", result.MediaObjects).
		Int("metadata_items", result.MetadataItems).
		Int64("tags_swept", swept).
		Msg("deleted album subtree")

	return result, nil
}
