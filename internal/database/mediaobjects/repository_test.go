package mediaobjects

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mrlokans/gallery/internal/database"
	"github.com/mrlokans/gallery/internal/database/uow"
	"github.com/mrlokans/gallery/internal/entities"
)

func setupTestDB(t *testing.T) (*gorm.DB, *entities.Album) {
	t.Helper()
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "media.db"), database.WithLogLevel("silent"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gallery, err := db.CreateGallery("media")
	require.NoError(t, err)
	album := &entities.Album{GalleryID: gallery.ID, Title: "Root"}
	require.NoError(t, db.DB.Create(album).Error)
	return db.DB, album
}

func newPhoto(albumID uint, title string, metadata ...*entities.MetadataItem) *entities.MediaObject {
	return &entities.MediaObject{
		AlbumID:   albumID,
		Title:     title,
		MimeType:  "image/jpeg",
		Thumbnail: entities.FileDescriptor{FileName: "zThumb_" + title + ".jpg", Width: 115, Height: 86},
		Original:  entities.FileDescriptor{FileName: title + ".jpg", Width: 4000, Height: 3000, SizeKB: 5120},
		Metadata:  metadata,
	}
}

func TestRepository_SaveAndLoad(t *testing.T) {
	db, album := setupTestDB(t)
	repo := NewRepository(uow.NewStore(db))

	photo := newPhoto(album.ID, "beach",
		entities.NewMediaObjectMetadata(entities.UnsavedID, entities.MetadataTags, "Beach, Sun"),
		entities.NewMediaObjectMetadata(entities.UnsavedID, entities.MetadataCaption, "At the beach"),
	)
	require.NoError(t, repo.Save(photo))
	require.NotEqual(t, entities.UnsavedID, photo.ID)

	loaded, err := repo.Load(photo.ID)
	require.NoError(t, err)
	assert.Equal(t, "beach.jpg", loaded.Original.FileName)
	assert.Equal(t, 115, loaded.Thumbnail.Width)
	require.Len(t, loaded.Metadata, 2)
	for _, item := range loaded.Metadata {
		require.NotNil(t, item.MediaObjectID)
		assert.Equal(t, photo.ID, *item.MediaObjectID)
		assert.Nil(t, item.AlbumID)
		assert.Equal(t, album.GalleryID, item.GalleryID)
	}

	var links int64
	require.NoError(t, db.Model(&entities.MetadataTag{}).Count(&links).Error)
	assert.Equal(t, int64(2), links)

	photo.Title = "beach at noon"
	require.NoError(t, repo.Save(photo))
	assert.Equal(t, 2, photo.Version)

	_, err = repo.Load(9999)
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestRepository_SaveRequiresAlbum(t *testing.T) {
	db, _ := setupTestDB(t)
	repo := NewRepository(uow.NewStore(db))

	assert.ErrorIs(t, repo.Save(nil), database.ErrValidation)
	assert.ErrorIs(t, repo.Save(&entities.MediaObject{Title: "x"}), database.ErrValidation)
	assert.ErrorIs(t, repo.Save(newPhoto(777, "lost")), database.ErrNotFound)
}

func TestRepository_ListForAlbum(t *testing.T) {
	db, album := setupTestDB(t)
	repo := NewRepository(uow.NewStore(db))

	second := newPhoto(album.ID, "second")
	second.Seq = 2
	first := newPhoto(album.ID, "first")
	first.Seq = 1
	require.NoError(t, repo.Save(second))
	require.NoError(t, repo.Save(first))

	list, err := repo.ListForAlbum(album.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "first", list[0].Title)
	assert.Equal(t, "second", list[1].Title)
}

func TestRepository_Delete(t *testing.T) {
	db, album := setupTestDB(t)
	repo := NewRepository(uow.NewStore(db))

	gone := newPhoto(album.ID, "gone",
		entities.NewMediaObjectMetadata(entities.UnsavedID, entities.MetadataPeople, "Mom, Dad"))
	kept := newPhoto(album.ID, "kept",
		entities.NewMediaObjectMetadata(entities.UnsavedID, entities.MetadataPeople, "Mom"))
	require.NoError(t, repo.Save(gone))
	require.NoError(t, repo.Save(kept))

	result, err := NewRepository(uow.NewStore(db)).Delete(gone)
	require.NoError(t, err)
	assert.Equal(t, 1, result.MetadataItems)
	assert.Equal(t, 2, result.MetadataTags)
	assert.Equal(t, int64(1), result.TagsSwept)

	var names []string
	require.NoError(t, db.Model(&entities.Tag{}).Pluck("name", &names).Error)
	assert.Equal(t, []string{"Mom"}, names)

	_, err = repo.Load(gone.ID)
	assert.ErrorIs(t, err, database.ErrNotFound)
	var orphaned int64
	require.NoError(t, db.Model(&entities.MetadataItem{}).Where("media_object_id = ?", gone.ID).Count(&orphaned).Error)
	assert.Zero(t, orphaned)

	_, err = repo.Delete(&entities.MediaObject{Title: "unsaved"})
	assert.ErrorIs(t, err, database.ErrValidation)
}
