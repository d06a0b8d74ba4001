package metadata

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

type fixture struct {
	db      *gorm.DB
	gallery *entities.Gallery
	album   *entities.Album
}

func setupTestDB(t *testing.T) *fixture {
	t.Helper()
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "metadata.db"), database.WithLogLevel("silent"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gallery, err := db.CreateGallery("metadata")
	require.NoError(t, err)

	album := &entities.Album{GalleryID: gallery.ID, Title: "Root"}
	require.NoError(t, db.DB.Create(album).Error)

	return &fixture{db: db.DB, gallery: gallery, album: album}
}

func (f *fixture) item(name entities.MetadataName, value string) *entities.MetadataItem {
	item := entities.NewAlbumMetadata(f.album.ID, name, value)
	item.GalleryID = f.gallery.ID
	return item
}

func (f *fixture) countRows(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(model).Count(&n).Error)
	return n
}

func (f *fixture) tagNames(t *testing.T) []string {
	t.Helper()
	var names []string
	require.NoError(t, f.db.Model(&entities.Tag{}).Order("name ASC").Pluck("name", &names).Error)
	return names
}

func TestRepository_SaveCollectionClassifiesItems(t *testing.T) {
	f := setupTestDB(t)

	caption := f.item(entities.MetadataCaption, "Sunset")
	title := f.item(entities.MetadataTitle, "Beach")
	stale := f.item(entities.MetadataDescription, "old")
	items := []*entities.MetadataItem{caption, title, stale}

	_, err := NewRepository(uow.NewStore(f.db)).SaveCollection(&items)
	require.NoError(t, err)
	for _, item := range items {
		assert.NotEqual(t, entities.UnsavedID, item.ID)
		assert.Equal(t, 1, item.Version)
		assert.False(t, item.HasChanges())
	}

	added := f.item(entities.MetadataRating, "5")
	caption.SetValue("Sunrise", "Sunrise")
	stale.MarkDeleted()
	items = append(items, added)

	result, err := NewRepository(uow.NewStore(f.db)).SaveCollection(&items)
	require.NoError(t, err)

	assert.Equal(t, []*entities.MetadataItem{added}, result.Inserted)
	assert.Equal(t, []*entities.MetadataItem{caption}, result.Updated)
	assert.Equal(t, []*entities.MetadataItem{stale}, result.Deleted)
	assert.Equal(t, OutcomeUnchanged, result.Outcome(title))

	assert.Equal(t, []*entities.MetadataItem{caption, title, added}, items)
	assert.Equal(t, 2, caption.Version)
	assert.Equal(t, 1, title.Version)
	assert.Equal(t, int64(3), f.countRows(t, &entities.MetadataItem{}))

	var stored entities.MetadataItem
	require.NoError(t, f.db.First(&stored, caption.ID).Error)
	assert.Equal(t, "Sunrise", stored.Value)
}

func TestRepository_SaveSkipsCleanItems(t *testing.T) {
	f := setupTestDB(t)
	repo := NewRepository(uow.NewStore(f.db))

	item := f.item(entities.MetadataCaption, "Sunset")
	outcome, err := repo.Save(item)
	require.NoError(t, err)
	assert.Equal(t, OutcomeInserted, outcome)

	outcome, err = repo.Save(item)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnchanged, outcome)
	assert.Equal(t, 1, item.Version)
}

func TestRepository_SaveSingleOutcomes(t *testing.T) {
	f := setupTestDB(t)
	repo := NewRepository(uow.NewStore(f.db))

	item := f.item(entities.MetadataCaption, "a")
	_, err := repo.Save(item)
	require.NoError(t, err)

	item.SetValue("b", "b")
	outcome, err := repo.Save(item)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, outcome)

	item.MarkDeleted()
	outcome, err = repo.Save(item)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDeleted, outcome)
	assert.Zero(t, f.countRows(t, &entities.MetadataItem{}))
}

func TestRepository_DeletedUnsavedItemIsDropped(t *testing.T) {
	f := setupTestDB(t)

	item := f.item(entities.MetadataCaption, "never stored")
	item.MarkDeleted()
	items := []*entities.MetadataItem{item}

	result, err := NewRepository(uow.NewStore(f.db)).SaveCollection(&items)
	require.NoError(t, err)
	assert.Equal(t, []*entities.MetadataItem{item}, result.Deleted)
	assert.Empty(t, items)
	assert.Zero(t, f.countRows(t, &entities.MetadataItem{}))
}

func TestRepository_TagLikeItemsSyncTags(t *testing.T) {
	f := setupTestDB(t)
	repo := NewRepository(uow.NewStore(f.db))

	tagsItem := f.item(entities.MetadataTags, "Vacation, New York, 2013")
	people := f.item(entities.MetadataPeople, "Mom, Dad")
	caption := f.item(entities.MetadataCaption, "Not, Tags")
	items := []*entities.MetadataItem{tagsItem, people, caption}

	result, err := repo.SaveCollection(&items)
	require.NoError(t, err)
	require.Contains(t, result.Tags, tagsItem.ID)
	require.Contains(t, result.Tags, people.ID)
	assert.NotContains(t, result.Tags, caption.ID)
	assert.Equal(t, []string{"2013", "Dad", "Mom", "New York", "Vacation"}, f.tagNames(t))

	tagsItem.SetValue("Vacation", "Vacation")
	_, err = repo.SaveCollection(&items)
	require.NoError(t, err)
	assert.Equal(t, []string{"Dad", "Mom", "Vacation"}, f.tagNames(t))

	people.MarkDeleted()
	_, err = repo.SaveCollection(&items)
	require.NoError(t, err)
	assert.Equal(t, []string{"Vacation"}, f.tagNames(t))
	assert.Equal(t, int64(1), f.countRows(t, &entities.MetadataTag{}))
	assert.Len(t, items, 2)
}

func TestRepository_RawValueDrivesTags(t *testing.T) {
	f := setupTestDB(t)

	item := f.item(entities.MetadataTags, "")
	item.SetValue("<b>Beach</b>", "Beach, Sand")

	_, err := NewRepository(uow.NewStore(f.db)).Save(item)
	require.NoError(t, err)
	assert.Equal(t, []string{"Beach", "Sand"}, f.tagNames(t))
}

func TestRepository_ValidationRejectsBadOwner(t *testing.T) {
	f := setupTestDB(t)

	orphan := &entities.MetadataItem{Name: entities.MetadataCaption}
	orphan.SetValue("x", "x")
	_, err := NewRepository(uow.NewStore(f.db)).Save(orphan)
	assert.ErrorIs(t, err, database.ErrValidation)

	both := f.item(entities.MetadataCaption, "x")
	mediaObjectID := uint(1)
	both.MediaObjectID = &mediaObjectID
	_, err = NewRepository(uow.NewStore(f.db)).Save(both)
	assert.ErrorIs(t, err, database.ErrValidation)

	assert.Zero(t, f.countRows(t, &entities.MetadataItem{}))
}

func TestRepository_UpdateOfMissingRow(t *testing.T) {
	f := setupTestDB(t)
	repo := NewRepository(uow.NewStore(f.db))

	item := f.item(entities.MetadataCaption, "a")
	_, err := repo.Save(item)
	require.NoError(t, err)
	require.NoError(t, f.db.Delete(&entities.MetadataItem{}, item.ID).Error)

	item.SetValue("b", "b")
	_, err = repo.Save(item)
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestRepository_FailedFlushKeepsItemsUnsaved(t *testing.T) {
	f := setupTestDB(t)

	missingAlbum := uint(9999)
	item := entities.NewAlbumMetadata(missingAlbum, entities.MetadataCaption, "x")
	items := []*entities.MetadataItem{item}

	_, err := NewRepository(uow.NewStore(f.db)).SaveCollection(&items)
	require.ErrorIs(t, err, database.ErrConstraintViolation)
	assert.Equal(t, entities.UnsavedID, item.ID)
	assert.True(t, item.HasChanges())
	assert.Len(t, items, 1)
}

func TestRepository_NilArguments(t *testing.T) {
	f := setupTestDB(t)
	repo := NewRepository(uow.NewStore(f.db))

	_, err := repo.SaveCollection(nil)
	assert.ErrorIs(t, err, database.ErrValidation)

	_, err = repo.Save(nil)
	assert.ErrorIs(t, err, database.ErrValidation)

	items := []*entities.MetadataItem{nil}
	_, err = repo.SaveCollection(&items)
	assert.ErrorIs(t, err, database.ErrValidation)
}

func TestRepository_FailedSaveLeavesNothingQueued(t *testing.T) {
	f := setupTestDB(t)
	store := uow.NewStore(f.db)
	repo := NewRepository(store)

	fresh := f.item(entities.MetadataCaption, "queued")
	ghost := f.item(entities.MetadataTitle, "gone")
	ghost.ID = 9999
	items := []*entities.MetadataItem{fresh, ghost}

	_, err := repo.SaveCollection(&items)
	require.ErrorIs(t, err, database.ErrNotFound)
	assert.Zero(t, store.Pending())
	assert.Equal(t, entities.UnsavedID, fresh.ID)
	assert.True(t, fresh.HasChanges())

	other := f.item(entities.MetadataTitle, "other")
	_, err = repo.Save(other)
	require.NoError(t, err)

	var queued int64
	require.NoError(t, f.db.Model(&entities.MetadataItem{}).Where("value = ?", "queued").Count(&queued).Error)
	assert.Zero(t, queued)
	assert.Equal(t, entities.UnsavedID, fresh.ID)

	outcome, err := repo.Save(fresh)
	require.NoError(t, err)
	assert.Equal(t, OutcomeInserted, outcome)
	require.NoError(t, f.db.Model(&entities.MetadataItem{}).Where("value = ?", "queued").Count(&queued).Error)
	assert.Equal(t, int64(1), queued)
}
