package cli

import (
	"bytes"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/gallery/internal/database"
	"github.com/mrlokans/gallery/internal/entities"
	"github.com/mrlokans/gallery/internal/gallery"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	logger, level := log.Logger, zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = logger
		zerolog.SetGlobalLevel(level)
	})
	t.Setenv("LOG_LEVEL", "error")

	cmd := NewRootCommand("test", "abc123")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// seed creates a gallery with a tagged root album, a child album and an
// unused tag, and returns the database path and the root album.
func seed(t *testing.T) (string, *entities.Album) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gallery.db")
	db, err := database.NewDatabase(path, database.WithLogLevel("silent"))
	require.NoError(t, err)
	defer db.Close()

	g, err := db.CreateGallery("cli")
	require.NoError(t, err)
	svc := gallery.NewService(db.DB, nil)

	root := &entities.Album{GalleryID: g.ID, Title: "Root"}
	root.Metadata = []*entities.MetadataItem{
		entities.NewAlbumMetadata(entities.UnsavedID, entities.MetadataTags, "Vacation, Beach"),
	}
	require.NoError(t, svc.SaveAlbum(root))
	require.NoError(t, svc.SaveAlbum(&entities.Album{GalleryID: g.ID, Title: "Child", ParentID: &root.ID}))
	require.NoError(t, db.DB.Create(&entities.Tag{Name: "Unused"}).Error)

	return path, root
}

func TestVersionFlag(t *testing.T) {
	out, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "test (abc123)")
}

func TestMigrateCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fresh.db")

	out, err := execute(t, "migrate", "--db", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Database ready at "+path)

	db, err := database.NewDatabase(path, database.WithLogLevel("silent"))
	require.NoError(t, err)
	defer db.Close()
	assert.True(t, db.DB.Migrator().HasTable(&entities.MetadataTag{}))
}

func TestSweepTagsCommand(t *testing.T) {
	path, _ := seed(t)

	out, err := execute(t, "sweep-tags", "--db", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted 1 unused tags")

	out, err = execute(t, "sweep-tags", "--db", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted 0 unused tags")
}

func TestTagsCommand(t *testing.T) {
	path, root := seed(t)

	out, err := execute(t, "tags", "--db", path, "--gallery", fmt.Sprint(root.GalleryID))
	require.NoError(t, err)
	assert.Contains(t, out, "Vacation")
	assert.Contains(t, out, "Beach")
	assert.NotContains(t, out, "Unused")

	out, err = execute(t, "tags", "--db", path, "--gallery", fmt.Sprint(root.GalleryID), "--search", "vac")
	require.NoError(t, err)
	assert.Contains(t, out, "Vacation")
	assert.NotContains(t, out, "Beach")

	_, err = execute(t, "tags", "--db", path)
	assert.Error(t, err)
}

func TestDeleteAlbumCommand(t *testing.T) {
	path, root := seed(t)

	out, err := execute(t, "delete-album", "--db", path, "--id", fmt.Sprint(root.ID))
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted 2 albums")
	assert.Contains(t, out, "Deleted 1 metadata items")
	assert.Contains(t, out, "Deleted 3 unused tags")

	_, err = execute(t, "delete-album", "--db", path, "--id", fmt.Sprint(root.ID))
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestDeleteAlbumCommand_Background(t *testing.T) {
	path, root := seed(t)

	out, err := execute(t, "delete-album", "--db", path, "--id", fmt.Sprint(root.ID), "--background")
	require.NoError(t, err)
	assert.Contains(t, out, fmt.Sprintf("Queued delete of album %d as task", root.ID))

	db, err := database.NewDatabase(path, database.WithLogLevel("silent"))
	require.NoError(t, err)
	defer db.Close()
	var albums int64
	require.NoError(t, db.DB.Model(&entities.Album{}).Count(&albums).Error)
	assert.Equal(t, int64(2), albums)
}
