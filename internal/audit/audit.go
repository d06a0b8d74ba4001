package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mrlokans/gallery/internal/entities"
	"github.com/mrlokans/gallery/internal/utils"
)

// Snapshotter keeps a JSON copy of every album graph removed through a
// cascade delete.
type Snapshotter struct {
	Dir string
}

func NewSnapshotter(dir string) *Snapshotter {
	return &Snapshotter{
		Dir: dir,
	}
}

// SaveJSON writes data as indented JSON into the snapshot directory and
// returns the file name. Albums are named album-<id>-<title>-<uuid>.json,
// anything else <uuid>.json.
func (s *Snapshotter) SaveJSON(data any) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	filename := snapshotName(data)
	path := filepath.Join(s.Dir, filename)

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if err := os.WriteFile(path, jsonData, 0o644); err != nil {
		return "", fmt.Errorf("failed to write snapshot: %w", err)
	}

	log.Debug().Str("path", path).Msg("saved delete snapshot")
	return filename, nil
}

func snapshotName(data any) string {
	if album, ok := data.(*entities.Album); ok && album != nil {
		return fmt.Sprintf("album-%d-%s-%s.json", album.ID, utils.SanitizeFilename(album.Title), uuid.NewString())
	}
	return uuid.NewString() + ".json"
}
