package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/gallery/internal/config"
)

func restoreGlobals(t *testing.T) {
	t.Helper()
	logger := log.Logger
	level := zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = logger
		zerolog.SetGlobalLevel(level)
	})
}

func TestInitLogging_WritesToFileAndExtraWriters(t *testing.T) {
	restoreGlobals(t)
	file := filepath.Join(t.TempDir(), "logs", "gallery.log")
	var buf bytes.Buffer

	err := InitLogging(config.Log{File: file, Level: "debug", MaxSizeMB: 1, MaxBackups: 1}, &buf)
	require.NoError(t, err)

	log.Debug().Str("album", "Holidays").Msg("hello")

	assert.Contains(t, buf.String(), `"album":"Holidays"`)
	content, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(content), "hello")
}

func TestInitLogging_Level(t *testing.T) {
	restoreGlobals(t)
	var buf bytes.Buffer

	require.NoError(t, InitLogging(config.Log{Level: "warn"}, &buf))
	log.Info().Msg("hidden")
	log.Warn().Msg("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestInitLogging_InvalidLevelFallsBackToInfo(t *testing.T) {
	restoreGlobals(t)
	require.NoError(t, InitLogging(config.Log{Level: "loud"}))
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}
