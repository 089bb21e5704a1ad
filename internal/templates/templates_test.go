package templates

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adamancini/gamedeck/internal/config"
	gderr "github.com/adamancini/gamedeck/internal/errors"
)

func TestList(t *testing.T) {
	assert.Equal(t, []string{"full", "lan", "minimal"}, List())
}

func TestGet(t *testing.T) {
	tmpl, err := Get("lan")
	require.NoError(t, err)
	assert.Equal(t, "lan", tmpl.Name)
	assert.Equal(t, "Adds a lobby server on the local network", tmpl.Description)
	assert.Contains(t, string(tmpl.Content), "${GAMEDECK_BACKEND_IP:-127.0.0.1}")

	_, err = Get("nonexistent")
	require.Error(t, err)
	assert.True(t, gderr.Is(err, gderr.ErrCodeInvalidInput))
	assert.Contains(t, err.Error(), "available: full, lan, minimal")
}

func TestGetDescription(t *testing.T) {
	assert.Equal(t, "Epic library folders only", GetDescription(Default))
	assert.Equal(t, "Custom template", GetDescription("other"))
}

func TestTemplatesLoad(t *testing.T) {
	t.Setenv("GAMEDECK_BACKEND_IP", "")
	t.Setenv("GAMEDECK_BACKEND_PORT", "")
	t.Setenv("USER", "kit")

	for _, name := range List() {
		t.Run(name, func(t *testing.T) {
			tmpl, err := Get(name)
			require.NoError(t, err)

			path := filepath.Join(t.TempDir(), "settings.yaml")
			require.NoError(t, os.WriteFile(path, tmpl.Content, 0600))

			settings, err := config.Load(path)
			require.NoError(t, err)
			assert.Equal(t, config.CurrentVersion, settings.Version)
			assert.Empty(t, settings.EpicLibraryFolders)
			assert.Equal(t, config.DefaultMinSizeBytes, settings.Import.MinSizeBytes)

			if name != Default {
				assert.Equal(t, "ws://127.0.0.1:8080", settings.ServerURL())
				assert.Equal(t, "kit", settings.Username)
			}
		})
	}
}
