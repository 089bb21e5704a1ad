package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adamancini/gamedeck/internal/config"
	gderr "github.com/adamancini/gamedeck/internal/errors"
)

// isolate points every default location at temp dirs.
func isolate(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(root, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(root, "data"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(root, "cache"))
	t.Setenv(config.EnvSettingsPath, "")
	t.Setenv("GAMEDECK_NO_PROGRESS", "1")
	t.Setenv("GAMEDECK_BACKEND_IP", "")
	t.Setenv("GAMEDECK_BACKEND_PORT", "")
	return root
}

func runCommand(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCmd("1.2.3", "abc123", "2026-01-01")
	root.SetArgs(args)
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func TestInitCommand(t *testing.T) {
	root := isolate(t)
	games := t.TempDir()

	out, _, err := runCommand(t, "", "init", "--template", "lan", "--folder", games)
	require.NoError(t, err)

	path := filepath.Join(root, "config", "gamedeck", "settings.yaml")
	assert.Contains(t, out, "Created "+path)
	assert.Contains(t, out, "gamedeck folders list")

	settings, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{games}, settings.EpicLibraryFolders)
	assert.Equal(t, "ws://127.0.0.1:8080", settings.ServerURL())
}

func TestInitCommandKeepsExistingFile(t *testing.T) {
	root := isolate(t)
	path := filepath.Join(root, "config", "gamedeck", "settings.yaml")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("username: keep\n"), 0600))

	out, stderr, err := runCommand(t, "n\n", "init")
	require.NoError(t, err)
	assert.Contains(t, stderr, "already exists")
	assert.Contains(t, out, "Aborted.")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "username: keep\n", string(data))

	_, _, err = runCommand(t, "", "init", "--force")
	require.NoError(t, err)
	settings, err := config.Load(path)
	require.NoError(t, err)
	assert.Empty(t, settings.Username)
}

func TestInitCommandTOML(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "gamedeck.toml")

	_, _, err := runCommand(t, "", "init", "--config", path, "--template", "lan")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "backend_ip")

	settings, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8080, settings.BackendPort)
}

func TestFoldersCommands(t *testing.T) {
	isolate(t)
	games := t.TempDir()

	out, _, err := runCommand(t, "", "folders", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No Epic library folders configured")

	out, _, err = runCommand(t, "", "folders", "add", games)
	require.NoError(t, err)
	assert.Equal(t, "Added "+games+"\n", out)

	out, _, err = runCommand(t, "", "folders", "add", games)
	require.NoError(t, err)
	assert.Equal(t, "Already configured: "+games+"\n", out)

	out, _, err = runCommand(t, "", "folders", "list", "-o", "json")
	require.NoError(t, err)
	var listed folderList
	require.NoError(t, json.Unmarshal([]byte(out), &listed))
	assert.Equal(t, []string{games}, listed.Folders)

	out, _, err = runCommand(t, "", "folders", "remove", games)
	require.NoError(t, err)
	assert.Equal(t, "Removed "+games+"\n", out)

	out, _, err = runCommand(t, "", "folders", "remove", games)
	require.NoError(t, err)
	assert.Equal(t, "Not configured: "+games+"\n", out)
}

func TestFoldersAddRejectsMissingDirectory(t *testing.T) {
	isolate(t)

	_, _, err := runCommand(t, "", "folders", "add", filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.True(t, gderr.Is(err, gderr.ErrCodeInvalidInput))
}

func TestConfigCommands(t *testing.T) {
	isolate(t)

	out, _, err := runCommand(t, "", "config", "set", "username", "kit")
	require.NoError(t, err)
	assert.Equal(t, "Set username\n", out)

	out, _, err = runCommand(t, "", "config", "get", "username")
	require.NoError(t, err)
	assert.Equal(t, "kit\n", out)

	_, _, err = runCommand(t, "", "config", "set", "epic_library_folders", "/a,/b")
	require.NoError(t, err)
	out, _, err = runCommand(t, "", "config", "get", "epic_library_folders")
	require.NoError(t, err)
	assert.Equal(t, "/a,/b\n", out)

	_, _, err = runCommand(t, "", "config", "get", "no.such.key")
	assert.Error(t, err)

	out, _, err = runCommand(t, "", "config", "path")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(strings.TrimSpace(out), filepath.Join("gamedeck", "settings.yaml")))
}

func TestListEmptyCatalog(t *testing.T) {
	isolate(t)

	out, _, err := runCommand(t, "", "list", "-o", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"steam": [], "epic": []}`, out)

	_, _, err = runCommand(t, "", "list", "--provider", "gog")
	assert.Error(t, err)
}

func TestStatusCommand(t *testing.T) {
	root := isolate(t)
	db := filepath.Join(root, "elsewhere", "catalog.db")

	out, _, err := runCommand(t, "", "status", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Catalog:  "+db)
	assert.Contains(t, out, "Lobby:    (not configured)")
	assert.Contains(t, out, "Steam:      0 owned, 0 installed")

	out, _, err = runCommand(t, "", "status", "-o", "json")
	require.NoError(t, err)
	var status catalogStatus
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.Equal(t, filepath.Join(root, "data", "gamedeck", "catalog.db"), status.Database)
	assert.Len(t, status.Providers, 2)
}

func TestVersionCommand(t *testing.T) {
	isolate(t)

	out, _, err := runCommand(t, "", "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "gamedeck version 1.2.3 (commit abc123, built 2026-01-01"))

	out, _, err = runCommand(t, "", "version", "-o", "json")
	require.NoError(t, err)
	var info versionInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, "1.2.3", info.Version)
	assert.Equal(t, "abc123", info.Commit)
}

func TestBackupCommands(t *testing.T) {
	isolate(t)

	out, _, err := runCommand(t, "", "backup", "list")
	require.NoError(t, err)
	assert.Equal(t, "No backups.\n", out)

	out, _, err = runCommand(t, "", "backup", "create", "--note", "before lan party")
	require.NoError(t, err)
	assert.Contains(t, out, "Backup created: ")

	out, _, err = runCommand(t, "", "backup", "list", "-o", "json")
	require.NoError(t, err)
	var listed []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, "before lan party", listed[0]["note"])

	out, _, err = runCommand(t, "", "backup", "diff")
	require.NoError(t, err)
	assert.Contains(t, out, "Catalog unchanged.")
}

func TestLobbyRequiresServer(t *testing.T) {
	isolate(t)

	_, _, err := runCommand(t, "", "lobby", "--username", "kit")
	require.Error(t, err)
	assert.True(t, gderr.Is(err, gderr.ErrCodeConfigInvalid))

	_, _, err = runCommand(t, "", "lobby", "--create", "a", "--join", "b")
	require.Error(t, err)
	assert.True(t, gderr.Is(err, gderr.ErrCodeInvalidInput))
}
