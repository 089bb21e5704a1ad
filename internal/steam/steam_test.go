package steam

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	gderr "github.com/adamancini/gamedeck/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ownedServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/owned-games", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOwnedGames(t *testing.T) {
	srv := ownedServer(t, http.StatusOK, `{"game_count": 2, "games": [
		{"appid": 440, "name": "Team Fortress 2", "img_icon_url": "e3f595a92552da3d664ad00277fad2107345f743"},
		{"appid": "1091500", "name": "Cyberpunk 2077", "img_icon_url": ""}
	]}`)

	games, err := NewClient(srv.URL + "/").OwnedGames(context.Background(), "tok")
	require.NoError(t, err)
	require.Len(t, games, 2)
	assert.Equal(t, "440", games[0].AppID.String())
	assert.Equal(t, "Team Fortress 2", games[0].Name)
	assert.Equal(t, "e3f595a92552da3d664ad00277fad2107345f743", games[0].ImgIconURL)
	assert.Equal(t, "1091500", games[1].AppID.String())
}

func TestOwnedGamesErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		code   gderr.ErrorCode
	}{
		{"token expired", http.StatusUnauthorized, `{}`, gderr.ErrCodeAuthRequired},
		{"server error", http.StatusInternalServerError, `oops`, gderr.ErrCodeCommandFailed},
		{"not json", http.StatusOK, `<html>`, gderr.ErrCodeMalformedResponse},
		{"games missing", http.StatusOK, `{"error": "Not logged in"}`, gderr.ErrCodeMalformedResponse},
		{"games not array", http.StatusOK, `{"games": {"440": {}}}`, gderr.ErrCodeMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := ownedServer(t, tt.status, tt.body)
			_, err := NewClient(srv.URL).OwnedGames(context.Background(), "tok")
			require.Error(t, err)
			assert.Equal(t, tt.code, gderr.GetCode(err), err.Error())
		})
	}
}

func TestOwnedGamesEmptyList(t *testing.T) {
	srv := ownedServer(t, http.StatusOK, `{"games": []}`)
	games, err := NewClient(srv.URL).OwnedGames(context.Background(), "tok")
	require.NoError(t, err)
	assert.Empty(t, games)
}

func TestOwnedGamesWithoutToken(t *testing.T) {
	_, err := NewClient("http://127.0.0.1:1").OwnedGames(context.Background(), "")
	assert.True(t, gderr.Is(err, gderr.ErrCodeAuthRequired))
}

func TestManifestPathFor(t *testing.T) {
	home := func() (string, error) { return "/home/kit", nil }
	noEnv := func(string) string { return "" }

	got, err := manifestPathFor("linux", noEnv, home)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/home/kit", ".steam", "steam", "steamapps", "libraryfolders.vdf"), got)

	got, err = manifestPathFor("darwin", noEnv, home)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/home/kit", "Library", "Application Support", "Steam", "steamapps", "libraryfolders.vdf"), got)

	got, err = manifestPathFor("windows", func(string) string { return `E:\Apps` }, home)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(`E:\Apps`, "Steam", "steamapps", "libraryfolders.vdf"), got)

	_, err = manifestPathFor("linux", noEnv, func() (string, error) { return "", errors.New("no home") })
	assert.Error(t, err)
}

func TestManifestInstalledApps(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "libraryfolders.vdf")
	require.NoError(t, os.WriteFile(path, []byte(`"libraryfolders" {
		"0" { "path" "/srv/steam" "apps" { "440" "1" "570" "2" } }
		"contentstatsid" "123"
	}`), 0644))

	m, err := NewManifest(path)
	require.NoError(t, err)

	apps, err := m.InstalledApps(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"440": "/srv/steam", "570": "/srv/steam"}, apps)
}

func TestManifestFolderWithoutPath(t *testing.T) {
	steamRoot := t.TempDir()
	apps := filepath.Join(steamRoot, "steamapps")
	require.NoError(t, os.MkdirAll(apps, 0755))
	path := filepath.Join(apps, "libraryfolders.vdf")
	require.NoError(t, os.WriteFile(path, []byte(`"libraryfolders" { "1" { "apps" { "440" "" } } "note" "x" }`), 0644))

	m := &Manifest{Path: path}
	assert.Equal(t, steamRoot, m.Root())

	installed, err := m.InstalledApps(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"440": steamRoot}, installed)

	elsewhere := &Manifest{Path: filepath.Join(steamRoot, "custom.vdf")}
	assert.Equal(t, steamRoot, elsewhere.Root())
}

func TestManifestErrors(t *testing.T) {
	dir := t.TempDir()

	missing := &Manifest{Path: filepath.Join(dir, "missing.vdf")}
	_, err := missing.InstalledApps(context.Background())
	assert.True(t, gderr.Is(err, gderr.ErrCodeManifestNotFound))

	broken := filepath.Join(dir, "broken.vdf")
	require.NoError(t, os.WriteFile(broken, []byte(`"libraryfolders"`), 0644))
	_, err = (&Manifest{Path: broken}).InstalledApps(context.Background())
	assert.True(t, gderr.Is(err, gderr.ErrCodeMalformedResponse))

	wrong := filepath.Join(dir, "wrong.vdf")
	require.NoError(t, os.WriteFile(wrong, []byte(`"appstate" { }`), 0644))
	_, err = (&Manifest{Path: wrong}).InstalledApps(context.Background())
	assert.True(t, gderr.Is(err, gderr.ErrCodeMalformedResponse))
}
