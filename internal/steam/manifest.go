package steam

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	gderr "github.com/adamancini/gamedeck/internal/errors"
	"github.com/adamancini/gamedeck/internal/vdf"
)

// DefaultManifestPath returns where Steam keeps libraryfolders.vdf on this
// platform.
func DefaultManifestPath() (string, error) {
	return manifestPathFor(runtime.GOOS, os.Getenv, os.UserHomeDir)
}

func manifestPathFor(goos string, getenv func(string) string, home func() (string, error)) (string, error) {
	if goos == "windows" {
		base := getenv("ProgramFiles(x86)")
		if base == "" {
			base = `C:\Program Files (x86)`
		}
		return filepath.Join(base, "Steam", "steamapps", "libraryfolders.vdf"), nil
	}

	dir, err := home()
	if err != nil {
		return "", err
	}
	switch goos {
	case "darwin":
		return filepath.Join(dir, "Library", "Application Support", "Steam", "steamapps", "libraryfolders.vdf"), nil
	default:
		return filepath.Join(dir, ".steam", "steam", "steamapps", "libraryfolders.vdf"), nil
	}
}

// Manifest reads installed app ids from a libraryfolders.vdf file.
type Manifest struct {
	Path string
}

// NewManifest resolves path, falling back to the platform default.
func NewManifest(path string) (*Manifest, error) {
	if path == "" {
		var err error
		if path, err = DefaultManifestPath(); err != nil {
			return nil, err
		}
	}
	return &Manifest{Path: path}, nil
}

// InstalledApps maps installed app ids to their library folder. A library
// folder with no path key is taken to be the Steam root holding the manifest.
func (m *Manifest) InstalledApps(ctx context.Context) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	root, err := vdf.ParseFile(m.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, gderr.ManifestNotFound(m.Path, err)
		}
		return nil, gderr.MalformedResponse(m.Path, err)
	}

	apps, err := vdf.InstalledApps(root)
	if err != nil {
		return nil, gderr.MalformedResponse(m.Path, err)
	}
	for id, loc := range apps {
		if loc == "" {
			apps[id] = m.Root()
		}
	}
	return apps, nil
}

// Root returns the Steam install directory for the manifest: the parent of
// its steamapps directory, or the manifest's own directory otherwise.
func (m *Manifest) Root() string {
	dir := filepath.Dir(m.Path)
	if strings.EqualFold(filepath.Base(dir), "steamapps") {
		return filepath.Dir(dir)
	}
	return dir
}
