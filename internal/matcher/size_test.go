package matcher

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSized(t *testing.T, path string, size int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0644))
}

func TestDirectorySize(t *testing.T) {
	root := t.TempDir()
	writeSized(t, filepath.Join(root, "a.bin"), 1000)
	writeSized(t, filepath.Join(root, "sub", "b.bin"), 2500)
	writeSized(t, filepath.Join(root, "sub", "deeper", "c.bin"), 500)
	require.NoError(t, os.Mkdir(filepath.Join(root, "empty"), 0755))

	size, err := DirectorySize(root)
	require.NoError(t, err)
	assert.Equal(t, int64(4000), size)
}

func TestDirectorySizeEmpty(t *testing.T) {
	size, err := DirectorySize(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, int64(0), size)
}

func TestDirectorySizeRootErrors(t *testing.T) {
	root := t.TempDir()

	_, err := DirectorySize(filepath.Join(root, "missing"))
	assert.Error(t, err)

	file := filepath.Join(root, "file.bin")
	writeSized(t, file, 10)
	_, err = DirectorySize(file)
	assert.Error(t, err)
}

func TestDirectorySizeDoesNotFollowSymlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need elevated privileges on windows")
	}

	target := t.TempDir()
	writeSized(t, filepath.Join(target, "big.bin"), 10_000)

	root := t.TempDir()
	writeSized(t, filepath.Join(root, "small.bin"), 100)
	require.NoError(t, os.Symlink(target, filepath.Join(root, "link")))

	size, err := DirectorySize(root)
	require.NoError(t, err)

	info, err := os.Lstat(filepath.Join(root, "link"))
	require.NoError(t, err)
	assert.Equal(t, 100+info.Size(), size)
}

func TestDirectorySizeSkipsUnreadable(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced")
	}

	root := t.TempDir()
	writeSized(t, filepath.Join(root, "ok.bin"), 300)
	locked := filepath.Join(root, "locked")
	writeSized(t, filepath.Join(locked, "hidden.bin"), 9000)
	require.NoError(t, os.Chmod(locked, 0000))
	t.Cleanup(func() { os.Chmod(locked, 0755) })

	size, err := DirectorySize(root)
	require.NoError(t, err)
	assert.Equal(t, int64(300), size)
}
