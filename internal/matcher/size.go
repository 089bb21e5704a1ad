package matcher

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/adamancini/gamedeck/internal/logging"
)

// DirectorySize returns the total size in bytes of all regular files and
// symlinks under path. Symlinks are not followed. Entries that cannot be
// read count as zero; only a failure on path itself is returned.
func DirectorySize(path string) (int64, error) {
	log := logging.NewLogger("matcher")

	info, err := os.Lstat(path)
	if err != nil {
		return 0, err
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("%s is not a directory", path)
	}

	var total int64
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == path {
				return err
			}
			log.WithError(err).WithField("path", p).Debug("skipping unreadable entry")
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() && d.Type()&fs.ModeSymlink == 0 {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			log.WithError(err).WithField("path", p).Debug("skipping vanished entry")
			return nil
		}
		total += fi.Size()
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}
