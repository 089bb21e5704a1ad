// Package matcher pairs on-disk folder names with owned game titles.
package matcher

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/adamancini/gamedeck/internal/logging"
)

// Owned is an owned game as seen by the matcher.
type Owned struct {
	ID    string
	Title string
}

// Candidate is a folder believed to hold an owned game.
type Candidate struct {
	FullPath string `json:"full_path" yaml:"full_path"`
	ID       string `json:"id" yaml:"id"`
	Title    string `json:"title" yaml:"title"`
}

// Normalize lowercases name and keeps only ASCII letters and digits.
func Normalize(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Matches reports whether a folder name and a title contain one another
// after normalization. A name that normalizes to "" is contained in every
// other name, so it matches anything.
func Matches(folder, title string) bool {
	return contains(Normalize(folder), Normalize(title))
}

func contains(a, b string) bool {
	return strings.Contains(b, a) || strings.Contains(a, b)
}

// MatchFolders returns one candidate per folder that matches an owned title.
// The first matching title in owned order wins; other matches are logged.
// Folders and titles with no letters or digits would match everything, so
// they are skipped here.
func MatchFolders(parentDir string, folderNames []string, owned []Owned) []Candidate {
	log := logging.NewLogger("matcher")

	normalized := make([]string, len(owned))
	for i, o := range owned {
		normalized[i] = Normalize(o.Title)
		if normalized[i] == "" {
			log.WithField("id", o.ID).WithField("title", o.Title).
				Debug("owned title has no alphanumerics, never matched")
		}
	}

	var candidates []Candidate
	for _, folder := range folderNames {
		name := Normalize(filepath.Base(folder))
		if name == "" {
			log.WithField("folder", folder).Debug("folder name has no alphanumerics, skipping")
			continue
		}

		first := -1
		var others []string
		for i, title := range normalized {
			if title == "" || !contains(name, title) {
				continue
			}
			if first < 0 {
				first = i
				continue
			}
			others = append(others, owned[i].Title)
		}

		if first < 0 {
			log.WithField("folder", folder).Debug("no owned title matches folder")
			continue
		}

		match := owned[first]
		if len(others) > 0 {
			log.WithField("folder", folder).
				WithField("chosen", match.Title).
				WithField("also_matched", others).
				Warn("folder matches more than one owned title")
		}

		candidates = append(candidates, Candidate{
			FullPath: filepath.Join(parentDir, folder),
			ID:       match.ID,
			Title:    match.Title,
		})
	}

	return candidates
}

// Subdirectories lists the immediate subdirectory names of root, sorted.
func Subdirectories(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, e.Name())
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}
