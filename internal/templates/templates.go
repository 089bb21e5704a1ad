// Package templates provides embedded settings templates for gamedeck init.
package templates

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	gderr "github.com/adamancini/gamedeck/internal/errors"
)

//go:embed *.yaml
var files embed.FS

// Default is the template used when none is named.
const Default = "minimal"

// Template is one starter settings file.
type Template struct {
	Name        string
	Description string
	Content     []byte
}

var descriptions = map[string]string{
	"minimal": "Epic library folders only",
	"lan":     "Adds a lobby server on the local network",
	"full":    "Every option with its default",
}

// List returns the template names in alphabetical order.
func List() []string {
	matches, err := fs.Glob(files, "*.yaml")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, strings.TrimSuffix(m, ".yaml"))
	}
	sort.Strings(names)
	return names
}

// Get returns a template by name. ${VAR} references are left in place;
// they are expanded each time the settings file is loaded.
func Get(name string) (*Template, error) {
	content, err := files.ReadFile(name + ".yaml")
	if errors.Is(err, fs.ErrNotExist) {
		return nil, gderr.New(gderr.ErrCodeInvalidInput,
			fmt.Sprintf("unknown template %q (available: %s)", name, strings.Join(List(), ", ")))
	}
	if err != nil {
		return nil, fmt.Errorf("read template %s: %w", name, err)
	}

	return &Template{
		Name:        name,
		Description: GetDescription(name),
		Content:     content,
	}, nil
}

// GetDescription returns the one-line summary shown by completion.
func GetDescription(name string) string {
	if d, ok := descriptions[name]; ok {
		return d
	}
	return "Custom template"
}
