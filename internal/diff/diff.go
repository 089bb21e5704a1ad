// Package diff compares two catalog snapshots to report what a pass changed.
package diff

import (
	"fmt"
	"io"

	"github.com/adamancini/gamedeck/internal/catalog"
	"github.com/adamancini/gamedeck/internal/output"
	"github.com/adamancini/gamedeck/internal/types"
)

// Action describes how one catalog entry changed.
type Action string

const (
	ActionNone      Action = "none"      // Unchanged
	ActionAdd       Action = "add"       // Newly owned
	ActionInstall   Action = "install"   // Became installed
	ActionUninstall Action = "uninstall" // No longer installed
	ActionMove      Action = "move"      // Installed at a new location
	ActionRemove    Action = "remove"    // Gone from the catalog
)

// EntryDiff is the change for one entry.
type EntryDiff struct {
	Provider types.Provider `json:"provider" yaml:"provider"`
	ID       string         `json:"id" yaml:"id"`
	Title    string         `json:"title" yaml:"title"`
	Action   Action         `json:"action" yaml:"action"`
	Before   *catalog.Entry `json:"before,omitempty" yaml:"before,omitempty"`
	After    *catalog.Entry `json:"after,omitempty" yaml:"after,omitempty"`
}

// Result holds every changed entry, Steam first, each provider ordered as
// in the after snapshot.
type Result struct {
	Changes []EntryDiff `json:"changes" yaml:"changes"`
}

// Summary counts changes by kind.
func (r *Result) Summary() (added, installed, uninstalled, moved int) {
	for _, c := range r.Changes {
		switch c.Action {
		case ActionAdd:
			added++
			if c.After != nil && c.After.Installed {
				installed++
			}
		case ActionInstall:
			installed++
		case ActionUninstall:
			uninstalled++
		case ActionRemove:
			if c.Before != nil && c.Before.Installed {
				uninstalled++
			}
		case ActionMove:
			moved++
		}
	}
	return
}

// Empty reports whether nothing changed.
func (r *Result) Empty() bool {
	return len(r.Changes) == 0
}

// RenderText prints one line per change and a summary.
func (r *Result) RenderText(w io.Writer) error {
	s := output.NewStyles(w)
	if r.Empty() {
		_, err := fmt.Fprintln(w, s.Muted.Render("Catalog unchanged."))
		return err
	}

	for _, c := range r.Changes {
		var line string
		switch c.Action {
		case ActionAdd:
			line = s.Added.Render(fmt.Sprintf("+ %s (%s)", c.Title, c.Provider))
			if c.After != nil && c.After.Installed {
				line += s.Muted.Render(" installed at " + c.After.InstallLocation)
			}
		case ActionInstall:
			line = s.Added.Render(fmt.Sprintf("↓ %s (%s)", c.Title, c.Provider)) +
				s.Muted.Render(" installed at "+c.After.InstallLocation)
		case ActionUninstall:
			line = s.Removed.Render(fmt.Sprintf("✗ %s (%s) no longer installed", c.Title, c.Provider))
		case ActionMove:
			line = s.Changed.Render(fmt.Sprintf("~ %s (%s)", c.Title, c.Provider)) +
				s.Muted.Render(fmt.Sprintf(" moved %s → %s", c.Before.InstallLocation, c.After.InstallLocation))
		case ActionRemove:
			line = s.Removed.Render(fmt.Sprintf("- %s (%s)", c.Title, c.Provider))
		default:
			continue
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}

	added, installed, uninstalled, moved := r.Summary()
	_, err := fmt.Fprintf(w, "\n%s\n", s.Heading.Render(fmt.Sprintf(
		"%d new, %d installed, %d uninstalled, %d moved", added, installed, uninstalled, moved)))
	return err
}
