package diff

import (
	"github.com/adamancini/gamedeck/internal/catalog"
	"github.com/adamancini/gamedeck/internal/types"
)

// Compute returns the changes between two snapshots. A nil before is
// treated as an empty catalog. Unchanged entries are omitted.
func Compute(before, after *catalog.Snapshot) *Result {
	if before == nil {
		before = &catalog.Snapshot{}
	}
	if after == nil {
		after = &catalog.Snapshot{}
	}

	result := &Result{}
	for _, p := range types.AllProviders() {
		result.Changes = append(result.Changes, computeProvider(before.For(p), after.For(p))...)
	}
	return result
}

func computeProvider(before, after []catalog.Entry) []EntryDiff {
	var diffs []EntryDiff
	seen := make(map[string]bool, len(after))

	old := make(map[string]catalog.Entry, len(before))
	for _, e := range before {
		old[e.ID] = e
	}

	for _, a := range after {
		seen[a.ID] = true
		afterCopy := a

		b, exists := old[a.ID]
		if !exists {
			diffs = append(diffs, EntryDiff{
				Provider: a.Provider,
				ID:       a.ID,
				Title:    a.Title,
				Action:   ActionAdd,
				After:    &afterCopy,
			})
			continue
		}

		action := entryAction(b, a)
		if action == ActionNone {
			continue
		}
		beforeCopy := b
		diffs = append(diffs, EntryDiff{
			Provider: a.Provider,
			ID:       a.ID,
			Title:    a.Title,
			Action:   action,
			Before:   &beforeCopy,
			After:    &afterCopy,
		})
	}

	// Rows are never deleted by a pass, but a restored backup or a swapped
	// database can lose them.
	for _, b := range before {
		if !seen[b.ID] {
			beforeCopy := b
			diffs = append(diffs, EntryDiff{
				Provider: b.Provider,
				ID:       b.ID,
				Title:    b.Title,
				Action:   ActionRemove,
				Before:   &beforeCopy,
			})
		}
	}

	return diffs
}

func entryAction(before, after catalog.Entry) Action {
	switch {
	case !before.Installed && after.Installed:
		return ActionInstall
	case before.Installed && !after.Installed:
		return ActionUninstall
	case before.Installed && before.InstallLocation != after.InstallLocation:
		return ActionMove
	default:
		return ActionNone
	}
}
