package backup

import (
	"fmt"
	"io"

	gderr "github.com/adamancini/gamedeck/internal/errors"
)

// DefaultKeepCount is how many catalog snapshots prune keeps by default.
const DefaultKeepCount = 30

// PruneResult lists the snapshots prune removed.
type PruneResult struct {
	Deleted List `json:"deleted" yaml:"deleted"`
	Kept    int  `json:"kept" yaml:"kept"`
}

// RenderText implements output.TextRenderer.
func (r *PruneResult) RenderText(w io.Writer) error {
	for _, b := range r.Deleted {
		if _, err := fmt.Fprintf(w, "Deleted %s\n", b.ID); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "Kept %d backup(s), deleted %d.\n", r.Kept, len(r.Deleted))
	return err
}

// Prune deletes all but the newest keep snapshots.
func (m *Manager) Prune(keep int) (*PruneResult, error) {
	if keep < 0 {
		return nil, gderr.New(gderr.ErrCodeInvalidInput, fmt.Sprintf("cannot keep %d backups", keep))
	}

	backups, err := m.List()
	if err != nil {
		return nil, err
	}

	result := &PruneResult{Deleted: List{}, Kept: min(keep, len(backups))}
	if len(backups) <= keep {
		return result, nil
	}

	// List is newest first.
	for _, old := range backups[keep:] {
		if err := m.Delete(old.ID); err != nil {
			return nil, fmt.Errorf("prune %s: %w", old.ID, err)
		}
		result.Deleted = append(result.Deleted, old)
	}
	return result, nil
}
