package reconcile

import (
	"context"
	"os"

	"github.com/adamancini/gamedeck/internal/catalog"
)

// VerifyResult reports a verification pass.
type VerifyResult struct {
	Checked int             `json:"checked" yaml:"checked"`
	Demoted []catalog.Entry `json:"demoted,omitempty" yaml:"demoted,omitempty"`
	Failed  int             `json:"failed" yaml:"failed"`
}

// Verify demotes installed entries whose location no longer exists.
// A failed update is logged and counted; the remaining entries are still
// checked.
func (r *Reconciler) Verify(ctx context.Context) (*VerifyResult, error) {
	installed, err := r.store.ListInstalled(ctx)
	if err != nil {
		return nil, err
	}

	result := &VerifyResult{Checked: len(installed)}
	for i, e := range installed {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r.progress.Update(Status{Processed: i + 1, Total: len(installed), Message: "Verifying " + e.Title})

		if present(e.InstallLocation) {
			continue
		}

		log := r.log.WithField("provider", e.Provider).WithField("id", e.ID).WithField("path", e.InstallLocation)
		if err := r.store.MarkUninstalled(ctx, e.Provider, e.ID); err != nil {
			log.WithError(err).Error("failed to mark game uninstalled")
			result.Failed++
			continue
		}
		log.Info("install location is gone, marked uninstalled")
		result.Demoted = append(result.Demoted, e)
	}
	return result, nil
}

// present reports whether path still exists. Errors other than not-exist
// leave the entry alone.
func present(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
