package reconcile

import (
	"context"
	"fmt"
	"os"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/adamancini/gamedeck/internal/catalog"
	gderr "github.com/adamancini/gamedeck/internal/errors"
	"github.com/adamancini/gamedeck/internal/legendary"
	"github.com/adamancini/gamedeck/internal/matcher"
	"github.com/adamancini/gamedeck/internal/types"
)

// ReconcileEpic imports owned Epic games, scans folders for installs and
// replaces the Epic installed set.
//
// Failing to list owned games or to write the catalog loses the pass. A
// candidate that fails to import is reported in Result.Failed and the pass
// continues without it.
func (r *Reconciler) ReconcileEpic(ctx context.Context, folders []string) (*Result, error) {
	if r.epic == nil {
		return nil, gderr.New(gderr.ErrCodeInvalidInput, "epic pass is not configured")
	}

	r.epicMu.Lock()
	defer r.epicMu.Unlock()

	log := r.log.WithField("provider", types.ProviderEpic)
	result := &Result{Provider: types.ProviderEpic}

	// Fetch
	games, err := r.epic.ListGames(ctx)
	if err != nil {
		return nil, fmt.Errorf("list epic games: %w", err)
	}
	result.Owned = len(games)

	// Persist owned
	entries := make([]catalog.Entry, 0, len(games))
	owned := make([]matcher.Owned, 0, len(games))
	for _, g := range games {
		if g.AppName == "" {
			log.WithField("title", g.AppTitle).Warn("owned game without app name, ignoring")
			continue
		}
		entries = append(entries, catalog.Entry{
			Provider:     types.ProviderEpic,
			ID:           g.AppName,
			Title:        g.AppTitle,
			ThumbnailURL: g.Thumbnail(),
		})
		owned = append(owned, matcher.Owned{ID: g.AppName, Title: g.AppTitle})
	}

	result.Inserted, err = r.store.UpsertOwned(ctx, types.ProviderEpic, entries, rowProgress(r.progress, "Saving owned Epic games"))
	if err != nil {
		return nil, err
	}

	// Scan
	candidates := r.scanFolders(folders, owned)
	result.Candidates = len(candidates)

	// Threshold filter
	sizes, err := r.measure(ctx, candidates)
	if err != nil {
		return nil, err
	}

	var accepted []sizedCandidate
	for i, c := range candidates {
		size := sizes[i]
		entry := log.WithField("app", c.ID).WithField("path", c.FullPath).WithField("size", size)
		switch {
		case size < 0:
			entry.Warn("could not measure folder, skipping")
			result.Skipped = append(result.Skipped, Skip{Candidate: c, Size: size, Reason: "unreadable"})
		case size < r.minSize:
			entry.Warn("folder size is too small, skipping import")
			result.Skipped = append(result.Skipped, Skip{Candidate: c, Size: size, Reason: "too small"})
		default:
			accepted = append(accepted, sizedCandidate{Candidate: c, size: size})
		}
	}

	// Import
	var installs []catalog.Install
	for i, c := range accepted {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if r.approver != nil {
			ok, err := r.approver.Approve(c.Candidate, c.size)
			if err != nil {
				return nil, fmt.Errorf("approval: %w", err)
			}
			if !ok {
				result.Skipped = append(result.Skipped, Skip{Candidate: c.Candidate, Size: c.size, Reason: "declined"})
				continue
			}
		}

		r.progress.Update(Status{Processed: i, Total: len(accepted), Message: "Importing " + c.Title})
		outcome, err := r.epic.Import(ctx, c.ID, c.FullPath)
		if err != nil {
			log.WithError(err).WithField("app", c.ID).Error("import failed")
			result.Failed = append(result.Failed, Failure{Candidate: c.Candidate, Error: err.Error()})
			continue
		}
		if outcome == legendary.AlreadyImported {
			result.AlreadyImported++
		}
		result.Accepted++
		installs = append(installs, catalog.Install{ID: c.ID, Location: c.FullPath})
	}

	// Persist installed
	if err := r.store.BulkSetInstalled(ctx, types.ProviderEpic, installs, rowProgress(r.progress, "Saving installed Epic games")); err != nil {
		return nil, err
	}
	result.Installed = len(installs)
	r.progress.Complete()

	log.WithField("owned", result.Owned).
		WithField("installed", result.Installed).
		WithField("skipped", len(result.Skipped)).
		WithField("failed", len(result.Failed)).
		Info("epic pass complete")
	return result, nil
}

type sizedCandidate struct {
	matcher.Candidate
	size int64
}

// scanFolders matches the immediate subdirectories of each root.
// Missing or unreadable roots are logged and skipped.
func (r *Reconciler) scanFolders(folders []string, owned []matcher.Owned) []matcher.Candidate {
	var candidates []matcher.Candidate
	for _, root := range folders {
		if _, err := os.Stat(root); err != nil {
			r.log.WithError(err).WithField("folder", root).Warn("library folder does not exist, skipping")
			continue
		}
		dirs, err := matcher.Subdirectories(root)
		if err != nil {
			r.log.WithError(err).WithField("folder", root).Warn("cannot read library folder, skipping")
			continue
		}
		found := matcher.MatchFolders(root, dirs, owned)
		r.log.WithField("folder", root).Debugf("%d of %d folders matched an owned game", len(found), len(dirs))
		candidates = append(candidates, found...)
	}
	return candidates
}

// measure sizes every candidate concurrently. The result is index-aligned
// with candidates; -1 marks a folder that could not be measured.
func (r *Reconciler) measure(ctx context.Context, candidates []matcher.Candidate) ([]int64, error) {
	sizes := make([]int64, len(candidates))
	var (
		mu   sync.Mutex
		done int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.sizeWorkers)

	for i, c := range candidates {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			size, err := r.size(c.FullPath)
			if err != nil {
				r.log.WithError(err).WithField("path", c.FullPath).Debug("size walk failed")
				size = -1
			}
			sizes[i] = size

			// Reports go out one at a time with Processed counting completions.
			mu.Lock()
			done++
			r.progress.Update(Status{Processed: done, Total: len(candidates), Message: "Measuring " + c.Title})
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return sizes, nil
}
