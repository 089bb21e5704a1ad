package reconcile

import (
	"context"
	"fmt"
	"sort"

	"github.com/adamancini/gamedeck/internal/catalog"
	gderr "github.com/adamancini/gamedeck/internal/errors"
	"github.com/adamancini/gamedeck/internal/matcher"
	"github.com/adamancini/gamedeck/internal/types"
)

// ReconcileSteam imports owned Steam games when a token is configured, then
// replaces the Steam installed set from the local manifest.
func (r *Reconciler) ReconcileSteam(ctx context.Context) (*Result, error) {
	if r.manifest == nil {
		return nil, gderr.New(gderr.ErrCodeInvalidInput, "steam pass is not configured")
	}

	r.steamMu.Lock()
	defer r.steamMu.Unlock()

	log := r.log.WithField("provider", types.ProviderSteam)
	result := &Result{Provider: types.ProviderSteam}

	if r.steamToken != "" && r.owned != nil {
		games, err := r.owned.OwnedGames(ctx, r.steamToken)
		if err != nil {
			return nil, fmt.Errorf("fetch owned steam games: %w", err)
		}
		result.Owned = len(games)

		entries := make([]catalog.Entry, 0, len(games))
		for _, g := range games {
			id := g.AppID.String()
			if id == "" {
				log.WithField("title", g.Name).Warn("owned game without app id, ignoring")
				continue
			}
			entries = append(entries, catalog.Entry{
				Provider: types.ProviderSteam,
				ID:       id,
				Title:    g.Name,
				IconHash: g.ImgIconURL,
			})
		}

		result.Inserted, err = r.store.UpsertOwned(ctx, types.ProviderSteam, entries, rowProgress(r.progress, "Saving owned Steam games"))
		if err != nil {
			return nil, err
		}
	} else {
		log.Debug("no steam token configured, skipping owned games")
	}

	apps, err := r.manifest.InstalledApps(ctx)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(apps))
	for id := range apps {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	result.Candidates = len(ids)
	installs := make([]catalog.Install, 0, len(ids))
	for _, id := range ids {
		loc := apps[id]
		if !present(loc) {
			log.WithField("app_id", id).WithField("location", loc).
				Warn("library folder missing, not marking installed")
			result.Skipped = append(result.Skipped, Skip{
				Candidate: matcher.Candidate{ID: id, FullPath: loc},
				Size:      -1,
				Reason:    "library folder missing",
			})
			continue
		}
		installs = append(installs, catalog.Install{ID: id, Location: loc})
	}

	if err := r.store.BulkSetInstalled(ctx, types.ProviderSteam, installs, rowProgress(r.progress, "Saving installed Steam games")); err != nil {
		return nil, err
	}
	result.Accepted = len(installs)
	result.Installed = len(installs)
	r.progress.Complete()

	log.WithField("owned", result.Owned).
		WithField("installed", result.Installed).
		Info("steam pass complete")
	return result, nil
}
