package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/adamancini/gamedeck/internal/backup"
	"github.com/adamancini/gamedeck/internal/catalog"
	"github.com/adamancini/gamedeck/internal/config"
	"github.com/adamancini/gamedeck/internal/diff"
	"github.com/adamancini/gamedeck/internal/legendary"
	"github.com/adamancini/gamedeck/internal/logging"
	"github.com/adamancini/gamedeck/internal/reconcile"
	"github.com/adamancini/gamedeck/internal/steam"
	"github.com/adamancini/gamedeck/internal/types"
)

// Target selects which provider passes a sync runs.
type Target string

const (
	TargetAll   Target = "all"
	TargetSteam Target = "steam"
	TargetEpic  Target = "epic"
)

// ParseTarget parses a sync target. An empty string is all.
func ParseTarget(s string) (Target, error) {
	switch Target(s) {
	case "", TargetAll:
		return TargetAll, nil
	case TargetSteam, TargetEpic:
		return Target(s), nil
	default:
		return "", fmt.Errorf("unknown sync target %q (must be steam, epic or all)", s)
	}
}

// Providers returns the providers the target covers.
func (t Target) Providers() []types.Provider {
	switch t {
	case TargetSteam:
		return []types.Provider{types.ProviderSteam}
	case TargetEpic:
		return []types.Provider{types.ProviderEpic}
	default:
		return types.AllProviders()
	}
}

// SyncOptions configures sync behavior.
type SyncOptions struct {
	Target       Target
	CreateBackup bool
	SkipVerify   bool
	// Approver is asked about each Epic import. Nil approves all and lets
	// provider passes run concurrently.
	Approver     reconcile.Approver
	MinSizeBytes int64 // Zero uses the configured threshold
}

// PassError records a provider pass that could not complete.
type PassError struct {
	Provider types.Provider `json:"provider" yaml:"provider"`
	Error    string         `json:"error" yaml:"error"`
	err      error
}

// SyncReport is everything one sync did.
type SyncReport struct {
	Backup string                  `json:"backup,omitempty" yaml:"backup,omitempty"`
	Verify *reconcile.VerifyResult `json:"verify,omitempty" yaml:"verify,omitempty"`
	Passes []*reconcile.Result     `json:"passes" yaml:"passes"`
	Errors []PassError             `json:"errors,omitempty" yaml:"errors,omitempty"`
	Diff   *diff.Result            `json:"diff" yaml:"diff"`
}

// Err returns the pass errors joined, or nil.
func (r *SyncReport) Err() error {
	errs := make([]error, 0, len(r.Errors))
	for _, e := range r.Errors {
		errs = append(errs, fmt.Errorf("%s pass: %w", e.Provider, e.err))
	}
	return errors.Join(errs...)
}

// RenderText implements output.TextRenderer.
func (r *SyncReport) RenderText(w io.Writer) error {
	if r.Verify != nil && (len(r.Verify.Demoted) > 0 || r.Verify.Failed > 0) {
		if err := r.Verify.RenderText(w); err != nil {
			return err
		}
	}
	for _, p := range r.Passes {
		if err := p.RenderText(w); err != nil {
			return err
		}
	}
	for _, e := range r.Errors {
		if _, err := fmt.Fprintf(w, "%s pass failed: %s\n", e.Provider.DisplayName(), e.Error); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}
	return r.Diff.RenderText(w)
}

// SyncService orchestrates verification, provider passes, backups and the
// before/after diff.
type SyncService struct {
	settings *config.Settings
	store    *catalog.Store
	epic     reconcile.EpicSource
	owned    reconcile.OwnedSource
	manifest reconcile.ManifestSource
	backups  *backup.Manager
	progress reconcile.Progress
	log      *logrus.Entry
}

// NewSyncService creates a sync service wired to the real legendary CLI,
// the owned-games backend and the local Steam manifest.
func NewSyncService(env *environment, progress reconcile.Progress) (*SyncService, error) {
	manifest, err := steam.NewManifest(env.settings.Steam.ManifestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to locate steam manifest: %w", err)
	}

	backups, err := backup.NewManager(appVersion)
	if err != nil {
		logging.NewLogger("cmd").WithError(err).Warn("backups disabled")
		backups = nil
	}

	return NewSyncServiceWithDeps(
		env.settings,
		env.store,
		legendary.NewClient(env.settings.Legendary.Binary),
		steam.NewClient(env.settings.Steam.APIBaseURL),
		manifest,
		backups,
		progress,
	), nil
}

// NewSyncServiceWithDeps creates a sync service with custom dependencies (for testing).
func NewSyncServiceWithDeps(
	settings *config.Settings,
	store *catalog.Store,
	epic reconcile.EpicSource,
	owned reconcile.OwnedSource,
	manifest reconcile.ManifestSource,
	backups *backup.Manager,
	progress reconcile.Progress,
) *SyncService {
	if progress == nil {
		progress = reconcile.NopProgress{}
	}
	return &SyncService{
		settings: settings,
		store:    store,
		epic:     epic,
		owned:    owned,
		manifest: manifest,
		backups:  backups,
		progress: progress,
		log:      logging.NewLogger("sync"),
	}
}

// Reconciler builds a reconciler for one run.
func (s *SyncService) Reconciler(opts SyncOptions) *reconcile.Reconciler {
	minSize := opts.MinSizeBytes
	if minSize <= 0 {
		minSize = s.settings.Import.MinSizeBytes
	}
	return reconcile.New(reconcile.Deps{
		Store:        s.store,
		Epic:         s.epic,
		Owned:        s.owned,
		Manifest:     s.manifest,
		Progress:     s.progress,
		Approver:     opts.Approver,
		MinSizeBytes: minSize,
		SteamToken:   s.settings.Steam.Token,
	})
}

// Verify demotes installed entries whose location is gone.
func (s *SyncService) Verify(ctx context.Context) (*reconcile.VerifyResult, error) {
	return s.Reconciler(SyncOptions{}).Verify(ctx)
}

// CreateBackup snapshots the catalog. It returns "" when backups are off.
func (s *SyncService) CreateBackup(snap *catalog.Snapshot, note string) (string, error) {
	if s.backups == nil {
		return "", nil
	}
	bak, err := s.backups.Create(snap, note)
	if err != nil {
		return "", err
	}
	return bak.ID, nil
}

// Run executes the complete sync workflow.
// A failed provider pass is recorded in the report and does not stop the
// other pass; catalog read failures are returned as errors.
func (s *SyncService) Run(ctx context.Context, opts SyncOptions) (*SyncReport, error) {
	before, err := s.store.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	report := &SyncReport{Passes: []*reconcile.Result{}}

	if opts.CreateBackup {
		id, err := s.CreateBackup(before, "Auto (sync)")
		if err != nil {
			s.log.WithError(err).Warn("failed to create backup")
		} else if id != "" {
			s.log.WithField("backup", id).Debug("backup created")
			report.Backup = id
		}
	}

	r := s.Reconciler(opts)

	if !opts.SkipVerify {
		verified, err := r.Verify(ctx)
		if err != nil {
			return nil, fmt.Errorf("verify installs: %w", err)
		}
		report.Verify = verified
	}

	providers := opts.Target.Providers()
	results := make([]*reconcile.Result, len(providers))
	errs := make([]error, len(providers))

	run := func(i int) {
		results[i], errs[i] = s.runPass(ctx, r, providers[i])
	}

	// Prompts cannot interleave, so interactive runs stay sequential.
	if opts.Approver != nil {
		for i := range providers {
			run(i)
		}
	} else {
		var wg sync.WaitGroup
		for i := range providers {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				run(i)
			}(i)
		}
		wg.Wait()
	}

	for i, p := range providers {
		if errs[i] != nil {
			s.log.WithField("provider", p).WithError(errs[i]).Error("pass failed")
			report.Errors = append(report.Errors, PassError{Provider: p, Error: errs[i].Error(), err: errs[i]})
			continue
		}
		report.Passes = append(report.Passes, results[i])
	}

	after, err := s.store.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	report.Diff = diff.Compute(before, after)
	return report, nil
}

func (s *SyncService) runPass(ctx context.Context, r *reconcile.Reconciler, p types.Provider) (*reconcile.Result, error) {
	switch p {
	case types.ProviderSteam:
		return r.ReconcileSteam(ctx)
	case types.ProviderEpic:
		return r.ReconcileEpic(ctx, s.settings.EpicLibraryFolders)
	default:
		return nil, fmt.Errorf("no pass for provider %s", p)
	}
}
