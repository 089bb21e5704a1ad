// Package reconcile brings the catalog in line with what each provider
// reports as owned and what the local disk shows as installed.
package reconcile

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/adamancini/gamedeck/internal/catalog"
	"github.com/adamancini/gamedeck/internal/config"
	"github.com/adamancini/gamedeck/internal/legendary"
	"github.com/adamancini/gamedeck/internal/logging"
	"github.com/adamancini/gamedeck/internal/matcher"
	"github.com/adamancini/gamedeck/internal/steam"
	"github.com/adamancini/gamedeck/internal/types"
)

// DefaultSizeWorkers bounds concurrent directory size walks.
const DefaultSizeWorkers = 4

// Catalog is the part of the catalog store a pass writes to.
type Catalog interface {
	UpsertOwned(ctx context.Context, p types.Provider, entries []catalog.Entry, progress catalog.ProgressFunc) (int, error)
	BulkSetInstalled(ctx context.Context, p types.Provider, installs []catalog.Install, progress catalog.ProgressFunc) error
	ListInstalled(ctx context.Context) ([]catalog.Entry, error)
	MarkUninstalled(ctx context.Context, p types.Provider, id string) error
}

// EpicSource lists owned Epic games and registers installs.
type EpicSource interface {
	ListGames(ctx context.Context) ([]legendary.Game, error)
	Import(ctx context.Context, appName, path string) (legendary.ImportOutcome, error)
}

// OwnedSource lists owned Steam games.
type OwnedSource interface {
	OwnedGames(ctx context.Context, token string) ([]steam.OwnedGame, error)
}

// ManifestSource reports installed Steam app ids and their library folder.
type ManifestSource interface {
	InstalledApps(ctx context.Context) (map[string]string, error)
}

// Approver decides whether an accepted import candidate is imported.
type Approver interface {
	Approve(c matcher.Candidate, size int64) (bool, error)
}

// SizeFunc measures a directory in bytes.
type SizeFunc func(path string) (int64, error)

// Deps wires a Reconciler. Store is required; a nil source disables the
// pass that needs it.
type Deps struct {
	Store    Catalog
	Epic     EpicSource
	Owned    OwnedSource
	Manifest ManifestSource
	Progress Progress
	Approver Approver
	Size     SizeFunc

	// MinSizeBytes is the smallest folder accepted as an install.
	MinSizeBytes int64
	// SteamToken enables the owned-games import when non-empty.
	SteamToken  string
	SizeWorkers int
}

// Reconciler runs reconciliation passes.
// Passes for the same provider run one after another; passes for different
// providers may overlap.
type Reconciler struct {
	store    Catalog
	epic     EpicSource
	owned    OwnedSource
	manifest ManifestSource
	progress Progress
	approver Approver
	size     SizeFunc

	minSize     int64
	steamToken  string
	sizeWorkers int

	epicMu  sync.Mutex
	steamMu sync.Mutex
	log     *logrus.Entry
}

// New creates a Reconciler. Zero values in d fall back to defaults.
func New(d Deps) *Reconciler {
	r := &Reconciler{
		store:       d.Store,
		epic:        d.Epic,
		owned:       d.Owned,
		manifest:    d.Manifest,
		progress:    d.Progress,
		approver:    d.Approver,
		size:        d.Size,
		minSize:     d.MinSizeBytes,
		steamToken:  d.SteamToken,
		sizeWorkers: d.SizeWorkers,
		log:         logging.NewLogger("reconcile"),
	}
	if r.progress == nil {
		r.progress = NopProgress{}
	}
	if r.size == nil {
		r.size = matcher.DirectorySize
	}
	if r.minSize <= 0 {
		r.minSize = config.DefaultMinSizeBytes
	}
	if r.sizeWorkers <= 0 {
		r.sizeWorkers = DefaultSizeWorkers
	}
	return r
}

// MinSizeBytes returns the install size threshold in effect.
func (r *Reconciler) MinSizeBytes() int64 {
	return r.minSize
}

// Skip is a candidate rejected before import.
type Skip struct {
	Candidate matcher.Candidate `json:"candidate" yaml:"candidate"`
	Size      int64             `json:"size" yaml:"size"`
	Reason    string            `json:"reason" yaml:"reason"`
}

// Failure is a candidate whose import failed.
type Failure struct {
	Candidate matcher.Candidate `json:"candidate" yaml:"candidate"`
	Error     string            `json:"error" yaml:"error"`
}

// Result summarizes one provider pass.
type Result struct {
	Provider types.Provider `json:"provider" yaml:"provider"`
	// Owned is how many owned games the provider reported.
	Owned int `json:"owned" yaml:"owned"`
	// Inserted is how many of them were new to the catalog.
	Inserted int `json:"inserted" yaml:"inserted"`
	// Candidates is how many folders matched an owned title.
	Candidates      int       `json:"candidates" yaml:"candidates"`
	Accepted        int       `json:"accepted" yaml:"accepted"`
	AlreadyImported int       `json:"already_imported" yaml:"already_imported"`
	Skipped         []Skip    `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	Failed          []Failure `json:"failed,omitempty" yaml:"failed,omitempty"`
	// Installed is the size of the installed set written to the catalog.
	Installed int `json:"installed" yaml:"installed"`
}
