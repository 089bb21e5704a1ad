package reconcile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/adamancini/gamedeck/internal/catalog"
	gderr "github.com/adamancini/gamedeck/internal/errors"
	"github.com/adamancini/gamedeck/internal/legendary"
	"github.com/adamancini/gamedeck/internal/matcher"
	"github.com/adamancini/gamedeck/internal/steam"
	"github.com/adamancini/gamedeck/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEpic struct {
	mu       sync.Mutex
	games    []legendary.Game
	listErr  error
	outcomes map[string]legendary.ImportOutcome
	failures map[string]error
	imported []string
	onList   func()
}

func (f *fakeEpic) ListGames(ctx context.Context) ([]legendary.Game, error) {
	if f.onList != nil {
		f.onList()
	}
	return f.games, f.listErr
}

func (f *fakeEpic) Import(ctx context.Context, appName, path string) (legendary.ImportOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failures[appName]; err != nil {
		return legendary.Imported, err
	}
	f.imported = append(f.imported, appName+"="+path)
	if o, ok := f.outcomes[appName]; ok {
		return o, nil
	}
	return legendary.Imported, nil
}

type fakeOwned struct {
	games []steam.OwnedGame
	err   error
	token string
}

func (f *fakeOwned) OwnedGames(ctx context.Context, token string) ([]steam.OwnedGame, error) {
	f.token = token
	return f.games, f.err
}

type fakeManifest struct {
	apps map[string]string
	err  error
}

func (f *fakeManifest) InstalledApps(ctx context.Context) (map[string]string, error) {
	return f.apps, f.err
}

type recordingProgress struct {
	mu        sync.Mutex
	updates   []Status
	completes int
}

func (p *recordingProgress) Update(s Status) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updates = append(p.updates, s)
}

func (p *recordingProgress) Complete() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.completes++
}

type approveFunc func(matcher.Candidate, int64) (bool, error)

func (f approveFunc) Approve(c matcher.Candidate, size int64) (bool, error) { return f(c, size) }

func newStore(t *testing.T) *catalog.Store {
	t.Helper()
	s, err := catalog.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func game(id, title string) legendary.Game {
	return legendary.Game{AppName: id, AppTitle: title, Metadata: legendary.Metadata{
		KeyImages: []legendary.KeyImage{{Type: "DieselGameBox", URL: "https://cdn/" + id + ".jpg"}},
	}}
}

// library creates root with the given subdirectories.
func library(t *testing.T, dirs ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, d := range dirs {
		require.NoError(t, os.MkdirAll(filepath.Join(root, d), 0755))
	}
	return root
}

func sizes(m map[string]int64) SizeFunc {
	return func(path string) (int64, error) {
		size, ok := m[filepath.Base(path)]
		if !ok {
			return 0, os.ErrNotExist
		}
		return size, nil
	}
}

func TestReconcileEpicImportsMatchingFolder(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	root := library(t, "SuperWidget", "Unrelated")
	epic := &fakeEpic{games: []legendary.Game{game("sw1", "Super Widget")}}
	progress := &recordingProgress{}

	r := New(Deps{
		Store:    store,
		Epic:     epic,
		Progress: progress,
		Size:     sizes(map[string]int64{"SuperWidget": 25_000_000}),
	})

	result, err := r.ReconcileEpic(ctx, []string{root})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Owned)
	assert.Equal(t, 1, result.Inserted)
	assert.Equal(t, 1, result.Candidates)
	assert.Equal(t, 1, result.Accepted)
	assert.Equal(t, 1, result.Installed)
	assert.Empty(t, result.Skipped)
	assert.Empty(t, result.Failed)
	assert.Equal(t, []string{"sw1=" + filepath.Join(root, "SuperWidget")}, epic.imported)

	got, err := store.Get(ctx, types.ProviderEpic, "sw1")
	require.NoError(t, err)
	assert.True(t, got.Installed)
	assert.Equal(t, filepath.Join(root, "SuperWidget"), got.InstallLocation)
	assert.Equal(t, "https://cdn/sw1.jpg", got.ThumbnailURL)

	assert.Equal(t, 1, progress.completes)
	assert.NotEmpty(t, progress.updates)
}

// serialProgress fails the test if Update is entered concurrently.
type serialProgress struct {
	t        *testing.T
	inFlight atomic.Int32
	recordingProgress
}

func (p *serialProgress) Update(s Status) {
	if p.inFlight.Add(1) != 1 {
		p.t.Error("progress updates overlapped")
	}
	time.Sleep(100 * time.Microsecond)
	p.recordingProgress.Update(s)
	p.inFlight.Add(-1)
}

func TestReconcileEpicMeasureProgressInOrder(t *testing.T) {
	var dirs []string
	var games []legendary.Game
	for _, name := range []string{"Alpha", "Bravo", "Charlie", "Delta", "Echo", "Foxtrot", "Golf", "Hotel"} {
		dirs = append(dirs, name)
		games = append(games, game(name, name))
	}
	root := library(t, dirs...)
	progress := &serialProgress{t: t}

	r := New(Deps{
		Store:    newStore(t),
		Epic:     &fakeEpic{games: games},
		Progress: progress,
		Size: func(path string) (int64, error) {
			// later folders finish first
			time.Sleep(time.Duration(len(path)%4) * time.Millisecond)
			return 1, nil
		},
		MinSizeBytes: 100,
		SizeWorkers:  4,
	})

	_, err := r.ReconcileEpic(context.Background(), []string{root})
	require.NoError(t, err)

	var processed []int
	for _, u := range progress.updates {
		if strings.HasPrefix(u.Message, "Measuring ") {
			processed = append(processed, u.Processed)
		}
	}
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8}, processed)
}

func TestReconcileEpicSizeThreshold(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	root := library(t, "Alpha", "Bravo")
	epic := &fakeEpic{games: []legendary.Game{game("a", "Alpha"), game("b", "Bravo")}}

	r := New(Deps{
		Store: store,
		Epic:  epic,
		Size:  sizes(map[string]int64{"Alpha": 20_000_000, "Bravo": 19_999_999}),
	})
	assert.Equal(t, int64(20_000_000), r.MinSizeBytes())

	result, err := r.ReconcileEpic(ctx, []string{root})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Accepted)
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, "b", result.Skipped[0].Candidate.ID)
	assert.Equal(t, int64(19_999_999), result.Skipped[0].Size)

	a, err := store.Get(ctx, types.ProviderEpic, "a")
	require.NoError(t, err)
	assert.True(t, a.Installed)
	b, err := store.Get(ctx, types.ProviderEpic, "b")
	require.NoError(t, err)
	assert.False(t, b.Installed)
}

func TestReconcileEpicCustomThreshold(t *testing.T) {
	root := library(t, "Alpha")
	r := New(Deps{
		Store:        newStore(t),
		Epic:         &fakeEpic{games: []legendary.Game{game("a", "Alpha")}},
		Size:         sizes(map[string]int64{"Alpha": 500}),
		MinSizeBytes: 100,
	})

	result, err := r.ReconcileEpic(context.Background(), []string{root})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Accepted)
}

func TestReconcileEpicAlreadyImportedIsAccepted(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	root := library(t, "Alpha")
	epic := &fakeEpic{
		games:    []legendary.Game{game("a", "Alpha")},
		outcomes: map[string]legendary.ImportOutcome{"a": legendary.AlreadyImported},
	}

	r := New(Deps{Store: store, Epic: epic, Size: sizes(map[string]int64{"Alpha": 30_000_000})})
	result, err := r.ReconcileEpic(ctx, []string{root})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Accepted)
	assert.Equal(t, 1, result.AlreadyImported)
	assert.Equal(t, 1, result.Installed)
}

func TestReconcileEpicImportFailureDropsOnlyThatCandidate(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	root := library(t, "Alpha", "Bravo")
	epic := &fakeEpic{
		games:    []legendary.Game{game("a", "Alpha"), game("b", "Bravo")},
		failures: map[string]error{"a": gderr.CommandFailed("legendary import", "boom", errors.New("exit 1"))},
	}

	r := New(Deps{Store: store, Epic: epic, Size: sizes(map[string]int64{"Alpha": 30_000_000, "Bravo": 30_000_000})})
	result, err := r.ReconcileEpic(ctx, []string{root})
	require.NoError(t, err)

	require.Len(t, result.Failed, 1)
	assert.Equal(t, "a", result.Failed[0].Candidate.ID)
	assert.Equal(t, 1, result.Installed)

	a, err := store.Get(ctx, types.ProviderEpic, "a")
	require.NoError(t, err)
	assert.False(t, a.Installed)
	b, err := store.Get(ctx, types.ProviderEpic, "b")
	require.NoError(t, err)
	assert.True(t, b.Installed)
}

func TestReconcileEpicSkipsMissingRoots(t *testing.T) {
	root := library(t, "Alpha")
	r := New(Deps{
		Store: newStore(t),
		Epic:  &fakeEpic{games: []legendary.Game{game("a", "Alpha")}},
		Size:  sizes(map[string]int64{"Alpha": 30_000_000}),
	})

	result, err := r.ReconcileEpic(context.Background(), []string{filepath.Join(root, "nope"), root})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Installed)
}

func TestReconcileEpicWithoutFolders(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	progress := &recordingProgress{}
	r := New(Deps{Store: store, Epic: &fakeEpic{games: []legendary.Game{game("a", "Alpha")}}, Progress: progress})

	result, err := r.ReconcileEpic(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Inserted)
	assert.Zero(t, result.Candidates)
	assert.Equal(t, 1, progress.completes)
}

func TestReconcileEpicListFailureIsFatal(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	progress := &recordingProgress{}
	r := New(Deps{
		Store:    store,
		Epic:     &fakeEpic{listErr: gderr.ToolMissing("legendary", errors.New("not found"))},
		Progress: progress,
	})

	_, err := r.ReconcileEpic(ctx, nil)
	require.Error(t, err)
	assert.Equal(t, gderr.ErrCodeToolMissing, gderr.GetCode(err))
	assert.Zero(t, progress.completes)

	snap, err := store.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.Epic)
}

func TestReconcileEpicApproval(t *testing.T) {
	root := library(t, "Alpha", "Bravo")
	epic := &fakeEpic{games: []legendary.Game{game("a", "Alpha"), game("b", "Bravo")}}
	var asked []string

	r := New(Deps{
		Store: newStore(t),
		Epic:  epic,
		Size:  sizes(map[string]int64{"Alpha": 30_000_000, "Bravo": 30_000_000}),
		Approver: approveFunc(func(c matcher.Candidate, size int64) (bool, error) {
			asked = append(asked, c.ID)
			return c.ID == "b", nil
		}),
	})

	result, err := r.ReconcileEpic(context.Background(), []string{root})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, asked)
	assert.Equal(t, 1, result.Accepted)
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, "declined", result.Skipped[0].Reason)
}

func TestReconcileEpicApprovalAbort(t *testing.T) {
	root := library(t, "Alpha")
	r := New(Deps{
		Store: newStore(t),
		Epic:  &fakeEpic{games: []legendary.Game{game("a", "Alpha")}},
		Size:  sizes(map[string]int64{"Alpha": 30_000_000}),
		Approver: approveFunc(func(matcher.Candidate, int64) (bool, error) {
			return false, errors.New("quit")
		}),
	})

	_, err := r.ReconcileEpic(context.Background(), []string{root})
	assert.ErrorContains(t, err, "quit")
}

func TestReconcileEpicNotConfigured(t *testing.T) {
	_, err := New(Deps{Store: newStore(t)}).ReconcileEpic(context.Background(), nil)
	assert.True(t, gderr.Is(err, gderr.ErrCodeInvalidInput))
}

func TestReconcileSteam(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	owned := &fakeOwned{games: []steam.OwnedGame{
		{AppID: "440", Name: "Team Fortress 2", ImgIconURL: "abc"},
		{AppID: "570", Name: "Dota 2"},
	}}
	progress := &recordingProgress{}
	library := t.TempDir()

	r := New(Deps{
		Store:      store,
		Owned:      owned,
		Manifest:   &fakeManifest{apps: map[string]string{"440": library, "999": library}},
		Progress:   progress,
		SteamToken: "tok",
	})

	result, err := r.ReconcileSteam(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok", owned.token)
	assert.Equal(t, 2, result.Owned)
	assert.Equal(t, 2, result.Inserted)
	assert.Equal(t, 2, result.Installed)
	assert.Equal(t, 1, progress.completes)

	tf2, err := store.Get(ctx, types.ProviderSteam, "440")
	require.NoError(t, err)
	assert.True(t, tf2.Installed)
	assert.Equal(t, library, tf2.InstallLocation)
	assert.Equal(t, "abc", tf2.IconHash)

	dota, err := store.Get(ctx, types.ProviderSteam, "570")
	require.NoError(t, err)
	assert.False(t, dota.Installed)
}

func TestReconcileSteamSkipsMissingLibrary(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	library := t.TempDir()

	r := New(Deps{
		Store: store,
		Owned: &fakeOwned{games: []steam.OwnedGame{
			{AppID: "440", Name: "Team Fortress 2"},
			{AppID: "570", Name: "Dota 2"},
			{AppID: "730", Name: "Counter-Strike 2"},
		}},
		Manifest: &fakeManifest{apps: map[string]string{
			"440": library,
			"570": "",
			"730": filepath.Join(library, "gone"),
		}},
		SteamToken: "tok",
	})

	result, err := r.ReconcileSteam(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Candidates)
	assert.Equal(t, 1, result.Installed)
	require.Len(t, result.Skipped, 2)
	assert.Equal(t, "570", result.Skipped[0].Candidate.ID)
	assert.Equal(t, "730", result.Skipped[1].Candidate.ID)

	for _, id := range []string{"570", "730"} {
		e, err := store.Get(ctx, types.ProviderSteam, id)
		require.NoError(t, err)
		assert.False(t, e.Installed, id)
		assert.Empty(t, e.InstallLocation, id)
	}
}

// A library folder without a path key resolves to the Steam root and stays
// installed across verification.
func TestReconcileSteamFolderWithoutPathSurvivesVerify(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	steamRoot := t.TempDir()
	steamapps := filepath.Join(steamRoot, "steamapps")
	require.NoError(t, os.MkdirAll(steamapps, 0755))
	manifestPath := filepath.Join(steamapps, "libraryfolders.vdf")
	require.NoError(t, os.WriteFile(manifestPath,
		[]byte(`"libraryfolders" { "1" { "apps" { "440" "" } } "note" "x" }`), 0644))

	r := New(Deps{
		Store:      store,
		Owned:      &fakeOwned{games: []steam.OwnedGame{{AppID: "440", Name: "Team Fortress 2"}}},
		Manifest:   &steam.Manifest{Path: manifestPath},
		SteamToken: "tok",
	})

	_, err := r.ReconcileSteam(ctx)
	require.NoError(t, err)

	tf2, err := store.Get(ctx, types.ProviderSteam, "440")
	require.NoError(t, err)
	assert.True(t, tf2.Installed)
	assert.Equal(t, steamRoot, tf2.InstallLocation)

	verified, err := r.Verify(ctx)
	require.NoError(t, err)
	assert.Empty(t, verified.Demoted)

	tf2, err = store.Get(ctx, types.ProviderSteam, "440")
	require.NoError(t, err)
	assert.True(t, tf2.Installed)
}

func TestReconcileSteamWithoutToken(t *testing.T) {
	owned := &fakeOwned{err: errors.New("must not be called")}
	r := New(Deps{
		Store:    newStore(t),
		Owned:    owned,
		Manifest: &fakeManifest{apps: map[string]string{}},
	})

	result, err := r.ReconcileSteam(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.Owned)
	assert.Empty(t, owned.token)
}

func TestReconcileSteamFatalErrors(t *testing.T) {
	tests := []struct {
		name     string
		owned    *fakeOwned
		manifest *fakeManifest
		code     gderr.ErrorCode
	}{
		{
			name:     "token expired",
			owned:    &fakeOwned{err: gderr.AuthRequired("steam", "token expired")},
			manifest: &fakeManifest{apps: map[string]string{}},
			code:     gderr.ErrCodeAuthRequired,
		},
		{
			name:     "manifest missing",
			owned:    &fakeOwned{},
			manifest: &fakeManifest{err: gderr.ManifestNotFound("/x/libraryfolders.vdf", os.ErrNotExist)},
			code:     gderr.ErrCodeManifestNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			progress := &recordingProgress{}
			r := New(Deps{Store: newStore(t), Owned: tt.owned, Manifest: tt.manifest, Progress: progress, SteamToken: "tok"})
			_, err := r.ReconcileSteam(context.Background())
			require.Error(t, err)
			assert.Equal(t, tt.code, gderr.GetCode(err))
			assert.Zero(t, progress.completes)
		})
	}
}

// failingCatalog fails MarkUninstalled for one id.
type failingCatalog struct {
	*catalog.Store
	failID string
}

func (f *failingCatalog) MarkUninstalled(ctx context.Context, p types.Provider, id string) error {
	if id == f.failID {
		return gderr.StoreFailed("mark uninstalled", errors.New("disk I/O error"))
	}
	return f.Store.MarkUninstalled(ctx, p, id)
}

func TestVerifyDemotesMissingLocations(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	here := t.TempDir()
	gone := filepath.Join(t.TempDir(), "gone")

	_, err := store.UpsertOwned(ctx, types.ProviderEpic, []catalog.Entry{
		{Provider: types.ProviderEpic, ID: "a", Title: "Alpha"},
		{Provider: types.ProviderEpic, ID: "b", Title: "Bravo"},
		{Provider: types.ProviderEpic, ID: "c", Title: "Charlie"},
	}, nil)
	require.NoError(t, err)
	require.NoError(t, store.BulkSetInstalled(ctx, types.ProviderEpic, []catalog.Install{
		{ID: "a", Location: here},
		{ID: "b", Location: gone},
		{ID: "c", Location: gone},
	}, nil))

	r := New(Deps{Store: &failingCatalog{Store: store, failID: "c"}})
	result, err := r.Verify(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Checked)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Demoted, 1)
	assert.Equal(t, "b", result.Demoted[0].ID)

	b, err := store.Get(ctx, types.ProviderEpic, "b")
	require.NoError(t, err)
	assert.False(t, b.Installed)
	assert.Empty(t, b.InstallLocation)

	a, err := store.Get(ctx, types.ProviderEpic, "a")
	require.NoError(t, err)
	assert.True(t, a.Installed)
}

func TestVerifyEmptyStore(t *testing.T) {
	result, err := New(Deps{Store: newStore(t)}).Verify(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.Checked)
	assert.Empty(t, result.Demoted)
}

func TestSameProviderPassesAreSerialized(t *testing.T) {
	var active, peak int32
	epic := &fakeEpic{
		games: []legendary.Game{game("a", "Alpha")},
		onList: func() {
			n := atomic.AddInt32(&active, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			atomic.AddInt32(&active, -1)
		},
	}
	r := New(Deps{Store: newStore(t), Epic: epic})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.ReconcileEpic(context.Background(), nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&peak))
}

func TestDifferentProviderPassesMayOverlap(t *testing.T) {
	steamDone := make(chan struct{})
	epicStarted := make(chan struct{})
	epic := &fakeEpic{
		onList: func() {
			close(epicStarted)
			select {
			case <-steamDone:
			case <-time.After(5 * time.Second):
			}
		},
	}
	r := New(Deps{Store: newStore(t), Epic: epic, Manifest: &fakeManifest{apps: map[string]string{}}})

	epicErr := make(chan error, 1)
	go func() {
		_, err := r.ReconcileEpic(context.Background(), nil)
		epicErr <- err
	}()

	<-epicStarted
	_, err := r.ReconcileSteam(context.Background())
	require.NoError(t, err)
	close(steamDone)
	require.NoError(t, <-epicErr)
}

func TestStatusPercent(t *testing.T) {
	assert.Equal(t, 100, Status{}.Percent())
	assert.Equal(t, 50, Status{Processed: 1, Total: 2}.Percent())
	assert.Equal(t, 100, Status{Processed: 3, Total: 2}.Percent())
}
