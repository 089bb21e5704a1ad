package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	gderr "github.com/adamancini/gamedeck/internal/errors"
	"github.com/adamancini/gamedeck/internal/types"
)

// ErrNotFound is returned when an entry does not exist.
var ErrNotFound = errors.New("game not found")

// table describes the column layout of one provider table.
type table struct {
	name     string
	titleCol string
	idCol    string
	imageCol string
}

var tables = map[types.Provider]table{
	types.ProviderSteam: {name: "steam_games", titleCol: "name", idCol: "steam_id", imageCol: "img_icon_url"},
	types.ProviderEpic:  {name: "epic_games", titleCol: "title", idCol: "app_name", imageCol: "thumbnail_url"},
}

func tableFor(p types.Provider) (table, error) {
	t, ok := tables[p]
	if !ok {
		return table{}, gderr.New(gderr.ErrCodeInvalidInput, fmt.Sprintf("unknown provider %q", p))
	}
	return t, nil
}

func (t table) selectColumns() string {
	return fmt.Sprintf("%s, %s, COALESCE(%s, ''), install_location, is_installed", t.titleCol, t.idCol, t.imageCol)
}

func scanEntry(p types.Provider, scan func(dest ...interface{}) error) (Entry, error) {
	e := Entry{Provider: p}
	var image string
	var installed int
	if err := scan(&e.Title, &e.ID, &image, &e.InstallLocation, &installed); err != nil {
		return Entry{}, err
	}
	e.Installed = installed != 0
	if p == types.ProviderSteam {
		e.IconHash = image
	} else {
		e.ThumbnailURL = image
	}
	return e, nil
}

func imageOf(e Entry) string {
	if e.Provider == types.ProviderSteam {
		return e.IconHash
	}
	return e.ThumbnailURL
}

// UpsertOwned inserts owned entries that are not yet present.
// Existing rows are left untouched. The whole batch runs in one transaction
// and aborts on the first invalid entry. Returns the number of new rows.
func (s *Store) UpsertOwned(ctx context.Context, p types.Provider, entries []Entry, progress ProgressFunc) (int, error) {
	t, err := tableFor(p)
	if err != nil {
		return 0, err
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s, %s, %s) VALUES (?, ?, ?) ON CONFLICT(%s) DO NOTHING",
		t.name, t.titleCol, t.idCol, t.imageCol, t.idCol,
	)

	inserted := 0
	err = s.WithTransaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer stmt.Close()

		for i, e := range entries {
			if e.ID == "" {
				return gderr.New(gderr.ErrCodeInvalidInput, fmt.Sprintf("entry %d (%q) has no id", i, e.Title))
			}
			if e.Provider != "" && e.Provider != p {
				return gderr.New(gderr.ErrCodeInvalidInput,
					fmt.Sprintf("entry %s belongs to %s, not %s", e.ID, e.Provider, p))
			}

			res, err := stmt.ExecContext(ctx, e.Title, e.ID, imageOf(e))
			if err != nil {
				return fmt.Errorf("insert %s: %w", e.ID, err)
			}
			if n, err := res.RowsAffected(); err == nil {
				inserted += int(n)
			}
			if progress != nil {
				progress(i+1, len(entries))
			}
		}
		return nil
	})
	if err != nil {
		return 0, wrapStore("upsert owned", err)
	}

	s.log.WithField("provider", p).Debugf("upserted %d owned entries (%d new)", len(entries), inserted)
	return inserted, nil
}

// BulkSetInstalled makes installs the complete installed set of a provider.
// Every other row is demoted to not installed with an empty location. Ids
// that are not in the table are ignored. An empty set demotes every row.
func (s *Store) BulkSetInstalled(ctx context.Context, p types.Provider, installs []Install, progress ProgressFunc) error {
	t, err := tableFor(p)
	if err != nil {
		return err
	}

	for _, in := range installs {
		if in.Location == "" {
			return gderr.New(gderr.ErrCodeInvalidInput, fmt.Sprintf("install %s has no location", in.ID))
		}
	}

	demote := fmt.Sprintf("UPDATE %s SET is_installed = 0, install_location = ''", t.name)
	mark := fmt.Sprintf("UPDATE %s SET is_installed = 1, install_location = ? WHERE %s = ?", t.name, t.idCol)

	err = s.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, demote); err != nil {
			return fmt.Errorf("demote installed: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, mark)
		if err != nil {
			return fmt.Errorf("prepare update: %w", err)
		}
		defer stmt.Close()

		for i, in := range installs {
			if _, err := stmt.ExecContext(ctx, in.Location, in.ID); err != nil {
				return fmt.Errorf("mark %s installed: %w", in.ID, err)
			}
			if progress != nil {
				progress(i+1, len(installs))
			}
		}
		return nil
	})
	if err != nil {
		return wrapStore("bulk set installed", err)
	}

	s.log.WithField("provider", p).Debugf("installed set replaced (%d entries)", len(installs))
	return nil
}

// GetAll returns every entry of both providers ordered by title.
// Both tables are read in one transaction.
func (s *Store) GetAll(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{Steam: []Entry{}, Epic: []Entry{}}
	err := s.WithTransaction(ctx, func(tx *sql.Tx) error {
		var err error
		if snap.Steam, err = listTx(ctx, tx, types.ProviderSteam, ""); err != nil {
			return err
		}
		snap.Epic, err = listTx(ctx, tx, types.ProviderEpic, "")
		return err
	})
	if err != nil {
		return nil, wrapStore("get all", err)
	}
	return snap, nil
}

// ListInstalled returns every entry currently marked installed.
func (s *Store) ListInstalled(ctx context.Context) ([]Entry, error) {
	var out []Entry
	err := s.WithTransaction(ctx, func(tx *sql.Tx) error {
		for _, p := range types.AllProviders() {
			entries, err := listTx(ctx, tx, p, "WHERE is_installed = 1")
			if err != nil {
				return err
			}
			out = append(out, entries...)
		}
		return nil
	})
	if err != nil {
		return nil, wrapStore("list installed", err)
	}
	return out, nil
}

// Get returns one entry.
func (s *Store) Get(ctx context.Context, p types.Provider, id string) (*Entry, error) {
	t, err := tableFor(p)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?", t.selectColumns(), t.name, t.idCol)
	e, err := scanEntry(p, s.db.QueryRowContext(ctx, query, id).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrapStore("get", err)
	}
	return &e, nil
}

// MarkUninstalled demotes a single entry.
func (s *Store) MarkUninstalled(ctx context.Context, p types.Provider, id string) error {
	t, err := tableFor(p)
	if err != nil {
		return err
	}
	query := fmt.Sprintf("UPDATE %s SET is_installed = 0, install_location = '' WHERE %s = ?", t.name, t.idCol)
	res, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return wrapStore("mark uninstalled", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func listTx(ctx context.Context, tx *sql.Tx, p types.Provider, where string) ([]Entry, error) {
	t, err := tableFor(p)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT %s FROM %s %s ORDER BY %s COLLATE NOCASE, %s",
		t.selectColumns(), t.name, where, t.titleCol, t.idCol)

	rows, err := tx.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", t.name, err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(p, rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", t.name, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// wrapStore keeps coded errors and wraps the rest as store failures.
func wrapStore(op string, err error) error {
	if gderr.GetCode(err) != "" {
		return err
	}
	return gderr.StoreFailed(op, err)
}
