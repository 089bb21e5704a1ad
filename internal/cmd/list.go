package cmd

import (
	"fmt"
	"io"

	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"

	"github.com/adamancini/gamedeck/internal/catalog"
	"github.com/adamancini/gamedeck/internal/types"
)

func newListCmd() *cobra.Command {
	var (
		provider      string
		installedOnly bool
		search        string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List games in the catalog",
		Long: `List prints the catalog.

--search ranks titles by fuzzy match, best first within each provider.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var p types.Provider
			if provider != "" {
				var err error
				if p, err = types.ParseProvider(provider); err != nil {
					return err
				}
			}

			env, err := openEnvironment(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer env.Close()

			snap, err := env.store.GetAll(cmd.Context())
			if err != nil {
				return err
			}

			snap = filterSnapshot(snap, p, installedOnly)
			if search != "" {
				snap = searchSnapshot(snap, search)
			}

			writer, err := newOutputWriter(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			return writer.Write(snap)
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "Only list games from this provider (steam, epic)")
	cmd.Flags().BoolVar(&installedOnly, "installed", false, "Only list installed games")
	cmd.Flags().StringVarP(&search, "search", "s", "", "Fuzzy match titles")

	_ = cmd.RegisterFlagCompletionFunc("provider", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"steam", "epic"}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func filterSnapshot(snap *catalog.Snapshot, p types.Provider, installedOnly bool) *catalog.Snapshot {
	return snap.Filter(func(e catalog.Entry) bool {
		if p != "" && e.Provider != p {
			return false
		}
		return !installedOnly || e.Installed
	})
}

// titles adapts catalog entries to fuzzy.Source.
type titles []catalog.Entry

func (t titles) String(i int) string { return t[i].Title }
func (t titles) Len() int            { return len(t) }

// searchSnapshot keeps entries whose title fuzzy-matches pattern, ordered
// by match score.
func searchSnapshot(snap *catalog.Snapshot, pattern string) *catalog.Snapshot {
	all := titles(snap.All())
	out := &catalog.Snapshot{Steam: []catalog.Entry{}, Epic: []catalog.Entry{}}
	for _, m := range fuzzy.FindFrom(pattern, all) {
		e := all[m.Index]
		if e.Provider.IsSteam() {
			out.Steam = append(out.Steam, e)
		} else {
			out.Epic = append(out.Epic, e)
		}
	}
	return out
}

// catalogStatus summarizes the local setup.
type catalogStatus struct {
	Settings  string           `json:"settings" yaml:"settings"`
	Database  string           `json:"database" yaml:"database"`
	Folders   []string         `json:"epic_library_folders" yaml:"epic_library_folders"`
	Server    string           `json:"server,omitempty" yaml:"server,omitempty"`
	Providers []providerStatus `json:"providers" yaml:"providers"`
}

type providerStatus struct {
	Provider  types.Provider `json:"provider" yaml:"provider"`
	Owned     int            `json:"owned" yaml:"owned"`
	Installed int            `json:"installed" yaml:"installed"`
}

func (s *catalogStatus) RenderText(w io.Writer) error {
	server := s.Server
	if server == "" {
		server = "(not configured)"
	}
	if _, err := fmt.Fprintf(w, "Settings: %s\nCatalog:  %s\nLobby:    %s\n", s.Settings, s.Database, server); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Epic library folders: %d\n\n", len(s.Folders)); err != nil {
		return err
	}
	for _, p := range s.Providers {
		if _, err := fmt.Fprintf(w, "%-11s %d owned, %d installed\n", p.Provider.DisplayName()+":", p.Owned, p.Installed); err != nil {
			return err
		}
	}
	return nil
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show catalog totals and configured paths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnvironment(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer env.Close()

			snap, err := env.store.GetAll(cmd.Context())
			if err != nil {
				return err
			}

			status := &catalogStatus{
				Settings: env.settingsPath,
				Database: env.dbPath,
				Folders:  env.settings.EpicLibraryFolders,
				Server:   env.settings.ServerURL(),
			}
			for _, p := range types.AllProviders() {
				ps := providerStatus{Provider: p}
				for _, e := range snap.For(p) {
					ps.Owned++
					if e.Installed {
						ps.Installed++
					}
				}
				status.Providers = append(status.Providers, ps)
			}

			writer, err := newOutputWriter(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			return writer.Write(status)
		},
	}
}
