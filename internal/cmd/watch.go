package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/adamancini/gamedeck/internal/steam"
	"github.com/adamancini/gamedeck/internal/watch"
)

func newWatchCmd() *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run the Steam pass whenever the Steam library manifest changes",
		Long: `Watch keeps running and re-runs the Steam pass each time Steam rewrites
libraryfolders.vdf, for example after a game finishes installing. Changes are
printed as they are found. Stop with Ctrl-C.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnvironment(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer env.Close()

			svc, err := NewSyncService(env, newProgressPrinter(cmd.ErrOrStderr(), verbose))
			if err != nil {
				return err
			}
			writer, err := newOutputWriter(cmd.OutOrStdout())
			if err != nil {
				return err
			}

			trigger := func(ctx context.Context) error {
				report, err := svc.Run(ctx, SyncOptions{Target: TargetSteam, SkipVerify: true})
				if err != nil {
					return err
				}
				if !report.Diff.Empty() {
					if err := writer.Write(report.Diff); err != nil {
						return err
					}
				}
				return report.Err()
			}

			manifest, err := steam.NewManifest(env.settings.Steam.ManifestPath)
			if err != nil {
				return err
			}
			w, err := watch.New(manifest.Path, debounce, trigger)
			if err != nil {
				return err
			}

			writer.Printf("Watching %s\n", w.Path())
			if err := w.Run(cmd.Context()); err != nil {
				return err
			}
			if !quiet {
				fmt.Fprintf(cmd.ErrOrStderr(), "Stopped after %d passes.\n", w.Runs())
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "Quiet period after the last change before a pass runs")

	return cmd
}
