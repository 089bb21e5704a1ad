package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/adamancini/gamedeck/internal/interactive"
)

func newSyncCmd() *cobra.Command {
	var (
		noBackup        bool
		interactiveMode bool
		skipVerify      bool
		threshold       int64
	)

	cmd := &cobra.Command{
		Use:   "sync [steam|epic|all]",
		Short: "Reconcile the catalog with Steam and Epic",
		Long: `Sync refreshes the catalog from each provider.

Installed games whose folder is gone are marked uninstalled first. The Steam
pass then imports owned games from the backend (when a token is configured)
and reads installed apps from libraryfolders.vdf. The Epic pass lists owned
games through legendary, matches folders in your Epic library folders against
them, and imports every match at least --threshold bytes large.

By default, a backup of the catalog is created before making changes. Use
--no-backup to disable.`,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{string(TargetAll), string(TargetSteam), string(TargetEpic)},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := ""
			if len(args) > 0 {
				target = args[0]
			}
			t, err := ParseTarget(target)
			if err != nil {
				return err
			}

			env, err := openEnvironment(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer env.Close()

			svc, err := NewSyncService(env, newProgressPrinter(cmd.ErrOrStderr(), progressEnabled()))
			if err != nil {
				return err
			}

			opts := SyncOptions{
				Target:       t,
				CreateBackup: !noBackup,
				SkipVerify:   skipVerify,
				MinSizeBytes: threshold,
			}

			var prompter *interactive.Prompter
			if interactiveMode {
				if interactive.IsTerminal() {
					prompter = interactive.NewPrompterWithIO(cmd.InOrStdin(), cmd.ErrOrStderr())
					opts.Approver = prompter
				} else {
					fmt.Fprintln(cmd.ErrOrStderr(), "Warning: Not running in a terminal. Falling back to non-interactive mode.")
				}
			}

			report, err := svc.Run(cmd.Context(), opts)
			if err != nil {
				return err
			}
			if prompter != nil {
				prompter.Summary()
			}

			writer, err := newOutputWriter(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if err := writer.Write(report); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}
			return report.Err()
		},
	}

	cmd.Flags().BoolVar(&noBackup, "no-backup", false, "Skip creating backup before sync")
	cmd.Flags().BoolVarP(&interactiveMode, "interactive", "i", false, "Prompt before each Epic import")
	cmd.Flags().BoolVar(&skipVerify, "skip-verify", false, "Do not check installed games before the passes")
	cmd.Flags().Int64Var(&threshold, "threshold", 0, "Minimum folder size in bytes for an Epic import (default from settings)")

	return cmd
}

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Mark games whose install folder is gone as uninstalled",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnvironment(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer env.Close()

			svc := NewSyncServiceWithDeps(env.settings, env.store, nil, nil, nil, nil,
				newProgressPrinter(cmd.ErrOrStderr(), progressEnabled()))
			result, err := svc.Verify(cmd.Context())
			if err != nil {
				return err
			}

			writer, err := newOutputWriter(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			return writer.Write(result)
		},
	}
}
