package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/adamancini/gamedeck/internal/backup"
	"github.com/adamancini/gamedeck/internal/diff"
)

func newBackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Manage catalog backups",
		Long: `Backup manages snapshots of the catalog.

Backups are stored in ~/.cache/gamedeck/backups/ and hold every catalog entry
with its install state. 'gamedeck sync' creates one before each run unless
--no-backup is given.`,
	}

	cmd.AddCommand(newBackupCreateCmd())
	cmd.AddCommand(newBackupListCmd())
	cmd.AddCommand(newBackupShowCmd())
	cmd.AddCommand(newBackupDiffCmd())
	cmd.AddCommand(newBackupDeleteCmd())
	cmd.AddCommand(newBackupPruneCmd())

	return cmd
}

func newBackupCreateCmd() *cobra.Command {
	var note string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new backup",
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
			manager, err := backup.NewManager(appVersion)
			if err != nil {
				return err
			}
			bak, err := manager.Create(snap, note)
			if err != nil {
				return err
			}

			writer, err := newOutputWriter(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if writer.IsText() {
				fmt.Fprintf(cmd.OutOrStdout(), "Backup created: %s\n", bak.ID)
				fmt.Fprintf(cmd.OutOrStdout(), "Location: %s/%s.json\n", manager.BackupDir(), bak.ID)
				return nil
			}
			return writer.Write(bak)
		},
	}

	cmd.Flags().StringVar(&note, "note", "", "Add a note to describe this backup")

	return cmd
}

func newBackupListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all backups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := backup.NewManager(appVersion)
			if err != nil {
				return err
			}
			backups, err := manager.List()
			if err != nil {
				return err
			}

			writer, err := newOutputWriter(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			return writer.Write(backups)
		},
	}
}

func newBackupShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print the catalog stored in a backup",
		Long:  `Show prints the catalog of one backup. Use 'latest' for the most recent backup.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := backup.NewManager(appVersion)
			if err != nil {
				return err
			}
			bak, err := manager.Get(args[0])
			if err != nil {
				return err
			}

			writer, err := newOutputWriter(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			writer.Printf("Backup %s, created %s\n\n", bak.ID, bak.CreatedAt.Local().Format("2006-01-02 15:04:05"))
			return writer.Write(bak.Catalog)
		},
	}
}

func newBackupDiffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff [id]",
		Short: "Show what changed in the catalog since a backup",
		Long:  `Diff compares a backup (default: latest) with the current catalog.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := backup.Latest
			if len(args) > 0 {
				id = args[0]
			}

			manager, err := backup.NewManager(appVersion)
			if err != nil {
				return err
			}
			bak, err := manager.Get(id)
			if err != nil {
				return err
			}

			env, err := openEnvironment(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer env.Close()

			current, err := env.store.GetAll(cmd.Context())
			if err != nil {
				return err
			}

			writer, err := newOutputWriter(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			return writer.Write(diff.Compute(bak.Catalog, current))
		},
	}
}

func newBackupDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := backup.NewManager(appVersion)
			if err != nil {
				return err
			}
			if err := manager.Delete(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Backup deleted: %s\n", args[0])
			return nil
		},
	}
}

func newBackupPruneCmd() *cobra.Command {
	var keep int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove old backups",
		Long: `Prune deletes old backups, keeping only the most recent N backups.

By default, keeps the 30 most recent backups.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := backup.NewManager(appVersion)
			if err != nil {
				return err
			}
			result, err := manager.Prune(keep)
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

	cmd.Flags().IntVar(&keep, "keep", backup.DefaultKeepCount, "Number of backups to keep")

	return cmd
}
