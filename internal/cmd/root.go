// Package cmd contains the CLI command implementations.
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/adamancini/gamedeck/internal/logging"
)

var (
	// Global flags
	outputFormat string
	configPath   string
	dbPath       string
	verbose      bool
	quiet        bool
)

// appVersion is set during command initialization
var appVersion = "dev"

func Execute(version, commit, date string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return newRootCmd(version, commit, date).ExecuteContext(ctx)
}

func newRootCmd(version, commit, date string) *cobra.Command {
	appVersion = version

	rootCmd := &cobra.Command{
		Use:   "gamedeck",
		Short: "Keep a local catalog of your Steam and Epic games",
		Long: `gamedeck keeps a catalog of the games you own on Steam and the Epic Games
Store, tracks which of them are installed, and shares the catalog with a lobby
so a group can see which games everyone has.

Run 'gamedeck init' once, add your Epic library folders with
'gamedeck folders add', then 'gamedeck sync'.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Configure(logging.Options{
				Verbose: verbose,
				Quiet:   quiet,
				Output:  cmd.ErrOrStderr(),
			})
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text", "Output format: text, json, yaml")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the settings file")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to the catalog database")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Quiet mode (errors only)")

	// Add subcommands
	rootCmd.AddCommand(newInitCmd())
	rootCmd.AddCommand(newSyncCmd())
	rootCmd.AddCommand(newVerifyCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newFoldersCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newEpicCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newLobbyCmd())
	rootCmd.AddCommand(newBackupCmd())
	rootCmd.AddCommand(newVersionCmd(commit, date))
	rootCmd.AddCommand(newCompletionCmd())

	// Register completion function for output flag
	_ = rootCmd.RegisterFlagCompletionFunc("output", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"text", "json", "yaml"}, cobra.ShellCompDirectiveNoFileComp
	})

	return rootCmd
}
