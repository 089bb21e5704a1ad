package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/adamancini/gamedeck/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Read and change settings",
		Long: `Config reads and writes individual settings.

Keys:
  ` + strings.Join(config.Keys(), "\n  ") + `

List values are comma separated. The original keys epicGamesLibraryFolders,
backendIP and backendPort are accepted as aliases.`,
	}

	keyCompletion := func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if len(args) > 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		return config.Keys(), cobra.ShellCompDirectiveNoFileComp
	}

	cmd.AddCommand(&cobra.Command{
		Use:               "get <key>",
		Short:             "Print one setting",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: keyCompletion,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, _, err := loadSettings(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			value, err := settings.Get(args[0])
			if err != nil {
				return err
			}

			writer, err := newOutputWriter(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if list, ok := value.([]string); ok && writer.IsText() {
				value = strings.Join(list, ",")
			}
			return writer.Write(value)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:               "set <key> <value>",
		Short:             "Change one setting",
		Args:              cobra.ExactArgs(2),
		ValidArgsFunction: keyCompletion,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, path, err := loadSettings(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if err := settings.Set(args[0], args[1]); err != nil {
				return err
			}
			if err := config.Save(path, settings); err != nil {
				return err
			}
			if !quiet {
				fmt.Fprintf(cmd.OutOrStdout(), "Set %s\n", args[0])
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the settings file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.Find(configPath)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	})

	return cmd
}
