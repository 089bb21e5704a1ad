package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/adamancini/gamedeck/internal/config"
	gderr "github.com/adamancini/gamedeck/internal/errors"
)

// folderList is the configured Epic library folders.
type folderList struct {
	Folders []string `json:"epic_library_folders" yaml:"epic_library_folders"`
}

func (f folderList) RenderText(w io.Writer) error {
	if len(f.Folders) == 0 {
		_, err := fmt.Fprintln(w, "No Epic library folders configured. Add one with 'gamedeck folders add <dir>'.")
		return err
	}
	for _, dir := range f.Folders {
		if _, err := fmt.Fprintln(w, dir); err != nil {
			return err
		}
	}
	return nil
}

func newFoldersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "folders",
		Short: "Manage Epic library folders",
		Long: `Folders manages the directories scanned for Epic installs.

Each immediate subdirectory of a library folder is matched against the titles
of your owned Epic games during 'gamedeck sync epic'.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List Epic library folders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, _, err := loadSettings(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			writer, err := newOutputWriter(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			return writer.Write(folderList{Folders: settings.EpicLibraryFolders})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add <dir>...",
		Short: "Add Epic library folders",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFoldersAdd(cmd.OutOrStdout(), cmd.ErrOrStderr(), args)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <dir>...",
		Short: "Remove Epic library folders",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFoldersRemove(cmd.OutOrStdout(), cmd.ErrOrStderr(), args)
		},
	})

	return cmd
}

func runFoldersAdd(stdout, stderr io.Writer, dirs []string) error {
	settings, path, err := loadSettings(stderr)
	if err != nil {
		return err
	}

	changed := false
	for _, dir := range dirs {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return err
		}
		info, err := os.Stat(abs)
		if err != nil {
			return gderr.Wrap(err, gderr.ErrCodeInvalidInput, "cannot add library folder").WithDetail("path", abs)
		}
		if !info.IsDir() {
			return gderr.New(gderr.ErrCodeInvalidInput, fmt.Sprintf("%s is not a directory", abs))
		}

		if settings.AddFolder(abs) {
			changed = true
			fmt.Fprintf(stdout, "Added %s\n", abs)
		} else {
			fmt.Fprintf(stdout, "Already configured: %s\n", abs)
		}
	}

	if !changed {
		return nil
	}
	return config.Save(path, settings)
}

func runFoldersRemove(stdout, stderr io.Writer, dirs []string) error {
	settings, path, err := loadSettings(stderr)
	if err != nil {
		return err
	}

	changed := false
	for _, dir := range dirs {
		// Removed folders may no longer exist, so try the path as given too.
		removed := settings.RemoveFolder(dir)
		if abs, err := filepath.Abs(dir); err == nil && settings.RemoveFolder(abs) {
			removed = true
		}
		if removed {
			changed = true
			fmt.Fprintf(stdout, "Removed %s\n", dir)
		} else {
			fmt.Fprintf(stdout, "Not configured: %s\n", dir)
		}
	}

	if !changed {
		return nil
	}
	return config.Save(path, settings)
}
