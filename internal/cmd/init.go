package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/adamancini/gamedeck/internal/config"
	"github.com/adamancini/gamedeck/internal/interactive"
	"github.com/adamancini/gamedeck/internal/templates"
)

func newInitCmd() *cobra.Command {
	var (
		templateName string
		force        bool
		folders      []string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a settings file from a template",
		Long: `Create a settings file from a built-in template.

Available templates:
  minimal  - Epic library folders only (default)
  lan      - Adds a lobby server on the local network
  full     - Every option with its default

Examples:
  gamedeck init
  gamedeck init --template=lan
  gamedeck init --folder ~/Games/Epic
  gamedeck init --config ~/gamedeck.toml --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr(), templateName, folders, force)
		},
	}

	cmd.Flags().StringVarP(&templateName, "template", "t", templates.Default, "Template name")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing settings file")
	cmd.Flags().StringSliceVar(&folders, "folder", nil, "Epic library folder to add (repeatable)")

	// Register completion for template flag
	_ = cmd.RegisterFlagCompletionFunc("template", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		var completions []string
		for _, name := range templates.List() {
			completions = append(completions, fmt.Sprintf("%s\t%s", name, templates.GetDescription(name)))
		}
		return completions, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

// runInit executes the init workflow.
func runInit(stdin io.Reader, stdout, stderr io.Writer, templateName string, folders []string, force bool) error {
	outputPath, err := config.Find(configPath)
	if err != nil {
		return err
	}

	// Check if file exists
	if _, err := os.Stat(outputPath); err == nil && !force {
		_, _ = fmt.Fprintf(stderr, "Settings file already exists at %s\n", outputPath)
		if !interactive.NewPrompterWithIO(stdin, stdout).Confirm("Overwrite?") {
			_, _ = fmt.Fprintln(stdout, "Aborted.")
			return nil
		}
	}

	tmpl, err := templates.Get(templateName)
	if err != nil {
		return fmt.Errorf("failed to load template: %w", err)
	}

	// Ensure parent directory exists
	parentDir := filepath.Dir(outputPath)
	if err := os.MkdirAll(parentDir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", parentDir, err)
	}

	var settings *config.Settings
	save := len(folders) > 0
	if ext := strings.ToLower(filepath.Ext(outputPath)); ext == ".yaml" || ext == ".yml" {
		if err := os.WriteFile(outputPath, tmpl.Content, 0600); err != nil {
			return fmt.Errorf("failed to write settings: %w", err)
		}
		if settings, err = config.Load(outputPath); err != nil {
			return fmt.Errorf("invalid template: %w", err)
		}
	} else {
		// Templates are YAML; other formats get the template re-encoded
		// with variables expanded.
		if settings, err = loadTemplate(parentDir, tmpl.Content); err != nil {
			return err
		}
		save = true
	}

	for _, dir := range folders {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return err
		}
		settings.AddFolder(abs)
	}
	if save {
		if err := config.Save(outputPath, settings); err != nil {
			return err
		}
	}

	if quiet {
		return nil
	}
	_, _ = fmt.Fprintf(stdout, "Created %s\n", outputPath)
	_, _ = fmt.Fprintln(stdout, "\nNext steps:")
	if len(settings.EpicLibraryFolders) == 0 {
		_, _ = fmt.Fprintln(stdout, "  1. Run 'gamedeck folders add <dir>' for each Epic library folder")
	} else {
		_, _ = fmt.Fprintln(stdout, "  1. Check the Epic library folders with 'gamedeck folders list'")
	}
	_, _ = fmt.Fprintln(stdout, "  2. Run 'gamedeck epic status' to check legendary is logged in")
	_, _ = fmt.Fprintln(stdout, "  3. Run 'gamedeck sync' to build the catalog")

	return nil
}

// loadTemplate parses YAML template content through a temporary file.
func loadTemplate(dir string, content []byte) (*config.Settings, error) {
	tmp, err := os.CreateTemp(dir, ".template-*.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		return nil, fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to close temp file: %w", err)
	}

	settings, err := config.Load(tmpName)
	if err != nil {
		return nil, fmt.Errorf("invalid template: %w", err)
	}
	return settings, nil
}
