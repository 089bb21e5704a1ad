package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/adamancini/gamedeck/internal/legendary"
)

// epicStatus reports whether legendary is usable.
type epicStatus struct {
	Binary         string `json:"binary" yaml:"binary"`
	Version        string `json:"version" yaml:"version"`
	LoggedIn       bool   `json:"logged_in" yaml:"logged_in"`
	Account        string `json:"account,omitempty" yaml:"account,omitempty"`
	GamesAvailable int    `json:"games_available" yaml:"games_available"`
	GamesInstalled int    `json:"games_installed" yaml:"games_installed"`
}

func (s *epicStatus) RenderText(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "legendary %s (%s)\n", s.Version, s.Binary); err != nil {
		return err
	}
	if !s.LoggedIn {
		_, err := fmt.Fprintln(w, "Not logged in. Run 'gamedeck epic auth'.")
		return err
	}
	_, err := fmt.Fprintf(w, "Logged in as %s\n%d games owned, %d installed through legendary\n",
		s.Account, s.GamesAvailable, s.GamesInstalled)
	return err
}

func newEpicCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "epic",
		Short: "Check and set up the legendary CLI",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the legendary version and login state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, _, err := loadSettings(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			status, err := runEpicStatus(cmd, legendary.NewClient(settings.Legendary.Binary))
			if err != nil {
				return err
			}

			writer, err := newOutputWriter(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			return writer.Write(status)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "auth",
		Short: "Log in to the Epic Games Store through legendary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, _, err := loadSettings(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			login := legendary.NewClient(settings.Legendary.Binary).AuthCommand(cmd.Context())
			login.Stdin = cmd.InOrStdin()
			login.Stdout = cmd.OutOrStdout()
			login.Stderr = cmd.ErrOrStderr()
			if err := login.Run(); err != nil {
				return fmt.Errorf("legendary auth failed: %w", err)
			}
			return nil
		},
	})

	return cmd
}

func runEpicStatus(cmd *cobra.Command, client *legendary.Client) (*epicStatus, error) {
	version, err := client.Version(cmd.Context())
	if err != nil {
		return nil, err
	}
	st, err := client.Status(cmd.Context())
	if err != nil {
		return nil, err
	}
	return &epicStatus{
		Binary:         client.Binary(),
		Version:        version,
		LoggedIn:       st.LoggedIn(),
		Account:        st.Account,
		GamesAvailable: st.GamesAvailable,
		GamesInstalled: st.GamesInstalled,
	}, nil
}
