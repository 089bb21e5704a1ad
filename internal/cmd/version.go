package cmd

import (
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"
)

// versionInfo describes the running binary.
type versionInfo struct {
	Version string `json:"version" yaml:"version"`
	Commit  string `json:"commit" yaml:"commit"`
	Date    string `json:"date" yaml:"date"`
	Go      string `json:"go" yaml:"go"`
	OS      string `json:"os" yaml:"os"`
	Arch    string `json:"arch" yaml:"arch"`
}

func (v versionInfo) RenderText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "gamedeck version %s (commit %s, built %s, %s %s/%s)\n",
		v.Version, v.Commit, v.Date, v.Go, v.OS, v.Arch)
	return err
}

func newVersionCmd(commit, date string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			writer, err := newOutputWriter(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			return writer.Write(versionInfo{
				Version: appVersion,
				Commit:  commit,
				Date:    date,
				Go:      runtime.Version(),
				OS:      runtime.GOOS,
				Arch:    runtime.GOARCH,
			})
		},
	}
}
