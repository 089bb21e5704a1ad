package reconcile

import (
	"fmt"
	"io"

	"github.com/adamancini/gamedeck/internal/interactive"
	"github.com/adamancini/gamedeck/internal/output"
)

// RenderText implements output.TextRenderer.
func (r *Result) RenderText(w io.Writer) error {
	s := output.NewStyles(w)
	name := r.Provider.DisplayName()

	if r.Provider.IsSteam() {
		if _, err := fmt.Fprintf(w, "%s %d owned (%d new), %d installed\n",
			s.Heading.Render(name+":"), r.Owned, r.Inserted, r.Installed); err != nil {
			return err
		}
		for _, skip := range r.Skipped {
			if _, err := fmt.Fprintf(w, "  %s app %s (%s): %s\n", s.Muted.Render("skipped"),
				skip.Candidate.ID, skip.Candidate.FullPath, skip.Reason); err != nil {
				return err
			}
		}
		return nil
	}

	if _, err := fmt.Fprintf(w, "%s %d owned (%d new), %d folders matched, %d imported (%d already known), %d installed\n",
		s.Heading.Render(name+":"), r.Owned, r.Inserted, r.Candidates, r.Accepted, r.AlreadyImported, r.Installed); err != nil {
		return err
	}
	for _, skip := range r.Skipped {
		if _, err := fmt.Fprintf(w, "  %s %s (%s, %s): %s\n", s.Muted.Render("skipped"),
			skip.Candidate.Title, skip.Candidate.FullPath, sizeText(skip.Size), skip.Reason); err != nil {
			return err
		}
	}
	for _, f := range r.Failed {
		if _, err := fmt.Fprintf(w, "  %s %s (%s): %s\n", s.Removed.Render("failed"),
			f.Candidate.Title, f.Candidate.FullPath, f.Error); err != nil {
			return err
		}
	}
	return nil
}

// RenderText implements output.TextRenderer.
func (v *VerifyResult) RenderText(w io.Writer) error {
	s := output.NewStyles(w)
	if _, err := fmt.Fprintf(w, "Checked %d installed games, %d no longer present.\n", v.Checked, len(v.Demoted)); err != nil {
		return err
	}
	for _, e := range v.Demoted {
		if _, err := fmt.Fprintf(w, "  %s %s (%s) %s\n", s.Removed.Render("✗"), e.Title,
			e.Provider.DisplayName(), s.Muted.Render(e.InstallLocation)); err != nil {
			return err
		}
	}
	if v.Failed > 0 {
		if _, err := fmt.Fprintf(w, "%d entries could not be updated.\n", v.Failed); err != nil {
			return err
		}
	}
	return nil
}

func sizeText(n int64) string {
	if n < 0 {
		return "size unknown"
	}
	return interactive.FormatBytes(n)
}
