package catalog

import (
	"fmt"
	"io"

	"github.com/adamancini/gamedeck/internal/output"
	"github.com/adamancini/gamedeck/internal/types"
)

// steamImageBase is the community CDN path for app icons.
const steamImageBase = "https://media.steampowered.com/steamcommunity/public/images/apps"

// Entry is one owned game.
type Entry struct {
	Provider        types.Provider `json:"provider" yaml:"provider"`
	Title           string         `json:"title" yaml:"title"`
	ID              string         `json:"id" yaml:"id"`
	InstallLocation string         `json:"install_location,omitempty" yaml:"install_location,omitempty"`
	Installed       bool           `json:"installed" yaml:"installed"`
	// ThumbnailURL is set for Epic entries only.
	ThumbnailURL string `json:"thumbnail_url,omitempty" yaml:"thumbnail_url,omitempty"`
	// IconHash is the Steam img_icon_url value.
	IconHash string `json:"icon_hash,omitempty" yaml:"icon_hash,omitempty"`
}

// Key returns the identity of the entry across providers.
func (e Entry) Key() string {
	return string(e.Provider) + ":" + e.ID
}

// ImageURL returns a displayable image for the entry, or "".
func (e Entry) ImageURL() string {
	switch e.Provider {
	case types.ProviderSteam:
		if e.IconHash == "" || e.ID == "" {
			return ""
		}
		return fmt.Sprintf("%s/%s/%s.jpg", steamImageBase, e.ID, e.IconHash)
	default:
		return e.ThumbnailURL
	}
}

// Install marks one entry as present on disk.
type Install struct {
	ID       string
	Location string
}

// ProgressFunc receives per-row progress of a bulk operation.
type ProgressFunc func(processed, total int)

// Snapshot is the full catalog as of one committed transaction.
type Snapshot struct {
	Steam []Entry `json:"steam" yaml:"steam"`
	Epic  []Entry `json:"epic" yaml:"epic"`
}

// For returns the entries of one provider.
func (s *Snapshot) For(p types.Provider) []Entry {
	switch p {
	case types.ProviderSteam:
		return s.Steam
	case types.ProviderEpic:
		return s.Epic
	default:
		return nil
	}
}

// All returns Steam entries followed by Epic entries.
func (s *Snapshot) All() []Entry {
	all := make([]Entry, 0, len(s.Steam)+len(s.Epic))
	all = append(all, s.Steam...)
	return append(all, s.Epic...)
}

// Filter returns a snapshot keeping only entries accepted by keep.
func (s *Snapshot) Filter(keep func(Entry) bool) *Snapshot {
	out := &Snapshot{Steam: []Entry{}, Epic: []Entry{}}
	for _, e := range s.Steam {
		if keep(e) {
			out.Steam = append(out.Steam, e)
		}
	}
	for _, e := range s.Epic {
		if keep(e) {
			out.Epic = append(out.Epic, e)
		}
	}
	return out
}

// RenderText implements output.TextRenderer.
func (s *Snapshot) RenderText(w io.Writer) error {
	tbl := output.NewTable(w, "PROVIDER", "ID", "TITLE", "INSTALLED", "LOCATION")
	for _, e := range s.All() {
		installed := "no"
		if e.Installed {
			installed = "yes"
		}
		tbl.Row(e.Provider.String(), e.ID, e.Title, installed, e.InstallLocation)
	}
	if err := tbl.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%d steam, %d epic\n", len(s.Steam), len(s.Epic))
	return err
}
