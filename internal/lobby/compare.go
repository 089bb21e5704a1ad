package lobby

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/adamancini/gamedeck/internal/output"
	"github.com/adamancini/gamedeck/internal/types"
)

// ComparedGame is one title and who in the lobby has it.
type ComparedGame struct {
	Provider    types.Provider `json:"provider" yaml:"provider"`
	Title       string         `json:"title" yaml:"title"`
	InstalledBy []string       `json:"installed_by" yaml:"installed_by"`
	OwnedBy     []string       `json:"owned_by" yaml:"owned_by"`
}

// Owners is the number of members that own the game.
func (g ComparedGame) Owners() int {
	return len(g.InstalledBy) + len(g.OwnedBy)
}

// Comparison is the lobby ownership data arranged for display.
type Comparison struct {
	Games []ComparedGame `json:"games" yaml:"games"`
}

// Compare lists every game in g. Games owned by more members come first,
// then by provider and title.
func Compare(g Games) *Comparison {
	c := &Comparison{Games: []ComparedGame{}}
	for _, p := range types.AllProviders() {
		for _, entry := range g.For(p) {
			cg := ComparedGame{
				Provider:    p,
				Title:       entry.Game.DisplayTitle(),
				InstalledBy: []string{},
				OwnedBy:     []string{},
			}
			for _, o := range entry.Owners {
				if o.Installed {
					cg.InstalledBy = append(cg.InstalledBy, o.Username)
				} else {
					cg.OwnedBy = append(cg.OwnedBy, o.Username)
				}
			}
			sort.Strings(cg.InstalledBy)
			sort.Strings(cg.OwnedBy)
			c.Games = append(c.Games, cg)
		}
	}

	sort.SliceStable(c.Games, func(i, j int) bool {
		a, b := c.Games[i], c.Games[j]
		if a.Owners() != b.Owners() {
			return a.Owners() > b.Owners()
		}
		if a.Provider != b.Provider {
			return a.Provider == types.ProviderSteam
		}
		return strings.ToLower(a.Title) < strings.ToLower(b.Title)
	})
	return c
}

// RenderText prints one block per game: the title, then members that have
// it installed, then members that only own it.
func (c *Comparison) RenderText(w io.Writer) error {
	s := output.NewStyles(w)
	if len(c.Games) == 0 {
		_, err := fmt.Fprintln(w, s.Muted.Render("No games shared in this lobby yet."))
		return err
	}

	for _, g := range c.Games {
		if _, err := fmt.Fprintf(w, "%s %s\n", s.Heading.Render(g.Title), s.Muted.Render("("+g.Provider.DisplayName()+")")); err != nil {
			return err
		}
		if len(g.InstalledBy) > 0 {
			if _, err := fmt.Fprintf(w, "  %s %s\n", s.Added.Render("installed:"), strings.Join(g.InstalledBy, ", ")); err != nil {
				return err
			}
		} else {
			if _, err := fmt.Fprintf(w, "  %s\n", s.Removed.Render("not installed by anyone")); err != nil {
				return err
			}
		}
		if len(g.OwnedBy) > 0 {
			if _, err := fmt.Fprintf(w, "  %s %s\n", s.Muted.Render("owned:"), strings.Join(g.OwnedBy, ", ")); err != nil {
				return err
			}
		}
	}
	return nil
}

// RenderText implements output.TextRenderer for a session.
func (s Session) RenderText(w io.Writer) error {
	names := make([]string, 0, len(s.Members))
	for _, m := range s.Members {
		names = append(names, m.UserName)
	}
	_, err := fmt.Fprintf(w, "%s\nLobby id: %s\nLobby members: %s\n", s.LobbyName, s.LobbyID, strings.Join(names, ", "))
	return err
}
