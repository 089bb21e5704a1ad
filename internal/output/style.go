package output

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Styles colors human-readable output. The color profile is detected from
// the destination, so writers that are not terminals get plain text.
type Styles struct {
	Heading lipgloss.Style
	Added   lipgloss.Style
	Removed lipgloss.Style
	Changed lipgloss.Style
	Muted   lipgloss.Style
}

// NewStyles returns styles rendered for w.
func NewStyles(w io.Writer) Styles {
	r := lipgloss.NewRenderer(w)
	return Styles{
		Heading: r.NewStyle().Bold(true),
		Added:   r.NewStyle().Foreground(lipgloss.Color("#98BB6C")),
		Removed: r.NewStyle().Foreground(lipgloss.Color("#FF5D62")),
		Changed: r.NewStyle().Foreground(lipgloss.Color("#FF9E3B")),
		Muted:   r.NewStyle().Foreground(lipgloss.Color("#727169")),
	}
}
