package formatter

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/thomhug/resumedit/internal/domain"
)

// Gruvbox-inspired color palette.
var (
	ColorGreen  = lipgloss.Color("#8ec07c")
	ColorYellow = lipgloss.Color("#fabd2f")
	ColorRed    = lipgloss.Color("#fb4934")
	ColorBlue   = lipgloss.Color("#83a598")
	ColorPurple = lipgloss.Color("#d3869b")
	ColorDim    = lipgloss.Color("#928374")
	ColorFg     = lipgloss.Color("#ebdbb2")
	ColorHeader = lipgloss.Color("#fe8019")
)

var (
	StyleGreen  = lipgloss.NewStyle().Foreground(ColorGreen)
	StyleYellow = lipgloss.NewStyle().Foreground(ColorYellow)
	StyleRed    = lipgloss.NewStyle().Foreground(ColorRed)
	StyleBlue   = lipgloss.NewStyle().Foreground(ColorBlue)
	StylePurple = lipgloss.NewStyle().Foreground(ColorPurple)
	StyleDim    = lipgloss.NewStyle().Foreground(ColorDim)
	StyleHeader = lipgloss.NewStyle().Foreground(ColorHeader).Bold(true)
	StyleBold   = lipgloss.NewStyle().Foreground(ColorFg).Bold(true)
	StyleStrike = lipgloss.NewStyle().Foreground(ColorDim).Strikethrough(true)
)

// DispositionMarker returns the one-glyph sync state shown in front of a
// node: "+" not yet on the server, "●" edited since the last sync.
func DispositionMarker(d domain.Disposition, deleted bool) string {
	switch {
	case deleted:
		return StyleRed.Render("✖ ")
	case d == domain.DispositionNew:
		return StyleGreen.Render("+ ")
	case d == domain.DispositionModified:
		return StyleYellow.Render("● ")
	default:
		return ""
	}
}

// DispositionPill is the long form used in node details.
func DispositionPill(d domain.Disposition) string {
	switch d {
	case domain.DispositionNew:
		return StyleGreen.Render("+ New")
	case domain.DispositionModified:
		return StyleYellow.Render("● Modified")
	default:
		return StyleDim.Render("✔ Synced")
	}
}

// KindBadge returns a capitalized, purple kind label.
func KindBadge(k domain.Kind) string {
	s := string(k)
	if s == "" {
		return StyleDim.Render("--")
	}
	return StylePurple.Render(strings.ToUpper(s[:1]) + s[1:])
}

// Header renders a section header with an underline.
func Header(text string) string {
	upper := strings.ToUpper(text)
	line := strings.Repeat("─", len([]rune(upper)))
	return fmt.Sprintf("%s\n%s", StyleHeader.Render(upper), StyleDim.Render(line))
}

func Dim(text string) string {
	return StyleDim.Render(text)
}

func Bold(text string) string {
	return StyleBold.Render(text)
}
