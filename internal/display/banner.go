package display

import (
	_ "embed"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/term"
)

//go:embed banner.txt
var bannerArt string

// compactTitle replaces the art on terminals too narrow to show it.
const compactTitle = "~ Vibe Cook ~"

var taglineStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("#94a3b8")).
	Italic(true)

// RenderBanner returns the cook-mode header sized to the terminal, with
// tagline centred under it when non-empty.
func RenderBanner(tagline string) string {
	return renderBanner(termWidth(), tagline)
}

func renderBanner(width int, tagline string) string {
	art := strings.TrimRight(bannerArt, "\n")
	head := BannerStyle.Render(art)
	if lipgloss.Width(art) > width {
		head = BannerStyle.Render(compactTitle)
	}
	if tagline != "" {
		head = lipgloss.JoinVertical(lipgloss.Center, head, taglineStyle.Render(tagline))
	}
	return lipgloss.PlaceHorizontal(width, lipgloss.Center, head) + "\n"
}

// Tagline describes a cook started with the given number of recipes. Zero
// means the shortlist is used.
func Tagline(recipes int) string {
	switch recipes {
	case 0:
		return "cooking from your shortlist"
	case 1:
		return "one recipe, one step at a time"
	default:
		return "several recipes, one step at a time"
	}
}

func termWidth() int {
	if w, _, err := term.GetSize(os.Stdout.Fd()); err == nil && w > 0 {
		return w
	}
	return 80
}
