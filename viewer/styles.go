package viewer

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	colorful "github.com/lucasb-eyer/go-colorful"

	"grimoire/notice"
)

// Parchment palette of the book.
var (
	inkColor       = lipgloss.Color("#3b2a1a")
	parchmentColor = lipgloss.Color("#f3e6c8")
	accentColor    = lipgloss.Color("#8b1e3f")
	fadedColor     = lipgloss.Color("#8a7a60")
	stickyColor    = lipgloss.Color("#f7e27a")
)

type styles struct {
	Cover      lipgloss.Style
	CoverTitle lipgloss.Style
	Title      lipgloss.Style
	Counter    lipgloss.Style
	Turning    lipgloss.Style
	Corner     lipgloss.Style
	Sticky     lipgloss.Style
	Photo      lipgloss.Style
	Index      lipgloss.Style
	Author     lipgloss.Style
	Woman      lipgloss.Style
	WomanName  lipgloss.Style
	Faded      lipgloss.Style
	Transport  lipgloss.Style
	Notices    map[notice.Severity]lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		Cover: lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(accentColor).
			Padding(2, 6),
		CoverTitle: lipgloss.NewStyle().Bold(true).Foreground(accentColor),
		Title:      lipgloss.NewStyle().Bold(true).Foreground(accentColor).MarginBottom(1),
		Counter:    lipgloss.NewStyle().Foreground(fadedColor),
		Turning:    lipgloss.NewStyle().Italic(true).Foreground(fadedColor),
		Corner:     lipgloss.NewStyle().Italic(true).Foreground(inkColor).Background(parchmentColor).Padding(0, 1),
		Sticky:     lipgloss.NewStyle().Foreground(inkColor).Padding(0, 1).Width(28),
		Photo: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(fadedColor).
			Padding(0, 1).
			Width(32),
		Index:     lipgloss.NewStyle().Bold(true).Foreground(accentColor),
		Author:    lipgloss.NewStyle().Italic(true).Foreground(accentColor).MarginTop(1),
		Woman:     lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(accentColor).Padding(0, 1).Width(30),
		WomanName: lipgloss.NewStyle().Bold(true),
		Faded:     lipgloss.NewStyle().Foreground(fadedColor),
		Transport: lipgloss.NewStyle().Foreground(inkColor).Background(parchmentColor).Padding(0, 1),
		Notices: map[notice.Severity]lipgloss.Style{
			notice.Info:    lipgloss.NewStyle().Foreground(lipgloss.Color("#2e7d32")),
			notice.Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("#b26a00")),
			notice.Error:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#c62828")),
		},
	}
}

// stickyStyle paints sticky note with its own colour when it can be
// understood, colours come from the web editor as CSS hsl() or hex values.
func (s styles) stickyStyle(css string) lipgloss.Style {
	bg := stickyColor
	if c, ok := parseCSSColor(css); ok {
		bg = lipgloss.Color(c.Hex())
		// light text on dark paper
		if _, _, l := c.Hsl(); l < 0.5 {
			return s.Sticky.Background(bg).Foreground(lipgloss.Color("#fdf8ec"))
		}
	}
	return s.Sticky.Background(bg)
}

func parseCSSColor(css string) (colorful.Color, bool) {
	css = strings.ToLower(strings.TrimSpace(css))
	switch {
	case strings.HasPrefix(css, "#"):
		c, err := colorful.Hex(css)
		return c, err == nil
	case strings.HasPrefix(css, "hsl(") && strings.HasSuffix(css, ")"):
		parts := strings.Split(strings.TrimSuffix(strings.TrimPrefix(css, "hsl("), ")"), ",")
		if len(parts) != 3 {
			return colorful.Color{}, false
		}
		var v [3]float64
		for i, p := range parts {
			f, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(p), "%"), 64)
			if err != nil {
				return colorful.Color{}, false
			}
			v[i] = f
		}
		return colorful.Hsl(v[0], v[1]/100, v[2]/100), true
	}
	return colorful.Color{}, false
}
