package viewer

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"grimoire/book"
	"grimoire/common"
	"grimoire/media"
	"grimoire/notice"
	"grimoire/prefs"
)

const (
	minWrap   = 20
	maxLinked = 9
)

// wrapWidth emulates font size on a terminal: larger font means fewer
// characters per line.
func wrapWidth(width, fontSize int) int {
	if width <= 0 {
		width = 80
	}
	w := width * prefs.DefaultFontSize / max(fontSize, prefs.MinFontSize)
	return max(min(w, width), minWrap)
}

// markdown keeps single line breaks of the chapter text, the way they were
// typed in the editor.
func markdown(text string) string {
	text = strings.ReplaceAll(strings.TrimSpace(text), "\r\n", "\n")
	lines := strings.Split(text, "\n")
	for i := 0; i < len(lines)-1; i++ {
		if len(strings.TrimSpace(lines[i])) > 0 && len(strings.TrimSpace(lines[i+1])) > 0 {
			lines[i] = strings.TrimRight(lines[i], " ") + "  "
		}
	}
	return strings.Join(lines, "\n")
}

type textRenderer struct {
	style string
	wrap  int
	r     *glamour.TermRenderer
	log   *zap.Logger
}

func (t *textRenderer) render(text string, wrap int) string {
	if t.r == nil || t.wrap != wrap {
		opts := []glamour.TermRendererOption{glamour.WithWordWrap(wrap)}
		if t.style == "auto" || len(t.style) == 0 {
			opts = append(opts, glamour.WithAutoStyle())
		} else {
			opts = append(opts, glamour.WithStandardStyle(t.style))
		}
		r, err := glamour.NewTermRenderer(opts...)
		if err != nil {
			t.log.Warn("Unable to create text renderer", zap.Error(err))
			t.r = nil
			return lipgloss.NewStyle().Width(wrap).Render(text)
		}
		t.r, t.wrap = r, wrap
	}
	out, err := t.r.Render(markdown(text))
	if err != nil {
		t.log.Warn("Unable to render text", zap.Error(err))
		return lipgloss.NewStyle().Width(wrap).Render(text)
	}
	return strings.Trim(out, "\n")
}

func (m *Model) renderCover() string {
	s := m.lib.Snapshot()
	title := s.Mural.Title
	if len(title) == 0 {
		title = "Grimoire"
	}
	var b strings.Builder
	b.WriteString(m.styles.CoverTitle.Render(title))
	b.WriteString("\n\n")
	switch {
	case m.loading:
		b.WriteString(m.styles.Faded.Render("opening..."))
	case len(s.Chapters) == 0:
		b.WriteString(m.styles.Faded.Render("the pages are still blank"))
	default:
		b.WriteString(m.styles.Faded.Render(fmt.Sprintf("%d chapters, press enter to open", len(s.Chapters))))
	}
	return lipgloss.Place(max(m.width, 40), max(m.bodyHeight(), 7), lipgloss.Center, lipgloss.Center, m.styles.Cover.Render(b.String()))
}

// renderChapter lays chapter out and remembers overlays which can be
// followed with number keys.
func (m *Model) renderChapter(ch *book.Chapter) string {
	width := max(m.width, 40)
	wrap := wrapWidth(width, m.prefs.Get().FontSize)

	m.links = m.links[:0]
	for _, o := range ch.Overlays {
		if len(m.links) == maxLinked {
			break
		}
		m.links = append(m.links, o)
	}
	number := func(o book.Overlay) string {
		for i, l := range m.links {
			if l == o {
				return m.styles.Index.Render(fmt.Sprintf("[%d] ", i+1))
			}
		}
		return ""
	}

	var top, bottom []string
	for _, o := range ch.OverlaysOf(common.OverlayKindCornerNote) {
		n := o.(*book.CornerNote)
		align := lipgloss.Right
		if n.Position.Left() {
			align = lipgloss.Left
		}
		line := lipgloss.PlaceHorizontal(width, align, m.styles.Corner.Render(number(o)+n.Text))
		if n.Position.Top() {
			top = append(top, line)
		} else {
			bottom = append(bottom, line)
		}
	}

	var parts []string
	parts = append(parts, top...)
	title := ch.Title
	if ch.HasAudio() {
		title += " ♪"
	}
	parts = append(parts, m.styles.Title.Render(title))
	if len(ch.ImageURL) > 0 {
		parts = append(parts, m.styles.Faded.Render("[image] "+ch.ImageURL))
	}
	parts = append(parts, m.text.render(ch.Content, wrap))

	if boards := m.renderBoard(ch, number, width); len(boards) > 0 {
		parts = append(parts, "", boards)
	}
	parts = append(parts, bottom...)
	return strings.Join(parts, "\n")
}

// renderBoard pins sticky notes and photos below the text, ordered by their
// place on the page top to bottom, left to right.
func (m *Model) renderBoard(ch *book.Chapter, number func(book.Overlay) string, width int) string {
	type pinned struct {
		at   book.Placement
		view string
	}
	var items []pinned
	for _, o := range ch.Overlays {
		switch o := o.(type) {
		case *book.StickyNote:
			items = append(items, pinned{o.Placement, m.styles.stickyStyle(o.Color).Render(number(o) + o.Text)})
		case *book.Photo:
			body := number(o) + o.Caption
			if len(o.URL) > 0 {
				body += "\n" + m.styles.Faded.Render(o.URL)
			}
			if len(o.Href) > 0 {
				body += "\n" + m.styles.Faded.Render("↗ "+o.Href)
			}
			items = append(items, pinned{o.Placement, m.styles.Photo.Render(body)})
		}
	}
	if len(items) == 0 {
		return ""
	}
	slices.SortStableFunc(items, func(a, b pinned) int {
		return cmp.Or(cmp.Compare(a.at.Y, b.at.Y), cmp.Compare(a.at.X, b.at.X))
	})

	var rows []string
	var row []string
	used := 0
	for _, it := range items {
		w := lipgloss.Width(it.view) + 1
		if len(row) > 0 && used+w > width {
			rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
			row, used = nil, 0
		}
		row = append(row, it.view, " ")
		used += w
	}
	rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
	return strings.Join(rows, "\n")
}

// renderMural shows remembered women and finally reveals who wrote the book.
func (m *Model) renderMural(mural *book.Mural) string {
	width := max(m.width, 40)
	m.links = m.links[:0]

	parts := []string{m.styles.Title.Render("Mural")}
	if len(mural.Women) == 0 {
		parts = append(parts, m.styles.Faded.Render("no names yet"))
	}

	var row []string
	used := 0
	for _, w := range mural.Women {
		card := m.styles.WomanName.Render(w.Name)
		if len(w.Date) > 0 {
			card += "\n" + m.styles.Faded.Render(w.Date)
		}
		card += "\n" + w.Memory
		view := m.styles.Woman.Render(card)
		cw := lipgloss.Width(view) + 1
		if len(row) > 0 && used+cw > width {
			parts = append(parts, lipgloss.JoinHorizontal(lipgloss.Top, row...))
			row, used = nil, 0
		}
		row = append(row, view, " ")
		used += cw
	}
	if len(row) > 0 {
		parts = append(parts, lipgloss.JoinHorizontal(lipgloss.Top, row...))
	}

	if len(mural.Title) > 0 || len(mural.Author) > 0 {
		sign := mural.Title
		if len(mural.Author) > 0 {
			sign = strings.TrimSpace(sign + " by " + mural.Author)
		}
		parts = append(parts, m.styles.Author.Render(sign))
	}
	return strings.Join(parts, "\n")
}

func (m *Model) renderHeader() string {
	st := m.nav
	counter := m.styles.Counter.Render(fmt.Sprintf("Page %d of %d", st.Current+1, st.Total))
	if st.Transitioning {
		counter += " " + m.styles.Turning.Render(fmt.Sprintf("turning to %d...", st.Target+1))
	}
	if st.CanGoBack {
		counter += m.styles.Faded.Render("  (b to go back)")
	}
	return counter
}

func (m *Model) renderTransport() string {
	st := m.media
	if !st.Bound() {
		return ""
	}
	var b strings.Builder
	switch {
	case st.Loading:
		b.WriteString("… ")
	case st.Playing:
		b.WriteString("▶ ")
	default:
		b.WriteString("⏸ ")
	}
	b.WriteString(media.FormatClock(st.Time))
	if st.Duration > 0 {
		b.WriteString(" / ")
		b.WriteString(media.FormatClock(st.Duration))
	}
	if st.Muted {
		b.WriteString("  muted")
	} else {
		fmt.Fprintf(&b, "  vol %d%%", int(st.Volume*100+0.5))
	}
	if len(st.Err) > 0 {
		b.WriteString("  ")
		b.WriteString(m.styles.Notices[notice.Error].Render("audio unavailable"))
	}
	return m.styles.Transport.Render(b.String())
}

func (m *Model) renderNotice() string {
	if m.notice == nil {
		return ""
	}
	st, ok := m.styles.Notices[m.notice.Severity]
	if !ok {
		st = m.styles.Faded
	}
	return st.Render(m.notice.String())
}
