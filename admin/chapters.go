package admin

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/maruel/natural"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"grimoire/book"
	"grimoire/common"
	"grimoire/library"
	"grimoire/media"
	"grimoire/navigate"
	"grimoire/state"
)

type chapterRow struct {
	page int
	ch   *book.Chapter
}

// ListChapters prints table of contents.
func ListChapters(ctx context.Context, cmd *cli.Command) error {
	_, s, err := load(ctx)
	if err != nil {
		return err
	}
	order, err := common.ParseChapterOrder(cmd.String("sort"))
	if err != nil {
		return err
	}

	rows := make([]chapterRow, 0, len(s.Chapters))
	for i := range s.Chapters {
		rows = append(rows, chapterRow{page: i, ch: &s.Chapters[i]})
	}
	if order == common.ChapterOrderTitle {
		sort.SliceStable(rows, func(i, j int) bool {
			return natural.Less(strings.ToLower(rows[i].ch.Title), strings.ToLower(rows[j].ch.Title))
		})
	}

	out := output(cmd)
	fmt.Fprintf(out, "%-4s | %-16s | %-40s | %-5s | %-6s | %-7s | %s\n", "Page", "ID", "Title", "Notes", "Photos", "Corners", "Song")
	fmt.Fprintln(out, strings.Repeat("-", 100))
	for _, r := range rows {
		counts := r.ch.Counts()
		song := ""
		if r.ch.HasAudio() {
			song = fmt.Sprintf("%s @%s", book.AudioExt(r.ch.Audio.URL), media.FormatClock(r.ch.Audio.Start))
		}
		fmt.Fprintf(out, "%-4d | %-16s | %-40s | %-5d | %-6d | %-7d | %s\n",
			r.page+1, r.ch.ID, truncate(r.ch.Title, 40),
			counts[common.OverlayKindStickyNote], counts[common.OverlayKindPhoto], counts[common.OverlayKindCornerNote],
			song)
	}
	fmt.Fprintf(out, "%d chapters, mural with %d names\n", len(s.Chapters), len(s.Mural.Women))
	return nil
}

func truncate(s string, l int) string {
	r := []rune(s)
	if len(r) > l {
		return string(r[:l-3]) + "..."
	}
	return s
}

// ShowChapter prints one chapter with its overlays, cross-references are
// resolved to chapter titles.
func ShowChapter(ctx context.Context, cmd *cli.Command) error {
	_, s, err := load(ctx)
	if err != nil {
		return err
	}
	id := book.ID(strings.TrimSpace(cmd.Args().First()))
	page, ok := s.IndexOf(id)
	if !ok {
		return fmt.Errorf("%w: %s", library.ErrUnknownChapter, id)
	}
	writeChapter(output(cmd), s, page)
	return nil
}

func writeChapter(out io.Writer, s *book.Snapshot, page int) {
	ch := s.Chapter(page)
	fmt.Fprintf(out, "Page %d of %d, chapter %s\n\n", page+1, s.Pages(), ch.ID)
	fmt.Fprintf(out, "# %s\n\n%s\n\n", ch.Title, strings.TrimSpace(ch.Content))
	if len(ch.ImageURL) > 0 {
		fmt.Fprintf(out, "Image: %s\n", ch.ImageURL)
	}
	if ch.HasAudio() {
		fmt.Fprintf(out, "Song: %s from %s\n", ch.Audio.URL, media.FormatClock(ch.Audio.Start))
	}

	ref := func(l book.Link) string {
		if !l.Present() {
			return ""
		}
		if l.Target == ch.ID {
			return fmt.Sprintf(" -> itself (%s)", l.Target)
		}
		if target, ok := s.Find(l.Target); ok {
			return fmt.Sprintf(" -> %q", target.Title)
		}
		return fmt.Sprintf(" -> BROKEN (%s)", l.Target)
	}
	for _, o := range ch.Overlays {
		switch o := o.(type) {
		case *book.StickyNote:
			fmt.Fprintf(out, "- sticky note %s at %.0f%%,%.0f%% %s: %s%s\n", o.ID, o.X, o.Y, o.Color, o.Text, ref(o.Link))
		case *book.Photo:
			fmt.Fprintf(out, "- photo %s at %.0f%%,%.0f%%: %q %s %s%s\n", o.ID, o.X, o.Y, o.Caption, o.URL, o.Href, ref(o.Link))
		case *book.CornerNote:
			fmt.Fprintf(out, "- corner note %s %s: %s%s\n", o.ID, o.Position, o.Text, ref(o.Link))
		}
	}
}

// SaveChapter creates or updates chapter described by YAML file.
func SaveChapter(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)

	data, fname, err := readFile(cmd)
	if err != nil {
		return err
	}
	ch, err := book.DecodeChapterYAML(data)
	if err != nil {
		return fmt.Errorf("'%s': %w", fname, err)
	}
	lib, before, err := load(ctx)
	if err != nil {
		return err
	}
	_, update := before.IndexOf(ch.ID)

	after, err := lib.SaveChapter(ctx, ch)
	if err != nil {
		return err
	}
	env.Log.Info("Chapter saved", zap.String("title", ch.Title), zap.Bool("update", update), zap.Int("chapters", len(after.Chapters)))
	return nil
}

// DeleteChapter removes chapter by identifier.
func DeleteChapter(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)

	id := book.ID(strings.TrimSpace(cmd.Args().First()))
	if id.IsZero() {
		return fmt.Errorf("chapter ID is required")
	}
	lib, before, err := load(ctx)
	if err != nil {
		return err
	}
	// links into deleted chapter become broken, warn before doing it
	for _, b := range navigate.BrokenRefs(withoutChapter(before, id)) {
		if b.Item.Reference().Target == id {
			env.Log.Warn("Reference will be broken", zap.Stringer("ref", b))
		}
	}
	after, err := lib.DeleteChapter(ctx, id)
	if err != nil {
		return err
	}
	env.Log.Info("Chapter deleted", zap.Stringer("id", id), zap.Int("chapters", len(after.Chapters)))
	return nil
}

func withoutChapter(s *book.Snapshot, id book.ID) *book.Snapshot {
	res := &book.Snapshot{Mural: s.Mural}
	for _, ch := range s.Chapters {
		if ch.ID != id {
			res.Chapters = append(res.Chapters, ch)
		}
	}
	return res
}
