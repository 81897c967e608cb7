package book

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type treeWriter struct {
	w *strings.Builder
}

func (tw treeWriter) line(depth int, format string, args ...any) {
	for range depth {
		tw.w.WriteString("  ")
	}
	fmt.Fprintf(tw.w, format, args...)
	tw.w.WriteByte('\n')
}

func (tw treeWriter) text(depth int, label, value string) {
	for range depth {
		tw.w.WriteString("  ")
	}
	tw.w.WriteString(label)
	tw.w.WriteString(": ")
	if len(value) > 0 {
		value = strconv.Quote(value)
	}
	tw.w.WriteString(value)
	tw.w.WriteByte('\n')
}

func (tw treeWriter) link(depth int, l Link) {
	if l.Present() {
		tw.line(depth, "link -> %s", l.Target)
	}
}

// Dump returns indented textual tree of the snapshot for debug reports.
func (s *Snapshot) Dump() string {
	tw := treeWriter{w: &strings.Builder{}}
	if s == nil {
		tw.line(0, "Snapshot <nil>")
		return tw.w.String()
	}

	src := "remote"
	if s.Cached {
		src = "cache"
	}
	tw.line(0, "Snapshot from %s fetched %s, %d pages", src, s.FetchedAt.Format(time.RFC3339), s.Pages())
	for i := range s.Chapters {
		ch := &s.Chapters[i]
		tw.line(1, "Chapter %d [%s]", i+1, ch.ID)
		tw.text(2, "title", ch.Title)
		tw.text(2, "content", ch.Content)
		if len(ch.ImageURL) > 0 {
			tw.text(2, "image", ch.ImageURL)
		}
		if ch.HasAudio() {
			tw.line(2, "audio %q from %gs", ch.Audio.URL, ch.Audio.Start)
		}
		for _, o := range ch.Overlays {
			switch o := o.(type) {
			case *StickyNote:
				tw.line(2, "StickyNote [%s] at %g,%g rot %g color %s", o.ID, o.X, o.Y, o.Rotation, o.Color)
				tw.text(3, "text", o.Text)
				tw.link(3, o.Link)
			case *Photo:
				tw.line(2, "Photo [%s] at %g,%g rot %g", o.ID, o.X, o.Y, o.Rotation)
				tw.text(3, "caption", o.Caption)
				tw.text(3, "url", o.URL)
				if len(o.Href) > 0 {
					tw.text(3, "href", o.Href)
				}
				tw.link(3, o.Link)
			case *CornerNote:
				tw.line(2, "CornerNote [%s] %s rot %g", o.ID, o.Position, o.Rotation)
				tw.text(3, "text", o.Text)
				tw.link(3, o.Link)
			}
		}
	}
	tw.line(1, "Mural [%s]", s.Mural.ID)
	tw.text(2, "title", s.Mural.Title)
	tw.text(2, "author", s.Mural.Author)
	for _, w := range s.Mural.Women {
		tw.line(2, "Woman [%s] %s", w.ID, w.Date)
		tw.text(3, "name", w.Name)
		tw.text(3, "memory", w.Memory)
	}
	return tw.w.String()
}
