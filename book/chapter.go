package book

import (
	"grimoire/common"
)

// Audio is the song bound to a chapter, Start is offset in seconds playback
// begins (and restarts) from.
type Audio struct {
	URL   string
	Start float64
}

type Chapter struct {
	ID       ID
	Title    string
	Content  string
	ImageURL string
	Overlays []Overlay
	Audio    *Audio
}

// HasAudio reports whether chapter has audio resource configured.
func (c *Chapter) HasAudio() bool {
	return c != nil && c.Audio != nil && len(c.Audio.URL) > 0
}

// OverlaysOf returns overlays of requested kind preserving order.
func (c *Chapter) OverlaysOf(kind common.OverlayKind) []Overlay {
	var res []Overlay
	for _, o := range c.Overlays {
		if o.Kind() == kind {
			res = append(res, o)
		}
	}
	return res
}

// Counts returns number of overlays per kind.
func (c *Chapter) Counts() map[common.OverlayKind]int {
	res := make(map[common.OverlayKind]int, 3)
	for _, o := range c.Overlays {
		res[o.Kind()]++
	}
	return res
}

// NewChapter returns empty chapter with temporary identifier, ready to be
// filled and saved.
func NewChapter(title, content string) *Chapter {
	return &Chapter{
		ID:      NewTempID(),
		Title:   title,
		Content: content,
	}
}
