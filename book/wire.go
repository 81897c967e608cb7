package book

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"grimoire/common"
)

// Remote API keeps overlays in three separate arrays and mixes types freely
// (numbers arrive as strings from form fields), wire types below absorb that.

type number float64

func (n *number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if len(s) == 0 {
			*n = 0
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("bad number %q: %w", s, err)
		}
		*n = number(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*n = number(f)
	return nil
}

type stickyWire struct {
	ID       ID      `json:"id"`
	Text     string  `json:"text"`
	X        number  `json:"x"`
	Y        number  `json:"y"`
	Color    string  `json:"color,omitempty"`
	Rotation *number `json:"rotation,omitempty"`
	Link     Link    `json:"linkToChapterId"`
}

type photoWire struct {
	ID       ID      `json:"id"`
	Caption  string  `json:"caption"`
	URL      string  `json:"url,omitempty"`
	Href     string  `json:"link,omitempty"`
	X        number  `json:"x"`
	Y        number  `json:"y"`
	Rotation *number `json:"rotation,omitempty"`
	Link     Link    `json:"linkToChapterId"`
}

type cornerWire struct {
	ID       ID      `json:"id"`
	Text     string  `json:"text"`
	Position string  `json:"position,omitempty"`
	Rotation *number `json:"rotation,omitempty"`
	Link     Link    `json:"linkToChapterId"`
}

type chapterWire struct {
	ID            ID           `json:"id"`
	Title         string       `json:"title"`
	Content       string       `json:"content"`
	PostIts       []stickyWire `json:"postIts"`
	Photos        []photoWire  `json:"photos"`
	CornerNotes   []cornerWire `json:"cornerNotes"`
	SongURL       string       `json:"songUrl"`
	SongStartTime number       `json:"songStartTime"`
	ImageURL      string       `json:"imageUrl,omitempty"`
}

type muralWire struct {
	ID     ID      `json:"id,omitempty"`
	Title  string  `json:"title,omitempty"`
	Author string  `json:"author,omitempty"`
	Women  []Woman `json:"women"`
}

type snapshotWire struct {
	Title      string        `json:"title,omitempty"`
	Author     string        `json:"author,omitempty"`
	Chapters   []chapterWire `json:"chapters"`
	FinalMural *muralWire    `json:"finalMural"`
}

func rotation(r *number, def float64) float64 {
	if r == nil {
		return def
	}
	return float64(*r)
}

func rotationPtr(r float64) *number {
	n := number(r)
	return &n
}

func (w *chapterWire) chapter() Chapter {
	c := Chapter{
		ID:       w.ID,
		Title:    w.Title,
		Content:  w.Content,
		ImageURL: w.ImageURL,
		Overlays: make([]Overlay, 0, len(w.PostIts)+len(w.Photos)+len(w.CornerNotes)),
	}
	for _, p := range w.PostIts {
		c.Overlays = append(c.Overlays, &StickyNote{
			ID:        p.ID,
			Text:      p.Text,
			Color:     p.Color,
			Placement: Placement{X: float64(p.X), Y: float64(p.Y), Rotation: rotation(p.Rotation, defaultStickyRotation)},
			Link:      p.Link,
		})
	}
	for _, p := range w.Photos {
		c.Overlays = append(c.Overlays, &Photo{
			ID:        p.ID,
			Caption:   p.Caption,
			URL:       p.URL,
			Href:      p.Href,
			Placement: Placement{X: float64(p.X), Y: float64(p.Y), Rotation: rotation(p.Rotation, defaultPhotoRotation)},
			Link:      p.Link,
		})
	}
	for _, p := range w.CornerNotes {
		c.Overlays = append(c.Overlays, &CornerNote{
			ID:       p.ID,
			Text:     p.Text,
			Position: common.CornerOf(p.Position),
			Rotation: rotation(p.Rotation, defaultCornerRotation),
			Link:     p.Link,
		})
	}
	if url := strings.TrimSpace(w.SongURL); len(url) > 0 {
		c.Audio = &Audio{URL: url, Start: max(float64(w.SongStartTime), 0)}
	}
	return c
}

func chapterToWire(c *Chapter) chapterWire {
	w := chapterWire{
		ID:          c.ID,
		Title:       c.Title,
		Content:     c.Content,
		ImageURL:    c.ImageURL,
		PostIts:     []stickyWire{},
		Photos:      []photoWire{},
		CornerNotes: []cornerWire{},
	}
	for _, o := range c.Overlays {
		switch o := o.(type) {
		case *StickyNote:
			w.PostIts = append(w.PostIts, stickyWire{
				ID: o.ID, Text: o.Text, Color: o.Color,
				X: number(o.X), Y: number(o.Y), Rotation: rotationPtr(o.Rotation),
				Link: o.Link,
			})
		case *Photo:
			w.Photos = append(w.Photos, photoWire{
				ID: o.ID, Caption: o.Caption, URL: o.URL, Href: o.Href,
				X: number(o.X), Y: number(o.Y), Rotation: rotationPtr(o.Rotation),
				Link: o.Link,
			})
		case *CornerNote:
			w.CornerNotes = append(w.CornerNotes, cornerWire{
				ID: o.ID, Text: o.Text, Position: string(o.Position),
				Rotation: rotationPtr(o.Rotation),
				Link:     o.Link,
			})
		}
	}
	if c.HasAudio() {
		w.SongURL = c.Audio.URL
		w.SongStartTime = number(c.Audio.Start)
	}
	return w
}

func (c Chapter) MarshalJSON() ([]byte, error) {
	return json.Marshal(chapterToWire(&c))
}

func (c *Chapter) UnmarshalJSON(data []byte) error {
	var w chapterWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*c = w.chapter()
	return nil
}

func (m Mural) MarshalJSON() ([]byte, error) {
	w := muralWire{ID: m.ID, Title: m.Title, Author: m.Author, Women: m.Women}
	if w.Women == nil {
		w.Women = []Woman{}
	}
	return json.Marshal(w)
}

func (m *Mural) UnmarshalJSON(data []byte) error {
	var w muralWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*m = Mural{ID: w.ID, Title: w.Title, Author: w.Author, Women: w.Women}
	return nil
}

// MarshalJSON writes title and author both at top level and inside the mural,
// so either reader finds them.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	w := snapshotWire{
		Title:    s.Mural.Title,
		Author:   s.Mural.Author,
		Chapters: make([]chapterWire, 0, len(s.Chapters)),
		FinalMural: &muralWire{
			ID:     s.Mural.ID,
			Title:  s.Mural.Title,
			Author: s.Mural.Author,
			Women:  s.Mural.Women,
		},
	}
	if w.FinalMural.Women == nil {
		w.FinalMural.Women = []Woman{}
	}
	for i := range s.Chapters {
		w.Chapters = append(w.Chapters, chapterToWire(&s.Chapters[i]))
	}
	return json.Marshal(w)
}

func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var w snapshotWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	res := Snapshot{Chapters: make([]Chapter, 0, len(w.Chapters))}
	for i := range w.Chapters {
		res.Chapters = append(res.Chapters, w.Chapters[i].chapter())
	}
	if w.FinalMural != nil {
		res.Mural = Mural{ID: w.FinalMural.ID, Title: w.FinalMural.Title, Author: w.FinalMural.Author, Women: w.FinalMural.Women}
	}
	if len(res.Mural.Title) == 0 {
		res.Mural.Title = w.Title
	}
	if len(res.Mural.Author) == 0 {
		res.Mural.Author = w.Author
	}
	*s = res
	return nil
}

// Decode parses snapshot as returned by the remote API.
func Decode(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unable to decode book data: %w", err)
	}
	return &s, nil
}
