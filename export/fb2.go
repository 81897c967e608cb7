// Package export writes book snapshot as FictionBook 2 document, so the
// grimoire can be read (without overlays and music) on any e-book reader.
package export

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"grimoire/book"
	"grimoire/common"
	"grimoire/config"
	"grimoire/misc"
)

const (
	fb2NS   = "http://www.gribuser.ru/xml/fictionbook/2.0"
	xlinkNS = "http://www.w3.org/1999/xlink"

	muralSectionID = "mural"
)

var ErrEmpty = errors.New("nothing to export")

// Exporter turns snapshots into FB2 documents according to export
// configuration.
type Exporter struct {
	cfg  *config.ExportConfig
	lang language.Tag
	log  *zap.Logger
	now  func() time.Time
}

// New validates export language and returns ready exporter.
func New(cfg *config.ExportConfig, log *zap.Logger) (*Exporter, error) {
	tag, err := language.Parse(strings.TrimSpace(cfg.Language))
	if err != nil {
		return nil, fmt.Errorf("bad export language %q: %w", cfg.Language, err)
	}
	return &Exporter{cfg: cfg, lang: tag, log: log.Named("export"), now: time.Now}, nil
}

// Language returns normalized language tag used for documents.
func (e *Exporter) Language() language.Tag {
	return e.lang
}

// DocumentID is stable for the same title and author, so re-exported book
// replaces previous copy in reader libraries.
func DocumentID(m *book.Mural) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(m.Title+"\x00"+m.Author)).String()
}

// Build assembles FB2 document from the snapshot.
func (e *Exporter) Build(s *book.Snapshot) (*etree.Document, error) {
	if s == nil || (len(s.Chapters) == 0 && len(s.Mural.Women) == 0) {
		return nil, ErrEmpty
	}

	ids := sectionIDs(s)

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("FictionBook")
	root.CreateAttr("xmlns", fb2NS)
	root.CreateAttr("xmlns:l", xlinkNS)

	e.writeDescription(root.CreateElement("description"), s)

	body := root.CreateElement("body")
	if len(s.Mural.Title) > 0 {
		writeParagraphs(body.CreateElement("title"), s.Mural.Title)
	}
	for i := range s.Chapters {
		e.writeChapter(body, &s.Chapters[i], ids)
	}
	writeMural(body, &s.Mural)

	doc.Indent(2)
	return doc, nil
}

func (e *Exporter) writeDescription(desc *etree.Element, s *book.Snapshot) {
	ti := desc.CreateElement("title-info")
	ti.CreateElement("genre").SetText(e.cfg.Genre)
	writeAuthor(ti, s.Mural.Author)
	title := s.Mural.Title
	if len(title) == 0 {
		title = "Grimoire"
	}
	ti.CreateElement("book-title").SetText(title)
	ti.CreateElement("lang").SetText(e.lang.String())

	di := desc.CreateElement("document-info")
	writeAuthor(di, s.Mural.Author)
	di.CreateElement("program-used").SetText(misc.GetAppName() + " " + misc.GetVersion())
	now := e.now()
	date := di.CreateElement("date")
	date.CreateAttr("value", now.Format("2006-01-02"))
	date.SetText(now.Format("2006-01-02"))
	di.CreateElement("id").SetText(DocumentID(&s.Mural))
	di.CreateElement("version").SetText("1.0")
}

// writeAuthor splits free form author name: last word becomes last name,
// single word goes to nickname.
func writeAuthor(parent *etree.Element, name string) {
	a := parent.CreateElement("author")
	fields := strings.Fields(name)
	switch len(fields) {
	case 0:
		a.CreateElement("nickname").SetText("unknown")
	case 1:
		a.CreateElement("nickname").SetText(fields[0])
	default:
		a.CreateElement("first-name").SetText(strings.Join(fields[:len(fields)-1], " "))
		a.CreateElement("last-name").SetText(fields[len(fields)-1])
	}
}

// sectionIDs derives readable unique section ids from chapter titles.
func sectionIDs(s *book.Snapshot) map[book.ID]string {
	ids := make(map[book.ID]string, len(s.Chapters))
	used := map[string]int{muralSectionID: 1}
	for i := range s.Chapters {
		base := slug.Make(s.Chapters[i].Title)
		if len(base) == 0 {
			base = "chapter-" + strconv.Itoa(i+1)
		}
		id := base
		if n := used[base]; n > 0 {
			id = base + "-" + strconv.Itoa(n+1)
		}
		used[base]++
		ids[s.Chapters[i].ID] = id
	}
	return ids
}

func (e *Exporter) writeChapter(body *etree.Element, c *book.Chapter, ids map[book.ID]string) {
	sec := body.CreateElement("section")
	sec.CreateAttr("id", ids[c.ID])
	writeParagraphs(sec.CreateElement("title"), c.Title)

	for _, o := range c.OverlaysOf(common.OverlayKindCornerNote) {
		n := o.(*book.CornerNote)
		ep := sec.CreateElement("epigraph")
		writeParagraphs(ep, n.Text)
		writeReference(ep, n.Link, ids, e.log)
	}

	writeParagraphs(sec, c.Content)

	if c.HasAudio() {
		p := sec.CreateElement("p")
		a := p.CreateElement("a")
		a.CreateAttr("l:href", c.Audio.URL)
		a.SetText("♪ " + book.AudioExt(c.Audio.URL))
	}

	for _, o := range c.OverlaysOf(common.OverlayKindStickyNote) {
		n := o.(*book.StickyNote)
		cite := sec.CreateElement("cite")
		writeParagraphs(cite, n.Text)
		writeReference(cite, n.Link, ids, e.log)
	}

	for _, o := range c.OverlaysOf(common.OverlayKindPhoto) {
		ph := o.(*book.Photo)
		cite := sec.CreateElement("cite")
		p := cite.CreateElement("p")
		if len(ph.Href) > 0 {
			a := p.CreateElement("a")
			a.CreateAttr("l:href", ph.Href)
			a.SetText(ph.Caption)
		} else {
			p.CreateElement("emphasis").SetText(ph.Caption)
		}
		if len(ph.URL) > 0 {
			cite.CreateElement("text-author").SetText(ph.URL)
		}
		writeReference(cite, ph.Link, ids, e.log)
	}
}

// writeReference turns cross-reference into internal link, broken references
// are dropped with a warning.
func writeReference(parent *etree.Element, link book.Link, ids map[book.ID]string, log *zap.Logger) {
	if !link.Present() {
		return
	}
	id, ok := ids[link.Target]
	if !ok {
		log.Warn("Dropping broken cross-reference", zap.Stringer("target", link.Target))
		return
	}
	p := parent.CreateElement("p")
	a := p.CreateElement("a")
	a.CreateAttr("l:href", "#"+id)
	a.CreateAttr("type", "note")
	a.SetText("→")
}

func writeMural(body *etree.Element, m *book.Mural) {
	if len(m.Women) == 0 {
		return
	}
	sec := body.CreateElement("section")
	sec.CreateAttr("id", muralSectionID)
	title := sec.CreateElement("title")
	title.CreateElement("p").SetText("Mural")
	for _, w := range m.Women {
		sec.CreateElement("subtitle").SetText(w.Name)
		if len(w.Date) > 0 {
			sec.CreateElement("p").CreateElement("emphasis").SetText(w.Date)
		}
		writeParagraphs(sec, w.Memory)
	}
	if len(m.Author) > 0 {
		sec.CreateElement("text-author").SetText(m.Author)
	}
}

// writeParagraphs splits text on line breaks, blank lines become empty-line
// elements.
func writeParagraphs(parent *etree.Element, text string) {
	text = strings.ReplaceAll(strings.TrimSpace(text), "\r\n", "\n")
	if len(text) == 0 {
		return
	}
	for line := range strings.SplitSeq(text, "\n") {
		line = strings.TrimSpace(line)
		if len(line) == 0 {
			parent.CreateElement("empty-line")
			continue
		}
		parent.CreateElement("p").SetText(line)
	}
}
