package export

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/beevik/etree"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"grimoire/book"
	"grimoire/config"
)

func setupTestLogger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCaller()))
}

func testSnapshot() *book.Snapshot {
	return &book.Snapshot{
		Chapters: []book.Chapter{
			{ID: "1", Title: "Prefacio", Content: "Primera línea\n\nSegunda línea"},
			{
				ID:      "2",
				Title:   "Capítulo I: Las Invisibles",
				Content: "Había una vez mujeres...",
				Audio:   &book.Audio{URL: "https://example.com/cancion.mp3", Start: 10},
				Overlays: []book.Overlay{
					&book.StickyNote{ID: "1", Text: "Volver al prefacio", Link: book.LinkTo("1")},
					&book.Photo{ID: "2", Caption: "Una mujer anónima", URL: "https://example.com/a.jpg", Href: "https://example.com"},
					&book.CornerNote{ID: "3", Text: "No olvidar", Link: book.LinkTo("404")},
				},
			},
			{ID: "3", Title: "Prefacio", Content: "repetido"},
		},
		Mural: book.Mural{
			Title:  "Los nombres de las mujeres que no importan",
			Author: "Aún no sabemos",
			Women:  []book.Woman{{ID: "1", Name: "María", Date: "1890-1960", Memory: "Luchó"}},
		},
	}
}

func newTestExporter(t *testing.T, cfg *config.ExportConfig) *Exporter {
	t.Helper()
	e, err := New(cfg, setupTestLogger(t))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	e.now = func() time.Time { return time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC) }
	return e
}

func TestNew_Language(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"es", "es", false},
		{"es-ar", "es-AR", false},
		{" en ", "en", false},
		{"not a language", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			e, err := New(&config.ExportConfig{Language: tt.in, Genre: "prose"}, setupTestLogger(t))
			if (err != nil) != tt.wantErr {
				t.Fatalf("New(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err == nil && e.Language().String() != tt.want {
				t.Errorf("Language() = %s, want %s", e.Language(), tt.want)
			}
		})
	}
}

func TestBuild(t *testing.T) {
	e := newTestExporter(t, &config.ExportConfig{Language: "es", Genre: "prose_contemporary"})
	doc, err := e.Build(testSnapshot())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	root := doc.Root()
	if root == nil || root.Tag != "FictionBook" {
		t.Fatalf("unexpected root %v", root)
	}
	if v := doc.FindElement("//title-info/lang"); v == nil || v.Text() != "es" {
		t.Error("language is missing")
	}
	if v := doc.FindElement("//title-info/author/last-name"); v == nil || v.Text() != "sabemos" {
		t.Error("author last name is wrong")
	}
	if v := doc.FindElement("//document-info/date"); v == nil || v.SelectAttrValue("value", "") != "2024-03-08" {
		t.Error("document date is wrong")
	}
	if v := doc.FindElement("//document-info/id"); v == nil || v.Text() != DocumentID(&testSnapshot().Mural) {
		t.Error("document id is not stable")
	}

	sections := doc.FindElements("//body/section")
	if len(sections) != 4 {
		t.Fatalf("got %d sections, want 4", len(sections))
	}
	ids := []string{"prefacio", "capitulo-i-las-invisibles", "prefacio-2", "mural"}
	for i, s := range sections {
		if got := s.SelectAttrValue("id", ""); got != ids[i] {
			t.Errorf("section %d id = %q, want %q", i, got, ids[i])
		}
	}

	if n := len(sections[0].SelectElements("empty-line")); n != 1 {
		t.Errorf("blank line must become empty-line, got %d", n)
	}

	second := sections[1]
	if len(second.SelectElements("epigraph")) != 1 || len(second.SelectElements("cite")) != 2 {
		t.Error("overlays are not exported")
	}
	var hrefs []string
	for _, a := range second.FindElements(".//a") {
		hrefs = append(hrefs, a.SelectAttrValue("l:href", ""))
	}
	joined := strings.Join(hrefs, " ")
	if !strings.Contains(joined, "#prefacio") {
		t.Errorf("cross-reference is missing: %v", hrefs)
	}
	if strings.Contains(joined, "404") {
		t.Errorf("broken cross-reference must be dropped: %v", hrefs)
	}
	if !strings.Contains(joined, "cancion.mp3") || !strings.Contains(joined, "https://example.com") {
		t.Errorf("audio or photo link missing: %v", hrefs)
	}

	if v := sections[3].SelectElement("subtitle"); v == nil || v.Text() != "María" {
		t.Error("mural entry missing")
	}
}

func TestBuild_Empty(t *testing.T) {
	e := newTestExporter(t, &config.ExportConfig{Language: "es", Genre: "prose"})
	if _, err := e.Build(&book.Snapshot{}); err != ErrEmpty {
		t.Errorf("Build(empty) error = %v, want ErrEmpty", err)
	}
}

func TestFileName(t *testing.T) {
	tests := []struct {
		name     string
		template string
		want     string
	}{
		{"no template", "", "los-nombres-de-las-mujeres-que-no-importan.fb2"},
		{"title lower", "{{ .Title | lower }}", "los nombres de las mujeres que no importan.fb2"},
		{"counts", "{{ .Language }}-{{ .Chapters }}-{{ .Women }}", "es-3-1.fb2"},
		{"separators removed", "{{ .Author }}/{{ .Title | trunc 3 }}", "Aún no sabemosLos.fb2"},
		{"broken template", "{{ .Title ", "los-nombres-de-las-mujeres-que-no-importan.fb2"},
		{"unknown field", "{{ .Missing }}", "los-nombres-de-las-mujeres-que-no-importan.fb2"},
		{"expands to nothing", `{{ "  " }}`, "los-nombres-de-las-mujeres-que-no-importan.fb2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestExporter(t, &config.ExportConfig{OutputNameTemplate: tt.template, Language: "es", Genre: "prose"})
			if got := e.FileName(testSnapshot()); got != tt.want {
				t.Errorf("FileName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExport(t *testing.T) {
	dir := t.TempDir()
	e := newTestExporter(t, &config.ExportConfig{Language: "es", Genre: "prose"})

	out, err := e.Export(context.Background(), testSnapshot(), filepath.Join(dir, "nested"))
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if filepath.Dir(out) != filepath.Join(dir, "nested") || filepath.Ext(out) != ".fb2" {
		t.Errorf("unexpected output path %s", out)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		t.Fatalf("exported document is not XML: %v", err)
	}
	if doc.FindElement("//book-title").Text() != testSnapshot().Mural.Title {
		t.Error("book title lost")
	}

	explicit := filepath.Join(dir, "book.fb2")
	if out, err := e.Export(context.Background(), testSnapshot(), explicit); err != nil || out != explicit {
		t.Errorf("Export(file) = %s, %v", out, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.Export(ctx, testSnapshot(), dir); err == nil {
		t.Error("Export with cancelled context must fail")
	}
}
