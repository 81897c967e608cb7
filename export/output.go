package export

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/beevik/etree"
	sprig "github.com/go-task/slim-sprig/v3"
	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"grimoire/book"
	"grimoire/config"
)

const fileExt = ".fb2"

// Values is a struct that holds variables we make available for output name
// template expansion.
type Values struct {
	Context  string
	Title    string
	Author   string
	Language string
	Chapters int
	Women    int
	BookID   string
}

func (e *Exporter) expandTemplate(s *book.Snapshot, name config.TemplateFieldName, field string) (string, error) {
	tmpl, err := template.New(string(name)).Funcs(sprig.FuncMap()).Parse(field)
	if err != nil {
		return "", fmt.Errorf("unable to parse template field %s: %w", name, err)
	}

	values := Values{
		Context:  string(name),
		Title:    s.Mural.Title,
		Author:   s.Mural.Author,
		Language: e.lang.String(),
		Chapters: len(s.Chapters),
		Women:    len(s.Mural.Women),
		BookID:   DocumentID(&s.Mural),
	}

	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, values); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// FileName returns output file name for the snapshot. When template is not
// configured or its expansion fails transliterated title is used.
func (e *Exporter) FileName(s *book.Snapshot) string {
	defaultName := slug.Make(s.Mural.Title)
	if len(defaultName) == 0 {
		defaultName = "grimoire"
	}

	name := defaultName
	if len(e.cfg.OutputNameTemplate) > 0 {
		expanded, err := e.expandTemplate(s, config.OutputNameTemplateFieldName, e.cfg.OutputNameTemplate)
		switch {
		case err != nil:
			e.log.Warn("Unable to prepare output filename", zap.Error(err))
		case len(strings.TrimSpace(expanded)) == 0:
			e.log.Warn("Output filename template expanded to nothing, using default")
		default:
			name = strings.TrimSpace(expanded)
		}
	}
	return config.CleanFileName(name) + fileExt
}

// Export builds document for the snapshot and writes it into dst, which is
// either a directory or full file name ending with .fb2. Returns path of the
// written file.
func (e *Exporter) Export(ctx context.Context, s *book.Snapshot, dst string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	doc, err := e.Build(s)
	if err != nil {
		return "", err
	}

	out := dst
	if !strings.EqualFold(filepath.Ext(dst), fileExt) {
		out = filepath.Join(dst, e.FileName(s))
	}
	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return "", fmt.Errorf("unable to create output directory: %w", err)
	}
	if err := writeDocument(doc, out); err != nil {
		return "", err
	}
	e.log.Debug("Book exported", zap.String("file", out), zap.Int("chapters", len(s.Chapters)))
	return out, nil
}

func writeDocument(doc *etree.Document, path string) error {
	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		return fmt.Errorf("unable to serialize document: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("unable to write document: %w", err)
	}
	return nil
}
