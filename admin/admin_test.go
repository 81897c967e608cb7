package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"grimoire/config"
	"grimoire/library"
	"grimoire/state"
)

const bookJSON = `{
  "chapters": [
    {"id": 1, "title": "Prefacio", "content": "En las páginas que siguen...", "postIts": [], "photos": [], "cornerNotes": [], "songUrl": "", "songStartTime": 0},
    {"id": 2, "title": "Capítulo 10", "content": "Diez", "postIts": [], "photos": [], "cornerNotes": [], "songUrl": "https://example.com/diez.mp3", "songStartTime": 75},
    {
      "id": 3,
      "title": "Capítulo 9",
      "content": "Nueve",
      "postIts": [{"id": 1, "text": "Volver al prefacio", "x": 70, "y": 30, "color": "#f7e27a", "linkToChapterId": 1}],
      "photos": [],
      "cornerNotes": [{"id": 2, "text": "Perdida", "position": "bottom-left", "linkToChapterId": 42}],
      "songUrl": "",
      "songStartTime": 0
    }
  ],
  "finalMural": {"id": 7, "title": "Los nombres", "author": "Alguien", "women": [{"id": 1, "name": "María", "date": "1890-1960", "memory": "Luchó"}]}
}`

type call struct {
	path string
	body map[string]any
}

type fakeSite struct {
	mu    sync.Mutex
	calls []call
}

func (f *fakeSite) posts() []call {
	f.mu.Lock()
	defer f.mu.Unlock()

	var res []call
	for _, c := range f.calls {
		if c.body != nil {
			res = append(res, c)
		}
	}
	return res
}

func (f *fakeSite) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c := call{path: strings.TrimPrefix(r.URL.Path, "/api/")}
	if data, _ := io.ReadAll(r.Body); len(data) > 0 {
		_ = json.Unmarshal(data, &c.body)
	}
	f.mu.Lock()
	f.calls = append(f.calls, c)
	f.mu.Unlock()

	if r.Method == http.MethodGet {
		_, _ = io.WriteString(w, bookJSON)
		return
	}
	_, _ = io.WriteString(w, `{"success": true}`)
}

type fixture struct {
	site *fakeSite
	ctx  context.Context
	env  *state.LocalEnv
	out  *bytes.Buffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	site := &fakeSite{}
	srv := httptest.NewServer(site)
	t.Cleanup(srv.Close)

	cfg, err := config.LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	cfg.Remote.BaseURL = srv.URL + "/api/"
	cfg.Remote.Token = ""
	cfg.Cache.Enable = false
	cfg.Admin.User = "admin"
	cfg.Admin.Password = "pw"

	ctx := state.ContextWithEnv(context.Background())
	env := state.EnvFromContext(ctx)
	env.Cfg = cfg
	env.Log = zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCaller()))
	t.Cleanup(func() { _ = env.Close() })

	return &fixture{site: site, ctx: ctx, env: env, out: &bytes.Buffer{}}
}

func (f *fixture) run(args ...string) error {
	protected := func(name string, action cli.ActionFunc, flags ...cli.Flag) *cli.Command {
		return &cli.Command{Name: name, Before: Authorize, Action: action, Flags: append(CredentialFlags(), flags...)}
	}
	app := &cli.Command{
		Name:   "grimoire",
		Writer: f.out,
		Commands: []*cli.Command{
			{Name: "chapters", Commands: []*cli.Command{
				{Name: "list", Action: ListChapters, Flags: []cli.Flag{&cli.StringFlag{Name: "sort", Value: "position"}}},
				{Name: "show", Action: ShowChapter},
				protected("save", SaveChapter),
				protected("delete", DeleteChapter),
			}},
			{Name: "mural", Commands: []*cli.Command{
				{Name: "show", Action: ShowMural},
				protected("save", SaveMural),
			}},
			{Name: "book", Commands: []*cli.Command{
				protected("set-info", SetBookInfo, &cli.StringFlag{Name: "title"}, &cli.StringFlag{Name: "author"}),
			}},
			{Name: "links", Commands: []*cli.Command{
				{Name: "check", Action: CheckLinks, Flags: []cli.Flag{&cli.BoolFlag{Name: "strict"}}},
			}},
			{Name: "export", Action: Export},
		},
	}
	f.out.Reset()
	return app.Run(f.ctx, append([]string{"grimoire"}, args...))
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	fname := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(fname, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return fname
}

func TestListChapters(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		order []string
	}{
		{"position", []string{"chapters", "list"}, []string{"Prefacio", "Capítulo 10", "Capítulo 9"}},
		{"title", []string{"chapters", "list", "--sort", "title"}, []string{"Capítulo 9", "Capítulo 10", "Prefacio"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if err := f.run(tt.args...); err != nil {
				t.Fatalf("run() error = %v", err)
			}
			out := f.out.String()
			last := -1
			for _, title := range tt.order {
				idx := strings.Index(out, title+" ")
				if idx < 0 {
					t.Fatalf("title %q not found in\n%s", title, out)
				}
				if idx < last {
					t.Errorf("title %q is out of order in\n%s", title, out)
				}
				last = idx
			}
			if !strings.Contains(out, "3 chapters, mural with 1 names") {
				t.Errorf("summary not found in\n%s", out)
			}
			if !strings.Contains(out, "mp3 @1:15") {
				t.Errorf("song marker not found in\n%s", out)
			}
		})
	}

	t.Run("bad order", func(t *testing.T) {
		f := newFixture(t)
		if err := f.run("chapters", "list", "--sort", "size"); err == nil {
			t.Error("expected error for unknown order")
		}
	})
}

func TestShowChapter(t *testing.T) {
	f := newFixture(t)

	if err := f.run("chapters", "show", "3"); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	out := f.out.String()
	for _, want := range []string{"Page 3 of 4", "# Capítulo 9", `-> "Prefacio"`, "-> BROKEN (42)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}

	if err := f.run("chapters", "show", "99"); !errors.Is(err, library.ErrUnknownChapter) {
		t.Errorf("unknown chapter error = %v, want ErrUnknownChapter", err)
	}
}

func TestCheckLinks(t *testing.T) {
	f := newFixture(t)

	if err := f.run("links", "check"); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if out := f.out.String(); !strings.Contains(out, "missing chapter 42") {
		t.Errorf("broken link not reported\n%s", out)
	}
	if err := f.run("links", "check", "--strict"); !errors.Is(err, ErrBrokenLinks) {
		t.Errorf("strict error = %v, want ErrBrokenLinks", err)
	}
}

func TestAuthorize(t *testing.T) {
	fname := writeFile(t, "chapter.yaml", "title: Nuevo\ncontent: Texto\n")

	tests := []struct {
		name string
		args []string
		env  map[string]string
		ok   bool
	}{
		{"no credentials", nil, nil, false},
		{"wrong password", []string{"--user", "admin", "--password", "nope"}, nil, false},
		{"wrong user", []string{"-u", "root", "-p", "pw"}, nil, false},
		{"flags", []string{"-u", "admin", "-p", "pw"}, nil, true},
		{"environment", nil, map[string]string{"GRIMOIRE_USER": "admin", "GRIMOIRE_PASSWORD": "pw"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			args := append(append([]string{"chapters", "save"}, tt.args...), fname)
			err := f.run(args...)
			if tt.ok {
				if err != nil {
					t.Fatalf("run() error = %v", err)
				}
				if n := len(f.site.posts()); n != 1 {
					t.Errorf("posts = %d, want 1", n)
				}
				return
			}
			if !errors.Is(err, ErrNotAuthorized) {
				t.Errorf("run() error = %v, want ErrNotAuthorized", err)
			}
			if n := len(f.site.posts()); n != 0 {
				t.Errorf("posts = %d, want none", n)
			}
		})
	}
}

func TestSaveChapter(t *testing.T) {
	f := newFixture(t)
	fname := writeFile(t, "chapter.yaml", `title: Capítulo 11
content: |
  Once
postIts:
  - {text: Volver, x: 10, y: 20, linkToChapterId: 1}
`)
	if err := f.run("chapters", "save", "-u", "admin", "-p", "pw", fname); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	posts := f.site.posts()
	if len(posts) != 1 || posts[0].path != "save_chapter.php" {
		t.Fatalf("posts = %+v", posts)
	}
	if got := posts[0].body["title"]; got != "Capítulo 11" {
		t.Errorf("title = %v", got)
	}
	if id, _ := posts[0].body["id"].(string); !strings.HasPrefix(id, "tmp-") {
		t.Errorf("new chapter id = %v, want temporary", posts[0].body["id"])
	}

	t.Run("invalid", func(t *testing.T) {
		f := newFixture(t)
		fname := writeFile(t, "chapter.yaml", "title: Sin texto\n")
		if err := f.run("chapters", "save", "-u", "admin", "-p", "pw", fname); err == nil {
			t.Error("expected validation error")
		}
		if n := len(f.site.posts()); n != 0 {
			t.Errorf("posts = %d, want none", n)
		}
	})
}

func TestDeleteChapter(t *testing.T) {
	f := newFixture(t)

	if err := f.run("chapters", "delete", "-u", "admin", "-p", "pw", "1"); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	posts := f.site.posts()
	if len(posts) != 1 || posts[0].path != "delete_chapter.php" {
		t.Fatalf("posts = %+v", posts)
	}
	if got := posts[0].body["id"]; got != float64(1) {
		t.Errorf("id = %v, want 1", got)
	}

	if err := f.run("chapters", "delete", "-u", "admin", "-p", "pw", "99"); !errors.Is(err, library.ErrUnknownChapter) {
		t.Errorf("unknown chapter error = %v, want ErrUnknownChapter", err)
	}
}

func TestMural(t *testing.T) {
	f := newFixture(t)

	if err := f.run("mural", "show"); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if out := f.out.String(); !strings.Contains(out, "1. María (1890-1960)") || !strings.Contains(out, "Author: Alguien") {
		t.Errorf("unexpected mural output\n%s", out)
	}

	fname := writeFile(t, "women.yaml", "- {name: Carmen, date: \"1901\", memory: Maestra}\n- {id: 1, name: María, date: 1890-1960, memory: Luchó}\n")
	if err := f.run("mural", "save", "-u", "admin", "-p", "pw", fname); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	posts := f.site.posts()
	if len(posts) != 1 || posts[0].path != "save_mural.php" {
		t.Fatalf("posts = %+v", posts)
	}
	body := posts[0].body
	if body["title"] != "Los nombres" || body["author"] != "Alguien" {
		t.Errorf("book information was not kept: %v", body)
	}
	if women, _ := body["women"].([]any); len(women) != 2 {
		t.Errorf("women = %v, want 2 entries", body["women"])
	}
}

func TestSetBookInfo(t *testing.T) {
	f := newFixture(t)

	if err := f.run("book", "set-info", "-u", "admin", "-p", "pw", "--author", "Alguien"); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if n := len(f.site.posts()); n != 0 {
		t.Errorf("unchanged information was sent, posts = %d", n)
	}

	if err := f.run("book", "set-info", "-u", "admin", "-p", "pw", "--title", "Nuevo título"); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	posts := f.site.posts()
	if len(posts) != 1 {
		t.Fatalf("posts = %+v", posts)
	}
	body := posts[0].body
	if body["title"] != "Nuevo título" || body["author"] != "Alguien" {
		t.Errorf("unexpected book information: %v", body)
	}
	if women, _ := body["women"].([]any); len(women) != 1 {
		t.Errorf("women were not kept: %v", body["women"])
	}
}

func TestExport(t *testing.T) {
	f := newFixture(t)
	dir := t.TempDir()

	if err := f.run("export", dir); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.fb2"))
	if err != nil || len(files) != 1 {
		t.Fatalf("exported files = %v, %v", files, err)
	}
	data, err := os.ReadFile(files[0])
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"<FictionBook", "Capítulo 9", "María"} {
		if !bytes.Contains(data, []byte(want)) {
			t.Errorf("exported document missing %q", want)
		}
	}
}
