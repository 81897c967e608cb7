package navigate

import (
	"testing"

	"go.uber.org/zap/zaptest"

	"grimoire/book"
	"grimoire/common"
	"grimoire/notice"
)

func abcSnapshot() *book.Snapshot {
	return &book.Snapshot{
		Chapters: []book.Chapter{
			{ID: "a", Title: "A", Content: "a", Overlays: []book.Overlay{
				&book.StickyNote{ID: "1", Text: "go to C", Link: book.LinkTo("c")},
				&book.Photo{ID: "2", Caption: "no link"},
				&book.CornerNote{ID: "3", Text: "stale", Position: common.CornerPositionTopLeft, Link: book.LinkTo("zz")},
			}},
			{ID: "b", Title: "B", Content: "b", Overlays: []book.Overlay{
				&book.StickyNote{ID: "4", Text: "self", Link: book.LinkTo("b")},
			}},
			{ID: "c", Title: "C", Content: "c"},
		},
	}
}

func newTestResolver(t *testing.T, s *book.Snapshot) (*Resolver, *Engine, *manualClock, *notice.Recorder) {
	t.Helper()
	e, clock := newTestEngine(t, s.Pages())
	rec := notice.NewRecorder(nil)
	src := SnapshotFunc(func() *book.Snapshot { return s })
	return NewResolver(src, e, rec, zaptest.NewLogger(t)), e, clock, rec
}

func TestResolve_Scenario(t *testing.T) {
	s := abcSnapshot()
	r, e, clock, rec := newTestResolver(t, s)

	link := s.Chapters[0].Overlays[0].Reference()
	if got := r.Resolve(link); got != Jumped {
		t.Fatalf("Resolve() = %v, want jumped", got)
	}
	if h := e.History(); len(h) != 1 || h[0] != 0 {
		t.Errorf("History() = %v, want [0]", h)
	}
	clock.fire()
	if cur := e.State().Current; cur != 2 {
		t.Fatalf("Current = %d, want 2", cur)
	}

	if !e.GoBack() {
		t.Fatal("back rejected")
	}
	clock.fire()
	st := e.State()
	if st.Current != 0 || st.CanGoBack {
		t.Errorf("after back = %+v", st)
	}
	if e.GoBack() {
		t.Error("second back accepted")
	}
	if len(rec.Notices()) != 0 {
		t.Errorf("unexpected notices: %v", rec.Notices())
	}
}

func TestResolve_NoLink(t *testing.T) {
	s := abcSnapshot()
	r, e, clock, rec := newTestResolver(t, s)

	if got := r.Resolve(s.Chapters[0].Overlays[1].Reference()); got != Unlinked {
		t.Errorf("Resolve() = %v, want unlinked", got)
	}
	clock.fire()
	if st := e.State(); st.Current != 0 || st.CanGoBack {
		t.Errorf("state changed: %+v", st)
	}
	if n := len(rec.Notices()); n != 1 || rec.Count(notice.NoLink) != 1 {
		t.Errorf("notices = %v", rec.Notices())
	}
}

func TestResolve_Broken(t *testing.T) {
	s := abcSnapshot()
	r, e, clock, rec := newTestResolver(t, s)

	if got := r.Resolve(book.LinkTo("zz")); got != Broken {
		t.Errorf("Resolve() = %v, want broken", got)
	}
	clock.fire()
	if st := e.State(); st.Current != 0 || st.CanGoBack {
		t.Errorf("state changed: %+v", st)
	}
	if n := len(rec.Notices()); n != 1 || rec.Count(notice.BrokenLink) != 1 {
		t.Errorf("notices = %v", rec.Notices())
	}
}

func TestResolve_Dropped(t *testing.T) {
	s := abcSnapshot()
	r, e, clock, rec := newTestResolver(t, s)

	e.GoNext()
	if got := r.Resolve(book.LinkTo("c")); got != Dropped {
		t.Errorf("Resolve() = %v, want dropped", got)
	}
	clock.fire()
	if st := e.State(); st.Current != 1 || st.CanGoBack {
		t.Errorf("state = %+v", st)
	}
	if len(rec.Notices()) != 0 {
		t.Error("dropped navigation must be silent")
	}
}

func TestResolve_UsesCurrentSnapshot(t *testing.T) {
	s := abcSnapshot()
	cur := s
	e, clock := newTestEngine(t, s.Pages())
	rec := notice.NewRecorder(nil)
	r := NewResolver(SnapshotFunc(func() *book.Snapshot { return cur }), e, rec, zaptest.NewLogger(t))

	// chapter C deleted remotely, snapshot replaced
	cur = &book.Snapshot{Chapters: s.Chapters[:2]}
	e.SetTotal(cur.Pages())

	if got := r.Resolve(book.LinkTo("c")); got != Broken {
		t.Errorf("Resolve() = %v, want broken", got)
	}
	clock.fire()
	if e.State().Current != 0 {
		t.Error("navigation happened for deleted chapter")
	}
}

func TestBrokenRefs(t *testing.T) {
	refs := BrokenRefs(abcSnapshot())
	if len(refs) != 2 {
		t.Fatalf("BrokenRefs() = %v", refs)
	}
	if refs[0].Chapter != "a" || refs[0].Self || refs[0].Item.ItemID() != "3" {
		t.Errorf("first = %+v", refs[0])
	}
	if refs[1].Chapter != "b" || !refs[1].Self || refs[1].Page != 1 {
		t.Errorf("second = %+v", refs[1])
	}
	if BrokenRefs(nil) != nil {
		t.Error("BrokenRefs(nil) must be empty")
	}
	if s := refs[1].String(); s != `page 2 "B": sticky-note 4 links to itself` {
		t.Errorf("String() = %q", s)
	}
}
