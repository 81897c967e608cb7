package media

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"grimoire/book"
	"grimoire/notice"
	"grimoire/prefs"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeLoad struct {
	ctx      context.Context
	resource string
	done     LoadFunc
}

// fakeBackend records what session asks for, loads are completed by tests.
type fakeBackend struct {
	mu       sync.Mutex
	handler  func(Event)
	loads    []fakeLoad
	resource string
	playing  bool
	position float64
	volume   float64
	muted    bool
	playErr  error
	unloads  int
	closed   bool
}

func (b *fakeBackend) SetHandler(fn func(Event)) { b.handler = fn }

func (b *fakeBackend) Load(ctx context.Context, resource string, done LoadFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.playing = false
	b.resource = resource
	b.loads = append(b.loads, fakeLoad{ctx: ctx, resource: resource, done: done})
}

func (b *fakeBackend) Unload() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.playing, b.resource = false, ""
	b.unloads++
}

func (b *fakeBackend) Play() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.playErr != nil {
		return b.playErr
	}
	b.playing = true
	return nil
}

func (b *fakeBackend) Pause() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.playing = false
}

func (b *fakeBackend) Seek(seconds float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.position = seconds
}

func (b *fakeBackend) SetVolume(volume float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.volume = volume
}

func (b *fakeBackend) SetMuted(muted bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.muted = muted
}

func (b *fakeBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

func (b *fakeBackend) load(i int) fakeLoad {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loads[i]
}

func (b *fakeBackend) loadCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.loads)
}

func (b *fakeBackend) isPlaying() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.playing
}

func (b *fakeBackend) setPlayErr(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.playErr = err
}

func chapter(id book.ID, url string, start float64) *book.Chapter {
	ch := &book.Chapter{ID: id, Title: string(id), Content: "text"}
	if len(url) > 0 {
		ch.Audio = &book.Audio{URL: url, Start: start}
	}
	return ch
}

type fixture struct {
	s     *Session
	b     *fakeBackend
	rec   *notice.Recorder
	store *prefs.MemoryStore
}

func newFixture(t *testing.T, muted bool) *fixture {
	t.Helper()
	log := zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCaller(), zap.AddCallerSkip(1)))
	store := &prefs.MemoryStore{}
	def := prefs.Defaults(nil)
	def.Muted = muted
	p := prefs.Open(store, def, log)
	b := &fakeBackend{}
	rec := notice.NewRecorder(nil)
	f := &fixture{s: NewSession(b, p, rec, log), b: b, rec: rec, store: store}
	t.Cleanup(func() { _ = f.s.Close() })
	return f
}

func TestShow_AutoplayFromStartOffset(t *testing.T) {
	f := newFixture(t, false)

	f.s.Show(chapter("b", "https://example.com/b.mp3", 10))
	st := f.s.State()
	if !st.Loading || st.Playing || st.Resource != "https://example.com/b.mp3" {
		t.Fatalf("state while loading = %+v", st)
	}

	f.b.load(0).done(180, nil)

	st = f.s.State()
	if st.Loading || !st.Playing || st.Time != 10 || st.Duration != 180 {
		t.Errorf("state after load = %+v", st)
	}
	if !f.b.isPlaying() || f.b.position != 10 {
		t.Errorf("backend playing=%v position=%v", f.b.playing, f.b.position)
	}
	if len(f.rec.Notices()) != 0 {
		t.Errorf("unexpected notices %v", f.rec.Notices())
	}
}

func TestShow_MutedDoesNotAutoplay(t *testing.T) {
	f := newFixture(t, true)

	f.s.Show(chapter("b", "https://example.com/b.mp3", 10))
	f.b.load(0).done(180, nil)

	if st := f.s.State(); st.Playing || st.Time != 10 {
		t.Errorf("state = %+v", st)
	}
	if f.b.isPlaying() {
		t.Error("backend started while muted")
	}
}

func TestShow_AutoplayRejected(t *testing.T) {
	f := newFixture(t, false)
	f.b.setPlayErr(ErrAutoplayBlocked)

	f.s.Show(chapter("a", "https://example.com/a.mp3", 0))
	f.b.load(0).done(60, nil)

	if st := f.s.State(); st.Playing || st.Loading || len(st.Err) != 0 {
		t.Errorf("state = %+v", st)
	}
	if len(f.rec.Notices()) != 0 {
		t.Error("rejected autoplay must only be logged")
	}
}

func TestShow_NoAudioReleases(t *testing.T) {
	f := newFixture(t, false)

	f.s.Show(chapter("a", "https://example.com/a.mp3", 0))
	f.b.load(0).done(60, nil)
	f.s.Show(chapter("b", "", 0))

	st := f.s.State()
	if st.Bound() || st.Playing || st.Time != 0 {
		t.Errorf("state = %+v", st)
	}
	if f.b.isPlaying() || f.b.unloads != 1 {
		t.Errorf("backend playing=%v unloads=%d", f.b.playing, f.b.unloads)
	}
	if st.Volume != prefs.DefaultVolume {
		t.Error("volume must survive release")
	}

	// mural page
	f.s.Show(nil)
	if f.b.unloads != 1 {
		t.Error("nothing bound, nothing to release")
	}
}

func TestShow_StaleLoadDiscarded(t *testing.T) {
	f := newFixture(t, false)

	f.s.Show(chapter("a", "https://example.com/a.mp3", 5))
	f.s.Show(chapter("b", "https://example.com/b.mp3", 10))

	first := f.b.load(0)
	if first.ctx.Err() == nil {
		t.Error("superseded load must be cancelled")
	}
	first.done(60, nil)
	if st := f.s.State(); !st.Loading || st.Resource != "https://example.com/b.mp3" || st.Playing {
		t.Fatalf("stale load applied: %+v", st)
	}

	f.b.load(1).done(120, nil)
	if st := f.s.State(); st.Loading || !st.Playing || st.Time != 10 || st.Chapter != "b" {
		t.Errorf("state = %+v", st)
	}
}

func TestShow_StaleLoadAfterRelease(t *testing.T) {
	f := newFixture(t, false)

	f.s.Show(chapter("a", "https://example.com/a.mp3", 5))
	f.s.Show(chapter("b", "", 0))
	f.b.load(0).done(60, nil)

	if st := f.s.State(); st.Bound() || st.Playing {
		t.Errorf("state = %+v", st)
	}
}

func TestShow_SameResourceJumpsToStart(t *testing.T) {
	f := newFixture(t, false)

	f.s.Show(chapter("a", "https://example.com/song.mp3", 5))
	f.b.load(0).done(60, nil)
	f.s.Seek(30)
	f.s.Show(chapter("b", "https://example.com/song.mp3", 12))

	if f.b.loadCount() != 1 {
		t.Error("same resource must not be reloaded")
	}
	st := f.s.State()
	if !st.Playing || st.Time != 12 || st.Chapter != "b" || st.Start != 12 {
		t.Errorf("state = %+v", st)
	}
	if !f.b.isPlaying() || f.b.position != 12 {
		t.Errorf("backend playing=%v position=%v", f.b.playing, f.b.position)
	}

	// paused song is started again like after a fresh load
	f.s.TogglePlayPause()
	f.s.Show(chapter("c", "https://example.com/song.mp3", 40))
	if st := f.s.State(); !st.Playing || st.Time != 40 || f.b.position != 40 {
		t.Errorf("state = %+v", st)
	}
}

func TestShow_SameResourceMuted(t *testing.T) {
	f := newFixture(t, true)

	f.s.Show(chapter("a", "https://example.com/song.mp3", 5))
	f.b.load(0).done(60, nil)
	f.s.TogglePlayPause()
	if !f.b.isPlaying() {
		t.Fatal("explicit play must start muted song")
	}
	f.s.Show(chapter("b", "https://example.com/song.mp3", 12))

	st := f.s.State()
	if st.Playing || st.Time != 12 || f.b.isPlaying() || f.b.position != 12 {
		t.Errorf("muted chapter change must pause at its start: %+v", st)
	}
}

func TestShow_SameResourceWhileLoading(t *testing.T) {
	f := newFixture(t, false)

	f.s.Show(chapter("a", "https://example.com/song.mp3", 5))
	f.s.Show(chapter("b", "https://example.com/song.mp3", 12))
	f.b.load(0).done(60, nil)

	if st := f.s.State(); !st.Playing || st.Time != 12 || st.Chapter != "b" || f.b.position != 12 {
		t.Errorf("state = %+v", st)
	}
}

func TestShow_StartPastKnownEnd(t *testing.T) {
	f := newFixture(t, false)

	f.s.Show(chapter("a", "https://example.com/a.mp3", 20))
	f.b.load(0).done(10, nil)

	st := f.s.State()
	if !st.Playing || st.Time != 0 {
		t.Errorf("state = %+v", st)
	}
	if f.b.position != st.Time {
		t.Errorf("backend position %v differs from session time %v", f.b.position, st.Time)
	}
}

func TestSetMuted_AppliesAutoplay(t *testing.T) {
	f := newFixture(t, false)

	f.s.Show(chapter("a", "https://example.com/a.mp3", 0))
	f.b.load(0).done(60, nil)
	f.s.Seek(25)

	f.s.ToggleMuted()
	if st := f.s.State(); st.Playing || !st.Muted || f.b.isPlaying() {
		t.Errorf("muting must pause: %+v", st)
	}
	f.s.ToggleMuted()
	if st := f.s.State(); !st.Playing || st.Muted || !f.b.isPlaying() || st.Time != 25 {
		t.Errorf("unmuting must resume in place: %+v", st)
	}

	f.b.setPlayErr(ErrAutoplayBlocked)
	f.s.SetMuted(true)
	f.s.SetMuted(false)
	if st := f.s.State(); st.Playing || len(st.Err) != 0 {
		t.Errorf("rejected autoplay must leave session paused: %+v", st)
	}
	if len(f.rec.Notices()) != 0 {
		t.Errorf("unexpected notices %v", f.rec.Notices())
	}
}

func TestShow_LoadError(t *testing.T) {
	f := newFixture(t, false)

	f.s.Show(chapter("a", "https://example.com/a.mp3", 0))
	f.b.load(0).done(0, errors.New("404 Not Found"))

	st := f.s.State()
	if st.Playing || st.Loading || len(st.Err) == 0 {
		t.Errorf("state = %+v", st)
	}
	if f.rec.Count(notice.MediaError) != 1 {
		t.Errorf("notices = %v", f.rec.Notices())
	}
}

func TestTogglePlayPause(t *testing.T) {
	f := newFixture(t, true)

	f.s.TogglePlayPause()
	if f.s.State().Playing {
		t.Fatal("nothing bound, nothing to play")
	}

	f.s.Show(chapter("a", "https://example.com/a.mp3", 0))
	f.b.load(0).done(60, nil)

	f.s.TogglePlayPause()
	if !f.s.State().Playing || !f.b.isPlaying() {
		t.Error("toggle did not start playback")
	}
	f.s.TogglePlayPause()
	if f.s.State().Playing || f.b.isPlaying() {
		t.Error("toggle did not pause playback")
	}

	f.b.setPlayErr(errors.New("resource unavailable"))
	f.s.TogglePlayPause()
	if st := f.s.State(); st.Playing || len(st.Err) == 0 {
		t.Errorf("state = %+v", st)
	}
	if f.rec.Count(notice.MediaError) != 1 {
		t.Errorf("notices = %v", f.rec.Notices())
	}
}

func TestTogglePlayPause_WhileLoading(t *testing.T) {
	f := newFixture(t, true)

	f.s.Show(chapter("a", "https://example.com/a.mp3", 3))
	f.s.TogglePlayPause()
	f.b.load(0).done(60, nil)

	if st := f.s.State(); !st.Playing || st.Time != 3 {
		t.Errorf("requested playback must start after load even muted: %+v", st)
	}
}

func TestSeek_Clamps(t *testing.T) {
	f := newFixture(t, true)

	f.s.Seek(10)
	if f.s.State().Time != 0 {
		t.Error("seek without resource changed time")
	}

	f.s.Show(chapter("a", "https://example.com/a.mp3", 0))
	f.b.load(0).done(180, nil)

	tests := []struct {
		in, want float64
	}{
		{-5, 0},
		{42.5, 42.5},
		{500, 180},
	}
	for _, tt := range tests {
		f.s.Seek(tt.in)
		if got := f.s.State().Time; got != tt.want {
			t.Errorf("Seek(%v) time = %v, want %v", tt.in, got, tt.want)
		}
	}
	f.s.SeekBy(-100)
	if got := f.s.State().Time; got != 80 {
		t.Errorf("SeekBy(-100) time = %v, want 80", got)
	}
}

func TestRestart(t *testing.T) {
	for _, playing := range []bool{false, true} {
		f := newFixture(t, true)
		f.s.Show(chapter("a", "https://example.com/a.mp3", 7))
		f.b.load(0).done(180, nil)
		if playing {
			f.s.TogglePlayPause()
		}
		f.s.Seek(100)

		f.s.Restart()
		st := f.s.State()
		if st.Time != 7 || !st.Playing {
			t.Errorf("playing=%v: state after restart = %+v", playing, st)
		}
		if f.b.position != 7 {
			t.Errorf("backend position = %v", f.b.position)
		}
	}
}

func TestPreferencesPersisted(t *testing.T) {
	f := newFixture(t, false)

	f.s.SetVolume(0.9)
	f.s.ToggleMuted()
	f.s.AdjustVolume(0.5)

	st := f.s.State()
	if !st.Muted || st.Volume != 1 {
		t.Errorf("state = %+v", st)
	}
	if !f.b.muted || f.b.volume != 1 {
		t.Errorf("backend muted=%v volume=%v", f.b.muted, f.b.volume)
	}

	p := prefs.Open(f.store, prefs.Defaults(nil), zaptest.NewLogger(t))
	next := NewSession(&fakeBackend{}, p, nil, zaptest.NewLogger(t))
	defer next.Close()
	if st := next.State(); !st.Muted || st.Volume != 1 {
		t.Errorf("next session state = %+v", st)
	}
}

func TestEvents(t *testing.T) {
	f := newFixture(t, false)

	f.s.Show(chapter("a", "https://example.com/a.mp3", 0))
	f.b.load(0).done(60, nil)

	var updates int
	f.s.Subscribe(func(State) { updates++ })

	f.b.handler(Event{Kind: TimeUpdate, Resource: "https://example.com/a.mp3", Time: 1.5})
	f.b.handler(Event{Kind: TimeUpdate, Resource: "https://example.com/old.mp3", Time: 50})
	if got := f.s.State().Time; got != 1.5 {
		t.Errorf("Time = %v, want 1.5", got)
	}
	if updates != 1 {
		t.Errorf("updates = %d, want 1", updates)
	}

	f.b.handler(Event{Kind: Ended, Resource: "https://example.com/a.mp3"})
	if st := f.s.State(); st.Playing || st.Time != 60 {
		t.Errorf("state after end = %+v", st)
	}

	f.s.TogglePlayPause()
	f.b.handler(Event{Kind: Failed, Resource: "https://example.com/a.mp3", Err: errors.New("decode error")})
	if st := f.s.State(); st.Playing || st.Err != "decode error" {
		t.Errorf("state after failure = %+v", st)
	}
	if f.rec.Count(notice.MediaError) != 1 {
		t.Errorf("notices = %v", f.rec.Notices())
	}
}

func TestClose(t *testing.T) {
	f := newFixture(t, false)
	f.s.Show(chapter("a", "https://example.com/a.mp3", 0))

	if err := f.s.Close(); err != nil {
		t.Fatal(err)
	}
	f.b.load(0).done(60, nil)
	f.s.Show(chapter("b", "https://example.com/b.mp3", 0))

	if f.b.isPlaying() || f.b.loadCount() != 1 || !f.b.closed {
		t.Error("closed session must not drive backend")
	}
	if err := f.s.Close(); err != nil {
		t.Error("second close must be no-op")
	}
}

func TestFormatClock(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0:00"},
		{9.9, "0:09"},
		{65, "1:05"},
		{3600, "60:00"},
		{-3, "0:00"},
	}
	for _, tt := range tests {
		if got := FormatClock(tt.in); got != tt.want {
			t.Errorf("FormatClock(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
