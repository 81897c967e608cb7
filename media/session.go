package media

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"grimoire/book"
	"grimoire/notice"
	"grimoire/prefs"
)

// State is what transport UI renders.
type State struct {
	// Bound resource, empty when displayed chapter has no audio.
	Resource string
	Chapter  book.ID
	// Start is the chapter configured offset playback begins from.
	Start    float64
	Loading  bool
	Playing  bool
	Time     float64
	Duration float64
	Volume   float64
	Muted    bool
	// Err keeps last load or playback failure of the bound resource.
	Err string
}

// Bound reports whether any resource is bound.
func (s State) Bound() bool {
	return len(s.Resource) > 0
}

// Session is the only owner of the audio backend. It follows displayed
// chapter, guards against stale asynchronous loads and persists sound
// preferences. Failures never escape as errors: they are logged, reported
// through notices and leave session paused.
type Session struct {
	log     *zap.Logger
	backend Backend
	prefs   *prefs.Prefs
	sink    notice.Sink

	ctx  context.Context
	stop context.CancelFunc

	mu         sync.Mutex
	st         State
	generation uint64
	cancelLoad context.CancelFunc
	// play was requested while resource was still loading
	wantPlay bool
	closed   bool

	notifyMu sync.Mutex
	subs     map[int]func(State)
	subID    int
}

// NewSession takes ownership of backend, it is closed by Session.Close.
func NewSession(backend Backend, p *prefs.Prefs, sink notice.Sink, log *zap.Logger) *Session {
	if sink == nil {
		sink = notice.Discard
	}
	ctx, stop := context.WithCancel(context.Background())
	cur := p.Get()
	s := &Session{
		log:     log.Named("media"),
		backend: backend,
		prefs:   p,
		sink:    sink,
		ctx:     ctx,
		stop:    stop,
		st:      State{Volume: cur.Volume, Muted: cur.Muted},
		subs:    make(map[int]func(State)),
	}
	backend.SetVolume(cur.Volume)
	backend.SetMuted(cur.Muted)
	backend.SetHandler(s.handle)
	return s
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st
}

// Subscribe registers function called on every state change. It must not
// call back into the session synchronously. Returned function unsubscribes.
func (s *Session) Subscribe(fn func(State)) func() {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.subID++
	id := s.subID
	s.subs[id] = fn
	return func() {
		s.notifyMu.Lock()
		defer s.notifyMu.Unlock()
		delete(s.subs, id)
	}
}

// publish is called with s.mu held and releases it.
func (s *Session) publish() {
	st := s.st
	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()

	for _, fn := range s.subs {
		fn(st)
	}
}

func (s *Session) report(kind notice.Kind, title string, err error) {
	s.sink.Notify(notice.New(kind, title, err.Error()))
}

// release drops bound resource and invalidates load in flight, s.mu must be
// held.
func (s *Session) release() {
	s.generation++
	if s.cancelLoad != nil {
		s.cancelLoad()
		s.cancelLoad = nil
	}
	s.wantPlay = false
	s.st = State{Volume: s.st.Volume, Muted: s.st.Muted}
}

// Show follows change of displayed chapter, nil means page without chapter
// (cover or mural). Chapter without audio stops playback and releases the
// resource. Chapter with different audio starts loading it, previous load in
// flight is superseded. Chapter bound to the same audio is not reloaded, but
// playback jumps to its start offset and follows mute flag like a fresh load.
func (s *Session) Show(ch *book.Chapter) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	if !ch.HasAudio() {
		if !s.st.Bound() {
			s.mu.Unlock()
			return
		}
		s.log.Debug("Releasing audio", zap.String("resource", s.st.Resource))
		s.backend.Unload()
		s.release()
		s.publish()
		return
	}

	if ch.Audio.URL == s.st.Resource {
		s.st.Chapter, s.st.Start = ch.ID, ch.Audio.Start
		if s.st.Loading {
			// loaded seeks to the new start
			s.st.Time = ch.Audio.Start
			s.publish()
			return
		}
		if len(s.st.Err) == 0 {
			s.st.Time = clamp(ch.Audio.Start, s.st.Duration)
			s.backend.Seek(s.st.Time)
			s.autoplay()
		}
		s.publish()
		return
	}

	s.release()
	gen := s.generation
	ctx, cancel := context.WithCancel(s.ctx)
	s.cancelLoad = cancel
	s.st.Resource = ch.Audio.URL
	s.st.Chapter = ch.ID
	s.st.Start = ch.Audio.Start
	s.st.Time = ch.Audio.Start
	s.st.Loading = true

	s.log.Debug("Loading audio", zap.Stringer("chapter", ch.ID), zap.String("resource", ch.Audio.URL), zap.Uint64("generation", gen))
	s.backend.Load(ctx, ch.Audio.URL, func(duration float64, err error) {
		s.loaded(gen, duration, err)
	})
	s.publish()
}

func (s *Session) loaded(gen uint64, duration float64, err error) {
	s.mu.Lock()
	if gen != s.generation || s.closed {
		s.mu.Unlock()
		s.log.Debug("Stale audio load discarded", zap.Uint64("generation", gen), zap.Error(err))
		return
	}
	if s.cancelLoad != nil {
		s.cancelLoad()
		s.cancelLoad = nil
	}
	s.st.Loading = false

	if err != nil {
		s.log.Warn("Unable to load audio", zap.String("resource", s.st.Resource), zap.Error(err))
		s.st.Err = err.Error()
		s.st.Playing = false
		s.wantPlay = false
		s.publish()
		s.report(notice.MediaError, "Unable to load song", err)
		return
	}

	s.st.Duration = duration
	s.st.Time = clamp(s.st.Start, duration)
	s.backend.Seek(s.st.Time)

	requested := s.wantPlay
	s.wantPlay = false
	if s.st.Muted && !requested {
		s.publish()
		return
	}
	s.rewindIfEnded()
	if err := s.backend.Play(); err != nil {
		s.st.Playing = false
		if requested {
			s.log.Warn("Unable to start playback", zap.Error(err))
			s.publish()
			s.report(notice.MediaError, "Unable to play song", err)
			return
		}
		// autoplay degrades to paused silently
		s.log.Info("Autoplay rejected, staying paused", zap.String("resource", s.st.Resource), zap.Error(err))
		s.publish()
		return
	}
	s.st.Playing = true
	s.publish()
}

// clamp keeps t inside of the song, zero duration means length is unknown.
func clamp(t, duration float64) float64 {
	if duration > 0 {
		t = min(t, duration)
	}
	return max(t, 0)
}

// rewindIfEnded starts finished song over, s.mu must be held.
func (s *Session) rewindIfEnded() {
	if s.st.Duration > 0 && s.st.Time >= s.st.Duration {
		s.st.Time = 0
		s.backend.Seek(0)
	}
}

// autoplay applies mute flag to loaded resource: muted session pauses,
// otherwise playback starts. Rejected autoplay leaves session paused and is
// only logged. s.mu must be held.
func (s *Session) autoplay() {
	if s.st.Muted {
		if s.st.Playing {
			s.backend.Pause()
			s.st.Playing = false
		}
		return
	}
	if s.st.Playing {
		return
	}
	s.rewindIfEnded()
	if err := s.backend.Play(); err != nil {
		s.log.Info("Autoplay rejected, staying paused", zap.String("resource", s.st.Resource), zap.Error(err))
		return
	}
	s.st.Playing = true
}

// play starts backend, s.mu must be held. Error is returned for the caller
// to report after the lock is released.
func (s *Session) play() error {
	s.rewindIfEnded()
	if err := s.backend.Play(); err != nil {
		s.st.Playing = false
		s.st.Err = err.Error()
		s.log.Warn("Playback failed", zap.String("resource", s.st.Resource), zap.Error(err))
		return err
	}
	s.st.Playing = true
	s.st.Err = ""
	return nil
}

// TogglePlayPause flips playback. Backend failure is reported as a notice and
// leaves session paused.
func (s *Session) TogglePlayPause() {
	s.mu.Lock()
	if !s.st.Bound() {
		s.mu.Unlock()
		return
	}
	if s.st.Loading {
		s.wantPlay = !s.wantPlay
		s.mu.Unlock()
		return
	}
	if s.st.Playing {
		s.backend.Pause()
		s.st.Playing = false
		s.publish()
		return
	}
	err := s.play()
	s.publish()
	if err != nil {
		s.report(notice.MediaError, "Unable to play song", err)
	}
}

// Seek moves playback position, value is clamped into [0, duration].
func (s *Session) Seek(seconds float64) {
	s.mu.Lock()
	if !s.st.Bound() || s.st.Loading {
		s.mu.Unlock()
		return
	}
	s.st.Time = clamp(seconds, s.st.Duration)
	s.backend.Seek(s.st.Time)
	s.publish()
}

// SeekBy moves playback position relative to the current one.
func (s *Session) SeekBy(delta float64) {
	s.mu.Lock()
	t := s.st.Time + delta
	s.mu.Unlock()
	s.Seek(t)
}

// Restart rewinds to the chapter configured offset and makes sure song is
// playing.
func (s *Session) Restart() {
	s.mu.Lock()
	if !s.st.Bound() {
		s.mu.Unlock()
		return
	}
	if s.st.Loading {
		s.wantPlay = true
		s.mu.Unlock()
		return
	}
	s.st.Time = clamp(s.st.Start, s.st.Duration)
	s.backend.Seek(s.st.Time)
	var err error
	if !s.st.Playing {
		err = s.play()
	}
	s.publish()
	if err != nil {
		s.report(notice.MediaError, "Unable to play song", err)
	}
}

// SetMuted changes mute flag and remembers it for following sessions. Muting
// pauses loaded song, unmuting starts it.
func (s *Session) SetMuted(muted bool) {
	s.mu.Lock()
	s.st.Muted = muted
	s.backend.SetMuted(muted)
	if s.st.Bound() && !s.st.Loading && len(s.st.Err) == 0 && !s.closed {
		s.autoplay()
	}
	s.publish()
	if err := s.prefs.SetMuted(muted); err != nil {
		s.log.Debug("Mute preference not saved", zap.Error(err))
	}
}

// ToggleMuted flips mute flag.
func (s *Session) ToggleMuted() {
	s.mu.Lock()
	muted := !s.st.Muted
	s.mu.Unlock()
	s.SetMuted(muted)
}

// SetVolume changes volume (clamped into [0, 1]) and remembers it for
// following sessions.
func (s *Session) SetVolume(volume float64) {
	volume = prefs.ClampVolume(volume)
	s.mu.Lock()
	s.st.Volume = volume
	s.backend.SetVolume(volume)
	s.publish()
	if err := s.prefs.SetVolume(volume); err != nil {
		s.log.Debug("Volume preference not saved", zap.Error(err))
	}
}

// AdjustVolume changes volume by delta.
func (s *Session) AdjustVolume(delta float64) {
	s.mu.Lock()
	v := s.st.Volume + delta
	s.mu.Unlock()
	s.SetVolume(v)
}

// handle applies backend events in arrival order. Events of resources no
// longer bound are ignored.
func (s *Session) handle(ev Event) {
	s.mu.Lock()
	if s.closed || ev.Resource != s.st.Resource || s.st.Loading {
		s.mu.Unlock()
		return
	}
	switch ev.Kind {
	case TimeUpdate:
		if !s.st.Playing {
			s.mu.Unlock()
			return
		}
		s.st.Time = clamp(ev.Time, s.st.Duration)
		s.publish()
	case Ended:
		s.st.Playing = false
		s.st.Time = s.st.Duration
		s.publish()
	case Failed:
		err := ev.Err
		if err == nil {
			err = errors.New("playback failed")
		}
		s.log.Warn("Playback error", zap.String("resource", ev.Resource), zap.Error(err))
		s.st.Playing = false
		s.st.Err = err.Error()
		s.publish()
		s.report(notice.MediaError, "Song stopped", err)
	default:
		s.mu.Unlock()
		s.log.Debug("Unknown media event", zap.Stringer("kind", ev.Kind))
	}
}

// Close stops playback and releases backend.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.release()
	s.mu.Unlock()

	s.stop()
	if err := s.backend.Close(); err != nil {
		return fmt.Errorf("unable to close audio backend: %w", err)
	}
	return nil
}
