// Package navigate holds page navigation state of an open book and resolves
// cross-references between chapters.
package navigate

import (
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultTransition is how long page flip takes.
const DefaultTransition = 700 * time.Millisecond

// PageKind tells what is displayed at the current index.
type PageKind int

const (
	ChapterPage PageKind = iota
	MuralPage
)

func (k PageKind) String() string {
	if k == MuralPage {
		return "mural"
	}
	return "chapter"
}

// State is an observable snapshot of the engine.
type State struct {
	Current       int
	Total         int
	Transitioning bool
	// Target of the transition in progress, equals Current when idle.
	Target    int
	CanGoBack bool
	Depth     int
}

// Kind is derived from position: the last page is always the mural.
func (s State) Kind() PageKind {
	if s.Current == s.Total-1 {
		return MuralPage
	}
	return ChapterPage
}

// Scheduler runs f after d and returns function cancelling it. It must not
// call f synchronously.
type Scheduler func(d time.Duration, f func()) (cancel func() bool)

func timerScheduler(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

type Option func(*Engine)

// WithTransition sets duration of the page flip.
func WithTransition(d time.Duration) Option {
	return func(e *Engine) {
		if d >= 0 {
			e.delay = d
		}
	}
}

// WithScheduler replaces timer based scheduling, tests use it to fire
// transitions deterministically.
func WithScheduler(s Scheduler) Option {
	return func(e *Engine) {
		if s != nil {
			e.schedule = s
		}
	}
}

// WithStart positions engine on a page without transition.
func WithStart(page int) Option {
	return func(e *Engine) {
		e.start = page
	}
}

// Engine keeps current page index and history of cross-reference jumps. It
// is either idle or in transition; every navigation request arriving during
// transition is dropped. Requests pointing outside of the book are dropped as
// well. None of that is reported as error since such requests come from
// controls which should have been disabled.
type Engine struct {
	log      *zap.Logger
	delay    time.Duration
	schedule Scheduler
	start    int

	mu            sync.Mutex
	total         int
	current       int
	target        int
	transitioning bool
	generation    uint64
	cancel        func() bool
	history       []int

	// serializes delivery so subscribers observe changes in order
	notifyMu sync.Mutex
	subs     map[int]func(State)
	subID    int
}

// NewEngine creates engine for book with total pages (chapters plus mural).
func NewEngine(total int, log *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		log:      log.Named("navigate"),
		delay:    DefaultTransition,
		schedule: timerScheduler,
		total:    max(total, 1),
		subs:     make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.start > 0 && e.start < e.total {
		e.current = e.start
	}
	e.target = e.current
	return e
}

func (e *Engine) state() State {
	return State{
		Current:       e.current,
		Total:         e.total,
		Transitioning: e.transitioning,
		Target:        e.target,
		CanGoBack:     len(e.history) > 0,
		Depth:         len(e.history),
	}
}

// State returns current engine state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state()
}

// History returns copy of back stack, most recent last.
func (e *Engine) History() []int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.history)
}

// Subscribe registers function called on every state change. It must not
// call back into the engine synchronously. Returned function unsubscribes.
func (e *Engine) Subscribe(fn func(State)) func() {
	e.notifyMu.Lock()
	defer e.notifyMu.Unlock()

	e.subID++
	id := e.subID
	e.subs[id] = fn
	return func() {
		e.notifyMu.Lock()
		defer e.notifyMu.Unlock()
		delete(e.subs, id)
	}
}

// publish is called with e.mu held and releases it.
func (e *Engine) publish() {
	st := e.state()
	e.notifyMu.Lock()
	e.mu.Unlock()
	defer e.notifyMu.Unlock()

	for _, fn := range e.subs {
		fn(st)
	}
}

// begin starts transition to index, e.mu must be held. Returns false when
// request has to be dropped.
func (e *Engine) begin(index int) bool {
	if e.transitioning || index < 0 || index >= e.total {
		return false
	}
	e.transitioning = true
	e.target = index
	e.generation++
	gen := e.generation
	e.cancel = e.schedule(e.delay, func() { e.commit(gen) })
	return true
}

func (e *Engine) commit(gen uint64) {
	e.mu.Lock()
	if !e.transitioning || gen != e.generation {
		e.mu.Unlock()
		return
	}
	e.transitioning = false
	e.cancel = nil
	from := e.current
	e.current = e.target
	e.log.Debug("Page changed", zap.Int("from", from), zap.Int("to", e.current), zap.Int("depth", len(e.history)))
	e.publish()
}

func (e *Engine) request(index func() int, push bool) bool {
	e.mu.Lock()
	from := e.current
	to := index()
	if !e.begin(to) {
		e.mu.Unlock()
		e.log.Debug("Navigation request dropped", zap.Int("index", to), zap.Int("current", from))
		return false
	}
	if push {
		e.history = append(e.history, from)
	}
	e.publish()
	return true
}

func fixed(i int) func() int {
	return func() int { return i }
}

// GoTo starts transition to page index. It reports whether the request was
// accepted.
func (e *Engine) GoTo(index int) bool {
	return e.request(fixed(index), false)
}

// GoNext moves one page forward, history is not touched.
func (e *Engine) GoNext() bool {
	return e.request(func() int { return e.current + 1 }, false)
}

// GoPrev moves one page back, history is not touched.
func (e *Engine) GoPrev() bool {
	return e.request(func() int { return e.current - 1 }, false)
}

// GoMural goes directly to the last page.
func (e *Engine) GoMural() bool {
	return e.request(func() int { return e.total - 1 }, false)
}

// JumpViaReference remembers current page on the back stack and goes to
// target. Nothing is remembered when the jump itself is dropped.
func (e *Engine) JumpViaReference(target int) bool {
	return e.request(fixed(target), true)
}

// GoBack returns to the page remembered by the latest jump. Page being left
// is not pushed, so back stack contains only reference jumps.
func (e *Engine) GoBack() bool {
	e.mu.Lock()
	if len(e.history) == 0 || e.transitioning {
		e.mu.Unlock()
		return false
	}
	last := len(e.history) - 1
	index := e.history[last]
	if !e.begin(index) {
		e.mu.Unlock()
		return false
	}
	e.history = e.history[:last]
	e.publish()
	return true
}

// SetTotal adapts engine to replaced snapshot with different number of
// pages. Current index is clamped, history entries pointing past the end are
// discarded and transition to vanished page is redirected to the last one.
func (e *Engine) SetTotal(total int) {
	total = max(total, 1)

	e.mu.Lock()
	if total == e.total {
		e.mu.Unlock()
		return
	}
	e.total = total
	e.current = min(e.current, total-1)
	e.target = min(e.target, total-1)
	e.history = slices.DeleteFunc(e.history, func(i int) bool { return i >= total })
	e.log.Debug("Book size changed", zap.Int("total", total), zap.Int("current", e.current))
	e.publish()
}

// Close returns to the cover: first page, empty history, any transition in
// progress is abandoned.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.generation++
	e.transitioning = false
	e.current, e.target = 0, 0
	e.history = nil
	e.publish()
}

// Stop cancels pending transition timer without changing state.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.generation++
	if e.transitioning {
		e.transitioning = false
		e.target = e.current
	}
}
