// Package notice carries user facing, non blocking messages from the core
// engines to whatever presents them (terminal viewer, command output).
package notice

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Kind int

const (
	NoLink Kind = iota
	BrokenLink
	MediaError
	AutoplayBlocked
	RemoteError
	CacheFallback
	Saved
)

func (k Kind) String() string {
	switch k {
	case NoLink:
		return "no-link"
	case BrokenLink:
		return "broken-link"
	case MediaError:
		return "media-error"
	case AutoplayBlocked:
		return "autoplay-blocked"
	case RemoteError:
		return "remote-error"
	case CacheFallback:
		return "cache-fallback"
	case Saved:
		return "saved"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

type Severity int

const (
	Info Severity = iota
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

type Notice struct {
	Kind     Kind
	Severity Severity
	Title    string
	Text     string
}

func (n Notice) String() string {
	if len(n.Text) == 0 {
		return n.Title
	}
	return n.Title + ": " + n.Text
}

// Sink receives notices. Implementations must not block the caller.
type Sink interface {
	Notify(n Notice)
}

// SinkFunc adapts ordinary function to Sink.
type SinkFunc func(n Notice)

func (f SinkFunc) Notify(n Notice) { f(n) }

// Discard drops everything.
var Discard Sink = SinkFunc(func(Notice) {})

// New builds notice with default severity for its kind.
func New(kind Kind, title, text string) Notice {
	sev := Info
	switch kind {
	case NoLink, AutoplayBlocked, CacheFallback:
		sev = Warning
	case BrokenLink, MediaError, RemoteError:
		sev = Error
	}
	return Notice{Kind: kind, Severity: sev, Title: title, Text: text}
}

// LogSink writes notices to the log, used by non interactive commands.
type LogSink struct {
	log *zap.Logger
}

func NewLogSink(log *zap.Logger) *LogSink {
	return &LogSink{log: log.Named("notice")}
}

func (s *LogSink) Notify(n Notice) {
	lvl := zapcore.InfoLevel
	switch n.Severity {
	case Warning:
		lvl = zapcore.WarnLevel
	case Error:
		lvl = zapcore.ErrorLevel
	}
	s.log.Log(lvl, n.Title, zap.Stringer("kind", n.Kind), zap.String("text", n.Text))
}

// Recorder keeps every notice it receives, optionally forwarding them.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
	next    Sink
}

func NewRecorder(next Sink) *Recorder {
	return &Recorder{next: next}
}

func (r *Recorder) Notify(n Notice) {
	r.mu.Lock()
	r.notices = append(r.notices, n)
	r.mu.Unlock()
	if r.next != nil {
		r.next.Notify(n)
	}
}

// Notices returns copy of everything recorded so far.
func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notice(nil), r.notices...)
}

// Count returns number of recorded notices of given kind.
func (r *Recorder) Count(kind Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int
	for _, v := range r.notices {
		if v.Kind == kind {
			n++
		}
	}
	return n
}

// Last returns most recent notice.
func (r *Recorder) Last() (Notice, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notices) == 0 {
		return Notice{}, false
	}
	return r.notices[len(r.notices)-1], true
}

// Reset forgets recorded notices.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.notices = nil
	r.mu.Unlock()
}
