// Package media binds single audio resource to the displayed chapter and
// exposes transport controls over it.
package media

import (
	"context"
	"errors"
	"fmt"
	"math"
)

var (
	// ErrAutoplayBlocked is returned by Play when platform refuses to start
	// playback without user gesture.
	ErrAutoplayBlocked = errors.New("autoplay is not allowed")
	// ErrNotLoaded is returned by Play when no resource is ready.
	ErrNotLoaded = errors.New("no audio loaded")
	// ErrNotAudio is returned from Load for resources which are not audio.
	ErrNotAudio = errors.New("resource is not audio")
)

type EventKind int

const (
	TimeUpdate EventKind = iota
	Ended
	Failed
)

func (k EventKind) String() string {
	switch k {
	case TimeUpdate:
		return "timeupdate"
	case Ended:
		return "ended"
	case Failed:
		return "error"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is emitted by backend while resource is bound. Resource names the
// resource event belongs to, so late events of replaced resource can be
// recognized.
type Event struct {
	Kind     EventKind
	Resource string
	Time     float64
	Err      error
}

// LoadFunc receives result of asynchronous load: duration in seconds or an
// error.
type LoadFunc func(duration float64, err error)

// Backend is playback platform. Only Session drives it. Implementations must
// never invoke LoadFunc or event handler synchronously from inside of their
// methods, and must deliver events in order.
type Backend interface {
	// SetHandler installs event receiver.
	SetHandler(fn func(Event))
	// Load replaces bound resource, stopping whatever was playing.
	Load(ctx context.Context, resource string, done LoadFunc)
	// Unload stops playback and releases resource.
	Unload()
	Play() error
	Pause()
	Seek(seconds float64)
	SetVolume(volume float64)
	SetMuted(muted bool)
	// Close releases everything and waits for background work to finish.
	Close() error
}

// FormatClock renders seconds as m:ss.
func FormatClock(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		seconds = 0
	}
	s := int(seconds)
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}
