package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/h2non/filetype"
	"go.uber.org/zap"

	"grimoire/book"
)

// Number of leading bytes filetype needs to recognize a format.
const sniffLen = 262

// ClockBackend plays nothing audible: it keeps virtual playback clock and
// reports its progress on a ticker. Optionally resource is fetched over HTTP
// and rejected when it does not look like audio. Duration is known only when
// the server reports it, song of unknown length never ends.
type ClockBackend struct {
	log       *zap.Logger
	client    *http.Client
	userAgent string
	probe     bool
	tick      time.Duration
	formats   []string
	now       func() time.Time

	mu       sync.Mutex
	handler  func(Event)
	resource string
	loaded   bool
	// zero when unknown
	duration float64
	// position at startedAt
	position  float64
	startedAt time.Time
	playing   bool
	volume    float64
	muted     bool
	stopTick  chan struct{}
	closed    bool
	wg        sync.WaitGroup
}

type ClockOption func(*ClockBackend)

// WithProbe enables HTTP probing of resources.
func WithProbe(client *http.Client, userAgent string) ClockOption {
	return func(b *ClockBackend) {
		b.probe = true
		if client != nil {
			b.client = client
		}
		b.userAgent = userAgent
	}
}

// WithTick sets how often time updates are emitted.
func WithTick(d time.Duration) ClockOption {
	return func(b *ClockBackend) {
		if d > 0 {
			b.tick = d
		}
	}
}

// WithFormats restricts accepted audio extensions.
func WithFormats(formats []string) ClockOption {
	return func(b *ClockBackend) {
		if len(formats) > 0 {
			b.formats = formats
		}
	}
}

// WithNow replaces wall clock.
func WithNow(now func() time.Time) ClockOption {
	return func(b *ClockBackend) {
		if now != nil {
			b.now = now
		}
	}
}

func NewClockBackend(log *zap.Logger, opts ...ClockOption) *ClockBackend {
	b := &ClockBackend{
		log:     log.Named("clock"),
		client:  http.DefaultClient,
		tick:    250 * time.Millisecond,
		formats: book.DefaultAudioFormats,
		now:     time.Now,
		volume:  1,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *ClockBackend) SetHandler(fn func(Event)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handler = fn
}

func (b *ClockBackend) emit(ev Event) {
	b.mu.Lock()
	fn := b.handler
	b.mu.Unlock()
	if fn != nil {
		fn(ev)
	}
}

// bound clamps position to known duration, b.mu must be held.
func (b *ClockBackend) bound(pos float64) float64 {
	pos = max(pos, 0)
	if b.duration > 0 {
		pos = min(pos, b.duration)
	}
	return pos
}

// ended reports whether position reached the end of song of known length,
// b.mu must be held.
func (b *ClockBackend) ended(pos float64) bool {
	return b.duration > 0 && pos >= b.duration
}

// current returns position, b.mu must be held.
func (b *ClockBackend) current() float64 {
	if !b.playing {
		return b.position
	}
	return b.bound(b.position + b.now().Sub(b.startedAt).Seconds())
}

// halt stops ticker, b.mu must be held.
func (b *ClockBackend) halt() {
	if b.playing {
		b.position = b.current()
		b.playing = false
	}
	if b.stopTick != nil {
		close(b.stopTick)
		b.stopTick = nil
	}
}

func (b *ClockBackend) Load(ctx context.Context, resource string, done LoadFunc) {
	b.mu.Lock()
	b.halt()
	b.resource, b.loaded, b.position, b.duration = resource, false, 0, 0
	if b.closed {
		b.mu.Unlock()
		go done(0, fmt.Errorf("backend closed"))
		return
	}
	b.wg.Add(1)
	b.mu.Unlock()

	go func() {
		defer b.wg.Done()

		duration, err := b.inspect(ctx, resource)

		b.mu.Lock()
		if b.resource == resource && err == nil {
			b.loaded, b.duration = true, duration
		}
		b.mu.Unlock()
		done(duration, err)
	}()
}

func (b *ClockBackend) inspect(ctx context.Context, resource string) (float64, error) {
	if ext := book.AudioExt(resource); !book.IsAudioExt(ext, b.formats) {
		return 0, fmt.Errorf("%w: unsupported format '%s'", ErrNotAudio, ext)
	}
	var duration float64
	if !b.probe {
		return duration, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resource, nil)
	if err != nil {
		return 0, fmt.Errorf("unable to build probe request: %w", err)
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=0-%d", sniffLen-1))
	if len(b.userAgent) > 0 {
		req.Header.Set("User-Agent", b.userAgent)
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("unable to reach audio: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return 0, fmt.Errorf("unable to fetch audio: %s", resp.Status)
	}
	head, err := io.ReadAll(io.LimitReader(resp.Body, sniffLen))
	if err != nil {
		return 0, fmt.Errorf("unable to read audio: %w", err)
	}
	if !filetype.IsAudio(head) {
		kind, _ := filetype.Match(head)
		return 0, fmt.Errorf("%w: detected '%s'", ErrNotAudio, kind.MIME.Value)
	}
	if v := resp.Header.Get("X-Content-Duration"); len(v) > 0 {
		if d, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && d > 0 {
			duration = d
		}
	}
	b.log.Debug("Audio probed", zap.String("resource", resource), zap.Float64("duration", duration))
	return duration, nil
}

func (b *ClockBackend) Unload() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.halt()
	b.resource, b.loaded, b.position, b.duration = "", false, 0, 0
}

func (b *ClockBackend) Play() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.loaded || b.closed {
		return ErrNotLoaded
	}
	if b.playing {
		return nil
	}
	b.playing = true
	b.startedAt = b.now()
	b.stopTick = make(chan struct{})
	b.wg.Add(1)
	go b.run(b.stopTick, b.resource)
	return nil
}

func (b *ClockBackend) run(stop chan struct{}, resource string) {
	defer b.wg.Done()

	t := time.NewTicker(b.tick)
	defer t.Stop()

	for {
		select {
		case <-stop:
			return
		case <-t.C:
		}

		b.mu.Lock()
		if b.stopTick != stop {
			b.mu.Unlock()
			return
		}
		pos := b.current()
		ended := b.ended(pos)
		if ended {
			b.halt()
			b.position = b.duration
		}
		b.mu.Unlock()

		b.emit(Event{Kind: TimeUpdate, Resource: resource, Time: pos})
		if ended {
			b.emit(Event{Kind: Ended, Resource: resource, Time: pos})
			return
		}
	}
}

func (b *ClockBackend) Pause() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.halt()
}

func (b *ClockBackend) Seek(seconds float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.position = b.bound(seconds)
	if b.playing {
		b.startedAt = b.now()
	}
}

func (b *ClockBackend) SetVolume(volume float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.volume = volume
}

func (b *ClockBackend) SetMuted(muted bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.muted = muted
}

// Position returns virtual playback position.
func (b *ClockBackend) Position() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current()
}

func (b *ClockBackend) Close() error {
	b.mu.Lock()
	b.closed = true
	b.halt()
	b.mu.Unlock()

	b.wg.Wait()
	return nil
}
