// Package library owns the current read-only book snapshot. Snapshot comes
// from the remote API, falls back to local cache when remote is unreachable
// and is replaced as a whole after every mutation.
package library

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"grimoire/book"
	"grimoire/config"
	"grimoire/notice"
)

var (
	// ErrBusy is returned when mutation is requested while another one is
	// still waiting for its refresh.
	ErrBusy = errors.New("another change is in progress")
	// ErrRefresh is returned when mutation succeeded but book could not be
	// re-read afterwards, current snapshot is stale.
	ErrRefresh = errors.New("change saved but book could not be reloaded")
	// ErrUnknownChapter is returned for operations on chapters not present in
	// the current snapshot.
	ErrUnknownChapter = errors.New("unknown chapter")
)

// Remote is the persistence API.
type Remote interface {
	Fetch(ctx context.Context) (*book.Snapshot, error)
	SaveChapter(ctx context.Context, ch *book.Chapter) error
	DeleteChapter(ctx context.Context, id book.ID) error
	SaveMural(ctx context.Context, m *book.Mural) error
}

// rawFetcher is implemented by remotes able to return the book as served.
type rawFetcher interface {
	FetchRaw(ctx context.Context) ([]byte, error)
}

// Cache is local fallback storage.
type Cache interface {
	Put(s *book.Snapshot) error
	Get() (*book.Snapshot, error)
}

type Option func(*Library)

// WithCache enables fallback to locally cached book.
func WithCache(c Cache) Option {
	return func(l *Library) {
		l.cache = c
	}
}

// WithReport stores every loaded snapshot in debug report.
func WithReport(rpt *config.Report) Option {
	return func(l *Library) {
		l.rpt = rpt
	}
}

// WithAudioFormats restricts audio formats accepted by chapter validation.
func WithAudioFormats(formats []string) Option {
	return func(l *Library) {
		l.formats = formats
	}
}

// WithNotices sets where user facing notices go.
func WithNotices(sink notice.Sink) Option {
	return func(l *Library) {
		if sink != nil {
			l.sink = sink
		}
	}
}

type Library struct {
	log     *zap.Logger
	remote  Remote
	cache   Cache
	rpt     *config.Report
	sink    notice.Sink
	formats []string

	mu    sync.RWMutex
	snap  *book.Snapshot
	loads int

	busy  atomic.Bool
	reads atomic.Int32

	notifyMu sync.Mutex
	subs     map[int]func(*book.Snapshot)
	subID    int
}

func New(remote Remote, log *zap.Logger, opts ...Option) *Library {
	l := &Library{
		log:    log.Named("library"),
		remote: remote,
		sink:   notice.Discard,
		snap:   &book.Snapshot{},
		subs:   make(map[int]func(*book.Snapshot)),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Snapshot returns current book, empty one before the first Load. Returned
// value must not be modified.
func (l *Library) Snapshot() *book.Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snap
}

// Subscribe registers function called after every snapshot replacement.
// Returned function unsubscribes.
func (l *Library) Subscribe(fn func(*book.Snapshot)) func() {
	l.notifyMu.Lock()
	defer l.notifyMu.Unlock()

	l.subID++
	id := l.subID
	l.subs[id] = fn
	return func() {
		l.notifyMu.Lock()
		defer l.notifyMu.Unlock()
		delete(l.subs, id)
	}
}

func (l *Library) replace(s *book.Snapshot) {
	l.mu.Lock()
	l.snap = s
	l.loads++
	seq := l.loads
	l.notifyMu.Lock()
	l.mu.Unlock()
	defer l.notifyMu.Unlock()

	if l.rpt != nil {
		l.rpt.StoreJSON(fmt.Sprintf("snapshots/%03d.json", seq), s)
		l.rpt.StoreData(fmt.Sprintf("snapshots/%03d.txt", seq), []byte(s.Dump()))
	}
	for _, fn := range l.subs {
		fn(s)
	}
}

// fetch reads book from remote and caches it.
func (l *Library) fetch(ctx context.Context) (*book.Snapshot, error) {
	s, err := l.read(ctx)
	if err != nil {
		return nil, err
	}
	if l.cache != nil {
		if err := l.cache.Put(s); err != nil {
			l.log.Warn("Unable to cache book", zap.Error(err))
		}
	}
	l.replace(s)
	l.log.Debug("Book loaded", zap.Int("chapters", len(s.Chapters)), zap.Int("women", len(s.Mural.Women)))
	return s, nil
}

// read gets the book from remote. With debug report enabled response body is
// stored in the report as served.
func (l *Library) read(ctx context.Context) (*book.Snapshot, error) {
	rf, ok := l.remote.(rawFetcher)
	if l.rpt == nil || !ok {
		return l.remote.Fetch(ctx)
	}
	data, err := rf.FetchRaw(ctx)
	if err != nil {
		return nil, err
	}
	l.rpt.StoreData(fmt.Sprintf("remote/%03d.json", l.reads.Add(1)), data)
	s, err := book.Decode(data)
	if err != nil {
		return nil, err
	}
	s.FetchedAt = time.Now()
	return s, nil
}

// Load reads book from remote. When remote fails and cache is available,
// cached copy becomes current snapshot (marked Cached) and no error is
// returned.
func (l *Library) Load(ctx context.Context) (*book.Snapshot, error) {
	s, err := l.fetch(ctx)
	if err == nil {
		return s, nil
	}
	l.log.Warn("Unable to load book", zap.Error(err))
	if l.cache == nil {
		l.sink.Notify(notice.New(notice.RemoteError, "Unable to load book", err.Error()))
		return nil, fmt.Errorf("unable to load book: %w", err)
	}

	cached, cerr := l.cache.Get()
	if cerr != nil {
		l.sink.Notify(notice.New(notice.RemoteError, "Unable to load book", err.Error()))
		return nil, fmt.Errorf("unable to load book: %w", multierr.Combine(err, cerr))
	}
	l.replace(cached)
	l.log.Info("Using cached book", zap.Time("fetched", cached.FetchedAt))
	l.sink.Notify(notice.New(notice.CacheFallback, "Showing saved copy",
		fmt.Sprintf("book could not be loaded, copy from %s is shown", cached.FetchedAt.Format("2006-01-02 15:04"))))
	return cached, nil
}

// MutateThenRefresh runs op against remote and then reloads the book, so
// snapshot is consistent with the server before anybody sees it. Only one
// mutation may be in flight: the next one is rejected with ErrBusy until
// refresh completes, which keeps temporary identifiers from leaking into
// further edits.
func (l *Library) MutateThenRefresh(ctx context.Context, what string, op func(ctx context.Context, r Remote) error) (*book.Snapshot, error) {
	if !l.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer l.busy.Store(false)

	log := l.log.With(zap.String("change", what))
	if err := op(ctx, l.remote); err != nil {
		log.Warn("Change failed", zap.Error(err))
		l.sink.Notify(notice.New(notice.RemoteError, "Unable to "+what, err.Error()))
		return nil, fmt.Errorf("unable to %s: %w", what, err)
	}

	s, err := l.fetch(ctx)
	if err != nil {
		log.Warn("Refresh after change failed", zap.Error(err))
		l.sink.Notify(notice.New(notice.RemoteError, "Book not reloaded", err.Error()))
		return nil, fmt.Errorf("%w: %w", ErrRefresh, err)
	}
	log.Info("Change saved")
	l.sink.Notify(notice.New(notice.Saved, "Saved", what))
	return s, nil
}

// Busy reports whether mutation is in flight.
func (l *Library) Busy() bool {
	return l.busy.Load()
}

// SaveChapter validates and saves chapter. New chapter should carry
// temporary identifier, server assigns the durable one.
func (l *Library) SaveChapter(ctx context.Context, ch *book.Chapter) (*book.Snapshot, error) {
	if ch.ID.IsZero() {
		ch.ID = book.NewTempID()
	}
	if err := book.ValidateChapter(ch, l.formats); err != nil {
		return nil, err
	}
	what := fmt.Sprintf("save chapter %q", ch.Title)
	return l.MutateThenRefresh(ctx, what, func(ctx context.Context, r Remote) error {
		return r.SaveChapter(ctx, ch)
	})
}

// DeleteChapter removes chapter present in the current snapshot.
func (l *Library) DeleteChapter(ctx context.Context, id book.ID) (*book.Snapshot, error) {
	if _, ok := l.Snapshot().Find(id); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownChapter, id)
	}
	return l.MutateThenRefresh(ctx, fmt.Sprintf("delete chapter %s", id), func(ctx context.Context, r Remote) error {
		return r.DeleteChapter(ctx, id)
	})
}

// SaveWomen replaces mural entries. Mural is a single record on the server,
// so title and author of the current snapshot are sent along unchanged.
func (l *Library) SaveWomen(ctx context.Context, women []book.Woman) (*book.Snapshot, error) {
	if err := book.ValidateWomen(women); err != nil {
		return nil, err
	}
	return l.MutateThenRefresh(ctx, "save mural", func(ctx context.Context, r Remote) error {
		m := l.Snapshot().Mural.WithWomen(women)
		return r.SaveMural(ctx, &m)
	})
}

// SaveBookInfo changes title and author keeping mural entries unchanged.
func (l *Library) SaveBookInfo(ctx context.Context, title, author string) (*book.Snapshot, error) {
	title, author = strings.TrimSpace(title), strings.TrimSpace(author)
	if len(title) == 0 {
		return nil, fmt.Errorf("%w: book title is required", book.ErrInvalid)
	}
	return l.MutateThenRefresh(ctx, "save book information", func(ctx context.Context, r Remote) error {
		m := l.Snapshot().Mural.WithInfo(title, author)
		return r.SaveMural(ctx, &m)
	})
}
