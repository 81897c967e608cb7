package viewer

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"grimoire/book"
	"grimoire/media"
	"grimoire/navigate"
	"grimoire/notice"
)

// Inbox collects changes published by engine, media session and library on
// their own goroutines and hands them to the program loop. Only the latest
// state of each source is kept, so publishers never block.
type Inbox struct {
	mu      sync.Mutex
	nav     *navigate.State
	media   *media.State
	snap    *book.Snapshot
	notices []notice.Notice

	wake chan struct{}
	done chan struct{}
	once sync.Once
}

func NewInbox() *Inbox {
	return &Inbox{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Notify makes Inbox a notice sink.
func (b *Inbox) Notify(n notice.Notice) {
	b.mu.Lock()
	b.notices = append(b.notices, n)
	b.mu.Unlock()
	b.signal()
}

func (b *Inbox) navigation(s navigate.State) {
	b.mu.Lock()
	b.nav = &s
	b.mu.Unlock()
	b.signal()
}

func (b *Inbox) playback(s media.State) {
	b.mu.Lock()
	b.media = &s
	b.mu.Unlock()
	b.signal()
}

func (b *Inbox) snapshot(s *book.Snapshot) {
	b.mu.Lock()
	b.snap = s
	b.mu.Unlock()
	b.signal()
}

func (b *Inbox) signal() {
	select {
	case b.wake <- struct{}{}:
	default:
	}
}

// updateMsg carries everything accumulated since previous delivery, nil
// fields did not change.
type updateMsg struct {
	nav     *navigate.State
	media   *media.State
	snap    *book.Snapshot
	notices []notice.Notice
}

func (b *Inbox) take() updateMsg {
	b.mu.Lock()
	defer b.mu.Unlock()
	msg := updateMsg{nav: b.nav, media: b.media, snap: b.snap, notices: b.notices}
	b.nav, b.media, b.snap, b.notices = nil, nil, nil, nil
	return msg
}

func (b *Inbox) wait() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-b.done:
			return nil
		default:
		}
		select {
		case <-b.wake:
			return b.take()
		case <-b.done:
			return nil
		}
	}
}

// Close releases pending wait, nothing is delivered afterwards.
func (b *Inbox) Close() {
	b.once.Do(func() { close(b.done) })
}
