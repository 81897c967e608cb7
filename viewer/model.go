// Package viewer is the terminal reader: a bubbletea program presenting the
// cover, chapter pages with their overlays and the final mural. It owns no
// book logic, every user action is forwarded to navigation engine, reference
// resolver, media session or preferences and the screen follows what they
// publish.
package viewer

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"grimoire/book"
	"grimoire/config"
	"grimoire/library"
	"grimoire/media"
	"grimoire/navigate"
	"grimoire/notice"
	"grimoire/prefs"
)

const (
	noticeTTL   = 5 * time.Second
	volumeStep  = 0.1
	seekStep    = 5
	coverPage   = -1
	stalePage   = -2
	chromeLines = 3
)

// Deps are collaborators viewer drives. Notices defaults to Inbox, set it to
// have notices delivered elsewhere as well.
type Deps struct {
	Library *library.Library
	Engine  *navigate.Engine
	Session *media.Session
	Prefs   *prefs.Prefs
	Inbox   *Inbox
	Notices notice.Sink
	Config  *config.ViewerConfig
	// Open starts with the book open on the engine current page instead of
	// the cover.
	Open bool
}

type loadedMsg struct{ err error }

type noticeExpiredMsg struct{ seq int }

type Model struct {
	ctx      context.Context
	log      *zap.Logger
	lib      *library.Library
	engine   *navigate.Engine
	session  *media.Session
	prefs    *prefs.Prefs
	resolver *navigate.Resolver
	inbox    *Inbox
	unsub    []func()

	keys     keyMap
	help     help.Model
	viewport viewport.Model
	styles   styles
	text     *textRenderer

	width, height int
	nav           navigate.State
	media         media.State
	open          bool
	shown         int
	dirty         bool
	loading       bool
	links         []book.Overlay
	notice        *notice.Notice
	noticeSeq     int
}

func New(ctx context.Context, d Deps, log *zap.Logger) *Model {
	log = log.Named("viewer")
	if d.Inbox == nil {
		d.Inbox = NewInbox()
	}
	if d.Notices == nil {
		d.Notices = d.Inbox
	}
	style := "auto"
	if d.Config != nil {
		style = d.Config.Style
	}

	m := &Model{
		ctx:      ctx,
		log:      log,
		lib:      d.Library,
		engine:   d.Engine,
		session:  d.Session,
		prefs:    d.Prefs,
		resolver: navigate.NewResolver(d.Library, d.Engine, d.Notices, log),
		inbox:    d.Inbox,
		keys:     defaultKeys(),
		help:     help.New(),
		viewport: viewport.New(80, 20),
		styles:   defaultStyles(),
		text:     &textRenderer{style: style, log: log},
		nav:      d.Engine.State(),
		media:    d.Session.State(),
		open:     d.Open,
		shown:    stalePage,
		dirty:    true,
	}
	m.unsub = append(m.unsub,
		d.Engine.Subscribe(m.inbox.navigation),
		d.Session.Subscribe(m.inbox.playback),
		d.Library.Subscribe(m.inbox.snapshot),
	)
	return m
}

// Close detaches viewer from collaborators.
func (m *Model) Close() {
	for _, f := range m.unsub {
		f()
	}
	m.unsub = nil
	m.inbox.Close()
}

// Init starts listening for published changes and fetches the book unless
// caller loaded it already.
func (m *Model) Init() tea.Cmd {
	if m.lib.Snapshot().Pages() > 1 {
		return m.inbox.wait()
	}
	m.loading = true
	return tea.Batch(m.inbox.wait(), m.load())
}

func (m *Model) load() tea.Cmd {
	return func() tea.Msg {
		_, err := m.lib.Load(m.ctx)
		return loadedMsg{err: err}
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.resize()
		m.dirty = true

	case loadedMsg:
		m.loading = false
		if msg.err != nil {
			m.log.Debug("Book is not available", zap.Error(msg.err))
		}
		m.dirty = true

	case updateMsg:
		if msg.snap != nil {
			m.engine.SetTotal(msg.snap.Pages())
			m.dirty = true
		}
		if msg.nav != nil {
			m.nav = *msg.nav
		}
		if msg.media != nil {
			m.media = *msg.media
		}
		if n := len(msg.notices); n > 0 {
			cmds = append(cmds, m.show(msg.notices[n-1]))
		}
		cmds = append(cmds, m.inbox.wait())

	case noticeExpiredMsg:
		if msg.seq == m.noticeSeq {
			m.notice = nil
		}

	case tea.KeyMsg:
		cmd, quit := m.handleKey(msg)
		if quit {
			return m, tea.Quit
		}
		cmds = append(cmds, cmd)
	}

	m.sync()
	return m, tea.Batch(cmds...)
}

func (m *Model) show(n notice.Notice) tea.Cmd {
	m.notice = &n
	m.noticeSeq++
	seq := m.noticeSeq
	return tea.Tick(noticeTTL, func(time.Time) tea.Msg { return noticeExpiredMsg{seq: seq} })
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.inbox.Close()
		return nil, true
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.resize()
		return nil, false
	}

	if !m.open {
		if key.Matches(msg, m.keys.Open, m.keys.Next) {
			m.open = true
			m.dirty = true
		}
		return nil, false
	}

	switch {
	case key.Matches(msg, m.keys.Next):
		m.engine.GoNext()
	case key.Matches(msg, m.keys.Prev):
		m.engine.GoPrev()
	case key.Matches(msg, m.keys.Back):
		m.engine.GoBack()
	case key.Matches(msg, m.keys.Mural):
		m.engine.GoMural()
	case key.Matches(msg, m.keys.Close):
		m.engine.Close()
		m.open = false
		m.dirty = true
	case key.Matches(msg, m.keys.Follow):
		i, err := strconv.Atoi(msg.String())
		if err == nil && i > 0 && i <= len(m.links) {
			res := m.resolver.Resolve(m.links[i-1].Reference())
			m.log.Debug("Followed note", zap.Int("item", i), zap.Stringer("result", res))
		}
	case key.Matches(msg, m.keys.Play):
		m.session.TogglePlayPause()
	case key.Matches(msg, m.keys.Restart):
		m.session.Restart()
	case key.Matches(msg, m.keys.Rewind):
		m.session.SeekBy(-seekStep)
	case key.Matches(msg, m.keys.Forward):
		m.session.SeekBy(seekStep)
	case key.Matches(msg, m.keys.Mute):
		m.session.ToggleMuted()
	case key.Matches(msg, m.keys.VolDown):
		m.session.AdjustVolume(-volumeStep)
	case key.Matches(msg, m.keys.VolUp):
		m.session.AdjustVolume(volumeStep)
	case key.Matches(msg, m.keys.Smaller):
		m.prefs.AdjustFontSize(-1)
		m.dirty = true
	case key.Matches(msg, m.keys.Larger):
		m.prefs.AdjustFontSize(1)
		m.dirty = true
	default:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return cmd, false
	}
	return nil, false
}

// page is what should be on screen now.
func (m *Model) page() int {
	if !m.open {
		return coverPage
	}
	return m.nav.Current
}

// sync brings screen, media session and preferences in line with the
// committed page. Nothing happens during page flip since current page only
// changes on commit.
func (m *Model) sync() {
	page := m.page()
	if page == m.shown && !m.dirty {
		return
	}
	moved := page != m.shown
	m.shown, m.dirty = page, false

	s := m.lib.Snapshot()
	switch {
	case page == coverPage:
		m.links = m.links[:0]
		m.session.Show(nil)
		_ = m.prefs.SetBook(false, 0)
		return
	case page >= s.MuralPage():
		m.session.Show(nil)
		m.viewport.SetContent(m.renderMural(&s.Mural))
	default:
		ch := s.Chapter(page)
		m.session.Show(ch)
		m.viewport.SetContent(m.renderChapter(ch))
	}
	if moved {
		m.viewport.GotoTop()
	}
	_ = m.prefs.SetBook(true, page)
}

func (m *Model) bodyHeight() int {
	return max(m.height-chromeLines-strings.Count(m.help.View(m.keys), "\n")-1, 5)
}

func (m *Model) resize() {
	m.viewport.Width = max(m.width, 40)
	m.viewport.Height = m.bodyHeight()
}

func (m *Model) View() string {
	var parts []string
	if m.page() == coverPage {
		parts = append(parts, m.renderCover())
	} else {
		parts = append(parts, m.renderHeader(), m.viewport.View(), m.renderTransport())
	}
	parts = append(parts, m.renderNotice(), m.help.View(m.keys))
	return strings.Join(parts, "\n")
}
