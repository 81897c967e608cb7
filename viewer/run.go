package viewer

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	tea "github.com/charmbracelet/bubbletea"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"grimoire/media"
	"grimoire/navigate"
	"grimoire/notice"
	"grimoire/state"
)

// Run is the "read" command: opens the book in terminal viewer. Book which
// was left open is reopened on the same page when configuration allows.
func Run(ctx context.Context, cmd *cli.Command) (err error) {
	env := state.EnvFromContext(ctx)
	cfg := env.Cfg

	inbox := NewInbox()
	logged := notice.NewLogSink(env.Log)
	env.Notices = notice.SinkFunc(func(n notice.Notice) {
		logged.Notify(n)
		inbox.Notify(n)
	})

	lib, err := env.Library()
	if err != nil {
		return fmt.Errorf("unable to prepare library: %w", err)
	}
	if _, err := lib.Load(ctx); err != nil {
		// viewer retries and shows notice, book may still come from cache
		env.Log.Warn("Book is not available yet", zap.Error(err))
	}

	p := env.Prefs()
	cur := p.Get()
	open := cur.BookOpen && cfg.Viewer.ReopenAtEnd

	opts := []navigate.Option{navigate.WithTransition(cfg.Viewer.Transition)}
	if open {
		opts = append(opts, navigate.WithStart(cur.LastPage))
	}
	engine := navigate.NewEngine(lib.Snapshot().Pages(), env.Log, opts...)
	defer engine.Stop()

	client := &http.Client{Timeout: cfg.Remote.Timeout}
	backend := media.NewBackend(&cfg.Media, client, cfg.Remote.UserAgent, env.Log)
	session := media.NewSession(backend, p, env.Notices, env.Log)
	defer func() {
		if er := session.Close(); er != nil {
			err = multierr.Append(err, fmt.Errorf("unable to stop audio: %w", er))
		}
	}()

	m := New(ctx, Deps{
		Library: lib,
		Engine:  engine,
		Session: session,
		Prefs:   p,
		Inbox:   inbox,
		Notices: env.Notices,
		Config:  &cfg.Viewer,
		Open:    open,
	}, env.Log)
	defer m.Close()

	env.Log.Debug("Opening viewer", zap.Bool("open", open), zap.Int("page", engine.State().Current), zap.Int("pages", engine.State().Total))

	prog := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := prog.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			env.Log.Debug("Viewer interrupted")
			return nil
		}
		return fmt.Errorf("viewer failed: %w", err)
	}
	return nil
}
