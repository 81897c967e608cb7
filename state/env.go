// Package state defines shared program state.
package state

import (
	"context"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"grimoire/cache"
	"grimoire/config"
	"grimoire/library"
	"grimoire/notice"
	"grimoire/prefs"
)

type envKey struct{}

// LocalEnv keeps everything program needs in a single place.
type LocalEnv struct {
	Cfg *config.Config
	Rpt *config.Report
	Log *zap.Logger

	// Notices receives user facing messages, commands log them unless
	// interactive viewer replaces the sink before first use of Library.
	Notices notice.Sink

	// used by administrative subcommands
	User     string
	Password string

	start         time.Time
	restoreStdLog func()

	mu      sync.Mutex
	library *library.Library
	prefs   *prefs.Prefs
	cache   *cache.Cache
}

func EnvFromContext(ctx context.Context) *LocalEnv {
	if env, ok := ctx.Value(envKey{}).(*LocalEnv); ok {
		return env
	}
	// this should never happen
	panic("localenv not found in context")
}

func ContextWithEnv(ctx context.Context) context.Context {
	return context.WithValue(ctx, envKey{}, newLocalEnv())
}

func (e *LocalEnv) Uptime() time.Duration {
	return time.Since(e.start)
}

func (e *LocalEnv) RedirectStdLog() {
	if e.Log == nil {
		return
	}
	e.restoreStdLog = zap.RedirectStdLog(e.Log)
}

func (e *LocalEnv) RestoreStdLog() {
	if e.Log != nil {
		_ = e.Log.Sync()
	}
	if e.restoreStdLog != nil {
		e.restoreStdLog()
	}
}

// Close releases resources built on demand.
func (e *LocalEnv) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var err error
	if e.cache != nil {
		err = multierr.Append(err, e.cache.Close())
		e.cache = nil
	}
	e.library = nil
	return err
}
