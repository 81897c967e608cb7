package state

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"grimoire/cache"
	"grimoire/library"
	"grimoire/notice"
	"grimoire/prefs"
	"grimoire/remote"
)

// newLocalEnv creates a new LocalEnv instance with default values
func newLocalEnv() *LocalEnv {
	return &LocalEnv{
		start: time.Now(),
	}
}

func (e *LocalEnv) notices() notice.Sink {
	if e.Notices != nil {
		return e.Notices
	}
	if e.Log != nil {
		return notice.NewLogSink(e.Log)
	}
	return notice.Discard
}

func (e *LocalEnv) logger() *zap.Logger {
	if e.Log != nil {
		return e.Log
	}
	return zap.NewNop()
}

// Library returns book library, building it on first use from configuration.
// Cache which cannot be opened is logged and skipped, reading works without
// it.
func (e *LocalEnv) Library() (*library.Library, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.library != nil {
		return e.library, nil
	}
	if e.Cfg == nil {
		return nil, fmt.Errorf("configuration is not loaded")
	}
	log := e.logger()

	client, err := remote.New(&e.Cfg.Remote, log)
	if err != nil {
		return nil, err
	}
	opts := []library.Option{
		library.WithReport(e.Rpt),
		library.WithAudioFormats(e.Cfg.Media.Formats),
		library.WithNotices(e.notices()),
	}
	if e.Cfg.Cache.Enable {
		c, err := cache.Open(e.Cfg.Cache.Path, log)
		if err != nil {
			log.Warn("Local cache is not available", zap.Error(err))
		} else {
			e.cache = c
			opts = append(opts, library.WithCache(c))
		}
	}
	e.library = library.New(client, log, opts...)
	return e.library, nil
}

// Prefs returns reader preferences, loading them on first use.
func (e *LocalEnv) Prefs() *prefs.Prefs {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.prefs != nil {
		return e.prefs
	}
	var (
		store    prefs.Store = &prefs.MemoryStore{}
		defaults             = prefs.Defaults(nil)
	)
	if e.Cfg != nil {
		store = prefs.NewFileStore(e.Cfg.Preferences.Path)
		defaults = prefs.Defaults(&e.Cfg.Preferences)
	}
	e.prefs = prefs.Open(store, defaults, e.logger())
	return e.prefs
}
