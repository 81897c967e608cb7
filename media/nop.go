package media

import (
	"context"
	"sync"
)

// NopBackend accepts resources but refuses to play anything, for terminals
// where sound is disabled in configuration. Autoplay therefore always
// degrades to paused state.
type NopBackend struct {
	wg     sync.WaitGroup
	mu     sync.Mutex
	loaded bool
}

func (b *NopBackend) SetHandler(func(Event)) {}

func (b *NopBackend) Load(_ context.Context, _ string, done LoadFunc) {
	b.mu.Lock()
	b.loaded = true
	b.mu.Unlock()

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		done(0, nil)
	}()
}

func (b *NopBackend) Unload() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.loaded = false
}

func (b *NopBackend) Play() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.loaded {
		return ErrNotLoaded
	}
	return ErrAutoplayBlocked
}

func (b *NopBackend) Pause()            {}
func (b *NopBackend) Seek(float64)      {}
func (b *NopBackend) SetVolume(float64) {}
func (b *NopBackend) SetMuted(bool)     {}

func (b *NopBackend) Close() error {
	b.wg.Wait()
	return nil
}
