// Package prefs keeps reader preferences which survive between sessions:
// sound settings, font size and where the book was left.
package prefs

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	yaml "gopkg.in/yaml.v3"

	"grimoire/config"
)

const (
	MinFontSize     = 10
	MaxFontSize     = 32
	DefaultFontSize = 16
	DefaultVolume   = 0.5
)

// Preferences is a plain value, copy it freely.
type Preferences struct {
	Muted    bool    `yaml:"muted"`
	Volume   float64 `yaml:"volume"`
	FontSize int     `yaml:"font_size"`
	BookOpen bool    `yaml:"book_open"`
	LastPage int     `yaml:"last_page"`
}

// Defaults returns preferences for the very first session.
func Defaults(cfg *config.PreferencesConfig) Preferences {
	p := Preferences{Volume: DefaultVolume, FontSize: DefaultFontSize}
	if cfg != nil {
		p.Muted, p.Volume, p.FontSize = cfg.Muted, cfg.Volume, cfg.FontSize
	}
	return p.Normalize()
}

// Normalize brings values into their allowed ranges.
func (p Preferences) Normalize() Preferences {
	if math.IsNaN(p.Volume) {
		p.Volume = DefaultVolume
	}
	p.Volume = ClampVolume(p.Volume)
	if p.FontSize == 0 {
		p.FontSize = DefaultFontSize
	}
	p.FontSize = min(max(p.FontSize, MinFontSize), MaxFontSize)
	p.LastPage = max(p.LastPage, 0)
	return p
}

func ClampVolume(v float64) float64 {
	return min(max(v, 0), 1)
}

// Store persists preferences.
type Store interface {
	Load() (Preferences, bool, error)
	Save(p Preferences) error
}

// FileStore keeps preferences in YAML file.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load returns stored preferences, false when nothing was stored yet.
func (s *FileStore) Load() (Preferences, bool, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Preferences{}, false, nil
		}
		return Preferences{}, false, fmt.Errorf("unable to read preferences: %w", err)
	}
	var p Preferences
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Preferences{}, false, fmt.Errorf("unable to parse preferences '%s': %w", s.path, err)
	}
	return p, true, nil
}

// Save writes preferences atomically.
func (s *FileStore) Save(p Preferences) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("unable to marshal preferences: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("unable to create preferences directory: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("unable to write preferences: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("unable to replace preferences: %w", err)
	}
	return nil
}

// MemoryStore is Store which never touches disk.
type MemoryStore struct {
	mu    sync.Mutex
	p     Preferences
	saved bool
	Saves int
}

func (s *MemoryStore) Load() (Preferences, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p, s.saved, nil
}

func (s *MemoryStore) Save(p Preferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.p, s.saved = p, true
	s.Saves++
	return nil
}

// Prefs is live preferences object shared by components of one session. Any
// change which alters the value is saved immediately.
type Prefs struct {
	log   *zap.Logger
	store Store

	mu  sync.Mutex
	cur Preferences
}

// Open loads preferences from store falling back to defaults. Broken store is
// logged and defaults are used, preferences are never fatal.
func Open(store Store, defaults Preferences, log *zap.Logger) *Prefs {
	log = log.Named("prefs")
	cur := defaults
	if p, ok, err := store.Load(); err != nil {
		log.Warn("Unable to load preferences, using defaults", zap.Error(err))
	} else if ok {
		cur = p
	}
	return &Prefs{log: log, store: store, cur: cur.Normalize()}
}

// Get returns current preferences.
func (p *Prefs) Get() Preferences {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cur
}

// Update applies fn and saves result when anything changed.
func (p *Prefs) Update(fn func(*Preferences)) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	next := p.cur
	fn(&next)
	next = next.Normalize()
	if next == p.cur {
		return nil
	}
	p.cur = next
	if err := p.store.Save(next); err != nil {
		p.log.Warn("Unable to save preferences", zap.Error(err))
		return err
	}
	return nil
}

func (p *Prefs) SetMuted(muted bool) error {
	return p.Update(func(v *Preferences) { v.Muted = muted })
}

func (p *Prefs) SetVolume(volume float64) error {
	return p.Update(func(v *Preferences) { v.Volume = volume })
}

// AdjustFontSize changes font size by delta staying within bounds and
// returns resulting size.
func (p *Prefs) AdjustFontSize(delta int) int {
	_ = p.Update(func(v *Preferences) { v.FontSize += delta })
	return p.Get().FontSize
}

// SetBook records whether book is open and on which page.
func (p *Prefs) SetBook(open bool, page int) error {
	return p.Update(func(v *Preferences) { v.BookOpen, v.LastPage = open, page })
}
