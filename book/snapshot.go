package book

import (
	"time"
)

// Snapshot is a read-only view of the whole book at some point in time. It
// is replaced as a whole after every remote mutation and never patched.
type Snapshot struct {
	Chapters []Chapter
	Mural    Mural
	// When snapshot was fetched and whether it came from local cache.
	FetchedAt time.Time
	Cached    bool
}

// Pages returns number of pages: every chapter plus the mural.
func (s *Snapshot) Pages() int {
	if s == nil {
		return 1
	}
	return len(s.Chapters) + 1
}

// MuralPage returns index of the terminal mural page.
func (s *Snapshot) MuralPage() int {
	return s.Pages() - 1
}

// Chapter returns chapter displayed on page index or nil for the mural page
// and out of range indexes.
func (s *Snapshot) Chapter(page int) *Chapter {
	if s == nil || page < 0 || page >= len(s.Chapters) {
		return nil
	}
	return &s.Chapters[page]
}

// IndexOf finds page index of chapter with given identifier.
func (s *Snapshot) IndexOf(id ID) (int, bool) {
	if s == nil || id.IsZero() {
		return -1, false
	}
	for i := range s.Chapters {
		if s.Chapters[i].ID == id {
			return i, true
		}
	}
	return -1, false
}

// Find returns chapter with given identifier.
func (s *Snapshot) Find(id ID) (*Chapter, bool) {
	if i, ok := s.IndexOf(id); ok {
		return &s.Chapters[i], true
	}
	return nil, false
}
