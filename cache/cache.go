// Package cache keeps the last successfully fetched book on local disk, so
// reading can continue when the remote side is not reachable. It is never
// authoritative.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"grimoire/book"
)

// ErrEmpty is returned by Get when nothing was cached yet.
var ErrEmpty = errors.New("no cached book")

const schema = `CREATE TABLE IF NOT EXISTS snapshots (
	id         INTEGER PRIMARY KEY CHECK (id = 1),
	fetched_at INTEGER NOT NULL,
	chapters   INTEGER NOT NULL,
	payload    BLOB NOT NULL
)`

// Cache is safe for concurrent use, single connection is serialized.
type Cache struct {
	log  *zap.Logger
	path string

	mu   sync.Mutex
	conn *sqlite.Conn
}

// Open opens (creating when necessary) cache database at path. Use
// ":memory:" for throw away cache.
func Open(path string, log *zap.Logger) (*Cache, error) {
	flags := []sqlite.OpenFlags{sqlite.OpenReadWrite, sqlite.OpenCreate, sqlite.OpenWAL}
	if path == ":memory:" {
		flags = []sqlite.OpenFlags{sqlite.OpenReadWrite, sqlite.OpenMemory}
	}
	conn, err := sqlite.OpenConn(path, flags...)
	if err != nil {
		return nil, fmt.Errorf("open cache '%s': %w", path, err)
	}
	if err := sqlitex.Execute(conn, schema, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("prepare cache '%s': %w", path, err)
	}
	return &Cache{log: log.Named("cache"), path: path, conn: conn}, nil
}

// Put replaces cached book.
func (c *Cache) Put(s *book.Snapshot) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode book for cache: %w", err)
	}
	fetched := s.FetchedAt
	if fetched.IsZero() {
		fetched = time.Now()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return errors.New("cache is closed")
	}
	err = sqlitex.Execute(c.conn,
		`INSERT INTO snapshots (id, fetched_at, chapters, payload) VALUES (1, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET fetched_at = excluded.fetched_at, chapters = excluded.chapters, payload = excluded.payload`,
		&sqlitex.ExecOptions{Args: []any{fetched.UnixMilli(), len(s.Chapters), payload}})
	if err != nil {
		return fmt.Errorf("store book in cache: %w", err)
	}
	c.log.Debug("Book cached", zap.Int("chapters", len(s.Chapters)), zap.Int("size", len(payload)))
	return nil
}

// Get returns cached book marked as such.
func (c *Cache) Get() (*book.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil, errors.New("cache is closed")
	}

	var (
		found   bool
		fetched int64
		payload []byte
	)
	err := sqlitex.Execute(c.conn, `SELECT fetched_at, payload FROM snapshots WHERE id = 1`,
		&sqlitex.ExecOptions{ResultFunc: func(stmt *sqlite.Stmt) error {
			found = true
			fetched = stmt.ColumnInt64(0)
			var err error
			payload, err = io.ReadAll(stmt.ColumnReader(1))
			return err
		}})
	if err != nil {
		return nil, fmt.Errorf("read cached book: %w", err)
	}
	if !found {
		return nil, ErrEmpty
	}

	s, err := book.Decode(payload)
	if err != nil {
		return nil, fmt.Errorf("cached book is damaged: %w", err)
	}
	s.FetchedAt = time.UnixMilli(fetched)
	s.Cached = true
	return s, nil
}

// Clear removes cached book.
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return errors.New("cache is closed")
	}
	if err := sqlitex.Execute(c.conn, `DELETE FROM snapshots`, nil); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	return nil
}

func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}
