// Package store provides SQLite persistence for the reels client: the
// viewer's own likes/bookmarks and their watch history survive restarts
// even though the feed itself is refetched every session.
package store

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/openscroll/reels/internal/feed"
)

// Store handles SQLite persistence. NOT an interface - concrete type.
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open creates a Store at the given database path, creating tables if
// they don't exist. Uses WAL mode for file-based databases.
func Open(dbPath string) (*Store, error) {
	connStr := dbPath
	if dbPath == ":memory:" {
		// Shared cache so every pooled connection sees the same database.
		connStr = "file::memory:?cache=shared"
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if dbPath != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	s := &Store{db: db}

	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return s, nil
}

func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS viewer_state (
		item_id TEXT PRIMARY KEY,
		liked INTEGER NOT NULL DEFAULT 0,
		bookmarked INTEGER NOT NULL DEFAULT 0,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS watch_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		item_id TEXT NOT NULL,
		watched_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_watch_history_item ON watch_history(item_id);
	CREATE INDEX IF NOT EXISTS idx_watch_history_time ON watch_history(watched_at DESC);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// ViewerState returns the persisted viewer state for an item. found is
// false when the viewer never interacted with it.
func (s *Store) ViewerState(itemID string) (feed.ViewerState, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var v feed.ViewerState
	var liked, bookmarked int
	err := s.db.QueryRow(
		`SELECT liked, bookmarked FROM viewer_state WHERE item_id = ?`, itemID,
	).Scan(&liked, &bookmarked)
	if err == sql.ErrNoRows {
		return v, false, nil
	}
	if err != nil {
		return v, false, fmt.Errorf("query viewer state: %w", err)
	}
	v.Liked = liked != 0
	v.Bookmarked = bookmarked != 0
	return v, true, nil
}

// SaveViewerState upserts the viewer's state for an item.
func (s *Store) SaveViewerState(itemID string, v feed.ViewerState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO viewer_state (item_id, liked, bookmarked, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(item_id) DO UPDATE SET
			liked = excluded.liked,
			bookmarked = excluded.bookmarked,
			updated_at = excluded.updated_at
	`, itemID, boolInt(v.Liked), boolInt(v.Bookmarked), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save viewer state: %w", err)
	}
	return nil
}

// RecordView appends one watch-history row.
func (s *Store) RecordView(itemID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT INTO watch_history (item_id, watched_at) VALUES (?, ?)`,
		itemID, at.UTC(),
	)
	if err != nil {
		return fmt.Errorf("record view: %w", err)
	}
	return nil
}

// ViewCount returns how many times an item appears in watch history.
func (s *Store) ViewCount(itemID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM watch_history WHERE item_id = ?`, itemID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count views: %w", err)
	}
	return n, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
