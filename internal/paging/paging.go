// Package paging tracks loaded pages and prefetch for the infinite
// feed. Concurrent fetches for the same cursor are collapsed into one
// underlying call; a failed cursor stays retryable.
package paging

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/openscroll/reels/internal/feed"
	"github.com/openscroll/reels/internal/logging"
)

// lookahead is the prefetch window: fetch more once the viewer is within
// this many items of the loaded edge.
const lookahead = 3

// ErrExhausted is returned for fetches past the end of the feed.
var ErrExhausted = errors.New("feed exhausted")

// FetchFunc retrieves one page for a cursor. An empty cursor means the
// first page.
type FetchFunc func(ctx context.Context, cursor string, pageSize int) (feed.Page, error)

// Manager deduplicates page fetches and decides when to prefetch.
// Safe for concurrent use: fetch completions arrive from command
// goroutines while prefetch checks run on the event loop.
type Manager struct {
	fetch    FetchFunc
	pageSize int

	group singleflight.Group

	mu        sync.Mutex
	inflight  map[string]bool
	exhausted bool
}

// NewManager creates a Manager around fetch. pageSize must be positive.
func NewManager(fetch FetchFunc, pageSize int) *Manager {
	if pageSize <= 0 {
		pageSize = 10
	}
	return &Manager{
		fetch:    fetch,
		pageSize: pageSize,
		inflight: make(map[string]bool),
	}
}

// PageSize returns the configured page size.
func (m *Manager) PageSize() int {
	return m.pageSize
}

// RequestPage fetches the page at cursor. A second call for the same
// cursor while one is outstanding shares the in-flight call's result
// instead of issuing a duplicate network request. A page shorter than
// the page size marks the feed exhausted; no further prefetch fires.
func (m *Manager) RequestPage(ctx context.Context, cursor string) (feed.Page, error) {
	m.mu.Lock()
	if m.exhausted {
		m.mu.Unlock()
		return feed.Page{}, ErrExhausted
	}
	m.inflight[cursor] = true
	m.mu.Unlock()

	v, err, _ := m.group.Do(cursor, func() (interface{}, error) {
		defer func() {
			m.mu.Lock()
			delete(m.inflight, cursor)
			m.mu.Unlock()
			// Let a later retry of the same cursor issue a fresh call.
			m.group.Forget(cursor)
		}()

		page, err := m.fetch(ctx, cursor, m.pageSize)
		if err != nil {
			logging.Warn("page fetch failed", "cursor", cursor, "error", err)
			return feed.Page{}, err
		}

		for i := range page.Items {
			page.Items[i].Normalize()
		}

		if len(page.Items) < m.pageSize || page.NextCursor == "" {
			m.mu.Lock()
			m.exhausted = true
			m.mu.Unlock()
			logging.Debug("feed exhausted", "cursor", cursor, "items", len(page.Items))
		}
		return page, nil
	})
	if err != nil {
		return feed.Page{}, err
	}
	return v.(feed.Page), nil
}

// ShouldPrefetch reports whether the viewer is close enough to the
// loaded edge to warrant fetching the next page. False while a fetch is
// already in flight or after the last page arrived.
func (m *Manager) ShouldPrefetch(currentIndex, loadedCount int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.exhausted || len(m.inflight) > 0 {
		return false
	}
	return loadedCount-currentIndex <= lookahead
}

// Exhausted reports whether the last page has been seen.
func (m *Manager) Exhausted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.exhausted
}
