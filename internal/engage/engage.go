// Package engage applies optimistic engagement mutations to feed items
// and reconciles them against server acknowledgments.
//
// Every optimistic mutation returns a RevertToken recording exactly the
// delta that was applied. On a failed reconciliation only that delta is
// undone, so a late failure never clobbers a newer, unrelated toggle on
// the same item. Counters and viewer state mutate through this package
// only; no other component holds the write path.
package engage

import (
	"fmt"

	"github.com/openscroll/reels/internal/feed"
	"github.com/openscroll/reels/internal/logging"
)

// Kind is one engagement action.
type Kind int

const (
	Like Kind = iota // toggle
	Bookmark         // toggle
	Share            // monotonic increment
	View             // monotonic increment, fire-and-forget
)

func (k Kind) String() string {
	switch k {
	case Like:
		return "like"
	case Bookmark:
		return "bookmark"
	case Share:
		return "share"
	case View:
		return "view"
	}
	return "unknown"
}

// RevertToken records the exact delta one optimistic mutation applied.
type RevertToken struct {
	ItemID string
	Kind   Kind

	// counterDelta is what was added to the kind's counter.
	counterDelta int64

	// flippedViewer is true when the mutation toggled a viewer flag.
	flippedViewer bool
}

// Resolver maps an item ID to the live item at reconciliation time.
// Reconciliation must re-read current state rather than trusting a
// pointer captured before the network round trip.
type Resolver func(itemID string) *feed.Item

// Store funnels all counter and viewer-state writes.
type Store struct {
	resolve Resolver
}

// NewStore creates a Store that locates items through resolve.
func NewStore(resolve Resolver) *Store {
	return &Store{resolve: resolve}
}

// Apply performs an optimistic mutation on the item, reading toggle
// direction from the item's current local state, and returns the token
// needed to undo it. Returns an error if the item is unknown.
func (s *Store) Apply(itemID string, kind Kind) (RevertToken, error) {
	it := s.resolve(itemID)
	if it == nil {
		return RevertToken{}, fmt.Errorf("apply %s: unknown item %q", kind, itemID)
	}

	tok := RevertToken{ItemID: itemID, Kind: kind}

	switch kind {
	case Like:
		if it.Viewer.Liked {
			it.Viewer.Liked = false
			it.Counters.Likes--
			tok.counterDelta = -1
		} else {
			it.Viewer.Liked = true
			it.Counters.Likes++
			tok.counterDelta = 1
		}
		tok.flippedViewer = true

	case Bookmark:
		if it.Viewer.Bookmarked {
			it.Viewer.Bookmarked = false
			it.Counters.Bookmarks--
			tok.counterDelta = -1
		} else {
			it.Viewer.Bookmarked = true
			it.Counters.Bookmarks++
			tok.counterDelta = 1
		}
		tok.flippedViewer = true

	case Share:
		it.Counters.Shares++
		tok.counterDelta = 1

	case View:
		it.Counters.Views++
		tok.counterDelta = 1

	default:
		return RevertToken{}, fmt.Errorf("apply: unknown kind %d", kind)
	}

	return tok, nil
}

// Reconcile settles an earlier optimistic mutation. ok means the server
// accepted it and the local state stands. On failure the token's exact
// delta is reverted against the item's state as it is now, which may
// reflect later mutations that must survive. View failures are ignored;
// views are fire-and-forget.
func (s *Store) Reconcile(tok RevertToken, ok bool) {
	if ok || tok.Kind == View {
		return
	}

	it := s.resolve(tok.ItemID)
	if it == nil {
		// Item evicted while the request was in flight; nothing to undo.
		return
	}

	logging.Debug("reverting failed interaction", "item", tok.ItemID, "kind", tok.Kind.String())

	switch tok.Kind {
	case Like:
		it.Counters.Likes -= tok.counterDelta
		if tok.flippedViewer {
			it.Viewer.Liked = !it.Viewer.Liked
		}
	case Bookmark:
		it.Counters.Bookmarks -= tok.counterDelta
		if tok.flippedViewer {
			it.Viewer.Bookmarked = !it.Viewer.Bookmarked
		}
	case Share:
		it.Counters.Shares -= tok.counterDelta
	}
}

// SyncCounters overwrites an item's counters with server-authoritative
// values, e.g. from the live counter stream. Viewer state is never
// touched: the server's aggregate view says nothing about this viewer's
// own toggles.
func (s *Store) SyncCounters(itemID string, c feed.Counters) {
	it := s.resolve(itemID)
	if it == nil {
		return
	}
	it.Counters = c
}
