// Package session holds the feed controller: the authoritative current
// index, the load-state machine, and the dispatch paths that tie the
// gesture interpreter, pagination manager, engagement store, and
// playback coordinator together.
//
// The controller is a synchronous state machine. Network awaits are
// modeled as begin/complete pairs (BeginLoad/CompleteLoad,
// Dispatch/ResolveInteraction): the caller runs the transfer off the
// event loop and feeds the result back in. Completion handlers look
// state up fresh by ID, so nothing trusts a snapshot taken before an
// await.
package session

import (
	"time"

	"github.com/openscroll/reels/internal/engage"
	"github.com/openscroll/reels/internal/feed"
	"github.com/openscroll/reels/internal/gesture"
	"github.com/openscroll/reels/internal/logging"
	"github.com/openscroll/reels/internal/paging"
	"github.com/openscroll/reels/internal/playback"
)

// LoadState is the controller's load-state machine.
type LoadState int

const (
	StateIdle        LoadState = iota
	StateLoading     // initial page; failure here is fatal-for-display
	StateReady       // items visible, nothing in flight
	StateLoadingMore // appending; failure here is non-fatal
	StateError
)

func (s LoadState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateLoadingMore:
		return "loading-more"
	case StateError:
		return "error"
	}
	return "unknown"
}

// ViewerStore persists per-item viewer state across runs. Implemented by
// the sqlite store; all calls are best-effort.
type ViewerStore interface {
	ViewerState(itemID string) (feed.ViewerState, bool, error)
	SaveViewerState(itemID string, v feed.ViewerState) error
	RecordView(itemID string, at time.Time) error
}

// Receipt carries one dispatched interaction to the transport and back.
type Receipt struct {
	ItemID string
	Kind   engage.Kind
	token  engage.RevertToken
}

// Session is one mounted feed instance.
type Session struct {
	pager    *paging.Manager
	engage   *engage.Store
	playback *playback.Coordinator

	store   ViewerStore // optional
	haptics func()      // optional, best-effort

	items      []feed.Item
	index      int
	state      LoadState
	lastErr    error
	nextCursor string
	viewed     map[string]bool
}

// Option configures a Session.
type Option func(*Session)

// WithViewerStore wires persisted viewer state into the session.
func WithViewerStore(vs ViewerStore) Option {
	return func(s *Session) { s.store = vs }
}

// WithHaptics sets the haptic-feedback hook fired on successful
// navigation. Must not block.
func WithHaptics(fn func()) Option {
	return func(s *Session) { s.haptics = fn }
}

// New creates a Session in the Idle state.
func New(pager *paging.Manager, opts ...Option) *Session {
	s := &Session{
		pager:    pager,
		playback: playback.NewCoordinator(),
		state:    StateIdle,
		viewed:   make(map[string]bool),
	}
	s.engage = engage.NewStore(s.itemByID)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Attach subscribes the session to an interpreter's intent stream. The
// session is the interpreter's only subscriber.
func (s *Session) Attach(in *gesture.Interpreter) {
	in.OnIntent(func(intent gesture.Intent) {
		s.Navigate(intent)
	})
}

// Playback exposes the playback coordinator for the presentation layer.
func (s *Session) Playback() *playback.Coordinator {
	return s.playback
}

// Pager exposes the pagination manager.
func (s *Session) Pager() *paging.Manager {
	return s.pager
}

// --- load-state machine ---

// BeginLoad transitions into a loading state and returns the cursor to
// fetch. ok is false when no load should start: already loading, feed
// exhausted, or not close enough to the edge for a prefetch.
func (s *Session) BeginLoad() (cursor string, ok bool) {
	switch s.state {
	case StateIdle, StateError:
		if len(s.items) > 0 {
			// Mid-feed append failure; retry keeps current items visible.
			s.state = StateLoadingMore
		} else {
			s.state = StateLoading
		}
		return s.nextCursor, true

	case StateReady:
		if !s.pager.ShouldPrefetch(s.index, len(s.items)) {
			return "", false
		}
		s.state = StateLoadingMore
		return s.nextCursor, true
	}
	return "", false
}

// CompleteLoad feeds a fetch result back into the state machine. Errors
// during the initial load are fatal-for-display; errors while loading
// more keep the current items visible and return to Ready. Appends never
// move the current index, so a superseded response cannot corrupt it.
func (s *Session) CompleteLoad(page feed.Page, err error) {
	switch s.state {
	case StateLoading:
		if err != nil {
			s.state = StateError
			s.lastErr = err
			logging.Error("initial load failed", "error", err)
			return
		}
		s.appendPage(page)
		s.state = StateReady
		s.lastErr = nil
		if len(s.items) > 0 {
			s.index = 0
			s.activate()
		}

	case StateLoadingMore:
		s.state = StateReady
		if err != nil {
			// Non-fatal: log, keep viewing, allow retry at the edge.
			s.lastErr = err
			logging.Warn("append failed", "error", err)
			return
		}
		s.lastErr = nil
		s.appendPage(page)

	default:
		// A stray completion after teardown or a retry raced ahead;
		// appending is still safe, state is not.
		if err == nil {
			s.appendPage(page)
		}
	}
}

func (s *Session) appendPage(page feed.Page) {
	for _, it := range page.Items {
		if s.store != nil {
			if v, found, err := s.store.ViewerState(it.ID); err == nil && found {
				it.Viewer = v
			}
		}
		s.items = append(s.items, it)
	}
	s.nextCursor = page.NextCursor
}

// Retry re-arms a failed load. The next BeginLoad re-issues the same
// cursor.
func (s *Session) Retry() {
	if s.state == StateError {
		s.state = StateIdle
	}
}

// --- navigation ---

// Navigate applies one intent to the authoritative index. Advance and
// Retreat clamp to the loaded range; an out-of-range jump is a no-op.
// Returns true when the index changed.
func (s *Session) Navigate(intent gesture.Intent) bool {
	if len(s.items) == 0 {
		return false
	}

	next := s.index
	switch intent.Kind {
	case gesture.Advance:
		if next < len(s.items)-1 {
			next++
		}
	case gesture.Retreat:
		if next > 0 {
			next--
		}
	case gesture.Jump:
		if intent.Index >= 0 && intent.Index < len(s.items) {
			next = intent.Index
		}
	}

	if next == s.index {
		return false
	}
	s.index = next
	s.activate()
	if s.haptics != nil {
		s.haptics()
	}
	return true
}

// activate points the playback coordinator at the new current item.
func (s *Session) activate() {
	if it, ok := s.Current(); ok {
		s.playback.SetActive(it.ID)
	}
}

// --- engagement ---

// Dispatch applies an optimistic interaction to the current item and
// returns the receipt the transport needs. ok is false when there is no
// current item.
func (s *Session) Dispatch(kind engage.Kind) (Receipt, bool) {
	it, ok := s.Current()
	if !ok {
		return Receipt{}, false
	}
	tok, err := s.engage.Apply(it.ID, kind)
	if err != nil {
		logging.Warn("dispatch failed", "error", err)
		return Receipt{}, false
	}
	s.persistViewer(it.ID)
	return Receipt{ItemID: it.ID, Kind: kind, token: tok}, true
}

// ResolveInteraction settles a dispatched interaction with the server's
// verdict. Failures revert silently; engagement is best-effort from the
// viewer's perspective.
func (s *Session) ResolveInteraction(r Receipt, ok bool) {
	s.engage.Reconcile(r.token, ok)
	if !ok {
		s.persistViewer(r.ItemID)
	}
}

// MarkViewed records a view of the current item the first time it is
// seen. Views are fire-and-forget: no toggle, no rollback. ok is false
// when the item was already counted or there is no current item.
func (s *Session) MarkViewed() (Receipt, bool) {
	it, ok := s.Current()
	if !ok || s.viewed[it.ID] {
		return Receipt{}, false
	}
	s.viewed[it.ID] = true
	tok, err := s.engage.Apply(it.ID, engage.View)
	if err != nil {
		return Receipt{}, false
	}
	if s.store != nil {
		if err := s.store.RecordView(it.ID, time.Now()); err != nil {
			logging.Warn("record view failed", "error", err)
		}
	}
	return Receipt{ItemID: it.ID, Kind: engage.View, token: tok}, true
}

// SyncCounters applies server-pushed counter values to an item. Viewer
// state is untouched.
func (s *Session) SyncCounters(itemID string, c feed.Counters) {
	s.engage.SyncCounters(itemID, c)
}

func (s *Session) persistViewer(itemID string) {
	if s.store == nil {
		return
	}
	if it := s.itemByID(itemID); it != nil {
		if err := s.store.SaveViewerState(itemID, it.Viewer); err != nil {
			logging.Warn("persist viewer state failed", "item", itemID, "error", err)
		}
	}
}

// --- accessors ---

// Current returns the item at the authoritative index.
func (s *Session) Current() (*feed.Item, bool) {
	if len(s.items) == 0 || s.index < 0 || s.index >= len(s.items) {
		return nil, false
	}
	return &s.items[s.index], true
}

// Items returns the flattened item sequence. Callers must not mutate.
func (s *Session) Items() []feed.Item {
	return s.items
}

// Index returns the authoritative current index.
func (s *Session) Index() int {
	return s.index
}

// State returns the load state.
func (s *Session) State() LoadState {
	return s.state
}

// Err returns the most recent load error, if any.
func (s *Session) Err() error {
	return s.lastErr
}

// Empty reports the terminal empty-feed condition: the initial load
// succeeded but returned zero items.
func (s *Session) Empty() bool {
	return s.state == StateReady && len(s.items) == 0 && s.pager.Exhausted()
}

func (s *Session) itemByID(id string) *feed.Item {
	for i := range s.items {
		if s.items[i].ID == id {
			return &s.items[i]
		}
	}
	return nil
}
