package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/openscroll/reels/internal/engage"
	"github.com/openscroll/reels/internal/feed"
	"github.com/openscroll/reels/internal/gesture"
	"github.com/openscroll/reels/internal/paging"
)

// fakeBackend serves a fixed number of items in pages and can be told
// to fail.
type fakeBackend struct {
	total    int
	failNext bool
	calls    int
}

func (f *fakeBackend) fetch(ctx context.Context, cursor string, pageSize int) (feed.Page, error) {
	f.calls++
	if f.failNext {
		f.failNext = false
		return feed.Page{}, errors.New("backend down")
	}

	offset := 0
	if cursor != "" {
		fmt.Sscanf(cursor, "%d", &offset)
	}

	var items []feed.Item
	for i := offset; i < f.total && len(items) < pageSize; i++ {
		items = append(items, feed.Item{
			ID:      fmt.Sprintf("item-%d", i),
			Author:  "tester",
			Caption: fmt.Sprintf("reel %d", i),
		})
	}

	next := ""
	if offset+len(items) < f.total {
		next = fmt.Sprintf("%d", offset+len(items))
	}
	return feed.Page{Items: items, NextCursor: next}, nil
}

// load drives one begin/complete cycle synchronously.
func load(t *testing.T, s *Session) {
	t.Helper()
	cursor, ok := s.BeginLoad()
	if !ok {
		t.Fatal("BeginLoad refused")
	}
	page, err := s.Pager().RequestPage(context.Background(), cursor)
	s.CompleteLoad(page, err)
}

func newTestSession(total, pageSize int, opts ...Option) (*Session, *fakeBackend) {
	backend := &fakeBackend{total: total}
	pager := paging.NewManager(backend.fetch, pageSize)
	return New(pager, opts...), backend
}

func TestInitialLoad(t *testing.T) {
	s, _ := newTestSession(25, 10)

	if s.State() != StateIdle {
		t.Fatalf("state = %v, want Idle", s.State())
	}

	load(t, s)

	if s.State() != StateReady {
		t.Fatalf("state = %v, want Ready", s.State())
	}
	if len(s.Items()) != 10 || s.Index() != 0 {
		t.Errorf("items=%d index=%d, want 10/0", len(s.Items()), s.Index())
	}
	if got, _ := s.Current(); got.ID != "item-0" {
		t.Errorf("current = %v, want item-0", got.ID)
	}
}

func TestInitialLoadFailureThenRetry(t *testing.T) {
	s, backend := newTestSession(25, 10)
	backend.failNext = true

	load(t, s)

	if s.State() != StateError {
		t.Fatalf("state = %v, want Error (fatal for display)", s.State())
	}
	if s.Err() == nil {
		t.Fatal("Err should carry the failure")
	}

	s.Retry()
	load(t, s)

	if s.State() != StateReady || len(s.Items()) != 10 {
		t.Errorf("after retry: state=%v items=%d, want Ready/10", s.State(), len(s.Items()))
	}
}

func TestNavigationClamps(t *testing.T) {
	s, _ := newTestSession(5, 5)
	load(t, s)

	// Retreat at the start is a no-op.
	if s.Navigate(gesture.Intent{Kind: gesture.Retreat}) {
		t.Error("retreat at index 0 should not move")
	}

	// Walk to the end.
	for i := 0; i < 10; i++ {
		s.Navigate(gesture.Intent{Kind: gesture.Advance})
	}
	if s.Index() != 4 {
		t.Errorf("index = %d, want clamp at 4 (no wrap)", s.Index())
	}

	// Valid jump.
	if !s.Navigate(gesture.Intent{Kind: gesture.Jump, Index: 2}) {
		t.Error("JumpTo(2) with 5 items should move")
	}
	if s.Index() != 2 {
		t.Errorf("index = %d, want 2", s.Index())
	}

	// Out-of-range jump is a no-op.
	if s.Navigate(gesture.Intent{Kind: gesture.Jump, Index: 10}) {
		t.Error("JumpTo(10) with 5 items should be a no-op")
	}
	if s.Index() != 2 {
		t.Errorf("index = %d, want unchanged 2", s.Index())
	}
	if s.Navigate(gesture.Intent{Kind: gesture.Jump, Index: -1}) {
		t.Error("negative jump should be a no-op")
	}
}

func TestIndexBoundsUnderRandomNavigation(t *testing.T) {
	s, _ := newTestSession(30, 10)
	load(t, s)

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 500; i++ {
		switch rng.Intn(3) {
		case 0:
			s.Navigate(gesture.Intent{Kind: gesture.Advance})
		case 1:
			s.Navigate(gesture.Intent{Kind: gesture.Retreat})
		case 2:
			s.Navigate(gesture.Intent{Kind: gesture.Jump, Index: rng.Intn(40) - 5})
		}

		if s.Index() < 0 || s.Index() >= len(s.Items()) {
			t.Fatalf("index %d out of bounds [0,%d) after %d steps", s.Index(), len(s.Items()), i+1)
		}

		// Opportunistic prefetch, like the UI would do.
		if cursor, ok := s.BeginLoad(); ok {
			page, err := s.Pager().RequestPage(context.Background(), cursor)
			s.CompleteLoad(page, err)
		}
	}
}

func TestNavigationOnEmptySession(t *testing.T) {
	s, _ := newTestSession(0, 10)

	if s.Navigate(gesture.Intent{Kind: gesture.Advance}) {
		t.Error("navigation with no items should be a no-op")
	}
	if _, ok := s.Current(); ok {
		t.Error("Current on empty session should report not ok")
	}
}

func TestPrefetchTransition(t *testing.T) {
	s, _ := newTestSession(25, 10)
	load(t, s)

	// Far from the edge: no load starts.
	if _, ok := s.BeginLoad(); ok {
		t.Fatal("BeginLoad should refuse far from the loaded edge")
	}

	// Index 7 of 10 leaves 3 remaining: prefetch window.
	s.Navigate(gesture.Intent{Kind: gesture.Jump, Index: 7})
	cursor, ok := s.BeginLoad()
	if !ok {
		t.Fatal("BeginLoad should fire at 3 remaining")
	}
	if s.State() != StateLoadingMore {
		t.Fatalf("state = %v, want LoadingMore", s.State())
	}

	idxBefore := s.Index()
	page, err := s.Pager().RequestPage(context.Background(), cursor)
	s.CompleteLoad(page, err)

	if s.State() != StateReady {
		t.Errorf("state = %v, want Ready after append", s.State())
	}
	if len(s.Items()) != 20 {
		t.Errorf("items = %d, want 20", len(s.Items()))
	}
	if s.Index() != idxBefore {
		t.Errorf("append moved the index: %d -> %d", idxBefore, s.Index())
	}
}

func TestAppendFailureIsNonFatal(t *testing.T) {
	s, backend := newTestSession(25, 10)
	load(t, s)
	s.Navigate(gesture.Intent{Kind: gesture.Jump, Index: 9})

	backend.failNext = true
	cursor, ok := s.BeginLoad()
	if !ok {
		t.Fatal("BeginLoad should fire at the edge")
	}
	page, err := s.Pager().RequestPage(context.Background(), cursor)
	s.CompleteLoad(page, err)

	if s.State() != StateReady {
		t.Errorf("state = %v, want Ready (append failure is non-fatal)", s.State())
	}
	if len(s.Items()) != 10 || s.Index() != 9 {
		t.Errorf("items=%d index=%d, want untouched 10/9", len(s.Items()), s.Index())
	}
	if s.Err() == nil {
		t.Error("append failure should be recorded")
	}

	// Retry at the edge succeeds.
	cursor, ok = s.BeginLoad()
	if !ok {
		t.Fatal("retry BeginLoad refused")
	}
	page, err = s.Pager().RequestPage(context.Background(), cursor)
	s.CompleteLoad(page, err)
	if len(s.Items()) != 20 || s.Err() != nil {
		t.Errorf("retry append: items=%d err=%v, want 20/nil", len(s.Items()), s.Err())
	}
}

func TestEmptyFeedIsTerminalNotError(t *testing.T) {
	s, _ := newTestSession(0, 10)
	load(t, s)

	if s.State() != StateReady {
		t.Fatalf("state = %v, want Ready", s.State())
	}
	if !s.Empty() {
		t.Error("zero items after a successful load should report Empty")
	}
	if _, ok := s.BeginLoad(); ok {
		t.Error("no further loads for an empty, exhausted feed")
	}
}

func TestHapticsOnSuccessfulNavigationOnly(t *testing.T) {
	pulses := 0
	s, _ := newTestSession(5, 5, WithHaptics(func() { pulses++ }))
	load(t, s)

	s.Navigate(gesture.Intent{Kind: gesture.Advance}) // moves
	s.Navigate(gesture.Intent{Kind: gesture.Retreat}) // moves
	s.Navigate(gesture.Intent{Kind: gesture.Retreat}) // clamped, no pulse
	s.Navigate(gesture.Intent{Kind: gesture.Jump, Index: 99})

	if pulses != 2 {
		t.Errorf("haptic pulses = %d, want 2", pulses)
	}
}

func TestAttachedInterpreterDrivesNavigation(t *testing.T) {
	s, _ := newTestSession(5, 5)
	load(t, s)

	in := gesture.New()
	s.Attach(in)

	in.KeyAdvance()
	in.KeyAdvance()
	in.KeyRetreat()

	if s.Index() != 1 {
		t.Errorf("index = %d, want 1 after advance/advance/retreat", s.Index())
	}
}

func TestDispatchAndResolve(t *testing.T) {
	s, _ := newTestSession(5, 5)
	load(t, s)

	receipt, ok := s.Dispatch(engage.Like)
	if !ok {
		t.Fatal("Dispatch refused")
	}
	it, _ := s.Current()
	if !it.Viewer.Liked || it.Counters.Likes != 1 {
		t.Fatalf("optimistic like missing: %+v", it)
	}

	// Server rejects: silent revert.
	s.ResolveInteraction(receipt, false)
	it, _ = s.Current()
	if it.Viewer.Liked || it.Counters.Likes != 0 {
		t.Errorf("revert failed: %+v", it)
	}
}

func TestMarkViewedOncePerItem(t *testing.T) {
	s, _ := newTestSession(5, 5)
	load(t, s)

	if _, ok := s.MarkViewed(); !ok {
		t.Fatal("first MarkViewed should count")
	}
	if _, ok := s.MarkViewed(); ok {
		t.Error("second MarkViewed on the same item should not count")
	}

	it, _ := s.Current()
	if it.Counters.Views != 1 {
		t.Errorf("views = %d, want 1", it.Counters.Views)
	}

	s.Navigate(gesture.Intent{Kind: gesture.Advance})
	if _, ok := s.MarkViewed(); !ok {
		t.Error("new item should count a view")
	}
}

// memStore is an in-memory ViewerStore.
type memStore struct {
	states map[string]feed.ViewerState
	views  []string
}

func (m *memStore) ViewerState(id string) (feed.ViewerState, bool, error) {
	v, ok := m.states[id]
	return v, ok, nil
}

func (m *memStore) SaveViewerState(id string, v feed.ViewerState) error {
	m.states[id] = v
	return nil
}

func (m *memStore) RecordView(id string, at time.Time) error {
	m.views = append(m.views, id)
	return nil
}

func TestPersistedViewerStateMergedOnAppend(t *testing.T) {
	vs := &memStore{states: map[string]feed.ViewerState{
		"item-0": {Liked: true},
		"item-3": {Bookmarked: true},
	}}
	s, _ := newTestSession(5, 5, WithViewerStore(vs))
	load(t, s)

	items := s.Items()
	if !items[0].Viewer.Liked {
		t.Error("item-0 should come back liked")
	}
	if !items[3].Viewer.Bookmarked {
		t.Error("item-3 should come back bookmarked")
	}
	if items[1].Viewer != (feed.ViewerState{}) {
		t.Error("untouched items keep zero viewer state")
	}

	// New toggles are written through.
	s.Dispatch(engage.Bookmark)
	if !vs.states["item-0"].Bookmarked {
		t.Error("dispatch should persist viewer state")
	}
}
