// Package playback couples viewport visibility to media playback state.
//
// The coordinator is a pure state machine driven by discrete events
// (active-item change, visibility ratio change, user play toggle), so it
// is testable without a real viewport. At most one item is Playing at
// any instant; everything else is Paused or Suspended.
package playback

import (
	"github.com/openscroll/reels/internal/logging"
)

// VisibilityThreshold is the minimum fraction of an item that must be
// on screen for it to play.
const VisibilityThreshold = 0.5

// State is the playback state of one item.
type State int

const (
	Suspended State = iota // not the active item; media unloaded
	Playing
	Paused
)

func (s State) String() string {
	switch s {
	case Suspended:
		return "suspended"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	}
	return "unknown"
}

// Coordinator owns playback for one feed instance. Mute, volume, and
// rate are session-wide: they follow the viewer across items, not the
// items themselves. Not safe for concurrent use; driven from the UI
// event loop.
type Coordinator struct {
	activeID   string
	visibility float64

	// wantPlaying is the session's play intent. A visibility drop pauses
	// playback without clearing it, so returning to visibility resumes.
	wantPlaying bool

	muted bool
	rate  float64
}

// NewCoordinator returns a coordinator with playback wanted and full
// visibility assumed until the first visibility event arrives.
func NewCoordinator() *Coordinator {
	return &Coordinator{
		wantPlaying: true,
		visibility:  1.0,
		rate:        1.0,
	}
}

// SetActive switches the active item. The previous item drops to
// Suspended; the new one plays if the session wants playback and the
// viewport shows enough of it.
func (c *Coordinator) SetActive(itemID string) {
	if itemID == c.activeID {
		return
	}
	c.activeID = itemID
	logging.Debug("playback active item changed", "item", itemID, "state", c.StateOf(itemID).String())
}

// VisibilityChanged feeds a new intersection ratio for the active item.
// Dropping below the threshold forces a pause but keeps the play intent.
func (c *Coordinator) VisibilityChanged(ratio float64) {
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	c.visibility = ratio
}

// TogglePlay flips the session's play intent. Affects only the current
// item; other items stay Suspended regardless.
func (c *Coordinator) TogglePlay() {
	c.wantPlaying = !c.wantPlaying
}

// StateOf reports the playback state of the given item.
func (c *Coordinator) StateOf(itemID string) State {
	if itemID == "" || itemID != c.activeID {
		return Suspended
	}
	if c.wantPlaying && c.visibility >= VisibilityThreshold {
		return Playing
	}
	return Paused
}

// ActiveID returns the current active item ID, or "" when none.
func (c *Coordinator) ActiveID() string {
	return c.activeID
}

// WantPlaying reports the session's play intent, independent of
// visibility.
func (c *Coordinator) WantPlaying() bool {
	return c.wantPlaying
}

// SetMuted sets the session-wide mute flag.
func (c *Coordinator) SetMuted(m bool) {
	c.muted = m
}

// ToggleMute flips the session-wide mute flag and returns the new value.
func (c *Coordinator) ToggleMute() bool {
	c.muted = !c.muted
	return c.muted
}

// Muted reports the session-wide mute flag.
func (c *Coordinator) Muted() bool {
	return c.muted
}

// SetRate sets the session-wide playback rate. Non-positive rates are
// ignored.
func (c *Coordinator) SetRate(r float64) {
	if r > 0 {
		c.rate = r
	}
}

// Rate returns the session-wide playback rate.
func (c *Coordinator) Rate() float64 {
	return c.rate
}
