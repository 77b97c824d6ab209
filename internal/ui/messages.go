// Package ui provides the Bubble Tea TUI for the reels feed.
package ui

import (
	"time"

	"github.com/openscroll/reels/internal/api"
	"github.com/openscroll/reels/internal/feed"
	"github.com/openscroll/reels/internal/session"
)

// PageLoaded is sent when a feed page fetch finishes.
type PageLoaded struct {
	Page feed.Page
	Err  error
}

// InteractionDone is sent when an engagement POST resolves.
type InteractionDone struct {
	Receipt session.Receipt
	Ok      bool
	Err     error
}

// CounterSync is sent when the live counter stream pushes an update.
type CounterSync struct {
	Update api.CounterUpdate
}

// StreamClosed is sent when the live counter stream shuts down.
type StreamClosed struct{}

// PlayTick drives playhead progress and the snap-back spring.
type PlayTick struct {
	At time.Time
}
