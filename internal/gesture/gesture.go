// Package gesture normalizes heterogeneous input events into a single
// directional intent stream for the feed.
//
// Touch drags, wheel events, keyboard arrows, and direct index selection
// all collapse into one of three intents: Advance, Retreat, or JumpTo.
// The interpreter never touches feed state; the feed controller is the
// only subscriber, registered through OnIntent.
//
// Direction convention, fixed once for the whole client: dragging upward
// (deltaY < 0) advances to the next item, so ArrowDown/j advances and a
// wheel event with positive deltaY retreats. All input paths share this
// sign convention.
package gesture

import (
	"math"
	"time"
)

// Decision thresholds. Distance and velocity are OR'd: a fast short
// flick and a slow long drag both qualify.
const (
	// DistanceThreshold is the minimum drag distance in pixels (rows are
	// treated as pixels in the terminal client).
	DistanceThreshold = 50.0

	// VelocityThreshold is the minimum drag velocity in px/ms.
	VelocityThreshold = 0.5

	// WheelThreshold filters out sub-step wheel deltas.
	WheelThreshold = 10.0
)

// Kind discriminates navigation intents.
type Kind int

const (
	Advance Kind = iota
	Retreat
	Jump
)

func (k Kind) String() string {
	switch k {
	case Advance:
		return "advance"
	case Retreat:
		return "retreat"
	case Jump:
		return "jump"
	}
	return "unknown"
}

// Intent is one discrete navigation command. Index is meaningful only
// for Jump.
type Intent struct {
	Kind  Kind
	Index int
}

// Interpreter turns raw input events into Intents. Not safe for
// concurrent use; it is driven from the single UI event loop.
type Interpreter struct {
	onIntent func(Intent)

	// Transient drag state, reset after each completed gesture.
	dragging  bool
	startY    float64
	startTime time.Time
	lastY     float64

	viewportHeight float64
}

// New returns an Interpreter with no subscriber. Intents emitted before
// OnIntent is called are dropped.
func New() *Interpreter {
	return &Interpreter{viewportHeight: 1}
}

// OnIntent registers the single intent subscriber, replacing any
// previous one.
func (in *Interpreter) OnIntent(fn func(Intent)) {
	in.onIntent = fn
}

// SetViewportHeight updates the height used to normalize rubber-band
// progress. Values <= 0 are ignored.
func (in *Interpreter) SetViewportHeight(h float64) {
	if h > 0 {
		in.viewportHeight = h
	}
}

// DragStart begins a drag gesture at the given vertical position.
// NaN coordinates are ignored.
func (in *Interpreter) DragStart(y float64, at time.Time) {
	if math.IsNaN(y) {
		return
	}
	in.dragging = true
	in.startY = y
	in.lastY = y
	in.startTime = at
}

// DragMove updates an active drag and returns the rubber-band progress
// in [0,1]: |deltaY| as a fraction of viewport height, clamped. The
// progress is presentational feedback only and plays no part in the
// advance/retreat decision. Returns 0 if no drag is active or the
// coordinate is malformed.
func (in *Interpreter) DragMove(y float64) float64 {
	if !in.dragging || math.IsNaN(y) {
		return 0
	}
	in.lastY = y
	progress := math.Abs(y-in.startY) / in.viewportHeight
	if progress > 1 {
		progress = 1
	}
	return progress
}

// DragOffset returns the current signed drag displacement, for rendering
// the in-progress transform. Zero when no drag is active.
func (in *Interpreter) DragOffset() float64 {
	if !in.dragging {
		return 0
	}
	return in.lastY - in.startY
}

// Dragging reports whether a drag gesture is in progress.
func (in *Interpreter) Dragging() bool {
	return in.dragging
}

// DragEnd completes the drag and emits Advance or Retreat if either the
// distance or velocity threshold is met; otherwise nothing is emitted
// and the UI snaps back. Ends with no matching start are ignored.
func (in *Interpreter) DragEnd(y float64, at time.Time) {
	if !in.dragging {
		return
	}
	if math.IsNaN(y) {
		y = in.lastY
	}
	in.dragging = false

	deltaY := y - in.startY
	elapsed := float64(at.Sub(in.startTime).Milliseconds())

	velocity := 0.0
	if elapsed > 0 {
		velocity = deltaY / elapsed
	}

	switch {
	case deltaY < -DistanceThreshold || velocity < -VelocityThreshold:
		in.emit(Intent{Kind: Advance})
	case deltaY > DistanceThreshold || velocity > VelocityThreshold:
		in.emit(Intent{Kind: Retreat})
	}
}

// Wheel handles one wheel event. Each qualifying event is a discrete
// step; deltas are not accumulated across events. Throttling of
// high-resolution trackpads is the caller's concern.
func (in *Interpreter) Wheel(deltaY float64) {
	if math.IsNaN(deltaY) || math.Abs(deltaY) <= WheelThreshold {
		return
	}
	if deltaY < 0 {
		in.emit(Intent{Kind: Advance})
	} else {
		in.emit(Intent{Kind: Retreat})
	}
}

// KeyAdvance emits an Advance intent (ArrowDown / j).
func (in *Interpreter) KeyAdvance() {
	in.emit(Intent{Kind: Advance})
}

// KeyRetreat emits a Retreat intent (ArrowUp / k).
func (in *Interpreter) KeyRetreat() {
	in.emit(Intent{Kind: Retreat})
}

// JumpTo emits a direct index jump with no threshold. Bounds checking is
// the controller's job.
func (in *Interpreter) JumpTo(index int) {
	in.emit(Intent{Kind: Jump, Index: index})
}

func (in *Interpreter) emit(intent Intent) {
	if in.onIntent != nil {
		in.onIntent(intent)
	}
}
