// Package feed defines the core data model for the reels feed: items,
// engagement counters, viewer state, product tags, and fetched pages.
//
// Items are immutable after construction except for Counters and Viewer,
// which change only through the engage package's apply/reconcile protocol.
package feed

import (
	"time"
)

// MediaRef locates the primary video asset for an item.
type MediaRef struct {
	VideoURL   string `json:"video_url"`
	ThumbURL   string `json:"thumb_url,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

// Counters holds the social counters for one item. Non-negative; the
// server's values are monotonic but local values carry optimistic deltas.
type Counters struct {
	Views     int64 `json:"views"`
	Likes     int64 `json:"likes"`
	Comments  int64 `json:"comments"`
	Shares    int64 `json:"shares"`
	Bookmarks int64 `json:"bookmarks"`
}

// ViewerState reflects the current viewer's own interactions only.
type ViewerState struct {
	Liked      bool `json:"liked"`
	Bookmarked bool `json:"bookmarked"`
}

// ProductTag is a shoppable tag anchored at a normalized frame position.
// X and Y are fractions of frame size in [0,1], so tags survive resizing.
type ProductTag struct {
	ProductID string  `json:"product_id"`
	Label     string  `json:"label,omitempty"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
}

// Item is one reels entry.
type Item struct {
	ID        string       `json:"id"`
	Author    string       `json:"author"`
	Caption   string       `json:"caption"`
	Media     MediaRef     `json:"media"`
	Counters  Counters     `json:"counters"`
	Viewer    ViewerState  `json:"viewer"`
	Tags      []ProductTag `json:"tags,omitempty"`
	Hashtags  []string     `json:"hashtags,omitempty"`
	Published time.Time    `json:"published_at"`
}

// Page is one fetch result: an ordered run of items plus the cursor for
// the next fetch. An empty NextCursor means the feed is exhausted.
type Page struct {
	Items      []Item `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
}

// Normalize clamps tag positions into [0,1] and drops tags with no
// product reference. Called once when a page is decoded; items are not
// revalidated after that.
func (it *Item) Normalize() {
	tags := it.Tags[:0]
	for _, t := range it.Tags {
		if t.ProductID == "" {
			continue
		}
		t.X = clamp01(t.X)
		t.Y = clamp01(t.Y)
		tags = append(tags, t)
	}
	it.Tags = tags
}

func clamp01(v float64) float64 {
	// The negated form also catches NaN.
	if !(v >= 0) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
