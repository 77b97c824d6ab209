package main

import (
	"fmt"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/openscroll/reels/internal/feed"
)

var authors = []string{
	"maya.makes", "thriftdad", "sneakpeek.ava", "kitchen_guy",
	"plantmomrosa", "retro.finds", "dailyfit.jo", "ceramics.studio",
}

var categories = []string{"fashion", "home", "fitness", "food", "tech"}

var captions = []string{
	"you NEED this in your life",
	"restock day! everything linked",
	"POV: your cart after payday",
	"this took 3 weeks to make",
	"unboxing the new drop",
	"honest review, not sponsored",
}

// catalog is the deterministic fake reels inventory. Counters drift over
// time to exercise the live stream; per-viewer toggles are tracked so
// like/bookmark behave like the real backend.
type catalog struct {
	mu      sync.Mutex
	items   []feed.Item
	byID    map[string]int
	viewers map[string]map[string]bool // "<viewerID>/<kind>" is the inner key
}

func newCatalog(n int) *catalog {
	// Fixed seed: restarting reelsd reproduces the same catalog, which
	// keeps saved viewer state meaningful across runs.
	rng := rand.New(rand.NewSource(42))

	c := &catalog{
		byID:    make(map[string]int),
		viewers: make(map[string]map[string]bool),
	}

	for i := 0; i < n; i++ {
		id := uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("reel-%d", i))).String()
		cat := categories[rng.Intn(len(categories))]

		it := feed.Item{
			ID:      id,
			Author:  authors[rng.Intn(len(authors))],
			Caption: fmt.Sprintf("%s #%d", captions[rng.Intn(len(captions))], i+1),
			Media: feed.MediaRef{
				VideoURL:   fmt.Sprintf("https://cdn.example.com/reels/%s.mp4", id),
				ThumbURL:   fmt.Sprintf("https://cdn.example.com/reels/%s.jpg", id),
				DurationMs: int64(5000 + rng.Intn(55000)),
			},
			Counters: feed.Counters{
				Views:     int64(rng.Intn(500000)),
				Likes:     int64(rng.Intn(40000)),
				Comments:  int64(rng.Intn(2000)),
				Shares:    int64(rng.Intn(5000)),
				Bookmarks: int64(rng.Intn(8000)),
			},
			Hashtags:  []string{cat, "smallbusiness", "fyp"},
			Published: time.Now().Add(-time.Duration(rng.Intn(72)) * time.Hour),
		}

		// Roughly half the reels carry shoppable tags.
		if rng.Intn(2) == 0 {
			tagCount := 1 + rng.Intn(3)
			for t := 0; t < tagCount; t++ {
				it.Tags = append(it.Tags, feed.ProductTag{
					ProductID: fmt.Sprintf("prod-%d-%d", i, t),
					Label:     fmt.Sprintf("$%d.99", 9+rng.Intn(90)),
					X:         rng.Float64(),
					Y:         rng.Float64(),
				})
			}
		}

		c.byID[id] = i
		c.items = append(c.items, it)
	}

	return c
}

// page returns up to limit items starting at the cursor, plus the next
// cursor ("" at the end). Cursors are just offsets encoded as strings;
// the client treats them as opaque.
func (c *catalog) page(cursor string, limit int, owner, category string, featured bool) (feed.Page, error) {
	offset := 0
	if cursor != "" {
		var err error
		offset, err = strconv.Atoi(cursor)
		if err != nil || offset < 0 {
			return feed.Page{}, fmt.Errorf("bad cursor %q", cursor)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var out []feed.Item
	i := offset
	for ; i < len(c.items) && len(out) < limit; i++ {
		it := c.items[i]
		if owner != "" && it.Author != owner {
			continue
		}
		if category != "" && !contains(it.Hashtags, category) {
			continue
		}
		if featured && it.Counters.Likes < 10000 {
			continue
		}
		out = append(out, it)
	}

	next := ""
	if i < len(c.items) {
		next = strconv.Itoa(i)
	}
	return feed.Page{Items: out, NextCursor: next}, nil
}

// interact applies one engagement action for a viewer and returns the
// item's updated counters. Likes and bookmarks toggle per viewer.
func (c *catalog) interact(itemID, kind, viewerID string) (feed.Counters, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx, ok := c.byID[itemID]
	if !ok {
		return feed.Counters{}, false
	}
	it := &c.items[idx]

	switch kind {
	case "like", "bookmark":
		key := viewerID + "/" + kind
		set := c.viewers[key]
		if set == nil {
			set = make(map[string]bool)
			c.viewers[key] = set
		}
		delta := int64(1)
		if set[itemID] {
			delta = -1
			delete(set, itemID)
		} else {
			set[itemID] = true
		}
		if kind == "like" {
			it.Counters.Likes += delta
		} else {
			it.Counters.Bookmarks += delta
		}
	case "share":
		it.Counters.Shares++
	case "view":
		it.Counters.Views++
	default:
		return feed.Counters{}, false
	}

	return it.Counters, true
}

// drift nudges a few random counters, simulating other viewers, and
// returns the touched items for broadcast.
func (c *catalog) drift(rng *rand.Rand) []feed.Item {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.items) == 0 {
		return nil
	}

	n := 1 + rng.Intn(3)
	touched := make([]feed.Item, 0, n)
	for j := 0; j < n; j++ {
		it := &c.items[rng.Intn(len(c.items))]
		it.Counters.Views += int64(rng.Intn(50))
		it.Counters.Likes += int64(rng.Intn(5))
		if rng.Intn(4) == 0 {
			it.Counters.Comments++
		}
		touched = append(touched, *it)
	}
	return touched
}

func contains(ss []string, want string) bool {
	for _, s := range ss {
		if s == want {
			return true
		}
	}
	return false
}
