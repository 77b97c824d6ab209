package api

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/openscroll/reels/internal/feed"
	"github.com/openscroll/reels/internal/logging"
)

// CounterUpdate is one server-pushed counter refresh for an item. The
// stream carries aggregate counters only, never viewer state.
type CounterUpdate struct {
	ItemID   string        `json:"item_id"`
	Counters feed.Counters `json:"counters"`
}

// CounterStream subscribes to live engagement counter updates over a
// websocket. The stream is optional: the feed works without it, updates
// just arrive lazily through page fetches instead.
type CounterStream struct {
	url     string
	updates chan CounterUpdate
}

// NewCounterStream prepares a stream against the server's /ws/counters
// endpoint. baseURL is the same http(s) URL the Client uses.
func NewCounterStream(baseURL string) *CounterStream {
	wsURL := strings.Replace(baseURL, "http", "ws", 1) + "/ws/counters"
	return &CounterStream{
		url:     wsURL,
		updates: make(chan CounterUpdate, 64),
	}
}

// Updates returns the channel counter updates are delivered on. Closed
// when the stream shuts down for good.
func (cs *CounterStream) Updates() <-chan CounterUpdate {
	return cs.updates
}

// Run connects and reads updates until ctx is cancelled, redialing with
// a fixed delay on any error. Malformed frames are dropped.
func (cs *CounterStream) Run(ctx context.Context) {
	defer close(cs.updates)

	const redialDelay = 5 * time.Second

	for {
		if ctx.Err() != nil {
			return
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, cs.url, nil)
		if err != nil {
			logging.Debug("counter stream dial failed", "url", cs.url, "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(redialDelay):
			}
			continue
		}

		cs.readLoop(ctx, conn)
		conn.Close()
	}
}

func (cs *CounterStream) readLoop(ctx context.Context, conn *websocket.Conn) {
	// Unblock ReadMessage when the context ends.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				logging.Debug("counter stream read failed", "error", err)
			}
			return
		}

		var upd CounterUpdate
		if err := json.Unmarshal(data, &upd); err != nil || upd.ItemID == "" {
			continue
		}

		select {
		case cs.updates <- upd:
		default:
			// Viewer can't keep up; drop the oldest pending update.
			select {
			case <-cs.updates:
			default:
			}
			select {
			case cs.updates <- upd:
			default:
			}
		}
	}
}
