package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/openscroll/reels/internal/engage"
	"github.com/openscroll/reels/internal/feed"
)

func TestFetchPagePassesFilterOpaquely(t *testing.T) {
	var gotQuery map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		gotQuery = map[string]string{
			"cursor":   q.Get("cursor"),
			"limit":    q.Get("limit"),
			"owner":    q.Get("owner"),
			"featured": q.Get("featured"),
			"category": q.Get("category"),
		}
		json.NewEncoder(w).Encode(feed.Page{
			Items:      []feed.Item{{ID: "a"}, {ID: "b"}},
			NextCursor: "tok-2",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "viewer-1")
	page, err := c.FetchPage(context.Background(), Filter{
		Owner:    "maya.makes",
		Featured: true,
		Category: "home",
	}, "tok-1", 10)
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}

	if len(page.Items) != 2 || page.NextCursor != "tok-2" {
		t.Errorf("page = %+v, want 2 items and tok-2", page)
	}

	want := map[string]string{
		"cursor": "tok-1", "limit": "10",
		"owner": "maya.makes", "featured": "1", "category": "home",
	}
	for k, v := range want {
		if gotQuery[k] != v {
			t.Errorf("query %s = %q, want %q", k, gotQuery[k], v)
		}
	}
}

func TestFetchPageFirstPageOmitsCursor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Has("cursor") {
			t.Error("first page request should not carry a cursor")
		}
		json.NewEncoder(w).Encode(feed.Page{})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "viewer-1")
	if _, err := c.FetchPage(context.Background(), Filter{}, "", 10); err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
}

func TestRecordInteraction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ItemID   string `json:"item_id"`
			Kind     string `json:"kind"`
			ViewerID string `json:"viewer_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if req.ItemID != "item-9" || req.Kind != "like" || req.ViewerID != "viewer-1" {
			t.Errorf("unexpected request: %+v", req)
		}
		json.NewEncoder(w).Encode(InteractionResult{
			Ok:       true,
			Counters: &feed.Counters{Likes: 42},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "viewer-1")
	res, err := c.RecordInteraction(context.Background(), "item-9", engage.Like)
	if err != nil {
		t.Fatalf("RecordInteraction: %v", err)
	}
	if !res.Ok || res.Counters == nil || res.Counters.Likes != 42 {
		t.Errorf("result = %+v, want ok with likes=42", res)
	}
}

func TestRecordInteractionBareAck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "viewer-1")
	res, err := c.RecordInteraction(context.Background(), "x", engage.Share)
	if err != nil {
		t.Fatalf("RecordInteraction: %v", err)
	}
	if !res.Ok || res.Counters != nil {
		t.Errorf("bare ack should parse with nil counters: %+v", res)
	}
}

func TestRetryOnServerError(t *testing.T) {
	var calls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt64(&calls, 1) == 1 {
			http.Error(w, "flaky", http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(feed.Page{Items: []feed.Item{{ID: "a"}}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "viewer-1")
	page, err := c.FetchPage(context.Background(), Filter{}, "", 10)
	if err != nil {
		t.Fatalf("FetchPage after retry: %v", err)
	}
	if len(page.Items) != 1 {
		t.Errorf("items = %d, want 1", len(page.Items))
	}
	if atomic.LoadInt64(&calls) != 2 {
		t.Errorf("calls = %d, want 2 (one retry)", calls)
	}
}

func TestNoRetryOnClientError(t *testing.T) {
	var calls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		http.Error(w, "bad cursor", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "viewer-1")
	if _, err := c.FetchPage(context.Background(), Filter{}, "junk", 10); err == nil {
		t.Fatal("expected error on 400")
	}
	if atomic.LoadInt64(&calls) != 1 {
		t.Errorf("calls = %d, want 1 (no retry on 4xx)", calls)
	}
}
