package main

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"

	"github.com/openscroll/reels/internal/feed"
)

type server struct {
	catalog *catalog
	hub     *hub
	logger  *log.Logger
}

func (s *server) handleFeed(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := 10
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 50 {
			limit = n
		}
	}

	page, err := s.catalog.page(
		q.Get("cursor"),
		limit,
		q.Get("owner"),
		q.Get("category"),
		q.Get("featured") == "1",
	)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.logger.Debug("feed page", "cursor", q.Get("cursor"), "items", len(page.Items))
	writeJSON(w, http.StatusOK, page)
}

type interactionRequest struct {
	ItemID   string `json:"item_id"`
	Kind     string `json:"kind"`
	ViewerID string `json:"viewer_id"`
}

type interactionResponse struct {
	Ok       bool           `json:"ok"`
	Counters *feed.Counters `json:"counters,omitempty"`
}

func (s *server) handleInteraction(w http.ResponseWriter, r *http.Request) {
	var req interactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if req.ItemID == "" || req.ViewerID == "" {
		writeError(w, http.StatusBadRequest, "item_id and viewer_id required")
		return
	}

	counters, ok := s.catalog.interact(req.ItemID, req.Kind, req.ViewerID)
	if !ok {
		// Unknown item or kind: well-formed response, not ok. The client
		// reverts its optimistic delta.
		writeJSON(w, http.StatusOK, interactionResponse{Ok: false})
		return
	}

	s.logger.Debug("interaction", "item", req.ItemID, "kind", req.Kind)
	s.hub.broadcast(counterUpdate{ItemID: req.ItemID, Counters: counters})
	writeJSON(w, http.StatusOK, interactionResponse{Ok: true, Counters: &counters})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
