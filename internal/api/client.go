// Package api provides the HTTP clients for the two collaborator
// contracts the feed engine depends on: the content API (page fetches)
// and the interaction API (engagement posts). Both are plain JSON over
// request/response; the engine interprets nothing beyond the two
// payload shapes below.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/openscroll/reels/internal/engage"
	"github.com/openscroll/reels/internal/feed"
)

const userAgent = "reels/0.1 (+https://github.com/openscroll/reels)"

// Filter carries opaque pass-through feed filter parameters. The client
// forwards them verbatim; it does not interpret them.
type Filter struct {
	Owner    string
	Featured bool
	Category string
}

// InteractionResult is the interaction API's acknowledgment. Counters
// may be absent; reconciliation works from the Ok flag alone.
type InteractionResult struct {
	Ok       bool           `json:"ok"`
	Counters *feed.Counters `json:"counters,omitempty"`
}

// Client talks to the reels backend.
type Client struct {
	baseURL  string
	viewerID string
	client   *http.Client
	limiter  *rate.Limiter
}

// NewClient creates a client for the given base URL and viewer identity.
func NewClient(baseURL, viewerID string) *Client {
	return &Client{
		baseURL:  baseURL,
		viewerID: viewerID,
		client:   &http.Client{Timeout: 15 * time.Second},
		limiter:  rate.NewLimiter(rate.Every(100*time.Millisecond), 5),
	}
}

// FetchPage retrieves one feed page. An empty cursor requests the first
// page.
func (c *Client) FetchPage(ctx context.Context, f Filter, cursor string, pageSize int) (feed.Page, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return feed.Page{}, fmt.Errorf("rate limiter: %w", err)
	}

	q := url.Values{}
	q.Set("limit", strconv.Itoa(pageSize))
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	if f.Owner != "" {
		q.Set("owner", f.Owner)
	}
	if f.Featured {
		q.Set("featured", "1")
	}
	if f.Category != "" {
		q.Set("category", f.Category)
	}

	body, err := c.doWithRetry(ctx, http.MethodGet, "/api/feed?"+q.Encode(), nil)
	if err != nil {
		return feed.Page{}, err
	}

	var page feed.Page
	if err := json.Unmarshal(body, &page); err != nil {
		return feed.Page{}, fmt.Errorf("parse page: %w", err)
	}
	return page, nil
}

// interactionRequest is the POST body for the interaction API.
type interactionRequest struct {
	ItemID   string `json:"item_id"`
	Kind     string `json:"kind"`
	ViewerID string `json:"viewer_id"`
}

// RecordInteraction posts one engagement action. The response may carry
// authoritative counters, but the caller must not depend on them.
func (c *Client) RecordInteraction(ctx context.Context, itemID string, kind engage.Kind) (InteractionResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return InteractionResult{}, fmt.Errorf("rate limiter: %w", err)
	}

	payload, err := json.Marshal(interactionRequest{
		ItemID:   itemID,
		Kind:     kind.String(),
		ViewerID: c.viewerID,
	})
	if err != nil {
		return InteractionResult{}, fmt.Errorf("marshal interaction: %w", err)
	}

	body, err := c.doWithRetry(ctx, http.MethodPost, "/api/interactions", payload)
	if err != nil {
		return InteractionResult{}, err
	}

	var res InteractionResult
	if err := json.Unmarshal(body, &res); err != nil {
		return InteractionResult{}, fmt.Errorf("parse interaction result: %w", err)
	}
	return res, nil
}

// doWithRetry executes a request with retry on transient errors.
// Retries up to 2 times on network errors, 429, or 5xx with backoff.
func (c *Client) doWithRetry(ctx context.Context, method, path string, jsonBody []byte) ([]byte, error) {
	maxRetries := 2
	backoffs := []time.Duration{500 * time.Millisecond, 2 * time.Second}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoffs[attempt-1]):
			}
		}

		var reqBody io.Reader
		if jsonBody != nil {
			reqBody = bytes.NewReader(jsonBody)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("User-Agent", userAgent)
		if jsonBody != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("request cancelled: %w", ctx.Err())
			}
			lastErr = fmt.Errorf("request failed: %w", err)
			continue
		}

		body, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		resp.Body.Close()
		if readErr != nil {
			lastErr = fmt.Errorf("read response: %w", readErr)
			continue
		}

		if resp.StatusCode == http.StatusOK {
			return body, nil
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("api error (status %d): %s", resp.StatusCode, string(body))
			continue
		}

		return nil, fmt.Errorf("api error (status %d): %s", resp.StatusCode, string(body))
	}

	return nil, lastErr
}
