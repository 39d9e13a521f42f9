// Package github is a minimal client for the two REST endpoints the service
// needs: a repository's public event stream (polled with ETags) and per-commit
// diff stats (used to enrich webhook payloads that lack them).
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

const defaultPollInterval = 60 // seconds, per the events API docs

// Client calls the GitHub REST API with a bounded timeout per request.
type Client struct {
	base  string
	token string
	http  *http.Client
}

// NewClient builds a Client. An empty base falls back to the public API.
func NewClient(base, token string) *Client {
	if base == "" {
		base = "https://api.github.com"
	}
	return &Client{
		base:  base,
		token: token,
		http:  &http.Client{Timeout: 10 * time.Second},
	}
}

// PushEvent is one entry of a repository's event stream, filtered to pushes.
type PushEvent struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Payload struct {
		PushID int64  `json:"push_id"`
		Ref    string `json:"ref"`
		Size   int    `json:"size"` // number of commits in the push
		Head   string `json:"head"`
	} `json:"payload"`
	Actor struct {
		ID    int64  `json:"id"`
		Login string `json:"login"`
	} `json:"actor"`
	CreatedAt time.Time `json:"created_at"`
}

// EventsPage is the result of one poll.
type EventsPage struct {
	Events       []PushEvent
	ETag         string
	PollInterval int // seconds, from X-Poll-Interval
}

// PollRepoEvents lists a repository's recent events using a conditional
// request. A non-empty token authenticates this call instead of the client's
// shared token, so each user's linked repos are polled under their own grant.
// A nil page with nil error means 304 Not Modified: nothing new, the caller
// keeps its stored ETag.
func (c *Client) PollRepoEvents(ctx context.Context, repoFullName, lastETag, token string) (*EventsPage, error) {
	url := fmt.Sprintf("%s/repos/%s/events?per_page=100", c.base, repoFullName)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req, token)
	if lastETag != "" {
		req.Header.Set("If-None-Match", lastETag)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("github events api: %s", resp.Status)
	}

	var all []PushEvent
	if err := json.NewDecoder(resp.Body).Decode(&all); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}

	page := &EventsPage{
		ETag:         resp.Header.Get("ETag"),
		PollInterval: defaultPollInterval,
	}
	if v, err := strconv.Atoi(resp.Header.Get("X-Poll-Interval")); err == nil && v > 0 {
		page.PollInterval = v
	}
	for _, e := range all {
		if e.Type == "PushEvent" {
			page.Events = append(page.Events, e)
		}
	}
	return page, nil
}

// CommitStats holds the diff size of one commit.
type CommitStats struct {
	Additions int `json:"additions"`
	Deletions int `json:"deletions"`
	Total     int `json:"total"`
}

// FetchCommitStats loads diff stats for a single commit. Callers treat a
// failure as degraded rather than fatal and fall back to the minimum size.
func (c *Client) FetchCommitStats(ctx context.Context, repoFullName, sha string) (*CommitStats, error) {
	url := fmt.Sprintf("%s/repos/%s/commits/%s", c.base, repoFullName, sha)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req, "")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("github commit api: %s", resp.Status)
	}

	var body struct {
		Stats CommitStats `json:"stats"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode commit: %w", err)
	}
	return &body.Stats, nil
}

func (c *Client) setHeaders(req *http.Request, token string) {
	if token == "" {
		token = c.token
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	req.Header.Set("User-Agent", "GitSummit")
}
