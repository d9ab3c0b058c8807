package history

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// Entry is one transcript item from a prior session.
type Entry struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Client fetches prior-session transcripts over REST. Fetches are
// cancel-and-replace: starting a new one aborts the previous one, so two
// fetches never run to completion concurrently.
type Client struct {
	httpClient *http.Client
	baseURL    string

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

// NewClient creates a transcript client against the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
	}
}

// Fetch retrieves the transcript for a session. Any in-flight fetch from
// a previous call is cancelled first.
func (c *Client) Fetch(ctx context.Context, sessionID string) ([]Entry, error) {
	ctx, cancel := context.WithCancel(ctx)

	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.cancel = cancel
	c.gen++
	myGen := c.gen
	c.mu.Unlock()

	defer func() {
		cancel()
		c.mu.Lock()
		// Only detach if a newer fetch has not replaced us.
		if c.gen == myGen {
			c.cancel = nil
		}
		c.mu.Unlock()
	}()

	endpoint := fmt.Sprintf("%s/sessions/%s/transcript", c.baseURL, url.PathEscape(sessionID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch transcript: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("transcript endpoint returned status %d", resp.StatusCode)
	}

	var entries []Entry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode transcript: %w", err)
	}
	return entries, nil
}

// CancelPending aborts any in-flight fetch without starting a new one.
func (c *Client) CancelPending() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}
