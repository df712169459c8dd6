package push

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrNotConfigured is returned when no push gateway URL is set
var ErrNotConfigured = errors.New("push gateway not configured")

// Message is the body posted to the push gateway
type Message struct {
	UserID         int64  `json:"userId"`
	NotificationID int64  `json:"notificationId"`
	JournalID      int64  `json:"journalId"`
	Type           string `json:"type"`
	Title          string `json:"title"`
	Body           string `json:"body"`
}

// Client posts push messages to an HTTP gateway
type Client struct {
	webhookURL string
	httpClient *http.Client
}

// NewClient creates a new push client. An empty URL makes every Send return ErrNotConfigured.
func NewClient(webhookURL string) *Client {
	return &Client{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Send delivers one message. Any non-2xx status is an error.
func (c *Client) Send(ctx context.Context, msg Message) error {
	if c.webhookURL == "" {
		return ErrNotConfigured
	}

	jsonData, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("push gateway returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
