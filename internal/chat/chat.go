// Package chat talks to the webhook-backed finance assistant.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"walletsync/internal/core"
	"walletsync/internal/log"
)

type Client struct {
	webhookURL string
	http       *http.Client
	now        func() time.Time
	logger     *log.Logger
}

func New(webhookURL string, timeout time.Duration, logger *log.Logger) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		webhookURL: webhookURL,
		http:       &http.Client{Timeout: timeout},
		now:        time.Now,
		logger:     log.OrDefault(logger, log.ComponentChat),
	}
}

type request struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	UserID    string `json:"userId"`
}

type reply struct {
	Response string `json:"response"`
}

// Send posts message on behalf of userID and returns the assistant's reply.
func (c *Client) Send(ctx context.Context, userID, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", fmt.Errorf("%w: message is empty", core.ErrValidation)
	}
	if userID == "" {
		return "", core.ErrNotAuthenticated
	}

	body, err := json.Marshal(request{
		Message:   message,
		Timestamp: c.now().UTC().Format(time.RFC3339Nano),
		UserID:    userID,
	})
	if err != nil {
		return "", fmt.Errorf("encode message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("send message: %w: %w", core.ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("assistant returned status %d: %w", resp.StatusCode, core.ErrRemoteUnavailable)
	}
	var r reply
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return "", fmt.Errorf("decode reply: %w: %w", core.ErrRemoteUnavailable, err)
	}

	c.logger.DebugContext(ctx, "Assistant replied",
		log.FieldUserID, userID,
		log.FieldDuration, time.Since(start).Milliseconds())
	return r.Response, nil
}
