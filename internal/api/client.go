// ABOUTME: Typed HTTP clients for the widget's collaborator endpoints
// ABOUTME: JSON POST bodies, optional static API-key header on chat/history

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/yjar/chat-core/internal/config"
)

// ErrServerError is returned for transport failures and non-success
// statuses. Callers decide whether it is user-visible; for this layer it
// never is.
var ErrServerError = errors.New("collaborator request failed")

// Client talks to the chat backend's HTTP surface. Every request is
// attempted at most once; there are no retries and no client-side
// timeouts, matching the widget's fetch calls.
type Client struct {
	cfg    config.APIConfig
	http   *http.Client
	logger *slog.Logger
}

// New creates a collaborator client from endpoint configuration.
func New(cfg config.APIConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{},
		logger: logger.With("component", "api"),
	}
}

// Chat sends a user message and returns the assistant answer with the
// server-classified intent. The raw session id is allowed here.
func (c *Client) Chat(ctx context.Context, sessionID, message string) (*ChatResponse, error) {
	req := chatRequest{Message: message, SessionID: sessionID}

	var resp ChatResponse
	if err := c.postJSON(ctx, c.cfg.ChatPath, true, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// History fetches the stored transcript for a session. The collaborator
// may answer with a direct message sequence or with the legacy paired
// records; both normalize to the same ordered Message slice.
func (c *Client) History(ctx context.Context, sessionID string) ([]Message, error) {
	req := historyRequest{SessionID: sessionID}

	var resp historyResponse
	if err := c.postJSON(ctx, c.cfg.HistoryPath, true, req, &resp); err != nil {
		return nil, err
	}
	return resp.expand(), nil
}

// Feedback submits a vote for a single assistant message.
func (c *Client) Feedback(ctx context.Context, req FeedbackRequest) error {
	return c.postJSON(ctx, c.cfg.FeedbackPath, false, req, nil)
}

// SubmitLead stores a captured contact record for sales follow-up.
func (c *Client) SubmitLead(ctx context.Context, req LeadRequest) error {
	return c.postJSON(ctx, c.cfg.LeadsPath, false, req, nil)
}

// SubmitSupport creates a support ticket.
func (c *Client) SubmitSupport(ctx context.Context, req SupportRequest) error {
	return c.postJSON(ctx, c.cfg.SupportPath, false, req, nil)
}

// postJSON sends one JSON POST and decodes the response into out when out
// is non-nil. withKey attaches the static API key header used by
// embedded/cross-origin deployments; only chat and history carry it.
func (c *Client) postJSON(ctx context.Context, path string, withKey bool, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if withKey && c.cfg.Key != "" {
		req.Header.Set("X-Api-Key", c.cfg.Key)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrServerError, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: %s returned status %d", ErrServerError, path, resp.StatusCode)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding %s response: %v", ErrServerError, path, err)
	}
	return nil
}
