// Package workflow delivers qualified-lead events to the external
// automation engine over a signed webhook.
package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"casaviva_backend/platform/config"
	"casaviva_backend/platform/logger"
)

type Client struct {
	webhookURL string
	apiKey     string
	http       *http.Client
	log        *logger.Logger
}

type emitRequest struct {
	Event   string         `json:"event"`
	Payload map[string]any `json:"payload"`
	SentAt  time.Time      `json:"sentAt"`
}

// NewClient returns nil when no webhook URL is configured; a nil client
// swallows emissions, which keeps local development working without an
// automation engine.
func NewClient(cfg config.WorkflowConfig, log *logger.Logger) *Client {
	if cfg.GetWorkflowWebhookURL() == "" {
		return nil
	}
	return &Client{
		webhookURL: strings.TrimRight(cfg.GetWorkflowWebhookURL(), "/"),
		apiKey:     cfg.GetWorkflowAPIKey(),
		http:       &http.Client{Timeout: 10 * time.Second},
		log:        log,
	}
}

// Emit posts one event to the workflow engine.
func (c *Client) Emit(ctx context.Context, event string, payload map[string]any) error {
	if c == nil {
		return nil
	}

	body, err := json.Marshal(emitRequest{
		Event:   event,
		Payload: payload,
		SentAt:  time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal workflow payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("workflow request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("workflow engine returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	c.log.Info("workflow event emitted", "event", event)
	return nil
}

// Dispatch adapts Emit to the qualifier's dispatcher port for deployments
// without a task queue.
func (c *Client) Dispatch(ctx context.Context, event string, payload map[string]any) error {
	return c.Emit(ctx, event, payload)
}
