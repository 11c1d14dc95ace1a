// Package notify posts analysis outcomes to a Slack-compatible incoming
// webhook. The service runs fine without one configured; failures then only
// surface through the API and the event bus.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

type Webhook struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

func NewWebhook(url string, logger *slog.Logger) *Webhook {
	return &Webhook{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

// Post sends a plain text message to the webhook.
func (w *Webhook) Post(ctx context.Context, text string) error {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, respBody)
	}
	return nil
}

// AnalysisCompleted posts the formatted report summary.
func (w *Webhook) AnalysisCompleted(ctx context.Context, sessionID, summary string) {
	text := fmt.Sprintf("Analysis %s complete\n%s", sessionID, summary)
	if err := w.Post(ctx, text); err != nil {
		w.logger.Warn("failed to post completion notification", "session_id", sessionID, "error", err)
	}
}

// AnalysisFailed posts a failure notice naming the failing agent.
func (w *Webhook) AnalysisFailed(ctx context.Context, sessionID, agentID, errMsg string) {
	text := fmt.Sprintf("Analysis %s halted at agent %s: %s", sessionID, agentID, errMsg)
	if err := w.Post(ctx, text); err != nil {
		w.logger.Warn("failed to post failure notification", "session_id", sessionID, "error", err)
	}
}
