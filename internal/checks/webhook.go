package checks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gitship/gitship/internal/constants"
)

// WebhookPayload is the JSON body posted by webhook actions.
type WebhookPayload struct {
	Project     string    `json:"project"`
	Environment string    `json:"environment"`
	Branch      string    `json:"branch"`
	Revision    string    `json:"revision"`
	Previous    string    `json:"previous,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// WebhookStep is the "webhook" action kind.
type WebhookStep struct {
	URL    string
	Client *http.Client
}

func NewWebhookStep(url string, timeout time.Duration) *WebhookStep {
	return &WebhookStep{URL: url, Client: &http.Client{Timeout: timeout}}
}

func (s *WebhookStep) Run(ctx context.Context, target Target) error {
	body, err := json.Marshal(WebhookPayload{
		Project:     target.Project,
		Environment: target.Environment,
		Branch:      target.Branch,
		Revision:    target.Revision,
		Previous:    target.Previous,
		Timestamp:   time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "gitship/"+constants.Version)

	resp, err := s.Client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}
	return nil
}
