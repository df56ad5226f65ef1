package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/opsdeck/opsdeck-go/internal/datastore/entities"
	"github.com/opsdeck/opsdeck-go/internal/errors"
)

const defaultWebhookTimeout = 10 * time.Second

// webhookPayload is the JSON body POSTed to webhook recipients.
type webhookPayload struct {
	ID        string    `json:"id"`
	RuleID    uint      `json:"rule_id"`
	RuleName  string    `json:"rule_name"`
	Category  string    `json:"category"`
	Priority  string    `json:"priority"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// WebhookSender delivers notifications via HTTP POST. The record's recipient
// is the target URL.
type WebhookSender struct {
	client *http.Client
}

// NewWebhookSender creates a webhook sender. A timeout <= 0 selects the
// default.
func NewWebhookSender(timeout time.Duration) *WebhookSender {
	if timeout <= 0 {
		timeout = defaultWebhookTimeout
	}
	return &WebhookSender{
		client: &http.Client{Timeout: timeout},
	}
}

// Channel returns the delivery channel this sender handles.
func (s *WebhookSender) Channel() string {
	return entities.ChannelWebhook
}

// Send POSTs the notification as JSON to the recipient URL. Any non-2xx
// response is a rejection.
func (s *WebhookSender) Send(ctx context.Context, rec *entities.NotificationRecord) (SendResult, error) {
	url := rec.Recipient
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return SendResult{}, errors.Newf(errors.CategoryDispatch, "invalid webhook URL %q", url)
	}

	payload := webhookPayload{
		ID:        rec.ID,
		RuleID:    rec.RuleID,
		RuleName:  rec.RuleName,
		Category:  rec.Category,
		Priority:  rec.Priority,
		Title:     rec.Title,
		Body:      rec.Body,
		CreatedAt: rec.CreatedAt,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return SendResult{}, errors.Wrap(errors.CategoryDispatch, err, "failed to encode webhook payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return SendResult{}, errors.Wrap(errors.CategoryDispatch, err, "failed to build webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return SendResult{}, errors.Wrap(errors.CategoryDispatch, err, "webhook request failed")
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return SendResult{}, errors.Newf(errors.CategoryDispatch, "webhook returned status %d", resp.StatusCode)
	}

	// Receivers may echo their own delivery identifier for callbacks.
	return SendResult{ProviderID: resp.Header.Get("X-Delivery-ID")}, nil
}
