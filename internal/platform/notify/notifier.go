// Package notify delivers payment-status notifications to patients.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Notification is the contact payload sent after a payment status change.
type Notification struct {
	Email       string `json:"email"`
	Name        string `json:"nombre"`
	FinalStatus string `json:"estado_final"`
}

// Notifier delivers a notification. Errors are not swallowed anywhere in
// the call chain; callers decide what a failed delivery means.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}

// LogNotifier simulates delivery by writing the notification to the log.
type LogNotifier struct {
	logger zerolog.Logger
}

func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Send(_ context.Context, n Notification) error {
	l.logger.Info().
		Str("email", n.Email).
		Str("name", n.Name).
		Str("final_status", n.FinalStatus).
		Msg("payment notification sent")
	return nil
}

// WebhookNotifier posts the notification payload to a configured URL.
type WebhookNotifier struct {
	url string
	hc  *http.Client
}

func NewWebhookNotifier(url string, timeout time.Duration) *WebhookNotifier {
	return &WebhookNotifier{
		url: url,
		hc:  &http.Client{Timeout: timeout},
	}
}

func (w *WebhookNotifier) Send(ctx context.Context, n Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.hc.Do(req)
	if err != nil {
		return fmt.Errorf("deliver notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("deliver notification: status %d", resp.StatusCode)
	}
	return nil
}
