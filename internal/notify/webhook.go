package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Webhook posts messages to an HTTP push gateway using the FCM v1 message
// shape. Useful for self-hosted relays and local development.
type Webhook struct {
	URL    string
	Client *http.Client
	Logger *zap.Logger
}

func NewWebhook(url string, logger *zap.Logger) *Webhook {
	if url == "" {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Webhook{
		URL:    url,
		Client: &http.Client{Timeout: 10 * time.Second},
		Logger: logger,
	}
}

type webhookNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type webhookMessage struct {
	Notification webhookNotification `json:"notification"`
	Token        string              `json:"token"`
}

type webhookPayload struct {
	Message webhookMessage `json:"message"`
}

type webhookAck struct {
	Name string `json:"name"`
}

func (w *Webhook) Send(ctx context.Context, m Message) (string, error) {
	if w == nil || w.URL == "" {
		return "", errors.New("webhook disabled")
	}
	body, err := json.Marshal(webhookPayload{Message: webhookMessage{
		Notification: webhookNotification{Title: m.Title, Body: m.Body},
		Token:        m.Token,
	}})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	switch {
	case resp.StatusCode == http.StatusNotFound:
		// FCM answers 404 UNREGISTERED for dead tokens; relays mirror it
		return "", fmt.Errorf("webhook: %w", ErrStaleToken)
	case resp.StatusCode == http.StatusBadRequest:
		// 400 INVALID_ARGUMENT: the token is malformed
		return "", fmt.Errorf("webhook: %w: %s", ErrRejectedToken, bytes.TrimSpace(raw))
	case resp.StatusCode/100 != 2:
		return "", fmt.Errorf("webhook non-2xx: %d", resp.StatusCode)
	}

	// the push was accepted either way; a bad ack only costs the id
	var ack webhookAck
	if err := json.Unmarshal(raw, &ack); err != nil || ack.Name == "" {
		if len(raw) > 256 {
			raw = raw[:256]
		}
		w.logger().Warn("webhook_ack_unreadable",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", raw),
			zap.Error(err),
		)
	}
	return ack.Name, nil
}

func (w *Webhook) logger() *zap.Logger {
	if w.Logger == nil {
		return zap.NewNop()
	}
	return w.Logger
}
