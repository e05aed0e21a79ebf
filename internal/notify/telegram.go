// Package notify delivers short human-readable summaries to a Telegram
// chat. Delivery is fire-and-forget: a failure here must never block a
// ledger update.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const apiURLFormat = "https://api.telegram.org/bot%s/sendMessage"

type Telegram struct {
	token  string
	chatID string
	apiURL string
	http   *http.Client
}

// NewTelegram builds the notifier. Missing credentials yield a disabled
// notifier that logs a warning once and drops every message.
func NewTelegram(token, chatID string) *Telegram {
	if token == "" || chatID == "" {
		slog.Warn("telegram credentials missing, notifications disabled")
	}
	return &Telegram{
		token:  token,
		chatID: chatID,
		apiURL: fmt.Sprintf(apiURLFormat, token),
		http:   &http.Client{Timeout: 15 * time.Second},
	}
}

func (t *Telegram) Enabled() bool {
	return t.token != "" && t.chatID != ""
}

// Send posts one message. Errors are logged, never returned.
func (t *Telegram) Send(ctx context.Context, text string) {
	if !t.Enabled() {
		return
	}

	payload := map[string]string{
		"chat_id":    t.chatID,
		"text":       text,
		"parse_mode": "Markdown",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		slog.Warn("telegram payload marshal failed", "err", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.apiURL, bytes.NewReader(body))
	if err != nil {
		slog.Warn("telegram request build failed", "err", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.http.Do(req)
	if err != nil {
		slog.Warn("telegram send failed", "err", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Warn("telegram API rejected message", "status", resp.Status)
	}
}
