package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/securityopsai/logwatcher/internal/config"
)

// TelegramSender posts to a bot's sendMessage endpoint. There is no
// ecosystem Telegram client in the retrieved corpus, so this talks to
// the bot HTTP API directly over net/http.
type TelegramSender struct {
	cfg config.TelegramConfig
}

// NewTelegramSender creates a TelegramSender from cfg.
func NewTelegramSender(cfg config.TelegramConfig) *TelegramSender {
	return &TelegramSender{cfg: cfg}
}

func (t *TelegramSender) Name() string { return "telegram" }

func (t *TelegramSender) Send(ctx context.Context, message string) error {
	endpoint := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", url.PathEscape(t.cfg.BotToken))

	body, err := json.Marshal(struct {
		ChatID string `json:"chat_id"`
		Text   string `json:"text"`
	}{ChatID: t.cfg.ChatID, Text: message})
	if err != nil {
		return fmt.Errorf("render payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post telegram message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("telegram API returned status %d", resp.StatusCode)
	}
	return nil
}
