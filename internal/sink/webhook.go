package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// payloadFunc renders a channel-specific JSON body for message.
type payloadFunc func(message string) ([]byte, error)

// WebhookSender POSTs a JSON payload to a configured webhook URL.
// There is no ecosystem Slack/Teams client in the retrieved corpus, so
// this uses net/http directly against the documented incoming-webhook
// contract for each service.
type WebhookSender struct {
	name    string
	url     string
	payload payloadFunc
}

// NewWebhookSender creates a WebhookSender for name, posting to url
// using payload to render the body.
func NewWebhookSender(name, url string, payload payloadFunc) *WebhookSender {
	return &WebhookSender{name: name, url: url, payload: payload}
}

func (w *WebhookSender) Name() string { return w.name }

func (w *WebhookSender) Send(ctx context.Context, message string) error {
	body, err := w.payload(message)
	if err != nil {
		return fmt.Errorf("render payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// slackPayload renders the minimal Slack incoming-webhook shape.
func slackPayload(message string) ([]byte, error) {
	return json.Marshal(struct {
		Text string `json:"text"`
	}{Text: message})
}

// teamsPayload renders the minimal Microsoft Teams connector card
// shape that accepts a plain text body.
func teamsPayload(message string) ([]byte, error) {
	return json.Marshal(struct {
		Type     string `json:"@type"`
		Context  string `json:"@context"`
		Text     string `json:"text"`
		ThemeColor string `json:"themeColor"`
	}{
		Type:       "MessageCard",
		Context:    "http://schema.org/extensions",
		Text:       message,
		ThemeColor: "D32F2F",
	})
}
