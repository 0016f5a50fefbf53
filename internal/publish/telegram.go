package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/npawatch/npawatch/internal/model"
)

// TelegramPublisher posts to a Telegram chat via the bot API
// (POST {api_base_url}/bot{token}/sendMessage), adopted directly from
// original_source's RealTelegramApi.
type TelegramPublisher struct {
	client       *http.Client
	apiBaseURL   string
	botToken     string
	targetChatID string
	maxChars     int
}

// NewTelegramPublisher constructs a TelegramPublisher.
func NewTelegramPublisher(client *http.Client, apiBaseURL, botToken, targetChatID string, maxChars int) *TelegramPublisher {
	return &TelegramPublisher{
		client:       client,
		apiBaseURL:   apiBaseURL,
		botToken:     botToken,
		targetChatID: targetChatID,
		maxChars:     maxChars,
	}
}

func (t *TelegramPublisher) Name() model.Channel { return model.ChannelTelegram }

type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

func (t *TelegramPublisher) Publish(ctx context.Context, _, _, text string) error {
	out := text
	if t.maxChars > 0 {
		out = TrimWithEllipsis(text, t.maxChars)
	}

	body, err := json.Marshal(sendMessageRequest{ChatID: t.targetChatID, Text: out})
	if err != nil {
		return fmt.Errorf("failed to encode telegram request: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBaseURL, t.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram HTTP error: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram error: status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
