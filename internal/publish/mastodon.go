package publish

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/npawatch/npawatch/internal/model"
)

// MastodonPublisher posts a status via the Mastodon REST API
// (POST {base_url}/api/v1/statuses), carrying the post_status_advanced
// parameter set from original_source: visibility, language,
// spoiler_text, sensitive.
type MastodonPublisher struct {
	client      *http.Client
	baseURL     string
	accessToken string
	visibility  string
	language    string
	spoilerText string
	sensitive   bool
	maxChars    int
}

// NewMastodonPublisher constructs a MastodonPublisher.
func NewMastodonPublisher(client *http.Client, baseURL, accessToken, visibility, language, spoilerText string, sensitive bool, maxChars int) *MastodonPublisher {
	return &MastodonPublisher{
		client:      client,
		baseURL:     strings.TrimRight(baseURL, "/"),
		accessToken: accessToken,
		visibility:  visibility,
		language:    language,
		spoilerText: spoilerText,
		sensitive:   sensitive,
		maxChars:    maxChars,
	}
}

func (m *MastodonPublisher) Name() model.Channel { return model.ChannelMastodon }

func (m *MastodonPublisher) Publish(ctx context.Context, _, _, text string) error {
	out := text
	if m.maxChars > 0 {
		out = TrimWithEllipsis(text, m.maxChars)
	}

	form := url.Values{}
	form.Set("status", out)
	if m.visibility != "" {
		form.Set("visibility", m.visibility)
	}
	if m.language != "" {
		form.Set("language", m.language)
	}
	if m.spoilerText != "" {
		form.Set("spoiler_text", m.spoilerText)
	}
	if m.sensitive {
		form.Set("sensitive", "true")
	}

	endpoint := m.baseURL + "/api/v1/statuses"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build mastodon request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+m.accessToken)

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("mastodon HTTP error: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("mastodon error: status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
