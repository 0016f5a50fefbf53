package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	npaerrors "github.com/npawatch/npawatch/internal/errors"
)

// Config configures an HTTPClient (§6.4 llm.*). No third-party
// multi-provider SDK was found among the retrieved examples, so this
// speaks the OpenAI-compatible {base_url}/chat/completions shape
// directly, which covers every provider original_source named
// (OpenAI, Groq, DeepSeek, Mistral, OpenRouter, and others).
type Config struct {
	Provider           string
	Model              string
	BaseURL            string
	APIKey             string
	Proxy              string
	RequestTimeoutSecs int
}

// HTTPClient is the default ChatCompletion backend.
type HTTPClient struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
}

// NewHTTPClient constructs an HTTPClient from cfg.
func NewHTTPClient(cfg Config) (*HTTPClient, error) {
	if cfg.BaseURL == "" {
		return nil, npaerrors.NewInvalidInputError("llm.base_url is required")
	}

	transport := &http.Transport{}
	if cfg.Proxy != "" {
		proxyURL, err := url.Parse(cfg.Proxy)
		if err != nil {
			return nil, npaerrors.NewInvalidInputError("invalid llm.proxy: %v", err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	return &HTTPClient{
		client: &http.Client{
			Timeout:   time.Duration(cfg.RequestTimeoutSecs) * time.Second,
			Transport: transport,
		},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
	}, nil
}

type chatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Complete implements ChatCompletion.
func (c *HTTPClient) Complete(ctx context.Context, prompt string) (string, error) {
	reqBody, err := json.Marshal(chatCompletionRequest{
		Model:    c.model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode chat completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to build chat completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat completion request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read chat completion response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("chat completion error: status %d: %s", resp.StatusCode, string(body))
	}

	var parsed chatCompletionResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode chat completion response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("chat completion error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("chat completion response had no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}
