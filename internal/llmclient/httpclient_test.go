package llmclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompleteSendsExpectedRequestAndParsesResponse(t *testing.T) {
	var gotAuth string
	var gotReq chatCompletionRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_ = json.NewEncoder(w).Encode(chatCompletionResponse{
			Choices: []struct {
				Message chatMessage `json:"message"`
			}{{Message: chatMessage{Role: "assistant", Content: "summary text"}}},
		})
	}))
	defer srv.Close()

	c, err := NewHTTPClient(Config{Model: "gpt-test", BaseURL: srv.URL, APIKey: "secret-key", RequestTimeoutSecs: 5})
	require.NoError(t, err)

	text, err := c.Complete(context.Background(), "summarize this")
	require.NoError(t, err)
	assert.Equal(t, "summary text", text)
	assert.Equal(t, "Bearer secret-key", gotAuth)
	assert.Equal(t, "gpt-test", gotReq.Model)
	require.Len(t, gotReq.Messages, 1)
	assert.Equal(t, "summarize this", gotReq.Messages[0].Content)
}

func TestCompleteReturnsErrorOnNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("503 overloaded"))
	}))
	defer srv.Close()

	c, err := NewHTTPClient(Config{BaseURL: srv.URL, RequestTimeoutSecs: 5})
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), "prompt")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestCompleteReturnsErrorOnAPIErrorPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]string{"message": "rate limit exceeded"}})
	}))
	defer srv.Close()

	c, err := NewHTTPClient(Config{BaseURL: srv.URL, RequestTimeoutSecs: 5})
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), "prompt")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit exceeded")
}

func TestNewHTTPClientRejectsEmptyBaseURL(t *testing.T) {
	_, err := NewHTTPClient(Config{})
	assert.Error(t, err)
}

func TestNewHTTPClientRejectsInvalidProxy(t *testing.T) {
	_, err := NewHTTPClient(Config{BaseURL: "https://example.com", Proxy: "://bad"})
	assert.Error(t, err)
}
