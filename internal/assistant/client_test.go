package assistant

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/studyroom-service/internal/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type completionRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func fakeCompletions(t *testing.T, status int, body string, seen *completionRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		if seen != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(seen))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIClient_Complete(t *testing.T) {
	var seen completionRequest
	srv := fakeCompletions(t, http.StatusOK, `{
		"id": "cmpl-1",
		"object": "chat.completion",
		"choices": [{"index": 0, "message": {"role": "assistant", "content": "  Photosynthesis turns light into sugar. "}, "finish_reason": "stop"}],
		"usage": {"prompt_tokens": 10, "completion_tokens": 7, "total_tokens": 17}
	}`, &seen)

	client, err := NewOpenAIClient(config.AssistantConfig{APIKey: "test-key", BaseURL: srv.URL + "/"}, discardLogger())
	require.NoError(t, err)

	reply, err := client.Complete(context.Background(), "What is photosynthesis?")
	require.NoError(t, err)
	assert.Equal(t, "Photosynthesis turns light into sugar.", reply)

	assert.Equal(t, DefaultModel, seen.Model)
	require.Len(t, seen.Messages, 2)
	assert.Equal(t, "system", seen.Messages[0].Role)
	assert.Equal(t, SystemPrompt, seen.Messages[0].Content)
	assert.Equal(t, "What is photosynthesis?", seen.Messages[1].Content)
}

func TestOpenAIClient_EmptyChoices(t *testing.T) {
	srv := fakeCompletions(t, http.StatusOK, `{"id":"x","choices":[]}`, nil)

	client, err := NewOpenAIClient(config.AssistantConfig{APIKey: "test-key", BaseURL: srv.URL, Model: "gpt-4o-mini"}, discardLogger())
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), "hi")
	assert.ErrorIs(t, err, ErrEmptyReply)
}

func TestOpenAIClient_APIError(t *testing.T) {
	srv := fakeCompletions(t, http.StatusUnauthorized, `{"error":{"message":"bad key","type":"invalid_request_error"}}`, nil)

	client, err := NewOpenAIClient(config.AssistantConfig{APIKey: "test-key", BaseURL: srv.URL}, discardLogger())
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), "hi")
	assert.Error(t, err)
}

func TestNew_WithoutKey(t *testing.T) {
	client := New(config.AssistantConfig{}, discardLogger())

	_, err := client.Complete(context.Background(), "hi")
	assert.ErrorIs(t, err, ErrNotConfigured)
}
