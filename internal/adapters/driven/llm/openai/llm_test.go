package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

type capturedRequest struct {
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func newTestService(t *testing.T, handler http.HandlerFunc) *LLMService {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	s, err := NewLLMService(LLMConfig{APIKey: "sk-test", BaseURL: server.URL + "/v1"})
	require.NoError(t, err)
	return s
}

func TestNewLLMService(t *testing.T) {
	_, err := NewLLMService(LLMConfig{})
	assert.Error(t, err)

	s, err := NewLLMService(LLMConfig{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "gpt-3.5-turbo", s.ModelName())
}

func TestChat(t *testing.T) {
	var got capturedRequest
	s := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"It is 42."},"finish_reason":"stop"}]}`))
	})

	answer, err := s.Chat(context.Background(), []driven.ChatMessage{
		{Role: driven.RoleSystem, Content: "You answer questions."},
		{Role: driven.RoleUser, Content: "What is the answer?"},
	}, driven.ChatOptions{Temperature: 0.7, MaxTokens: 256})
	require.NoError(t, err)

	assert.Equal(t, "It is 42.", answer)
	assert.Equal(t, "gpt-3.5-turbo", got.Model)
	assert.InDelta(t, 0.7, got.Temperature, 1e-6)
	assert.Equal(t, 256, got.MaxTokens)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "What is the answer?", got.Messages[1].Content)
}

func TestGenerate(t *testing.T) {
	s := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		var got capturedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		require.Len(t, got.Messages, 1)
		assert.Equal(t, "user", got.Messages[0].Role)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":"NO_OUTPUT"}}]}`))
	})

	out, err := s.Generate(context.Background(), "extract", driven.GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, "NO_OUTPUT", out)
}

func TestChat_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{
			name:    "api error",
			status:  http.StatusTooManyRequests,
			body:    `{"error":{"message":"Rate limit reached","type":"requests"}}`,
			wantMsg: "Rate limit reached",
		},
		{
			name:    "no choices",
			status:  http.StatusOK,
			body:    `{"choices":[]}`,
			wantMsg: "no completion choices",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})

			_, err := s.Chat(context.Background(), []driven.ChatMessage{{Role: driven.RoleUser, Content: "hi"}}, driven.ChatOptions{})

			var llmErr *domain.LLMServiceError
			require.ErrorAs(t, err, &llmErr)
			assert.Equal(t, "gpt-3.5-turbo", llmErr.Model)
			assert.Contains(t, err.Error(), tc.wantMsg)
		})
	}
}
