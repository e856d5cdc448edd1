// Package ollama answers questions with a chat model served by Ollama.
package ollama

import (
	"context"
	"time"

	"github.com/custodia-labs/docqa/internal/adapters/driven/ollamaapi"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

var _ driven.LLMService = (*LLMService)(nil)

const (
	DefaultLLMModel = "llama3.2"

	// DefaultLLMTimeout allows for a cold model load on the first request.
	DefaultLLMTimeout = 120 * time.Second
)

// LLMConfig selects the server and model. Zero fields take the defaults.
type LLMConfig struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// LLMService sends non-streaming /api/chat requests.
type LLMService struct {
	api   *ollamaapi.Client
	model string
}

type options struct {
	NumPredict  int      `json:"num_predict,omitempty"`
	Temperature float64  `json:"temperature,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  *options      `json:"options,omitempty"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
}

// NewLLMService returns a service for cfg.
func NewLLMService(cfg LLMConfig) *LLMService {
	if cfg.Model == "" {
		cfg.Model = DefaultLLMModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultLLMTimeout
	}
	return &LLMService{api: ollamaapi.New(cfg.BaseURL, cfg.Timeout), model: cfg.Model}
}

// Generate sends prompt as a single user message.
func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	return s.chat(ctx,
		[]chatMessage{{Role: driven.RoleUser, Content: prompt}},
		newOptions(opts.MaxTokens, opts.Temperature, opts.StopWords))
}

// Chat sends messages unchanged; Ollama uses the same role names.
func (s *LLMService) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	converted := make([]chatMessage, len(messages))
	for i, m := range messages {
		converted[i] = chatMessage(m)
	}
	return s.chat(ctx, converted, newOptions(opts.MaxTokens, opts.Temperature, nil))
}

// newOptions returns nil when every option is unset, so the model's own
// defaults apply.
func newOptions(maxTokens int, temperature float64, stop []string) *options {
	if maxTokens == 0 && temperature == 0 && len(stop) == 0 {
		return nil
	}
	return &options{NumPredict: maxTokens, Temperature: temperature, Stop: stop}
}

func (s *LLMService) chat(ctx context.Context, messages []chatMessage, opts *options) (string, error) {
	req := chatRequest{Model: s.model, Messages: messages, Options: opts}

	var resp chatResponse
	if err := s.api.Post(ctx, "/api/chat", req, &resp); err != nil {
		return "", domain.NewLLMServiceError(s.model, err)
	}
	return resp.Message.Content, nil
}

func (s *LLMService) ModelName() string { return s.model }
func (s *LLMService) Close() error      { return nil }

// Ping checks the server has the model pulled.
func (s *LLMService) Ping(ctx context.Context) error {
	return s.api.Ping(ctx, s.model)
}
