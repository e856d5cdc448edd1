// Package openai provides an LLM service adapter using the OpenAI API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// Default configuration values.
const (
	DefaultLLMModel   = domain.DefaultChatModel
	DefaultLLMTimeout = 120 * time.Second
)

// LLMConfig holds configuration for the OpenAI LLM service.
type LLMConfig struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.openai.com/v1).
	// Can be changed for Azure OpenAI or compatible APIs.
	BaseURL string

	// Model is the LLM model to use (default: gpt-3.5-turbo).
	Model string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration
}

// LLMService provides LLM operations using the OpenAI API.
type LLMService struct {
	client *goopenai.Client
	model  string
}

// NewLLMService creates a new OpenAI LLM service.
func NewLLMService(cfg LLMConfig) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultLLMModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultLLMTimeout
	}

	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &LLMService{
		client: goopenai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
	}, nil
}

// Generate produces text completion from a prompt.
func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	req := s.newRequest(opts.MaxTokens, opts.Temperature)
	req.Messages = []goopenai.ChatCompletionMessage{
		{Role: goopenai.ChatMessageRoleUser, Content: prompt},
	}
	req.Stop = opts.StopWords
	return s.complete(ctx, req)
}

// Chat conducts a multi-turn conversation.
func (s *LLMService) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	req := s.newRequest(opts.MaxTokens, opts.Temperature)
	req.Messages = make([]goopenai.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		req.Messages[i] = goopenai.ChatCompletionMessage{Role: msg.Role, Content: msg.Content}
	}
	return s.complete(ctx, req)
}

func (s *LLMService) newRequest(maxTokens int, temperature float64) goopenai.ChatCompletionRequest {
	return goopenai.ChatCompletionRequest{
		Model:       s.model,
		MaxTokens:   maxTokens,
		Temperature: float32(temperature),
	}
}

func (s *LLMService) complete(ctx context.Context, req goopenai.ChatCompletionRequest) (string, error) {
	resp, err := s.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", domain.NewLLMServiceError(s.model, describe(err))
	}
	if len(resp.Choices) == 0 {
		return "", domain.NewLLMServiceError(s.model, errors.New("no completion choices returned"))
	}
	return resp.Choices[0].Message.Content, nil
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping validates the API key by listing models, without running inference.
func (s *LLMService) Ping(ctx context.Context) error {
	if _, err := s.client.ListModels(ctx); err != nil {
		return fmt.Errorf("openai: ping failed: %w", describe(err))
	}
	return nil
}

// Close releases resources.
func (s *LLMService) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}

// describe flattens API errors into a message that includes the status code.
func describe(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("openai error (status %d): %s", apiErr.HTTPStatusCode, apiErr.Message)
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("openai error (status %d): %w", reqErr.HTTPStatusCode, reqErr.Err)
	}
	return err
}
