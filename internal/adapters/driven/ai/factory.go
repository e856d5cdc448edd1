// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	ollamaembed "github.com/custodia-labs/docqa/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/docqa/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/docqa/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/docqa/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/docqa/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// CreateEmbeddingService creates the embedding service selected by settings.
// An unconfigured provider (for example a missing API key) returns
// ErrEmbeddingUnavailable.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		}), nil

	case domain.AIProviderOpenAI:
		if settings.APIKey == "" {
			return nil, fmt.Errorf("%w: OPENAI_API_KEY is not set", domain.ErrEmbeddingUnavailable)
		}
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	case domain.AIProviderAnthropic:
		return nil, fmt.Errorf("%w: anthropic does not support embeddings, use ollama or openai",
			domain.ErrEmbeddingUnavailable)

	default:
		return nil, fmt.Errorf("%w: embedding provider %q", domain.ErrUnsupportedType, settings.Provider)
	}
}

// CreateLLMService creates the chat model selected by settings.
// An unconfigured provider returns ErrLLMUnavailable.
func CreateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil {
		return nil, domain.ErrLLMUnavailable
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamallm.NewLLMService(ollamallm.LLMConfig{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		}), nil

	case domain.AIProviderOpenAI:
		if settings.APIKey == "" {
			return nil, fmt.Errorf("%w: OPENAI_API_KEY is not set", domain.ErrLLMUnavailable)
		}
		return openaillm.NewLLMService(openaillm.LLMConfig{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	case domain.AIProviderAnthropic:
		if settings.APIKey == "" {
			return nil, fmt.Errorf("%w: ANTHROPIC_API_KEY is not set", domain.ErrLLMUnavailable)
		}
		return anthropicllm.NewLLMService(anthropicllm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	default:
		return nil, fmt.Errorf("%w: LLM provider %q", domain.ErrUnsupportedType, settings.Provider)
	}
}

// ValidateEmbeddingConfig creates an embedding service and pings it.
// Unconfigured settings have nothing to validate and return nil.
func ValidateEmbeddingConfig(settings *domain.EmbeddingSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}

	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// ValidateLLMConfig creates an LLM service and pings it.
// Unconfigured settings have nothing to validate and return nil.
func ValidateLLMConfig(settings *domain.LLMSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}

	svc, err := CreateLLMService(settings)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}
