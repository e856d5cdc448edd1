package ai

import (
	"strings"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure ConfigValidator implements the interface.
var _ driven.AIConfigValidator = (*ConfigValidator)(nil)

// minOpenAIKeyLength is the shortest plausible OpenAI key.
const minOpenAIKeyLength = 20

// ConfigValidator validates AI provider configurations.
type ConfigValidator struct{}

// NewConfigValidator creates a new AI config validator.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{}
}

// ValidateEmbedding validates an embedding configuration by pinging the provider.
func (v *ConfigValidator) ValidateEmbedding(config *domain.EmbeddingSettings) error {
	return ValidateEmbeddingConfig(config)
}

// ValidateLLM validates an LLM configuration by pinging the provider.
func (v *ConfigValidator) ValidateLLM(config *domain.LLMSettings) error {
	return ValidateLLMConfig(config)
}

// CheckAPIKey reports keys that cannot be valid for the provider. Only
// OpenAI keys have a known shape: an "sk-" prefix and at least 20 characters.
func (v *ConfigValidator) CheckAPIKey(provider domain.AIProvider, apiKey string) string {
	if !provider.RequiresAPIKey() {
		return ""
	}
	if apiKey == "" {
		return provider.Description() + " API key is not set"
	}
	if provider != domain.AIProviderOpenAI {
		return ""
	}
	if !strings.HasPrefix(apiKey, "sk-") {
		return "OpenAI API key should start with 'sk-'"
	}
	if len(apiKey) < minOpenAIKeyLength {
		return "OpenAI API key looks too short"
	}
	return ""
}
