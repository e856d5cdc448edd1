package driven

import "github.com/custodia-labs/docqa/internal/core/domain"

// AIConfigValidator checks provider settings before they are relied on.
type AIConfigValidator interface {
	// ValidateEmbedding builds a client from config and pings it. Settings
	// that are not configured yet pass.
	ValidateEmbedding(config *domain.EmbeddingSettings) error

	// ValidateLLM does the same for the chat model.
	ValidateLLM(config *domain.LLMSettings) error

	// CheckAPIKey looks at the key's format only. It returns a warning, or
	// "" when the key looks right for provider.
	CheckAPIKey(provider domain.AIProvider, apiKey string) string
}
