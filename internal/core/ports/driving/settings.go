package driving

import "github.com/custodia-labs/docqa/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings.
	Get() (*domain.Config, error)

	// Set stores a single setting by dotted key and persists it.
	Set(key string, value any) error

	// Validate checks that the configured providers and backend are usable.
	Validate() error

	// Warnings returns non-fatal problems with the configuration,
	// such as API keys that do not look right.
	Warnings() []string

	// GetDefaults returns default settings.
	GetDefaults() domain.Config

	// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
	ValidateEmbeddingConfig() error

	// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
	ValidateLLMConfig() error

	// ConfigPath returns the configuration file path.
	ConfigPath() string

	// Keys returns every setting key accepted by Set.
	Keys() []string
}
