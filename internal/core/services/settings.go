package services

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyEmbedProvider     = "embedding.provider"
	keyEmbedModel        = "embedding.model"
	keyEmbedBaseURL      = "embedding.base_url"
	keyEmbedAPIKey       = "embedding.api_key"
	keyEmbedBatchSize    = "embedding.batch_size"
	keyEmbedRPS          = "embedding.requests_per_second"
	keyLLMProvider       = "llm.provider"
	keyLLMModel          = "llm.model"
	keyLLMBaseURL        = "llm.base_url"
	keyLLMAPIKey         = "llm.api_key"
	keyLLMTemperature    = "llm.temperature"
	keyLLMMaxTokens      = "llm.max_tokens"
	keyVectorType        = "vector_store.type"
	keyVectorPersist     = "vector_store.persist_directory"
	keyChunkSize         = "chunking.size"
	keyChunkOverlap      = "chunking.overlap"
	keyRetrievalK        = "retrieval.k"
	keyRetrievalStrategy = "retrieval.strategy"
	keyCompressionFactor = "retrieval.compression_factor"
	keyVectorWeight      = "retrieval.vector_weight"
	keyLexicalWeight     = "retrieval.lexical_weight"
	keyIngestDataDir     = "ingest.data_dir"
	keyIngestInclude     = "ingest.include"
	keyIngestExclude     = "ingest.exclude"
	keyIngestJSONFields  = "ingest.json.fields"
	keyMemoryWindow      = "memory.window"
	keyPromptsFile       = "prompts.file"
)

// EnvPrefix prefixes environment variables that override config keys.
// "llm.model" is overridden by DOCQA_LLM_MODEL.
const EnvPrefix = "DOCQA_"

// Provider API key environment variables.
//
//nolint:gosec // G101: environment variable names, not credentials.
const (
	EnvOpenAIKey    = "OPENAI_API_KEY"
	EnvAnthropicKey = "ANTHROPIC_API_KEY"
)

type valueKind int

const (
	kindString valueKind = iota
	kindInt
	kindFloat
	kindList
)

// settingKinds lists every accepted key and how its value is coerced.
var settingKinds = map[string]valueKind{
	keyEmbedProvider:     kindString,
	keyEmbedModel:        kindString,
	keyEmbedBaseURL:      kindString,
	keyEmbedAPIKey:       kindString,
	keyEmbedBatchSize:    kindInt,
	keyEmbedRPS:          kindFloat,
	keyLLMProvider:       kindString,
	keyLLMModel:          kindString,
	keyLLMBaseURL:        kindString,
	keyLLMAPIKey:         kindString,
	keyLLMTemperature:    kindFloat,
	keyLLMMaxTokens:      kindInt,
	keyVectorType:        kindString,
	keyVectorPersist:     kindString,
	keyChunkSize:         kindInt,
	keyChunkOverlap:      kindInt,
	keyRetrievalK:        kindInt,
	keyRetrievalStrategy: kindString,
	keyCompressionFactor: kindInt,
	keyVectorWeight:      kindFloat,
	keyLexicalWeight:     kindFloat,
	keyIngestDataDir:     kindString,
	keyIngestInclude:     kindList,
	keyIngestExclude:     kindList,
	keyIngestJSONFields:  kindList,
	keyMemoryWindow:      kindInt,
	keyPromptsFile:       kindString,
}

// legacyEnv maps the environment names of earlier releases to config keys.
var legacyEnv = map[string]string{
	"CHAT_MODEL":        keyLLMModel,
	"EMBEDDING_MODEL":   keyEmbedModel,
	"VECTOR_STORE_TYPE": keyVectorType,
	"PERSIST_DIRECTORY": keyVectorPersist,
	"DATA_DIR":          keyIngestDataDir,
}

// SettingsService builds the application Config from the config store and
// the environment. Environment values take precedence over the file.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
	lookupEnv   func(string) (string, bool)
}

// NewSettingsService creates a new settings service.
// The aiValidator is optional (can be nil).
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
		lookupEnv:   os.LookupEnv,
	}
}

// SetEnvLookup replaces the environment lookup. A nil fn disables overrides.
func (s *SettingsService) SetEnvLookup(fn func(string) (string, bool)) {
	if fn == nil {
		fn = func(string) (string, bool) { return "", false }
	}
	s.lookupEnv = fn
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.Config, error) {
	d := domain.DefaultConfig()

	cfg := &domain.Config{
		Embedding: domain.EmbeddingSettings{
			Provider:          s.getProvider(keyEmbedProvider, d.Embedding.Provider),
			BaseURL:           s.getString(keyEmbedBaseURL, ""),
			BatchSize:         s.getInt(keyEmbedBatchSize, d.Embedding.BatchSize),
			RequestsPerSecond: s.getFloat(keyEmbedRPS, d.Embedding.RequestsPerSecond),
		},
		LLM: domain.LLMSettings{
			Provider:    s.getProvider(keyLLMProvider, d.LLM.Provider),
			BaseURL:     s.getString(keyLLMBaseURL, ""),
			Temperature: s.getFloat(keyLLMTemperature, d.LLM.Temperature),
			MaxTokens:   s.getInt(keyLLMMaxTokens, d.LLM.MaxTokens),
		},
		VectorStore: domain.VectorStoreSettings{
			Type:             domain.VectorStoreType(s.getString(keyVectorType, string(d.VectorStore.Type))),
			PersistDirectory: s.getString(keyVectorPersist, d.VectorStore.PersistDirectory),
		},
		Chunker: domain.ChunkerSettings{
			Size:    s.getInt(keyChunkSize, d.Chunker.Size),
			Overlap: s.getInt(keyChunkOverlap, d.Chunker.Overlap),
		},
		Retrieval: domain.RetrievalSettings{
			K:                 s.getInt(keyRetrievalK, d.Retrieval.K),
			Strategy:          domain.Strategy(s.getString(keyRetrievalStrategy, string(d.Retrieval.Strategy))),
			CompressionFactor: s.getInt(keyCompressionFactor, d.Retrieval.CompressionFactor),
			VectorWeight:      s.getFloat(keyVectorWeight, d.Retrieval.VectorWeight),
			LexicalWeight:     s.getFloat(keyLexicalWeight, d.Retrieval.LexicalWeight),
		},
		Ingest: domain.IngestSettings{
			DataDir:    s.getString(keyIngestDataDir, d.Ingest.DataDir),
			Include:    s.getList(keyIngestInclude),
			Exclude:    s.getList(keyIngestExclude),
			JSONFields: s.getList(keyIngestJSONFields),
		},
		Memory: domain.MemorySettings{
			Window: s.getInt(keyMemoryWindow, d.Memory.Window),
		},
		PromptsFile: s.getString(keyPromptsFile, ""),
	}

	// Models default per provider so switching to ollama does not keep an OpenAI model name.
	cfg.Embedding.Model = s.getString(keyEmbedModel, domain.DefaultEmbeddingModels()[cfg.Embedding.Provider])
	cfg.LLM.Model = s.getString(keyLLMModel, domain.DefaultLLMModels()[cfg.LLM.Provider])

	cfg.Embedding.APIKey = s.apiKey(keyEmbedAPIKey, cfg.Embedding.Provider)
	cfg.LLM.APIKey = s.apiKey(keyLLMAPIKey, cfg.LLM.Provider)

	return cfg, nil
}

// Set stores a single setting by dotted key. String values are coerced to
// the key's type so CLI input can be passed through unchanged.
func (s *SettingsService) Set(key string, value any) error {
	kind, ok := settingKinds[key]
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}

	v, err := coerce(kind, value)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrInvalidInput, key, err)
	}

	if err := s.configStore.Set(key, v); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Keys returns every setting key accepted by Set, sorted.
func (s *SettingsService) Keys() []string {
	keys := make([]string, 0, len(settingKinds))
	for k := range settingKinds {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Validate checks if current settings are usable.
//
//nolint:gocyclo // Flat list of independent checks
func (s *SettingsService) Validate() error {
	cfg, err := s.Get()
	if err != nil {
		return err
	}

	var errs []error
	if !cfg.VectorStore.Type.IsValid() {
		errs = append(errs, fmt.Errorf("%w: vector store %q (use chroma or faiss)",
			domain.ErrUnsupportedType, cfg.VectorStore.Type))
	}
	if !cfg.Retrieval.Strategy.IsValid() {
		errs = append(errs, fmt.Errorf("%w: retrieval strategy %q", domain.ErrInvalidInput, cfg.Retrieval.Strategy))
	}
	if cfg.Chunker.Size <= 0 {
		errs = append(errs, fmt.Errorf("%w: chunking.size must be positive", domain.ErrInvalidInput))
	}
	if cfg.Chunker.Overlap < 0 {
		errs = append(errs, fmt.Errorf("%w: chunking.overlap must not be negative", domain.ErrInvalidInput))
	}
	if cfg.Retrieval.K < 0 {
		errs = append(errs, fmt.Errorf("%w: retrieval.k must not be negative", domain.ErrInvalidInput))
	}
	if cfg.Retrieval.VectorWeight < 0 || cfg.Retrieval.LexicalWeight < 0 {
		errs = append(errs, fmt.Errorf("%w: retrieval weights must not be negative", domain.ErrInvalidInput))
	}
	if !cfg.Embedding.IsConfigured() {
		if cfg.Embedding.Provider == domain.AIProviderAnthropic {
			errs = append(errs, fmt.Errorf("%w: anthropic does not provide embeddings", domain.ErrEmbeddingUnavailable))
		} else {
			errs = append(errs, fmt.Errorf("%w: %s embeddings need %s",
				domain.ErrEmbeddingUnavailable, cfg.Embedding.Provider, requirement(cfg.Embedding.Provider)))
		}
	}
	if !cfg.LLM.IsConfigured() {
		errs = append(errs, fmt.Errorf("%w: %s chat needs %s",
			domain.ErrLLMUnavailable, cfg.LLM.Provider, requirement(cfg.LLM.Provider)))
	}

	return errors.Join(errs...)
}

// Warnings reports non-fatal configuration problems.
func (s *SettingsService) Warnings() []string {
	if s.aiValidator == nil {
		return nil
	}
	cfg, err := s.Get()
	if err != nil {
		return nil
	}

	var warnings []string
	seen := make(map[string]bool)
	add := func(provider domain.AIProvider, key string) {
		if !provider.RequiresAPIKey() {
			return
		}
		if w := s.aiValidator.CheckAPIKey(provider, key); w != "" && !seen[w] {
			seen[w] = true
			warnings = append(warnings, w)
			logger.Warn("%s", w)
		}
	}
	add(cfg.Embedding.Provider, cfg.Embedding.APIKey)
	add(cfg.LLM.Provider, cfg.LLM.APIKey)
	return warnings
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.Config {
	return domain.DefaultConfig()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	cfg, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&cfg.Embedding)
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	cfg, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&cfg.LLM)
}

// ConfigPath returns the configuration file path.
func (s *SettingsService) ConfigPath() string {
	return s.configStore.Path()
}

func requirement(p domain.AIProvider) string {
	switch p {
	case domain.AIProviderOpenAI:
		return EnvOpenAIKey
	case domain.AIProviderAnthropic:
		return EnvAnthropicKey
	default:
		return "a valid provider (ollama, openai or anthropic)"
	}
}

// Helper methods for reading config with defaults.

// env returns the environment override for key, if any.
func (s *SettingsService) env(key string) (string, bool) {
	name := EnvPrefix + strings.ToUpper(strings.NewReplacer(".", "_").Replace(key))
	if v, ok := s.lookupEnv(name); ok && v != "" {
		return v, true
	}
	for legacy, k := range legacyEnv {
		if k != key {
			continue
		}
		if v, ok := s.lookupEnv(legacy); ok && v != "" {
			return v, true
		}
	}
	return "", false
}

func (s *SettingsService) getString(key, defaultVal string) string {
	if v, ok := s.env(key); ok {
		return v
	}
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if v, ok := s.env(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		logger.Warn("ignoring %s%s: not an integer", EnvPrefix, key)
	}
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if v, ok := s.env(key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		logger.Warn("ignoring %s%s: not a number", EnvPrefix, key)
	}
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getList(key string) []string {
	if v, ok := s.env(key); ok {
		return splitList(v)
	}
	return s.configStore.GetStringSlice(key)
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.getString(key, "")
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(strings.ToLower(val))
	if !provider.IsValid() {
		logger.Warn("unknown provider %q for %s, using %s", val, key, defaultVal)
		return defaultVal
	}
	return provider
}

// apiKey prefers an explicit setting, then the provider's standard variable.
func (s *SettingsService) apiKey(key string, provider domain.AIProvider) string {
	if v := s.getString(key, ""); v != "" {
		return v
	}
	var name string
	switch provider {
	case domain.AIProviderOpenAI:
		name = EnvOpenAIKey
	case domain.AIProviderAnthropic:
		name = EnvAnthropicKey
	default:
		return ""
	}
	v, _ := s.lookupEnv(name)
	return strings.TrimSpace(v)
}

func coerce(kind valueKind, value any) (any, error) {
	str, isString := value.(string)
	if isString {
		str = strings.TrimSpace(str)
	}

	switch kind {
	case kindInt:
		switch v := value.(type) {
		case int:
			return v, nil
		case int64:
			return int(v), nil
		case string:
			n, err := strconv.Atoi(str)
			if err != nil {
				return nil, fmt.Errorf("%q is not an integer", v)
			}
			return n, nil
		}
	case kindFloat:
		switch v := value.(type) {
		case float64:
			return v, nil
		case int:
			return float64(v), nil
		case string:
			f, err := strconv.ParseFloat(str, 64)
			if err != nil {
				return nil, fmt.Errorf("%q is not a number", v)
			}
			return f, nil
		}
	case kindList:
		switch v := value.(type) {
		case []string:
			return v, nil
		case string:
			return splitList(v), nil
		}
	case kindString:
		if isString {
			return str, nil
		}
	}
	return nil, fmt.Errorf("unsupported value %v (%T)", value, value)
}

// splitList splits a comma separated list, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
