package domain

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// VectorStoreType selects the vector index backend.
type VectorStoreType string

// Available vector index backends.
const (
	// VectorStoreChroma is the persistent, metadata-filterable backend.
	VectorStoreChroma VectorStoreType = "chroma"

	// VectorStoreFAISS is the in-memory backend with manual persistence.
	VectorStoreFAISS VectorStoreType = "faiss"
)

// IsValid returns true if the backend is recognised.
func (t VectorStoreType) IsValid() bool {
	return t == VectorStoreChroma || t == VectorStoreFAISS
}

// String returns the string representation.
func (t VectorStoreType) String() string {
	return string(t)
}

// Description returns a human-readable description of the backend.
func (t VectorStoreType) Description() string {
	switch t {
	case VectorStoreChroma:
		return "Chroma-like (persistent SQLite, metadata filters)"
	case VectorStoreFAISS:
		return "FAISS-like (in-memory, saved on demand)"
	default:
		return unknownDescription
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint override.
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// BatchSize is the number of texts sent per embedding request.
	BatchSize int

	// RequestsPerSecond throttles embedding requests. Zero disables it.
	RequestsPerSecond float64
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() || e.Provider == AIProviderAnthropic {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the chat model name.
	Model string

	// BaseURL is the API endpoint override.
	BaseURL string

	// APIKey is the API key (for OpenAI/Anthropic).
	APIKey string

	// Temperature controls sampling randomness.
	Temperature float64

	// MaxTokens caps the answer length. Zero uses the provider default.
	MaxTokens int
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// VectorStoreSettings holds vector index configuration.
type VectorStoreSettings struct {
	// Type selects the backend.
	Type VectorStoreType

	// PersistDirectory is where the backend keeps its files.
	PersistDirectory string
}

// ChunkerSettings holds chunking configuration.
type ChunkerSettings struct {
	// Size is the maximum chunk length in characters.
	Size int

	// Overlap is the number of characters shared by adjacent chunks.
	Overlap int
}

// RetrievalSettings holds retriever configuration.
type RetrievalSettings struct {
	// K is the default number of passages to retrieve.
	K int

	// Strategy is the default retrieval strategy.
	Strategy Strategy

	// CompressionFactor is the over-fetch multiplier for compression.
	CompressionFactor int

	// VectorWeight weights the vector score in hybrid ranking.
	VectorWeight float64

	// LexicalWeight weights the lexical score in hybrid ranking.
	LexicalWeight float64
}

// IngestSettings holds document loading configuration.
type IngestSettings struct {
	// DataDir is the default root directory to ingest.
	DataDir string

	// Include limits ingestion to paths matching any of these globs.
	Include []string

	// Exclude skips paths matching any of these globs.
	Exclude []string

	// JSONFields lists dotted paths extracted from JSON files.
	// Empty means the whole document is flattened.
	JSONFields []string
}

// MemorySettings holds conversation memory configuration.
type MemorySettings struct {
	// Window is the maximum number of turns remembered.
	Window int
}

// Config holds all application settings.
type Config struct {
	Embedding   EmbeddingSettings
	LLM         LLMSettings
	VectorStore VectorStoreSettings
	Chunker     ChunkerSettings
	Retrieval   RetrievalSettings
	Ingest      IngestSettings
	Memory      MemorySettings

	// PromptsFile optionally overrides the built-in prompt templates.
	PromptsFile string
}

// Default configuration values.
const (
	DefaultChatModel         = "gpt-3.5-turbo"
	DefaultEmbeddingModel    = "text-embedding-ada-002"
	DefaultChunkSize         = 1000
	DefaultChunkOverlap      = 100
	DefaultRetrievalK        = 4
	DefaultDataDir           = "data/documents"
	DefaultPersistDirectory  = "data/vectorstore"
	DefaultTemperature       = 0.7
	DefaultMemoryWindow      = 5
	DefaultCompressionFactor = 3
	DefaultVectorWeight      = 0.7
	DefaultLexicalWeight     = 0.3
	DefaultEmbeddingBatch    = 64
)

// DefaultConfig returns settings with the application defaults.
// API keys are left empty and come from the environment.
func DefaultConfig() Config {
	return Config{
		Embedding: EmbeddingSettings{
			Provider:  AIProviderOpenAI,
			Model:     DefaultEmbeddingModel,
			BatchSize: DefaultEmbeddingBatch,
		},
		LLM: LLMSettings{
			Provider:    AIProviderOpenAI,
			Model:       DefaultChatModel,
			Temperature: DefaultTemperature,
		},
		VectorStore: VectorStoreSettings{
			Type:             VectorStoreChroma,
			PersistDirectory: DefaultPersistDirectory,
		},
		Chunker: ChunkerSettings{
			Size:    DefaultChunkSize,
			Overlap: DefaultChunkOverlap,
		},
		Retrieval: RetrievalSettings{
			K:                 DefaultRetrievalK,
			Strategy:          StrategySimilarity,
			CompressionFactor: DefaultCompressionFactor,
			VectorWeight:      DefaultVectorWeight,
			LexicalWeight:     DefaultLexicalWeight,
		},
		Ingest: IngestSettings{
			DataDir: DefaultDataDir,
		},
		Memory: MemorySettings{
			Window: DefaultMemoryWindow,
		},
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// AllLLMProviders returns providers that support LLM operations.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: DefaultEmbeddingModel,
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    DefaultChatModel,
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}

// PipelineConfig holds post-processor pipeline configuration.
// Uses generic map-based config for extensibility - new processors can be added
// without modifying this struct.
type PipelineConfig struct {
	// Processors is the ordered list of processor names to run.
	Processors []string

	// ProcessorConfigs holds per-processor configuration as generic maps.
	// Key is processor name, value is processor-specific config.
	ProcessorConfigs map[string]map[string]any
}

// GetProcessorConfig returns config for a specific processor, or nil if not set.
func (c *PipelineConfig) GetProcessorConfig(name string) map[string]any {
	if c.ProcessorConfigs == nil {
		return nil
	}
	return c.ProcessorConfigs[name]
}

// PipelineConfigFor builds the chunking pipeline configuration from settings.
func PipelineConfigFor(c ChunkerSettings) PipelineConfig {
	return PipelineConfig{
		Processors: []string{"chunker", "metadata"},
		ProcessorConfigs: map[string]map[string]any{
			"chunker": {
				"chunk_size": c.Size,
				"overlap":    c.Overlap,
			},
		},
	}
}

// DefaultPipelineConfig returns the default pipeline configuration.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfigFor(DefaultConfig().Chunker)
}
