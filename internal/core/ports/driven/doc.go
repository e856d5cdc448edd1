// Package driven holds the interfaces the core services call out through.
// Adapters under internal/adapters/driven, internal/normalisers and
// internal/postprocessors implement them; this package imports only domain.
//
// The services need a Normaliser registry, a PostProcessorPipeline, an
// EmbeddingService, a VectorIndex and a ConfigStore. The rest may be nil:
//
//   - LLMService: without it, ask, chat and the compression strategy fail.
//   - LexicalIndex: without it, hybrid retrieval ranks by vectors alone.
//   - Persister: only the memory vector backend needs explicit saves.
//   - PromptStore: without it, the built-in prompts are used.
package driven
