// Package app assembles the adapters and services behind the docqa commands.
package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/custodia-labs/docqa/internal/adapters/driven/ai"
	"github.com/custodia-labs/docqa/internal/adapters/driven/config/file"
	"github.com/custodia-labs/docqa/internal/adapters/driven/config/memory"
	"github.com/custodia-labs/docqa/internal/adapters/driven/lexical/bleve"
	"github.com/custodia-labs/docqa/internal/adapters/driven/vectorstore"
	"github.com/custodia-labs/docqa/internal/adapters/driving/cli"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/services"
	"github.com/custodia-labs/docqa/internal/logger"
	"github.com/custodia-labs/docqa/internal/normalisers"
	"github.com/custodia-labs/docqa/internal/postprocessors"
)

// App holds the wired services and the resources they own.
type App struct {
	Config *domain.Config

	Settings  *services.SettingsService
	Index     *services.IndexService
	Ingest    *services.IngestService
	Retriever *services.RetrieverService
	Admin     *services.AdminService

	// Chat is nil when no chat model could be created.
	Chat *services.ChatService

	vectors  driven.VectorIndex
	lexical  driven.LexicalIndex
	embedder driven.EmbeddingService
	llm      driven.LLMService
}

// New reads the configuration at configPath (empty selects
// ~/.docqa/config.toml, NoConfigFile none at all) and builds every service.
//
// Missing AI providers are not fatal: commands that need them report the
// problem when they run, so settings and scan keep working.
func New(ctx context.Context, configPath string) (*App, error) {
	store, err := openConfigStore(configPath)
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}

	settings := services.NewSettingsService(store, ai.NewConfigValidator())
	cfg, err := settings.Get()
	if err != nil {
		return nil, fmt.Errorf("reading settings: %w", err)
	}
	for _, w := range settings.Warnings() {
		logger.Warn("%s", w)
	}

	return build(ctx, cfg, settings)
}

// NoConfigFile as the config path runs on defaults and the environment
// without reading or writing any file.
const NoConfigFile = "-"

func openConfigStore(path string) (driven.ConfigStore, error) {
	switch path {
	case "":
		return file.NewConfigStore("")
	case NoConfigFile:
		return memory.NewConfigStore(), nil
	default:
		return file.NewConfigStoreAt(path)
	}
}

// build wires the services for cfg.
func build(ctx context.Context, cfg *domain.Config, settings *services.SettingsService) (*App, error) {
	a := &App{Config: cfg, Settings: settings}

	vectors, err := vectorstore.New(ctx, cfg.VectorStore)
	if err != nil {
		return nil, err
	}
	a.vectors = vectors

	lexDir := filepath.Join(cfg.VectorStore.PersistDirectory, bleve.DirName)
	if lex, err := bleve.New(lexDir); err != nil {
		logger.Warn("lexical index unavailable, hybrid retrieval uses vectors only: %v", err)
	} else {
		a.lexical = lex
	}

	if embedder, err := ai.CreateEmbeddingService(&cfg.Embedding); err != nil {
		logger.Warn("embedding model unavailable: %v", err)
	} else {
		a.embedder = embedder
	}

	if llm, err := ai.CreateLLMService(&cfg.LLM); err != nil {
		logger.Warn("chat model unavailable: %v", err)
	} else {
		a.llm = llm
	}

	pipeline, err := postprocessors.ForChunking(cfg.Chunker)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("building chunking pipeline: %w", err)
	}

	prompts := file.NewPromptStore(cfg.PromptsFile)
	memory := services.NewMemory(cfg.Memory.Window)

	a.Index = services.NewIndexService(a.vectors, a.lexical, a.embedder, cfg.Embedding)
	a.Ingest = services.NewIngestService(
		normalisers.NewDefaultRegistry(cfg.Ingest.JSONFields), pipeline, a.Index, cfg.Ingest)
	a.Retriever = services.NewRetrieverService(a.Index, a.llm, prompts, cfg.Retrieval)
	a.Admin = services.NewAdminService(a.Index, memory, *cfg)
	if a.llm != nil {
		a.Chat = services.NewChatService(a.Retriever, a.llm, prompts, memory, *cfg)
	}

	logger.Debug("vector store %s at %s, embedding %s, chat %s",
		cfg.VectorStore.Type, cfg.VectorStore.PersistDirectory, cfg.Embedding.Model, cfg.LLM.Model)
	return a, nil
}

// Save persists the index when the backend needs an explicit save.
func (a *App) Save(ctx context.Context) error {
	return a.Index.Save(ctx)
}

// Close releases the stores and model clients.
func (a *App) Close() error {
	var errs []error
	if a.embedder != nil {
		errs = append(errs, a.embedder.Close())
	}
	if a.llm != nil {
		errs = append(errs, a.llm.Close())
	}
	if a.lexical != nil {
		errs = append(errs, a.lexical.Close())
	}
	if a.vectors != nil {
		errs = append(errs, a.vectors.Close())
	}
	return errors.Join(errs...)
}

// Services exposes the app through the CLI's driving ports.
func (a *App) Services() *cli.Services {
	s := &cli.Services{
		Settings:  a.Settings,
		Ingest:    a.Ingest,
		Retriever: a.Retriever,
		Admin:     a.Admin,
		Config:    a.Config,
		Save:      a.Save,
		Close:     a.Close,
	}
	if a.Chat != nil {
		s.Chat = a.Chat
	}
	return s
}

// Bootstrap adapts New to the CLI's bootstrap hook.
func Bootstrap(ctx context.Context, configPath string) (*cli.Services, error) {
	a, err := New(ctx, configPath)
	if err != nil {
		return nil, err
	}
	return a.Services(), nil
}
