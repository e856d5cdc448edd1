// Package ollama embeds text with a local Ollama server.
package ollama

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/docqa/internal/adapters/driven/ollamaapi"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

var _ driven.EmbeddingService = (*EmbeddingService)(nil)

const (
	DefaultModel   = "nomic-embed-text"
	DefaultTimeout = 60 * time.Second

	// DefaultDimensions applies to models missing from the dimension table.
	DefaultDimensions = 768
)

// Config selects the server and model. Zero fields take the defaults.
type Config struct {
	BaseURL    string
	Model      string
	Timeout    time.Duration
	Dimensions int
}

// EmbeddingService calls /api/embed, sending each batch in one request.
type EmbeddingService struct {
	api        *ollamaapi.Client
	model      string
	dimensions int
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// NewEmbeddingService returns a service for cfg.
func NewEmbeddingService(cfg Config) *EmbeddingService {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = DefaultDimensions
		if d, ok := domain.EmbeddingDimensions()[cfg.Model]; ok {
			cfg.Dimensions = d
		}
	}

	return &EmbeddingService{
		api:        ollamaapi.New(cfg.BaseURL, cfg.Timeout),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}
}

func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var resp embedResponse
	if err := s.api.Post(ctx, "/api/embed", embedRequest{Model: s.model, Input: texts}, &resp); err != nil {
		return nil, domain.NewEmbeddingServiceError(s.model, err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, domain.NewEmbeddingServiceError(s.model,
			fmt.Errorf("ollama returned %d embeddings for %d inputs", len(resp.Embeddings), len(texts)))
	}
	return resp.Embeddings, nil
}

func (s *EmbeddingService) Dimensions() int   { return s.dimensions }
func (s *EmbeddingService) ModelName() string { return s.model }
func (s *EmbeddingService) Close() error      { return nil }

// Ping checks the server has the model pulled.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	return s.api.Ping(ctx, s.model)
}
