package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure ChatService implements the interface.
var _ driving.ChatService = (*ChatService)(nil)

// ChatService answers questions from retrieved passages and remembers the
// most recent exchanges.
type ChatService struct {
	retriever *RetrieverService
	llm       driven.LLMService
	prompts   driven.PromptStore
	memory    *Memory
	strategy  domain.Strategy
	k         int
	opts      driven.ChatOptions
	now       func() time.Time
}

// NewChatService creates a chat service using the configured retrieval
// strategy, k and sampling settings.
func NewChatService(
	retriever *RetrieverService,
	llm driven.LLMService,
	prompts driven.PromptStore,
	memory *Memory,
	cfg domain.Config,
) *ChatService {
	strategy := cfg.Retrieval.Strategy
	if !strategy.IsValid() {
		strategy = domain.StrategySimilarity
	}
	if memory == nil {
		memory = NewMemory(cfg.Memory.Window)
	}
	return &ChatService{
		retriever: retriever,
		llm:       llm,
		prompts:   prompts,
		memory:    memory,
		strategy:  strategy,
		k:         cfg.Retrieval.K,
		opts: driven.ChatOptions{
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
		},
		now: time.Now,
	}
}

// Answer retrieves passages, asks the chat model and records the turn.
// A model failure is returned as *domain.LLMServiceError and leaves the
// memory untouched.
func (c *ChatService) Answer(ctx context.Context, question string) (*domain.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is empty", domain.ErrInvalidInput)
	}
	if c.llm == nil {
		return nil, domain.ErrLLMUnavailable
	}

	result, err := c.retriever.Retrieve(ctx, question, c.strategy, c.k)
	if err != nil {
		return nil, err
	}

	messages, err := c.buildMessages(question, result)
	if err != nil {
		return nil, err
	}

	logger.Section("Answer")
	logger.Debug("Asking %s with %d passages", c.llm.ModelName(), result.Len())
	text, err := c.llm.Chat(ctx, messages, c.opts)
	if err != nil {
		return nil, domain.NewLLMServiceError(c.llm.ModelName(), err)
	}

	answer := &domain.Answer{
		Question:  question,
		Text:      strings.TrimSpace(text),
		Sources:   Citations(result),
		Retrieval: result,
	}
	c.memory.Append(domain.ConversationTurn{
		Question: question,
		Answer:   answer.Text,
		Sources:  answer.Sources,
		At:       c.now(),
	})
	return answer, nil
}

// buildMessages renders the system and question prompts.
func (c *ChatService) buildMessages(question string, result *domain.RetrievalResult) ([]driven.ChatMessage, error) {
	system, err := c.prompts.Load(driven.PromptSystem)
	if err != nil {
		return nil, fmt.Errorf("load system prompt: %w", err)
	}
	qa, err := c.prompts.Load(driven.PromptQA)
	if err != nil {
		return nil, fmt.Errorf("load qa prompt: %w", err)
	}

	prompt := RenderPrompt(qa, map[string]string{
		"context":      FormatContext(result),
		"chat_history": c.memory.Format(),
		"question":     question,
	})
	return []driven.ChatMessage{
		{Role: driven.RoleSystem, Content: system},
		{Role: driven.RoleUser, Content: prompt},
	}, nil
}

// History returns remembered turns, oldest first.
func (c *ChatService) History() []domain.ConversationTurn {
	return c.memory.Turns()
}

// ClearMemory forgets every turn.
func (c *ChatService) ClearMemory() {
	c.memory.Clear()
}

// Memory returns the conversation memory.
func (c *ChatService) Memory() *Memory {
	return c.memory
}

// Citations lists the passages of result, one per source and page, in
// retrieval order.
func Citations(result *domain.RetrievalResult) []domain.Citation {
	if result.IsEmpty() {
		return nil
	}

	type sourcePage struct {
		source string
		page   int
	}
	seen := make(map[sourcePage]bool)
	citations := make([]domain.Citation, 0, len(result.Passages))
	for _, p := range result.Passages {
		page := domain.Page(p.Chunk.Metadata)
		key := sourcePage{p.Chunk.SourceID, page}
		if seen[key] {
			continue
		}
		seen[key] = true
		citations = append(citations, domain.Citation{
			Source:  p.Chunk.SourceID,
			Page:    page,
			Ordinal: p.Chunk.Ordinal,
			Score:   p.Score,
			Preview: domain.Preview(p.Chunk.Content),
		})
	}
	return citations
}
