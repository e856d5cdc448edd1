package mcp

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// mockRetrieverService is a mock implementation of driving.RetrieverService.
type mockRetrieverService struct {
	result       *domain.RetrievalResult
	err          error
	lastQuery    string
	lastStrategy domain.Strategy
	lastK        int
	lastFilter   domain.MetadataFilter
}

func (m *mockRetrieverService) Retrieve(
	_ context.Context,
	query string,
	strategy domain.Strategy,
	k int,
) (*domain.RetrievalResult, error) {
	m.lastQuery, m.lastStrategy, m.lastK = query, strategy, k
	return m.resultFor(query, strategy), m.err
}

func (m *mockRetrieverService) RetrieveFiltered(
	_ context.Context,
	query string,
	k int,
	filter domain.MetadataFilter,
) (*domain.RetrievalResult, error) {
	m.lastQuery, m.lastStrategy, m.lastK, m.lastFilter = query, domain.StrategySimilarity, k, filter
	return m.resultFor(query, domain.StrategySimilarity), m.err
}

func (m *mockRetrieverService) resultFor(query string, strategy domain.Strategy) *domain.RetrievalResult {
	if m.err != nil {
		return nil
	}
	if m.result != nil {
		return m.result
	}
	return &domain.RetrievalResult{Query: query, Strategy: strategy}
}

// mockChatService is a mock implementation of driving.ChatService.
type mockChatService struct {
	answer  *domain.Answer
	history []domain.ConversationTurn
	err     error
	cleared bool
}

func (m *mockChatService) Answer(_ context.Context, _ string) (*domain.Answer, error) {
	return m.answer, m.err
}

func (m *mockChatService) History() []domain.ConversationTurn {
	return m.history
}

func (m *mockChatService) ClearMemory() {
	m.cleared = true
}

// mockIndexAdmin is a mock implementation of driving.IndexAdmin.
type mockIndexAdmin struct {
	stats   *domain.Stats
	sources []domain.SourceStat
	err     error
}

func (m *mockIndexAdmin) Stats(_ context.Context) (*domain.Stats, error) {
	return m.stats, m.err
}

func (m *mockIndexAdmin) Sources(_ context.Context) ([]domain.SourceStat, error) {
	return m.sources, m.err
}

func (m *mockIndexAdmin) DeleteSource(_ context.Context, _ string) error {
	return m.err
}

func (m *mockIndexAdmin) Reset(_ context.Context) error {
	return m.err
}

func (m *mockIndexAdmin) Backup(_ context.Context, dir string) (string, error) {
	return dir, m.err
}
