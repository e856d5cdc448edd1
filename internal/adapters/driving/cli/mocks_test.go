package cli

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// mockSettingsService implements driving.SettingsService for testing.
type mockSettingsService struct {
	cfg         domain.Config
	values      map[string]any
	setErr      error
	validateErr error
	warnings    []string
	pingErr     error
}

func newMockSettingsService() *mockSettingsService {
	return &mockSettingsService{cfg: domain.DefaultConfig(), values: map[string]any{}}
}

func (m *mockSettingsService) Get() (*domain.Config, error) {
	cfg := m.cfg
	return &cfg, nil
}

func (m *mockSettingsService) Set(key string, value any) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.values[key] = value
	return nil
}

func (m *mockSettingsService) Validate() error                { return m.validateErr }
func (m *mockSettingsService) Warnings() []string             { return m.warnings }
func (m *mockSettingsService) GetDefaults() domain.Config     { return domain.DefaultConfig() }
func (m *mockSettingsService) ValidateEmbeddingConfig() error { return m.pingErr }
func (m *mockSettingsService) ValidateLLMConfig() error       { return m.pingErr }
func (m *mockSettingsService) ConfigPath() string             { return "/tmp/docqa/config.toml" }

func (m *mockSettingsService) Keys() []string {
	return []string{"chunking.size", "llm.model", "retrieval.k"}
}

// mockIngestService implements driving.IngestService for testing.
type mockIngestService struct {
	report   *domain.IngestReport
	err      error
	files    []domain.FileInfo
	lastRoot string
}

func (m *mockIngestService) Ingest(
	_ context.Context, root string, progress driving.IngestProgress,
) (*domain.IngestReport, error) {
	m.lastRoot = root
	if progress != nil {
		progress.Start(2)
		progress.FileDone(root+"/a.txt", nil)
		progress.FileDone(root+"/b.bin", errors.New("unsupported"))
		progress.Finish()
	}
	return m.report, m.err
}

func (m *mockIngestService) Load(
	context.Context, string, func(domain.Document) error,
) ([]domain.FileFailure, error) {
	return nil, nil
}

func (m *mockIngestService) Scan(_ context.Context, root string) ([]domain.FileInfo, error) {
	m.lastRoot = root
	return m.files, m.err
}

// mockRetrieverService implements driving.RetrieverService for testing.
type mockRetrieverService struct {
	result       *domain.RetrievalResult
	err          error
	lastStrategy domain.Strategy
	lastK        int
	lastFilter   domain.MetadataFilter
}

func (m *mockRetrieverService) Retrieve(
	_ context.Context, query string, strategy domain.Strategy, k int,
) (*domain.RetrievalResult, error) {
	m.lastStrategy, m.lastK = strategy, k
	if m.err != nil {
		return nil, m.err
	}
	if m.result != nil {
		return m.result, nil
	}
	return &domain.RetrievalResult{Query: query, Strategy: strategy}, nil
}

func (m *mockRetrieverService) RetrieveFiltered(
	_ context.Context, query string, k int, filter domain.MetadataFilter,
) (*domain.RetrievalResult, error) {
	m.lastK, m.lastFilter = k, filter
	if m.err != nil {
		return nil, m.err
	}
	if m.result != nil {
		return m.result, nil
	}
	return &domain.RetrievalResult{Query: query, Strategy: domain.StrategySimilarity}, nil
}

// mockChatService implements driving.ChatService for testing.
type mockChatService struct {
	answerFunc func(question string) (*domain.Answer, error)
	history    []domain.ConversationTurn
	cleared    int
}

func (m *mockChatService) Answer(_ context.Context, question string) (*domain.Answer, error) {
	answer := &domain.Answer{Question: question, Text: "answer to " + question}
	if m.answerFunc != nil {
		var err error
		answer, err = m.answerFunc(question)
		if err != nil {
			return nil, err
		}
	}
	m.history = append(m.history, domain.ConversationTurn{Question: question, Answer: answer.Text})
	return answer, nil
}

func (m *mockChatService) History() []domain.ConversationTurn { return m.history }

func (m *mockChatService) ClearMemory() {
	m.history = nil
	m.cleared++
}

// mockIndexAdmin implements driving.IndexAdmin for testing.
type mockIndexAdmin struct {
	sources    []domain.SourceStat
	err        error
	deleted    []string
	resets     int
	backupDir  string
	backupPath string
}

func (m *mockIndexAdmin) Stats(context.Context) (*domain.Stats, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Stats{
		VectorStore:    "chroma",
		ChatModel:      "gpt-3.5-turbo",
		EmbeddingModel: "text-embedding-ada-002",
		ChunkSize:      1000,
		ChunkOverlap:   100,
		RetrievalK:     4,
		Strategy:       domain.StrategySimilarity,
		TotalEntries:   12,
		Sources:        m.sources,
		ApproxTokens:   340,
		MemoryTurns:    1,
		MemoryWindow:   5,
	}, nil
}

func (m *mockIndexAdmin) Sources(context.Context) ([]domain.SourceStat, error) {
	if m.err != nil {
		return nil, m.err
	}
	sorted := append([]domain.SourceStat(nil), m.sources...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].SourceID < sorted[j].SourceID })
	return sorted, nil
}

func (m *mockIndexAdmin) DeleteSource(_ context.Context, sourceID string) error {
	if m.err != nil {
		return m.err
	}
	m.deleted = append(m.deleted, sourceID)
	return nil
}

func (m *mockIndexAdmin) Reset(context.Context) error {
	if m.err != nil {
		return m.err
	}
	m.resets++
	return nil
}

func (m *mockIndexAdmin) Backup(_ context.Context, dir string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.backupDir = dir
	m.backupPath = dir + "/backup_" + time.Date(2024, 3, 1, 9, 5, 7, 0, time.UTC).Format("20060102_150405")
	return m.backupPath, nil
}

// testServices holds the mocks injected by setupTestServices.
type testServices struct {
	settings  *mockSettingsService
	ingest    *mockIngestService
	retriever *mockRetrieverService
	chat      *mockChatService
	admin     *mockIndexAdmin
	cfg       *domain.Config
	saves     int
	saveErr   error
}

// setupTestServices injects mock services and returns them with a cleanup
// function that removes them and resets every flag.
func setupTestServices() (*testServices, func()) {
	cfg := domain.DefaultConfig()
	ts := &testServices{
		settings:  newMockSettingsService(),
		ingest:    &mockIngestService{report: &domain.IngestReport{}},
		retriever: &mockRetrieverService{},
		chat:      &mockChatService{},
		admin:     &mockIndexAdmin{},
		cfg:       &cfg,
	}
	SetServices(&Services{
		Settings:  ts.settings,
		Ingest:    ts.ingest,
		Retriever: ts.retriever,
		Chat:      ts.chat,
		Admin:     ts.admin,
		Config:    ts.cfg,
		Save: func(context.Context) error {
			ts.saves++
			return ts.saveErr
		},
	})

	return ts, func() {
		SetServices(nil)
		resetFlags(rootCmd)
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	}
}

// resetFlags restores the default value of every flag below cmd.
func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	})
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}
