package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/librarian/internal/core/domain"
)

// mockCatalogService is a mock implementation of driving.CatalogService.
type mockCatalogService struct {
	books   []domain.BookEntry
	content string
	err     error

	removed   []string
	lastPatch domain.BookPatch
	isbns     map[string]bool
}

func newMockCatalog() *mockCatalogService {
	return &mockCatalogService{books: sampleBooks(), content: "chapter one"}
}

func (m *mockCatalogService) Add(_ context.Context, _ domain.NewBook) (string, error) {
	return "", m.err
}

func (m *mockCatalogService) Get(_ context.Context, id string) (*domain.BookEntry, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.books {
		if m.books[i].ID == id {
			b := m.books[i]
			return &b, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockCatalogService) Edit(ctx context.Context, id string, patch domain.BookPatch) (*domain.BookEntry, error) {
	b, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	m.lastPatch = patch
	patch.Apply(b)
	if patch.ClassificationCode != nil {
		b.ClassificationCode = *patch.ClassificationCode
		b.CanonicalPath = "moved/" + *patch.ClassificationCode
	}
	return b, nil
}

func (m *mockCatalogService) Remove(_ context.Context, id string) error {
	if m.err != nil {
		return m.err
	}
	m.removed = append(m.removed, id)
	return nil
}

func (m *mockCatalogService) List(_ context.Context, filter domain.BookFilter) ([]domain.BookEntry, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []domain.BookEntry
	for i := range m.books {
		if filter.Matches(&m.books[i]) {
			out = append(out, m.books[i])
		}
	}
	return out, nil
}

func (m *mockCatalogService) ExistsISBN(_ context.Context, isbn string) (bool, error) {
	return m.isbns[isbn], m.err
}

func (m *mockCatalogService) Find(_ context.Context, query string, _ int) ([]domain.BookEntry, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []domain.BookEntry
	for _, b := range m.books {
		if strings.Contains(strings.ToLower(b.Title), strings.ToLower(query)) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *mockCatalogService) Path(ctx context.Context, id string) (string, error) {
	b, err := m.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return "/library/" + b.FilePath(), nil
}

func (m *mockCatalogService) Content(_ context.Context, _ string) (string, error) {
	return m.content, m.err
}

// mockIngestService is a mock implementation of driving.IngestService.
type mockIngestService struct {
	err      error
	warnings []string

	paths []string
	metas []domain.BookMetadata
	opts  []domain.IngestOptions
}

func (m *mockIngestService) Ingest(
	_ context.Context,
	path string,
	meta domain.BookMetadata,
	opts domain.IngestOptions,
) (*domain.IngestReport, error) {
	m.paths = append(m.paths, path)
	m.metas = append(m.metas, meta)
	m.opts = append(m.opts, opts)
	if m.err != nil {
		return nil, m.err
	}
	return &domain.IngestReport{
		Book: domain.BookEntry{
			ID:                 "01HZXNEW",
			Title:              meta.Title,
			Authors:            meta.Authors,
			ClassificationCode: meta.ClassificationCode,
			CanonicalPath:      "500-599 Science/530/" + strings.ToLower(meta.Title),
			FileType:           "txt",
		},
		Chunks:   4,
		Warnings: m.warnings,
	}, nil
}

// mockIndexService is a mock implementation of driving.IndexService.
type mockIndexService struct {
	report   *domain.IndexReport
	err      error
	rebuilds int
}

func (m *mockIndexService) Rebuild(_ context.Context) error {
	m.rebuilds++
	return m.err
}

func (m *mockIndexService) Verify(_ context.Context) (*domain.IndexReport, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.report == nil {
		return &domain.IndexReport{}, nil
	}
	return m.report, nil
}

// mockQueryService is a mock implementation of driving.QueryService.
type mockQueryService struct {
	response *domain.SearchResponse
	err      error
	queries  []string
	lastTopK int
}

func (m *mockQueryService) Search(_ context.Context, query string, topK int) (*domain.SearchResponse, error) {
	m.queries = append(m.queries, query)
	m.lastTopK = topK
	if m.err != nil {
		return nil, m.err
	}
	if m.response == nil {
		return &domain.SearchResponse{}, nil
	}
	return m.response, nil
}

// mockQuestionService is a mock implementation of driving.QuestionService.
type mockQuestionService struct {
	answer *domain.Answer
	err    error
	asked  []string
	resets int
}

func (m *mockQuestionService) Ask(_ context.Context, question string) (*domain.Answer, error) {
	m.asked = append(m.asked, question)
	if m.err != nil {
		return nil, m.err
	}
	return m.answer, nil
}

func (m *mockQuestionService) Reset() {
	m.resets++
}

// mockExamService is a mock implementation of driving.ExamService.
type mockExamService struct {
	err       error
	lastCount int
}

func (m *mockExamService) Generate(_ context.Context, bookCount int) (*domain.Exam, error) {
	m.lastCount = bookCount
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Exam{
		GeneratedAt: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		Sections: []domain.ExamSection{{
			BookID: "01HZXWAVES",
			Title:  "Waves",
			Questions: []domain.Question{
				{Content: "Light is a wave.", ChoiceA: "True", ChoiceB: "False", CorrectChoice: "A"},
			},
		}},
	}, nil
}

// mockSettingsService is a mock implementation of driving.SettingsService.
type mockSettingsService struct {
	settings domain.AppSettings
	err      error
	set      map[string]string

	embedProvider domain.AIProvider
	embedModel    string
	embedKey      string
}

func newMockSettings() *mockSettingsService {
	return &mockSettingsService{settings: domain.DefaultAppSettings(), set: make(map[string]string)}
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	if m.err != nil {
		return nil, m.err
	}
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Save(s *domain.AppSettings) error {
	m.settings = *s
	return m.err
}

func (m *mockSettingsService) Set(key, value string) error {
	if m.err != nil {
		return m.err
	}
	if key == "unknown.key" {
		return domain.ErrInvalidInput
	}
	m.set[key] = value
	return nil
}

func (m *mockSettingsService) Keys() []string {
	return []string{"embedding.provider", "retrieval.top_k"}
}

func (m *mockSettingsService) SetEmbeddingProvider(p domain.AIProvider, model, apiKey string) error {
	m.embedProvider, m.embedModel, m.embedKey = p, model, apiKey
	return m.err
}

func (m *mockSettingsService) SetLLMProvider(_ domain.AIProvider, _, _ string) error {
	return m.err
}

func (m *mockSettingsService) Validate() error {
	if !m.settings.Embedding.IsConfigured() {
		return errors.New("embedding provider not configured")
	}
	return nil
}

func (m *mockSettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

func (m *mockSettingsService) GetPipelineConfig() domain.PipelineConfig {
	return domain.DefaultPipelineConfig()
}

func (m *mockSettingsService) ValidateEmbeddingConfig() error {
	return m.err
}

func (m *mockSettingsService) ValidateLLMConfig() error {
	return m.err
}

func sampleBooks() []domain.BookEntry {
	return []domain.BookEntry{
		{
			ID:                 "01HZXWAVES",
			Title:              "Waves",
			Authors:            []string{"A. Author"},
			ClassificationCode: "530",
			CanonicalPath:      "500-599 Science/530/waves",
			FileType:           "txt",
			Status:             domain.BookStatusActive,
			ISBN:               "9780306406157",
		},
		{
			ID:                 "01HZXROME",
			Title:              "Rome",
			Authors:            []string{"B. Author", "C. Author"},
			ClassificationCode: "937",
			CanonicalPath:      "900-999 History & Geography/937/rome",
			FileType:           "pdf",
			Status:             domain.BookStatusDegraded,
			Year:               1999,
		},
	}
}

// testServices are the mocks installed by setupTestServices.
type testServices struct {
	catalog  *mockCatalogService
	ingest   *mockIngestService
	index    *mockIndexService
	query    *mockQueryService
	question *mockQuestionService
	exam     *mockExamService
	settings *mockSettingsService
}

// setupTestServices installs mock services and returns a cleanup that
// removes them.
func setupTestServices() func() {
	_, cleanup := setupMocks()
	return cleanup
}

func setupMocks() (*testServices, func()) {
	books := sampleBooks()
	ts := &testServices{
		catalog: newMockCatalog(),
		ingest:  &mockIngestService{},
		index:   &mockIndexService{},
		query: &mockQueryService{response: &domain.SearchResponse{
			Results: []domain.SearchResult{
				{BookID: books[0].ID, Book: books[0], Score: 0.91, ChunkIDs: []string{"c1"}},
				{BookID: books[1].ID, Book: books[1], Score: 0.42, ChunkIDs: []string{"c7"}},
			},
		}},
		question: &mockQuestionService{answer: &domain.Answer{
			Text:    "A crest is the top of a wave.",
			Sources: []domain.SearchResult{{BookID: books[0].ID, Book: books[0]}},
		}},
		exam:     &mockExamService{},
		settings: newMockSettings(),
	}
	SetServices(&Services{
		Catalog:  ts.catalog,
		Ingest:   ts.ingest,
		Index:    ts.index,
		Query:    ts.query,
		Question: ts.question,
		Exam:     ts.exam,
		Settings: ts.settings,
		SupportsFormat: func(ext string) bool {
			return ext == ".txt" || ext == ".pdf"
		},
	})
	prev := bootstrap
	bootstrap = nil
	return ts, func() {
		SetServices(nil)
		bootstrap = prev
	}
}

// execute runs the root command with args and returns its output.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		resetFlags(rootCmd)
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}

// resetFlags restores every flag to its default so package-level flag
// variables do not leak between tests.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if !f.Changed {
			return
		}
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			var def []string
			if trimmed := strings.Trim(f.DefValue, "[]"); trimmed != "" {
				def = strings.Split(trimmed, ",")
			}
			_ = sv.Replace(def)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}
