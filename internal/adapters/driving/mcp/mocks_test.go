package mcp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/librarian/internal/core/domain"
)

// mockQueryService is a mock implementation of driving.QueryService.
type mockQueryService struct {
	response *domain.SearchResponse
	err      error
	lastTopK int
}

func (m *mockQueryService) Search(_ context.Context, _ string, topK int) (*domain.SearchResponse, error) {
	m.lastTopK = topK
	if m.err != nil {
		return nil, m.err
	}
	if m.response == nil {
		return &domain.SearchResponse{}, nil
	}
	return m.response, nil
}

// mockCatalogService is a mock implementation of driving.CatalogService.
type mockCatalogService struct {
	books      []domain.BookEntry
	content    string
	err        error
	lastFilter domain.BookFilter
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

func (m *mockCatalogService) Edit(_ context.Context, _ string, _ domain.BookPatch) (*domain.BookEntry, error) {
	return nil, m.err
}

func (m *mockCatalogService) Remove(_ context.Context, _ string) error {
	return m.err
}

func (m *mockCatalogService) List(_ context.Context, filter domain.BookFilter) ([]domain.BookEntry, error) {
	m.lastFilter = filter
	return m.books, m.err
}

func (m *mockCatalogService) ExistsISBN(_ context.Context, _ string) (bool, error) {
	return false, m.err
}

func (m *mockCatalogService) Find(_ context.Context, _ string, _ int) ([]domain.BookEntry, error) {
	return m.books, m.err
}

func (m *mockCatalogService) Path(_ context.Context, _ string) (string, error) {
	return "", m.err
}

func (m *mockCatalogService) Content(_ context.Context, id string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	for i := range m.books {
		if m.books[i].ID == id {
			return m.content, nil
		}
	}
	return "", domain.ErrNotFound
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
	return m.answer, m.err
}

func (m *mockQuestionService) Reset() {
	m.resets++
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
		},
		{
			ID:                 "01HZXROME",
			Title:              "Rome",
			Authors:            []string{"B. Author"},
			ClassificationCode: "937",
			CanonicalPath:      "900-999 History & Geography/937/rome",
			FileType:           "pdf",
			Status:             domain.BookStatusDegraded,
		},
	}
}

func newTestServer(t *testing.T, ports *Ports) *Server {
	t.Helper()
	s, err := NewServer(ports)
	require.NoError(t, err)
	return s
}
