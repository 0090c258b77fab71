package mcp

import (
	"context"
	"errors"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/librarian/internal/core/domain"
)

// defaultSearchLimit is used when the caller does not pass a limit.
const defaultSearchLimit = 5

// SearchInput is the input schema for the search_library tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"natural language description of what to look for"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of books to return (default 5)"`
}

// SearchOutput is the output schema for the search_library tool.
type SearchOutput struct {
	Results  []SearchResultOutput `json:"results"`
	Count    int                  `json:"count"`
	Warnings []string             `json:"warnings,omitempty"`
}

// SearchResultOutput represents a single ranked book.
type SearchResultOutput struct {
	BookID         string   `json:"book_id"`
	Title          string   `json:"title"`
	Authors        []string `json:"authors"`
	Classification string   `json:"classification"`
	Path           string   `json:"path"`
	Score          float64  `json:"score"`
	ChunkIDs       []string `json:"chunk_ids,omitempty"`
}

// AskInput is the input schema for the ask_librarian tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"the question to answer from the library"`
	Reset    bool   `json:"reset,omitempty" jsonschema:"forget earlier questions before asking"`
}

// AskOutput is the output schema for the ask_librarian tool.
type AskOutput struct {
	Answer   string       `json:"answer"`
	Sources  []BookOutput `json:"sources"`
	Warnings []string     `json:"warnings,omitempty"`
}

// GetBookInput is the input schema for the get_book tool.
type GetBookInput struct {
	ID          string `json:"id" jsonschema:"the book identifier"`
	WithContent bool   `json:"with_content,omitempty" jsonschema:"include the book's stored text"`
}

// ListBooksInput is the input schema for the list_books tool.
type ListBooksInput struct {
	Classification string `json:"classification,omitempty" jsonschema:"only books whose classification starts with this prefix"`
}

// ListBooksOutput is the output schema for the list_books tool.
type ListBooksOutput struct {
	Books []BookOutput `json:"books"`
	Count int          `json:"count"`
}

// BookOutput is the catalog entry as seen by MCP clients.
type BookOutput struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Authors        []string `json:"authors"`
	Classification string   `json:"classification"`
	Path           string   `json:"path"`
	Status         string   `json:"status"`
	ISBN           string   `json:"isbn,omitempty"`
	Publisher      string   `json:"publisher,omitempty"`
	Year           int      `json:"year,omitempty"`
	Description    string   `json:"description,omitempty"`
	Content        string   `json:"content,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_library",
		Description: "Find the books most relevant to a query by meaning rather than keywords",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_book",
		Description: "Fetch a catalog entry, optionally with its full text",
	}, s.handleGetBook)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_books",
		Description: "List the books in the catalog",
	}, s.handleListBooks)

	if s.ports.Question != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "ask_librarian",
			Description: "Answer a question using excerpts from the library's books",
		}, s.handleAsk)
	}
}

// handleSearch handles the search_library tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, SearchOutput{}, errors.New("query is required")
	}
	limit := input.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	resp, err := s.ports.Query.Search(ctx, input.Query, limit)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results:  make([]SearchResultOutput, len(resp.Results)),
		Count:    len(resp.Results),
		Warnings: resp.Warnings,
	}
	for i := range resp.Results {
		r := &resp.Results[i]
		output.Results[i] = SearchResultOutput{
			BookID:         r.BookID,
			Title:          r.Book.Title,
			Authors:        r.Book.Authors,
			Classification: r.Book.ClassificationCode,
			Path:           r.Book.FilePath(),
			Score:          r.Score,
			ChunkIDs:       r.ChunkIDs,
		}
	}

	return nil, output, nil
}

// handleAsk handles the ask_librarian tool invocation.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	if input.Reset {
		s.ports.Question.Reset()
	}

	answer, err := s.ports.Question.Ask(ctx, input.Question)
	if err != nil {
		return nil, AskOutput{}, err
	}

	output := AskOutput{
		Answer:   answer.Text,
		Sources:  make([]BookOutput, len(answer.Sources)),
		Warnings: answer.Warnings,
	}
	for i := range answer.Sources {
		output.Sources[i] = toBookOutput(&answer.Sources[i].Book)
	}
	return nil, output, nil
}

// handleGetBook handles the get_book tool invocation.
func (s *Server) handleGetBook(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetBookInput,
) (*mcp.CallToolResult, BookOutput, error) {
	book, err := s.ports.Catalog.Get(ctx, input.ID)
	if err != nil {
		return nil, BookOutput{}, err
	}

	output := toBookOutput(book)
	if input.WithContent {
		content, err := s.ports.Catalog.Content(ctx, book.ID)
		if err != nil {
			return nil, BookOutput{}, err
		}
		output.Content = content
	}
	return nil, output, nil
}

// handleListBooks handles the list_books tool invocation.
func (s *Server) handleListBooks(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListBooksInput,
) (*mcp.CallToolResult, ListBooksOutput, error) {
	books, err := s.ports.Catalog.List(ctx, domain.BookFilter{ClassificationPrefix: input.Classification})
	if err != nil {
		return nil, ListBooksOutput{}, err
	}

	output := ListBooksOutput{
		Books: make([]BookOutput, len(books)),
		Count: len(books),
	}
	for i := range books {
		output.Books[i] = toBookOutput(&books[i])
	}
	return nil, output, nil
}

func toBookOutput(b *domain.BookEntry) BookOutput {
	return BookOutput{
		ID:             b.ID,
		Title:          b.Title,
		Authors:        b.Authors,
		Classification: b.ClassificationCode,
		Path:           b.FilePath(),
		Status:         b.Status.String(),
		ISBN:           b.ISBN,
		Publisher:      b.Publisher,
		Year:           b.Year,
		Description:    b.Description,
	}
}
