package mcp

import (
	"github.com/custodia-labs/librarian/internal/core/ports/driving"
)

// Ports aggregates the driving ports the MCP server exposes.
type Ports struct {
	// Query runs semantic search over the library.
	Query driving.QueryService

	// Catalog reads catalog entries and stored content.
	Catalog driving.CatalogService

	// Question answers questions from the library. Optional: the
	// ask_librarian tool is only registered when set.
	Question driving.QuestionService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Query == nil {
		return ErrMissingQueryService
	}
	if p.Catalog == nil {
		return ErrMissingCatalogService
	}
	return nil
}
