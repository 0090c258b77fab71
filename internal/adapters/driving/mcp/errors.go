// Package mcp provides an MCP (Model Context Protocol) server adapter for
// the librarian. It lets AI assistants search the library, read catalog
// entries and ask questions answered from the books' contents.
package mcp

import "errors"

var (
	// ErrMissingQueryService is returned when the query service is not provided.
	ErrMissingQueryService = errors.New("mcp: query service is required")

	// ErrMissingCatalogService is returned when the catalog service is not provided.
	ErrMissingCatalogService = errors.New("mcp: catalog service is required")
)
