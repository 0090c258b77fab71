package extractors

import (
	"github.com/custodia-labs/librarian/internal/extractors/docx"
	"github.com/custodia-labs/librarian/internal/extractors/html"
	"github.com/custodia-labs/librarian/internal/extractors/markdown"
	"github.com/custodia-labs/librarian/internal/extractors/pdf"
	"github.com/custodia-labs/librarian/internal/extractors/plaintext"
)

// RegisterDefaults registers all built-in extractors with the registry.
func RegisterDefaults(r *Registry) {
	r.Register(plaintext.New())
	r.Register(markdown.New())
	r.Register(html.New())
	r.Register(docx.New())
	r.Register(pdf.New())
}

// NewDefaultRegistry returns a registry holding the built-in extractors.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	RegisterDefaults(r)
	return r
}
