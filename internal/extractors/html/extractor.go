// Package html extracts readable text from HTML and XHTML books.
package html

import (
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/custodia-labs/librarian/internal/core/ports/driven"
	"github.com/custodia-labs/librarian/internal/extractors/plaintext"
)

var _ driven.Extractor = (*Extractor)(nil)

type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

func (e *Extractor) SupportedTypes() []string {
	return []string{"html", "htm", "xhtml"}
}

// Extract returns the document's text with one block element per line.
func (e *Extractor) Extract(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return stripHTML(plaintext.Decode(data)), nil
}

// hidden elements contribute no text, nor do their descendants.
var hidden = map[atom.Atom]bool{
	atom.Head:     true,
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Svg:      true,
	atom.Nav:      true,
	atom.Template: true,
}

// blocks start and end a line.
var blocks = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Br: true, atom.Hr: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Ul: true, atom.Ol: true, atom.Li: true, atom.Dl: true, atom.Dt: true, atom.Dd: true,
	atom.Table: true, atom.Tr: true, atom.Td: true, atom.Th: true,
	atom.Blockquote: true, atom.Pre: true, atom.Figure: true, atom.Figcaption: true,
	atom.Section: true, atom.Article: true, atom.Aside: true,
	atom.Header: true, atom.Footer: true, atom.Main: true,
}

func stripHTML(src string) string {
	z := html.NewTokenizer(strings.NewReader(src))
	var text strings.Builder
	depth := 0 // inside hidden elements

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return tidy(text.String())

		case html.TextToken:
			if depth == 0 {
				text.Write(z.Text())
			}

		case html.StartTagToken, html.SelfClosingTagToken, html.EndTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			if hidden[a] {
				switch {
				case tt == html.StartTagToken:
					depth++
				case tt == html.EndTagToken && depth > 0:
					depth--
				}
				continue
			}
			if depth == 0 && blocks[a] {
				text.WriteByte('\n')
			}
		}
	}
}

// tidy collapses runs of spaces and drops blank lines.
func tidy(s string) string {
	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
