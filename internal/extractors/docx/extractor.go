// Package docx provides an Extractor for Word (DOCX) books.
package docx

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/custodia-labs/librarian/internal/core/domain"
	"github.com/custodia-labs/librarian/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// documentPart is the archive member holding the body text.
const documentPart = "word/document.xml"

// Extractor handles DOCX files.
type Extractor struct{}

// New creates a new DOCX extractor.
func New() *Extractor {
	return &Extractor{}
}

// SupportedTypes returns the file types this extractor handles.
func (e *Extractor) SupportedTypes() []string {
	return []string{"docx"}
}

// Extract opens the DOCX archive and returns its paragraphs, one per line.
func (e *Extractor) Extract(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	reader, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s is not a docx archive: %v", domain.ErrIngestion, path, err)
	}
	defer reader.Close()

	for _, file := range reader.File {
		if file.Name != documentPart {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return "", fmt.Errorf("%w: open %s: %v", domain.ErrIngestion, documentPart, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("%w: read %s: %v", domain.ErrIngestion, documentPart, err)
		}
		return parseDocumentXML(content)
	}
	return "", fmt.Errorf("%w: %s has no %s", domain.ErrIngestion, path, documentPart)
}

// documentXML represents the structure of word/document.xml.
type documentXML struct {
	Body struct {
		Paragraphs []paragraph `xml:"p"`
	} `xml:"body"`
}

type paragraph struct {
	Runs []run `xml:"r"`
}

type run struct {
	Text []textElement `xml:"t"`
	Tabs []struct{}    `xml:"tab"`
}

type textElement struct {
	Content string `xml:",chardata"`
}

// parseDocumentXML joins the text runs of each paragraph.
func parseDocumentXML(content []byte) (string, error) {
	var doc documentXML
	if err := xml.Unmarshal(content, &doc); err != nil {
		return "", fmt.Errorf("%w: parse %s: %v", domain.ErrIngestion, documentPart, err)
	}

	lines := make([]string, 0, len(doc.Body.Paragraphs))
	for _, para := range doc.Body.Paragraphs {
		var sb strings.Builder
		for _, r := range para.Runs {
			if len(r.Tabs) > 0 && sb.Len() > 0 {
				sb.WriteString(" ")
			}
			for _, text := range r.Text {
				sb.WriteString(text.Content)
			}
		}
		lines = append(lines, sb.String())
	}
	return strings.TrimSpace(strings.Join(lines, "\n")), nil
}
