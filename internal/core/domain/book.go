package domain

import (
	"path/filepath"
	"strings"
	"time"
)

// BookStatus is the lifecycle state of a catalog entry.
type BookStatus string

// Available book statuses.
const (
	// BookStatusActive is a fully ingested, searchable book.
	BookStatusActive BookStatus = "active"

	// BookStatusDegraded is a book where some chunks failed to embed.
	// The successfully embedded chunks remain searchable. Degraded is
	// terminal: recovering requires removing and re-adding the book.
	BookStatusDegraded BookStatus = "degraded"

	// BookStatusRemoved marks a book that has been removed from the catalog.
	BookStatusRemoved BookStatus = "removed"
)

// IsValid returns true if the status is recognised.
func (s BookStatus) IsValid() bool {
	switch s {
	case BookStatusActive, BookStatusDegraded, BookStatusRemoved:
		return true
	default:
		return false
	}
}

// IsSearchable returns true if the book's chunks may appear in results.
func (s BookStatus) IsSearchable() bool {
	return s == BookStatusActive || s == BookStatusDegraded
}

// String returns the string representation.
func (s BookStatus) String() string {
	return string(s)
}

// BookEntry is the authoritative catalog record for a book.
type BookEntry struct {
	// ID is the immutable, globally unique identifier (a ULID).
	ID string

	// Title is the human-readable title.
	Title string

	// Authors lists the book's authors in display order.
	Authors []string

	// ClassificationCode is the normalised classification (e.g. "500.1").
	ClassificationCode string

	// CanonicalPath is the library-relative location of the stored file.
	CanonicalPath string

	// ContentHash is the hex SHA-256 of the ingested bytes.
	// It uniquely identifies the content across the catalog.
	ContentHash string

	// IngestedAt is when the book was added to the catalog.
	IngestedAt time.Time

	// UpdatedAt is when the entry was last mutated.
	UpdatedAt time.Time

	// Status is the lifecycle state.
	Status BookStatus

	// Filename is the original file name at ingestion time.
	Filename string

	// FileType is the lowercase extension (without dot) used for extraction.
	FileType string

	// EmbeddingVersion tags the provider/model that embedded the chunks.
	EmbeddingVersion string

	// ISBN is the normalised ISBN, if known.
	ISBN string

	// Publisher is the publishing house.
	Publisher string

	// Series is the series name, if the book belongs to one.
	Series string

	// Edition describes the edition (e.g. "2nd").
	Edition string

	// Volume is the volume designation within a series.
	Volume string

	// Year is the publication year, zero when unknown.
	Year int

	// URL points at an external page for the book.
	URL string

	// Description is a short summary.
	Description string

	// Notes holds free-form reader notes.
	Notes string
}

// PrimaryAuthor returns the first author or an empty string.
func (b *BookEntry) PrimaryAuthor() string {
	if len(b.Authors) == 0 {
		return ""
	}
	return b.Authors[0]
}

// Extension returns the dotted extension for the stored file.
func (b *BookEntry) Extension() string {
	if b.FileType != "" {
		return "." + b.FileType
	}
	return strings.ToLower(filepath.Ext(b.Filename))
}

// FilePath returns the library-relative path of the stored file:
// the canonical path plus the original extension.
func (b *BookEntry) FilePath() string {
	return b.CanonicalPath + b.Extension()
}

// BookPatch describes an edit to a catalog entry.
// Nil fields are left unchanged.
type BookPatch struct {
	Title              *string
	Authors            []string
	ClassificationCode *string
	ISBN               *string
	Publisher          *string
	Series             *string
	Edition            *string
	Volume             *string
	Year               *int
	URL                *string
	Description        *string
	Notes              *string
}

// IsEmpty returns true if the patch changes nothing.
func (p BookPatch) IsEmpty() bool {
	return p.Title == nil && p.Authors == nil && p.ClassificationCode == nil &&
		p.ISBN == nil && p.Publisher == nil && p.Series == nil && p.Edition == nil &&
		p.Volume == nil && p.Year == nil && p.URL == nil && p.Description == nil &&
		p.Notes == nil
}

// MovesFile returns true if applying the patch changes the canonical path.
func (p BookPatch) MovesFile(current *BookEntry) bool {
	if p.ClassificationCode != nil && *p.ClassificationCode != current.ClassificationCode {
		return true
	}
	return p.Title != nil && Slugify(*p.Title) != Slugify(current.Title)
}

// Apply copies the non-nil patch fields onto entry.
// Classification and path changes are the caller's responsibility.
func (p BookPatch) Apply(entry *BookEntry) {
	if p.Title != nil {
		entry.Title = *p.Title
	}
	if p.Authors != nil {
		entry.Authors = append([]string(nil), p.Authors...)
	}
	if p.ISBN != nil {
		entry.ISBN = *p.ISBN
	}
	if p.Publisher != nil {
		entry.Publisher = *p.Publisher
	}
	if p.Series != nil {
		entry.Series = *p.Series
	}
	if p.Edition != nil {
		entry.Edition = *p.Edition
	}
	if p.Volume != nil {
		entry.Volume = *p.Volume
	}
	if p.Year != nil {
		entry.Year = *p.Year
	}
	if p.URL != nil {
		entry.URL = *p.URL
	}
	if p.Description != nil {
		entry.Description = *p.Description
	}
	if p.Notes != nil {
		entry.Notes = *p.Notes
	}
}

// BookMetadata is the caller-supplied description of a book being ingested.
type BookMetadata struct {
	Title              string   `json:"title" validate:"required"`
	Authors            []string `json:"authors" validate:"required,min=1,dive,required"`
	ClassificationCode string   `json:"classification_code" validate:"required,classification"`
	ISBN               string   `json:"isbn" validate:"omitempty,isbn"`
	Publisher          string   `json:"publisher"`
	Series             string   `json:"series"`
	Edition            string   `json:"edition"`
	Volume             string   `json:"volume"`
	Year               int      `json:"year" validate:"gte=0,lte=9999"`
	URL                string   `json:"url" validate:"omitempty,url"`
	Description        string   `json:"description"`
	Notes              string   `json:"notes"`
}

// BookFilter narrows catalog listings.
type BookFilter struct {
	// Statuses restricts results to these statuses. Empty means all
	// statuses except removed.
	Statuses []BookStatus

	// ClassificationPrefix restricts results to codes with this prefix.
	ClassificationPrefix string
}

// Matches returns true if the entry passes the filter.
func (f BookFilter) Matches(b *BookEntry) bool {
	if len(f.Statuses) == 0 {
		if b.Status == BookStatusRemoved {
			return false
		}
	} else {
		found := false
		for _, s := range f.Statuses {
			if b.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return strings.HasPrefix(b.ClassificationCode, f.ClassificationPrefix)
}

// NewBook is a fully prepared book awaiting its catalog record.
type NewBook struct {
	// Entry holds the descriptive fields; ID and CanonicalPath are assigned
	// by the catalog.
	Entry BookEntry

	// Chunks are the embedded chunks in sequence order.
	Chunks []Chunk

	// SourcePath is the file to place on the shelf. Empty skips placement.
	SourcePath string

	// Move removes the source file once the book is recorded.
	Move bool
}

// IngestOptions tunes a single ingestion.
type IngestOptions struct {
	// Move removes the source file after a successful ingestion.
	Move bool
}
