// Package html provides an Extractor for HTML books.
// It strips tags, scripts and styles and decodes entities, keeping block
// structure as line breaks.
package html
