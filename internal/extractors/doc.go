// Package extractors provides Extractor implementations for the book
// formats the library accepts. Each extractor turns a stored file of one
// or more file types into plain text for the chunking pipeline.
//
// Extractors are registered with the Registry at startup.
package extractors
