// Package sqlite implements the catalog store on SQLite.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. Books and their embedded chunks live in
// one database; a book and its chunks are always written in a single transaction,
// and deleting a book cascades to its chunks through a foreign key.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// By default, the database is stored at ~/.librarian/catalog.db
//
// # Corruption
//
// A database SQLite reports as malformed, or a row that cannot be decoded,
// surfaces as domain.ErrCatalogCorrupt. The catalog is never repaired in
// place; the user restores it from a backup.
package sqlite
