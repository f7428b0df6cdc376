// Package sqlite provides a SQLite-based implementation of the document and
// embedding store ports.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. Both stores share a single database
// connection:
//
//   - DocumentStore: uploaded documents, indexed by filename, upload date,
//     file type and content hash
//   - EmbeddingStore: chunk vectors keyed by a unique chunk hash, deleted in
//     cascade with their document
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// By default, the database is stored at ~/.docchat/data/documents.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
