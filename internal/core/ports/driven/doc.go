// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - DocumentStore: Document persistence (SQLite)
//   - EmbeddingStore: Chunk vector cache (SQLite, same database)
//   - KeyValueStore: Sessions, active session id, API key, auth token (bbolt)
//   - ConfigStore: Application configuration (TOML)
//   - NormaliserRegistry: Text extraction for uploads
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - EmbeddingService: Generates vectors. Without it, semantic search is disabled
//     and chat falls back to full documents.
//   - ChatBackend: Remote completion service. Without it, chat is disabled.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or normaliser package
package driven
