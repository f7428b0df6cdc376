// Package services implements the driving port interfaces.
//
// ContentService owns documents, EmbeddingEngine owns the chunk vector
// cache and semantic search, and SessionManager owns the chat transcript.
// ChatService, BackendService, KnowledgeBaseService and FolderSyncService
// orchestrate those three against the driven ports.
//
// Services are pure Go with no CGO.
package services
