package driving

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// ContentService is the local content store: documents and their embedding
// chunks. No other component mutates these records directly.
type ContentService interface {
	// StoreDocument validates the upload, extracts its text, hashes it and
	// stores a new document with EmbeddingsGenerated=false.
	// Returns domain.ErrDuplicateContent if the hash is already stored.
	StoreDocument(ctx context.Context, upload *domain.Upload, meta domain.DocumentMetadata) (*domain.Document, error)

	// GetAllDocuments returns all documents, newest upload first.
	GetAllDocuments(ctx context.Context) ([]domain.Document, error)

	// GetDocument retrieves a document by ID.
	GetDocument(ctx context.Context, id int64) (*domain.Document, error)

	// UpdateDocument merges fields and bumps LastModified.
	// Changing content rehashes it and drops stale embeddings.
	UpdateDocument(ctx context.Context, id int64, update domain.DocumentUpdate) (*domain.Document, error)

	// DeleteDocument removes a document and cascades to its chunks.
	// Missing ids are ignored.
	DeleteDocument(ctx context.Context, id int64) error

	// SearchDocuments is a case-insensitive substring match on filename and content.
	SearchDocuments(ctx context.Context, query string) ([]domain.Document, error)

	// StoreEmbedding hashes the chunk text and persists the vector.
	StoreEmbedding(ctx context.Context, documentID int64, text string, vector []float32,
		meta domain.ChunkMetadata) (*domain.EmbeddingChunk, error)

	// HasEmbedding looks a chunk up by the hash of its text.
	// Returns nil without error on a cache miss.
	HasEmbedding(ctx context.Context, text string) (*domain.EmbeddingChunk, error)

	// GetDocumentEmbeddings returns a document's chunks in index order.
	GetDocumentEmbeddings(ctx context.Context, documentID int64) ([]domain.EmbeddingChunk, error)

	// GetAllEmbeddings returns every cached chunk.
	GetAllEmbeddings(ctx context.Context) ([]domain.EmbeddingChunk, error)

	// DeleteDocumentEmbeddings removes a document's chunks.
	DeleteDocumentEmbeddings(ctx context.Context, documentID int64) error

	// MarkEmbeddingsGenerated sets the document's EmbeddingsGenerated flag.
	MarkEmbeddingsGenerated(ctx context.Context, id int64) error

	// ClearAllDocuments removes all documents and chunks atomically.
	ClearAllDocuments(ctx context.Context) error

	// ClearEmbeddings removes all chunks and resets every document's flag.
	ClearEmbeddings(ctx context.Context) error

	// GetStorageStats aggregates document counts and sizes.
	GetStorageStats(ctx context.Context) (*domain.StorageStats, error)

	// GetEmbeddingStats aggregates the chunk cache.
	GetEmbeddingStats(ctx context.Context) (*domain.EmbeddingStats, error)

	// ExportDocuments returns a backup of every document.
	ExportDocuments(ctx context.Context) (*domain.Backup, error)

	// ImportDocuments stores every entry of a JSON backup under a fresh id,
	// continuing past entries that fail.
	ImportDocuments(ctx context.Context, data []byte) (*domain.ImportReport, error)
}
