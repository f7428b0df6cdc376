package driven

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// DocumentStore persists uploaded documents.
// Backed by SQLite; the documents table has an index on content_hash.
type DocumentStore interface {
	// SaveDocument inserts a document when doc.ID is zero and assigns the new
	// id to doc.ID; otherwise it updates the existing row.
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// GetDocument retrieves a document by ID.
	// Returns domain.ErrNotFound when absent.
	GetDocument(ctx context.Context, id int64) (*domain.Document, error)

	// FindByContentHash returns the first document with the given hash.
	// Returns domain.ErrNotFound when absent.
	FindByContentHash(ctx context.Context, hash string) (*domain.Document, error)

	// ListDocuments returns all documents, newest upload first.
	ListDocuments(ctx context.Context) ([]domain.Document, error)

	// DeleteDocument removes a document and every embedding chunk it owns.
	// Deleting a missing id is not an error.
	DeleteDocument(ctx context.Context, id int64) error

	// ClearAll removes every document and every embedding chunk in one transaction.
	ClearAll(ctx context.Context) error
}

// EmbeddingStore persists chunk vectors.
// A chunk hash is unique per document; several documents may hold a record
// for the same hash.
type EmbeddingStore interface {
	// SaveEmbedding stores a chunk and assigns chunk.ID. When the document
	// already holds a chunk with the same hash the existing record is left
	// untouched and copied into chunk.
	SaveEmbedding(ctx context.Context, chunk *domain.EmbeddingChunk) error

	// GetEmbeddingByHash returns the oldest chunk with the given hash,
	// whichever document owns it. Returns domain.ErrNotFound when absent.
	GetEmbeddingByHash(ctx context.Context, hash string) (*domain.EmbeddingChunk, error)

	// ListEmbeddings returns chunks ordered by document and chunk index.
	// An empty documentIDs slice returns every chunk.
	ListEmbeddings(ctx context.Context, documentIDs []int64) ([]domain.EmbeddingChunk, error)

	// DeleteDocumentEmbeddings removes all chunks of a document.
	DeleteDocumentEmbeddings(ctx context.Context, documentID int64) error

	// ClearEmbeddings removes every chunk and resets every document's
	// EmbeddingsGenerated flag in one transaction.
	ClearEmbeddings(ctx context.Context) error

	// CountEmbeddings returns the number of chunks and their total vector bytes.
	CountEmbeddings(ctx context.Context) (count int, vectorBytes int64, err error)
}
