package domain

import "time"

// EmbeddingChunk is a cached vector for one slice of a document's text.
// ChunkHash is globally unique, so identical text across documents
// shares one record and one provider call.
type EmbeddingChunk struct {
	// ID is assigned by the store.
	ID int64

	// DocumentID is the owning document. Deleting the document deletes the chunk.
	DocumentID int64

	// DocumentFilename is denormalised for display in search results.
	DocumentFilename string

	// ChunkIndex is the position of the chunk within the document.
	ChunkIndex int

	// Text is the chunk text sent to the provider.
	Text string

	// ChunkHash is the hex SHA-256 digest of Text.
	ChunkHash string

	// Vector is the embedding returned by the provider.
	Vector []float32

	// CreatedAt is when the vector was stored.
	CreatedAt time.Time
}

// ChunkMetadata accompanies a vector when it is stored.
type ChunkMetadata struct {
	ChunkIndex       int
	DocumentFilename string
}

// EmbeddingProgress is reported while ensuring embeddings.
type EmbeddingProgress struct {
	// DocumentIndex is the zero-based index of the document being processed.
	DocumentIndex int

	// TotalDocuments is the number of documents that need embeddings.
	TotalDocuments int

	// ChunkProgress is the number of chunks of the current document done so far.
	ChunkProgress int

	// TotalChunks is the chunk count of the current document.
	TotalChunks int

	// CurrentDocument is the filename being processed.
	CurrentDocument string
}

// EmbeddingReport summarises one ensure-embeddings run.
type EmbeddingReport struct {
	// DocumentsProcessed counts documents that were marked as embedded.
	DocumentsProcessed int

	// ChunksEmbedded counts provider calls that produced a new vector.
	ChunksEmbedded int

	// ChunksReused counts chunks served from the cache.
	ChunksReused int
}

// StorageStats aggregates document storage for display.
type StorageStats struct {
	TotalDocuments     int
	TotalSize          int64
	TotalSizeFormatted string
	ByType             map[string]int
}

// EmbeddingStats aggregates the embedding cache for display.
type EmbeddingStats struct {
	TotalDocuments           int
	DocumentsWithEmbeddings  int
	TotalEmbeddingChunks     int
	AverageChunksPerDocument float64
	CacheSize                string
}
