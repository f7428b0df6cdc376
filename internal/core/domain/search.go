package domain

// SemanticQuery configures a similarity search.
type SemanticQuery struct {
	// Text is embedded with the same provider used for the chunks.
	Text string

	// TopK caps the number of results. Zero means the configured default.
	TopK int

	// DocumentIDs restricts candidates to these documents. Empty means all.
	DocumentIDs []int64
}

// SearchResult is a chunk ranked by cosine similarity to the query.
type SearchResult struct {
	// Chunk carries the originating filename and chunk text.
	Chunk EmbeddingChunk

	// Similarity is in [-1, 1].
	Similarity float64
}
