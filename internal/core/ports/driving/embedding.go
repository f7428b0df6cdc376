package driving

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// ProgressReporter receives progress events while embeddings are generated.
type ProgressReporter interface {
	Report(progress domain.EmbeddingProgress)
}

// ProgressFunc adapts a function to ProgressReporter.
type ProgressFunc func(progress domain.EmbeddingProgress)

// Report calls f(progress).
func (f ProgressFunc) Report(progress domain.EmbeddingProgress) {
	f(progress)
}

// EmbeddingEngine turns document text into a searchable vector cache and
// answers similarity queries over it.
type EmbeddingEngine interface {
	// Init stores the API key and builds the embedding service. An empty key
	// fails with domain.ErrMissingAPIKey before anything else happens, unless
	// the provider runs locally and needs none.
	Init(ctx context.Context, apiKey string) error

	// InitFromStore initialises the engine with the key persisted in the
	// key-value store.
	InitFromStore(ctx context.Context) error

	// IsInitialized reports whether an embedding service is available.
	IsInitialized() bool

	// APIKey returns the key in use, or "" when none is set.
	APIKey() string

	// SplitTextIntoChunks splits text into overlapping, sentence-aware chunks.
	SplitTextIntoChunks(text string) []string

	// GenerateEmbedding embeds one piece of text.
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)

	// EnsureEmbeddings caches vectors for every chunk of every document that
	// lacks them. A failing chunk aborts that document; chunks already stored
	// are kept so a retry only fills the gaps.
	EnsureEmbeddings(ctx context.Context, docs []domain.Document,
		progress ProgressReporter) (*domain.EmbeddingReport, error)

	// SemanticSearch ranks cached chunks by cosine similarity to the query.
	// Provider failures are returned, never an empty result.
	SemanticSearch(ctx context.Context, query domain.SemanticQuery) ([]domain.SearchResult, error)

	// ClearCache drops every cached vector and resets the document flags.
	ClearCache(ctx context.Context) error

	// GetStats reports cache statistics.
	GetStats(ctx context.Context) (*domain.EmbeddingStats, error)

	// Close releases the embedding service and key subscription.
	Close() error
}
