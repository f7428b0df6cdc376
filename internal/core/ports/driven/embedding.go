package driven

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// EmbeddingService generates vector embeddings from text.
// This is an optional service - when nil, semantic search is disabled.
//
// Implementations may include:
//   - Gemini (text-embedding-004)
//   - OpenAI (text-embedding-3-small, text-embedding-3-large)
//   - Ollama (nomic-embed-text, all-minilm)
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	// A response without a numeric vector is a *domain.ProviderError.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts in one request
	// where the provider supports it.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size (e.g., 768, 1536).
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// EmbeddingServiceFactory builds an EmbeddingService from settings and a key.
// The engine rebuilds its service through it whenever the stored key changes.
type EmbeddingServiceFactory interface {
	// Create returns a service for the configured provider.
	// Returns domain.ErrMissingAPIKey if the provider needs a key and apiKey is empty.
	Create(settings domain.EmbeddingSettings, apiKey string) (EmbeddingService, error)
}

// AIConfigValidator validates embedding provider configurations by testing
// connectivity to the underlying service.
type AIConfigValidator interface {
	// ValidateEmbedding builds a service and pings it.
	ValidateEmbedding(settings *domain.EmbeddingSettings, apiKey string) error
}
