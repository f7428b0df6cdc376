// Package ai builds embedding provider adapters from settings.
package ai

import (
	"context"
	"fmt"
	"time"

	geminiembed "github.com/custodia-labs/docchat/internal/adapters/driven/embedding/gemini"
	ollamaembed "github.com/custodia-labs/docchat/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/docchat/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// pingTimeout bounds the connectivity check made by ValidateEmbedding.
const pingTimeout = 5 * time.Second

// Ensure Factory implements the interfaces.
var (
	_ driven.EmbeddingServiceFactory = (*Factory)(nil)
	_ driven.AIConfigValidator       = (*Factory)(nil)
)

// Factory creates embedding services for the configured provider.
type Factory struct{}

// NewFactory creates a new embedding service factory.
func NewFactory() *Factory {
	return &Factory{}
}

// Create returns a service for settings.Provider.
func (f *Factory) Create(settings domain.EmbeddingSettings, apiKey string) (driven.EmbeddingService, error) {
	return CreateEmbeddingService(&settings, apiKey)
}

// ValidateEmbedding builds a service and pings it.
func (f *Factory) ValidateEmbedding(settings *domain.EmbeddingSettings, apiKey string) error {
	svc, err := CreateEmbeddingService(settings, apiKey)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %s unreachable: %w", domain.ErrEmbeddingUnavailable, settings.Provider, err)
	}
	return nil
}

// CreateEmbeddingService creates an embedding service for the provider.
func CreateEmbeddingService(settings *domain.EmbeddingSettings, apiKey string) (driven.EmbeddingService, error) {
	if settings == nil {
		return nil, domain.ErrInvalidInput
	}
	if settings.Provider.RequiresAPIKey() && apiKey == "" {
		return nil, domain.ErrMissingAPIKey
	}

	switch settings.Provider {
	case domain.AIProviderGemini:
		return createGeminiEmbedding(settings, apiKey)

	case domain.AIProviderOpenAI:
		return createOpenAIEmbedding(settings, apiKey)

	case domain.AIProviderOllama:
		return createOllamaEmbedding(settings), nil

	default:
		return nil, fmt.Errorf("%w: unsupported embedding provider: %s", domain.ErrInvalidInput, settings.Provider)
	}
}

func createGeminiEmbedding(settings *domain.EmbeddingSettings, apiKey string) (driven.EmbeddingService, error) {
	return geminiembed.NewEmbeddingService(geminiembed.Config{
		APIKey:            apiKey,
		BaseURL:           settings.BaseURL,
		Model:             settings.Model,
		Dimensions:        domain.EmbeddingDimensions()[settings.Model],
		RequestsPerSecond: settings.RequestsPerSecond,
	})
}

func createOpenAIEmbedding(settings *domain.EmbeddingSettings, apiKey string) (driven.EmbeddingService, error) {
	return openaiembed.NewEmbeddingService(openaiembed.Config{
		APIKey:            apiKey,
		BaseURL:           settings.BaseURL,
		Model:             settings.Model,
		Dimensions:        domain.EmbeddingDimensions()[settings.Model],
		RequestsPerSecond: settings.RequestsPerSecond,
	})
}

func createOllamaEmbedding(settings *domain.EmbeddingSettings) driven.EmbeddingService {
	dimensions := domain.EmbeddingDimensions()[settings.Model]
	if dimensions == 0 {
		dimensions = ollamaembed.DefaultDimensions
	}

	return ollamaembed.NewEmbeddingService(ollamaembed.Config{
		BaseURL:           settings.BaseURL,
		Model:             settings.Model,
		Dimensions:        dimensions,
		RequestsPerSecond: settings.RequestsPerSecond,
	})
}
