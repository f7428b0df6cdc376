package mcp

import (
	"context"
	"fmt"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
)

// mockContentService implements the ContentService methods the server uses.
// Calling any other method panics on the nil embedded interface.
type mockContentService struct {
	driving.ContentService

	documents []domain.Document
	matches   []domain.Document
	err       error
}

func (m *mockContentService) GetAllDocuments(_ context.Context) ([]domain.Document, error) {
	return m.documents, m.err
}

func (m *mockContentService) SearchDocuments(_ context.Context, _ string) ([]domain.Document, error) {
	return m.matches, m.err
}

func (m *mockContentService) GetDocument(_ context.Context, id int64) (*domain.Document, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.documents {
		if m.documents[i].ID == id {
			doc := m.documents[i]
			return &doc, nil
		}
	}
	return nil, fmt.Errorf("document %d: %w", id, domain.ErrNotFound)
}

// mockEmbeddingEngine implements the EmbeddingEngine methods the server uses.
type mockEmbeddingEngine struct {
	driving.EmbeddingEngine

	initialized bool
	results     []domain.SearchResult
	err         error
	lastQuery   domain.SemanticQuery
}

func (m *mockEmbeddingEngine) IsInitialized() bool {
	return m.initialized
}

func (m *mockEmbeddingEngine) SemanticSearch(_ context.Context, q domain.SemanticQuery) ([]domain.SearchResult, error) {
	m.lastQuery = q
	return m.results, m.err
}
