package services

import (
	"context"
	"sort"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
	"github.com/custodia-labs/docchat/internal/logger"
)

// Ensure KnowledgeBaseService implements the interface.
var _ driving.KnowledgeBaseService = (*KnowledgeBaseService)(nil)

// KnowledgeBaseService merges local documents with the server's resources.
type KnowledgeBaseService struct {
	content driving.ContentService
	backend driven.ChatBackend
	tokens  driven.TokenProvider
}

// NewKnowledgeBaseService creates a knowledge-base service. backend and
// tokens may be nil for a local-only listing.
func NewKnowledgeBaseService(
	content driving.ContentService,
	backend driven.ChatBackend,
	tokens driven.TokenProvider,
) *KnowledgeBaseService {
	return &KnowledgeBaseService{content: content, backend: backend, tokens: tokens}
}

// List returns local documents, newest upload first, followed by server
// resources when a token is available.
func (s *KnowledgeBaseService) List(ctx context.Context) ([]domain.KnowledgeEntry, error) {
	docs, err := s.content.GetAllDocuments(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].UploadDate.After(docs[j].UploadDate)
	})

	entries := make([]domain.KnowledgeEntry, 0, len(docs))
	for i := range docs {
		entries = append(entries, domain.KnowledgeEntry{
			Origin:     domain.OriginLocal,
			DocumentID: docs[i].ID,
			Name:       docs[i].Filename,
			Size:       docs[i].FileSize,
			Embedded:   docs[i].EmbeddingsGenerated,
		})
	}

	if s.backend == nil || s.tokens == nil || !s.tokens.IsAuthenticated() {
		return entries, nil
	}

	resources, err := s.backend.ListResources(ctx)
	if err != nil {
		logger.Warn("listing server resources: %v", err)
		return entries, nil
	}
	for _, r := range resources {
		name := r.Filename
		if name == "" {
			name = r.Filepath
		}
		entries = append(entries, domain.KnowledgeEntry{
			Origin: domain.OriginServer,
			Name:   name,
			Size:   r.FileSize,
		})
	}
	return entries, nil
}
