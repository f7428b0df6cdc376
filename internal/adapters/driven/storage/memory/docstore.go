package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// Ensure DocumentStore implements both store interfaces.
var (
	_ driven.DocumentStore  = (*DocumentStore)(nil)
	_ driven.EmbeddingStore = (*DocumentStore)(nil)
)

// DocumentStore is an in-memory implementation of driven.DocumentStore and
// driven.EmbeddingStore. Documents and chunks share one lock so cascading
// deletes are atomic.
type DocumentStore struct {
	mu        sync.RWMutex
	documents map[int64]domain.Document
	chunks    map[chunkKey]domain.EmbeddingChunk
	nextDocID int64
	nextChkID int64
}

// chunkKey identifies a chunk; a hash is unique per document.
type chunkKey struct {
	documentID int64
	hash       string
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		documents: make(map[int64]domain.Document),
		chunks:    make(map[chunkKey]domain.EmbeddingChunk),
	}
}

// SaveDocument inserts or updates a document.
func (s *DocumentStore) SaveDocument(_ context.Context, doc *domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if doc.ID == 0 {
		s.nextDocID++
		doc.ID = s.nextDocID
		if doc.UploadDate.IsZero() {
			doc.UploadDate = time.Now().UTC()
		}
	} else if _, ok := s.documents[doc.ID]; !ok {
		return domain.ErrNotFound
	}
	s.documents[doc.ID] = copyDocument(*doc)
	return nil
}

// GetDocument retrieves a document by ID.
func (s *DocumentStore) GetDocument(_ context.Context, id int64) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	doc = copyDocument(doc)
	return &doc, nil
}

// FindByContentHash returns the oldest document with the given hash.
func (s *DocumentStore) FindByContentHash(_ context.Context, hash string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found *domain.Document
	for _, doc := range s.documents {
		if doc.ContentHash == hash && (found == nil || doc.ID < found.ID) {
			d := copyDocument(doc)
			found = &d
		}
	}
	if found == nil {
		return nil, domain.ErrNotFound
	}
	return found, nil
}

// ListDocuments returns all documents, newest upload first.
func (s *DocumentStore) ListDocuments(_ context.Context) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make([]domain.Document, 0, len(s.documents))
	for _, doc := range s.documents {
		docs = append(docs, copyDocument(doc))
	}
	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].UploadDate.Equal(docs[j].UploadDate) {
			return docs[i].UploadDate.After(docs[j].UploadDate)
		}
		return docs[i].ID > docs[j].ID
	})
	return docs, nil
}

// DeleteDocument removes a document and its chunks.
func (s *DocumentStore) DeleteDocument(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.documents, id)
	s.deleteChunksLocked(id)
	return nil
}

// ClearAll removes every document and chunk.
func (s *DocumentStore) ClearAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents = make(map[int64]domain.Document)
	s.chunks = make(map[chunkKey]domain.EmbeddingChunk)
	return nil
}

// SaveEmbedding stores a chunk; an existing chunk of the same document with
// the same hash wins.
func (s *DocumentStore) SaveEmbedding(_ context.Context, chunk *domain.EmbeddingChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := chunkKey{documentID: chunk.DocumentID, hash: chunk.ChunkHash}
	if existing, ok := s.chunks[key]; ok {
		*chunk = copyChunk(existing)
		return nil
	}
	if _, ok := s.documents[chunk.DocumentID]; !ok {
		return &domain.StorageError{Op: "saving embedding", Err: domain.ErrNotFound}
	}

	s.nextChkID++
	chunk.ID = s.nextChkID
	if chunk.CreatedAt.IsZero() {
		chunk.CreatedAt = time.Now().UTC()
	}
	s.chunks[key] = copyChunk(*chunk)
	return nil
}

// GetEmbeddingByHash returns the oldest chunk with the given hash.
func (s *DocumentStore) GetEmbeddingByHash(_ context.Context, hash string) (*domain.EmbeddingChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var found *domain.EmbeddingChunk
	for key, chunk := range s.chunks {
		if key.hash == hash && (found == nil || chunk.ID < found.ID) {
			c := chunk
			found = &c
		}
	}
	if found == nil {
		return nil, domain.ErrNotFound
	}
	chunk := copyChunk(*found)
	return &chunk, nil
}

// ListEmbeddings returns chunks ordered by document and chunk index.
func (s *DocumentStore) ListEmbeddings(_ context.Context, documentIDs []int64) ([]domain.EmbeddingChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var filter map[int64]bool
	if len(documentIDs) > 0 {
		filter = make(map[int64]bool, len(documentIDs))
		for _, id := range documentIDs {
			filter[id] = true
		}
	}

	var result []domain.EmbeddingChunk
	for _, chunk := range s.chunks {
		if filter == nil || filter[chunk.DocumentID] {
			result = append(result, copyChunk(chunk))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].DocumentID != result[j].DocumentID {
			return result[i].DocumentID < result[j].DocumentID
		}
		return result[i].ChunkIndex < result[j].ChunkIndex
	})
	return result, nil
}

// DeleteDocumentEmbeddings removes all chunks of a document.
func (s *DocumentStore) DeleteDocumentEmbeddings(_ context.Context, documentID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteChunksLocked(documentID)
	return nil
}

// ClearEmbeddings removes every chunk and resets the generated flags.
func (s *DocumentStore) ClearEmbeddings(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = make(map[chunkKey]domain.EmbeddingChunk)
	for id, doc := range s.documents {
		doc.EmbeddingsGenerated = false
		s.documents[id] = doc
	}
	return nil
}

// CountEmbeddings returns the number of chunks and their vector bytes.
func (s *DocumentStore) CountEmbeddings(_ context.Context) (int, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var size int64
	for _, chunk := range s.chunks {
		size += int64(len(chunk.Vector) * 4)
	}
	return len(s.chunks), size, nil
}

func (s *DocumentStore) deleteChunksLocked(documentID int64) {
	for key := range s.chunks {
		if key.documentID == documentID {
			delete(s.chunks, key)
		}
	}
}

func copyDocument(doc domain.Document) domain.Document {
	if doc.Tags != nil {
		doc.Tags = append([]string(nil), doc.Tags...)
	}
	return doc
}

func copyChunk(chunk domain.EmbeddingChunk) domain.EmbeddingChunk {
	if chunk.Vector != nil {
		chunk.Vector = append([]float32(nil), chunk.Vector...)
	}
	return chunk
}
