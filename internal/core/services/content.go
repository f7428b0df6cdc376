package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
	"github.com/custodia-labs/docchat/internal/logger"
)

// Ensure ContentService implements the interface.
var _ driving.ContentService = (*ContentService)(nil)

// mimeByExtension fills FileType when the upload carries no MIME type.
var mimeByExtension = map[string]string{
	".txt": "text/plain",
	".md":  "text/markdown",
	".pdf": "application/pdf",
}

// ContentService is the content store: documents plus their embedding chunks.
type ContentService struct {
	docStore   driven.DocumentStore
	embStore   driven.EmbeddingStore
	normaliser driven.NormaliserRegistry
	now        func() time.Time
}

// NewContentService creates a content service.
func NewContentService(
	docStore driven.DocumentStore,
	embStore driven.EmbeddingStore,
	normaliser driven.NormaliserRegistry,
) *ContentService {
	return &ContentService{
		docStore:   docStore,
		embStore:   embStore,
		normaliser: normaliser,
		now:        time.Now,
	}
}

// HashContent returns the hex SHA-256 digest of text.
func HashContent(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// StoreDocument validates and extracts an upload, then stores it as a new document.
func (s *ContentService) StoreDocument(
	ctx context.Context, upload *domain.Upload, meta domain.DocumentMetadata,
) (*domain.Document, error) {
	if upload == nil {
		return nil, &domain.ValidationError{Field: "upload", Reason: "missing"}
	}
	if err := validateStruct(upload); err != nil {
		return nil, err
	}
	if upload.Size > domain.MaxUploadSize || int64(len(upload.Content)) > domain.MaxUploadSize {
		return nil, &domain.ValidationError{
			Field:  "size",
			Reason: fmt.Sprintf("%s exceeds %s", humanize.IBytes(uint64(upload.Size)), humanize.IBytes(domain.MaxUploadSize)),
			Err:    domain.ErrFileTooLarge,
		}
	}
	if !upload.IsSupported() {
		return nil, &domain.ValidationError{
			Field:  "type",
			Reason: fmt.Sprintf("%s is not one of %s", upload.Filename, strings.Join(domain.SupportedUploadExtensions(), ", ")),
			Err:    domain.ErrUnsupportedType,
		}
	}

	result, err := s.normaliser.Normalise(ctx, upload)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", upload.Filename, err)
	}

	hash := HashContent(result.Content)
	existing, err := s.docStore.FindByContentHash(ctx, hash)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%w: %s matches document %d (%s)",
			domain.ErrDuplicateContent, upload.Filename, existing.ID, existing.Filename)
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}

	description := meta.Description
	if description == "" {
		description = result.Title
	}

	now := s.now()
	doc := &domain.Document{
		Filename:     filepath.Base(upload.Filename),
		FileType:     fileType(upload),
		FileSize:     upload.Size,
		Content:      result.Content,
		ContentHash:  hash,
		UploadDate:   now,
		LastModified: now,
		Tags:         normaliseTags(meta.Tags),
		Description:  description,
	}
	if !upload.LastModified.IsZero() {
		doc.LastModified = upload.LastModified
	}

	if err := s.docStore.SaveDocument(ctx, doc); err != nil {
		return nil, err
	}

	logger.Info("stored document %d %s (%s)", doc.ID, doc.Filename, humanize.IBytes(uint64(doc.FileSize)))
	return doc, nil
}

// GetAllDocuments returns all documents, newest upload first.
func (s *ContentService) GetAllDocuments(ctx context.Context) ([]domain.Document, error) {
	return s.docStore.ListDocuments(ctx)
}

// GetDocument retrieves a document by ID.
func (s *ContentService) GetDocument(ctx context.Context, id int64) (*domain.Document, error) {
	return s.docStore.GetDocument(ctx, id)
}

// UpdateDocument merges update into the stored document and bumps LastModified.
func (s *ContentService) UpdateDocument(
	ctx context.Context, id int64, update domain.DocumentUpdate,
) (*domain.Document, error) {
	doc, err := s.docStore.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}

	if update.Filename != nil {
		name := strings.TrimSpace(*update.Filename)
		if name == "" {
			return nil, &domain.ValidationError{Field: "filename", Reason: "empty"}
		}
		doc.Filename = name
	}
	if update.Tags != nil {
		doc.Tags = normaliseTags(update.Tags)
	}
	if update.Description != nil {
		doc.Description = *update.Description
	}
	if update.EmbeddingsGenerated != nil {
		doc.EmbeddingsGenerated = *update.EmbeddingsGenerated
	}

	contentChanged := false
	if update.Content != nil {
		hash := HashContent(*update.Content)
		if hash != doc.ContentHash {
			existing, err := s.docStore.FindByContentHash(ctx, hash)
			switch {
			case err == nil && existing.ID != id:
				return nil, fmt.Errorf("%w: new content of document %d matches document %d (%s)",
					domain.ErrDuplicateContent, id, existing.ID, existing.Filename)
			case err != nil && !errors.Is(err, domain.ErrNotFound):
				return nil, err
			}
			contentChanged = true
			doc.Content = *update.Content
			doc.ContentHash = hash
			doc.FileSize = int64(len(*update.Content))
			doc.EmbeddingsGenerated = false
		}
	}

	// Stale vectors go first so a failed save never leaves them behind
	// a flag that claims they match the new content.
	if contentChanged {
		if err := s.embStore.DeleteDocumentEmbeddings(ctx, id); err != nil {
			return nil, err
		}
		logger.Debug("content of document %d changed, dropped its embeddings", id)
	}

	doc.LastModified = s.now()
	if err := s.docStore.SaveDocument(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// DeleteDocument removes a document and its chunks. Missing ids are ignored.
func (s *ContentService) DeleteDocument(ctx context.Context, id int64) error {
	return s.docStore.DeleteDocument(ctx, id)
}

// SearchDocuments matches query case-insensitively against filename and content.
// An empty query matches every document.
func (s *ContentService) SearchDocuments(ctx context.Context, query string) ([]domain.Document, error) {
	docs, err := s.docStore.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return docs, nil
	}

	matches := make([]domain.Document, 0, len(docs))
	for i := range docs {
		if strings.Contains(strings.ToLower(docs[i].Filename), q) ||
			strings.Contains(strings.ToLower(docs[i].Content), q) {
			matches = append(matches, docs[i])
		}
	}
	return matches, nil
}

// StoreEmbedding hashes text and caches its vector for the document.
func (s *ContentService) StoreEmbedding(
	ctx context.Context, documentID int64, text string, vector []float32, meta domain.ChunkMetadata,
) (*domain.EmbeddingChunk, error) {
	if len(vector) == 0 {
		return nil, &domain.ValidationError{Field: "vector", Reason: "empty"}
	}

	filename := meta.DocumentFilename
	if filename == "" {
		doc, err := s.docStore.GetDocument(ctx, documentID)
		if err != nil {
			return nil, err
		}
		filename = doc.Filename
	}

	chunk := &domain.EmbeddingChunk{
		DocumentID:       documentID,
		DocumentFilename: filename,
		ChunkIndex:       meta.ChunkIndex,
		Text:             text,
		ChunkHash:        HashContent(text),
		Vector:           vector,
		CreatedAt:        s.now(),
	}
	if err := s.embStore.SaveEmbedding(ctx, chunk); err != nil {
		return nil, err
	}
	return chunk, nil
}

// HasEmbedding returns the cached chunk for text, or nil on a miss.
func (s *ContentService) HasEmbedding(ctx context.Context, text string) (*domain.EmbeddingChunk, error) {
	chunk, err := s.embStore.GetEmbeddingByHash(ctx, HashContent(text))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return chunk, nil
}

// GetDocumentEmbeddings returns a document's chunks in index order.
func (s *ContentService) GetDocumentEmbeddings(ctx context.Context, documentID int64) ([]domain.EmbeddingChunk, error) {
	return s.embStore.ListEmbeddings(ctx, []int64{documentID})
}

// GetAllEmbeddings returns every cached chunk.
func (s *ContentService) GetAllEmbeddings(ctx context.Context) ([]domain.EmbeddingChunk, error) {
	return s.embStore.ListEmbeddings(ctx, nil)
}

// DeleteDocumentEmbeddings removes a document's chunks.
func (s *ContentService) DeleteDocumentEmbeddings(ctx context.Context, documentID int64) error {
	return s.embStore.DeleteDocumentEmbeddings(ctx, documentID)
}

// MarkEmbeddingsGenerated sets the document's EmbeddingsGenerated flag.
func (s *ContentService) MarkEmbeddingsGenerated(ctx context.Context, id int64) error {
	generated := true
	_, err := s.UpdateDocument(ctx, id, domain.DocumentUpdate{EmbeddingsGenerated: &generated})
	return err
}

// ClearAllDocuments removes every document and chunk.
func (s *ContentService) ClearAllDocuments(ctx context.Context) error {
	if err := s.docStore.ClearAll(ctx); err != nil {
		return err
	}
	logger.Info("cleared all documents")
	return nil
}

// ClearEmbeddings removes every chunk and resets the document flags.
func (s *ContentService) ClearEmbeddings(ctx context.Context) error {
	return s.embStore.ClearEmbeddings(ctx)
}

// GetStorageStats aggregates document counts and sizes.
func (s *ContentService) GetStorageStats(ctx context.Context) (*domain.StorageStats, error) {
	docs, err := s.docStore.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}

	stats := &domain.StorageStats{
		TotalDocuments: len(docs),
		ByType:         make(map[string]int),
	}
	for i := range docs {
		stats.TotalSize += docs[i].FileSize
		stats.ByType[docs[i].Extension()]++
	}
	stats.TotalSizeFormatted = humanize.IBytes(uint64(stats.TotalSize))
	return stats, nil
}

// GetEmbeddingStats aggregates the chunk cache.
func (s *ContentService) GetEmbeddingStats(ctx context.Context) (*domain.EmbeddingStats, error) {
	docs, err := s.docStore.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}
	count, vectorBytes, err := s.embStore.CountEmbeddings(ctx)
	if err != nil {
		return nil, err
	}

	withEmbeddings := 0
	for i := range docs {
		if docs[i].EmbeddingsGenerated {
			withEmbeddings++
		}
	}

	avg := float64(count) / float64(max(withEmbeddings, 1))
	return &domain.EmbeddingStats{
		TotalDocuments:           len(docs),
		DocumentsWithEmbeddings:  withEmbeddings,
		TotalEmbeddingChunks:     count,
		AverageChunksPerDocument: math.Round(avg*100) / 100,
		CacheSize:                humanize.IBytes(uint64(vectorBytes)),
	}, nil
}

// ExportDocuments returns a backup of every document.
func (s *ContentService) ExportDocuments(ctx context.Context) (*domain.Backup, error) {
	docs, err := s.docStore.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []domain.Document{}
	}
	return &domain.Backup{
		ExportDate: s.now().UTC(),
		Version:    domain.BackupVersion,
		Documents:  docs,
	}, nil
}

// backupEntry is decoded leniently: unknown fields are ignored and ids and
// hashes are regenerated.
type backupEntry struct {
	Filename            string    `json:"filename"`
	FileType            string    `json:"fileType"`
	FileSize            int64     `json:"fileSize"`
	Content             *string   `json:"content"`
	UploadDate          time.Time `json:"uploadDate"`
	EmbeddingsGenerated bool      `json:"embeddingsGenerated"`
	Tags                []string  `json:"tags"`
	Description         string    `json:"description"`
}

// ImportDocuments stores every backup entry as a new document. Entries whose
// content matches a stored document are still imported; a failing entry is
// reported and skipped.
func (s *ContentService) ImportDocuments(ctx context.Context, data []byte) (*domain.ImportReport, error) {
	var backup struct {
		Version   string             `json:"version"`
		Documents *[]json.RawMessage `json:"documents"`
	}
	if err := json.Unmarshal(data, &backup); err != nil {
		return nil, &domain.ValidationError{Field: "backup", Reason: err.Error(), Err: domain.ErrInvalidBackup}
	}
	if backup.Documents == nil {
		return nil, &domain.ValidationError{Field: "documents", Reason: "missing", Err: domain.ErrInvalidBackup}
	}

	report := &domain.ImportReport{}
	for i, raw := range *backup.Documents {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		doc, err := s.importEntry(ctx, raw)
		if err != nil {
			failure := domain.ImportFailure{Index: i, Reason: err.Error()}
			if doc != nil {
				failure.Filename = doc.Filename
			}
			report.Failed = append(report.Failed, failure)
			logger.Warn("import entry %d skipped: %v", i, err)
			continue
		}
		report.Imported = append(report.Imported, *doc)
	}

	logger.Info("imported %d documents, %d failed", len(report.Imported), len(report.Failed))
	return report, nil
}

// importEntry stores one backup entry. On failure the returned document
// carries whatever filename could be decoded.
func (s *ContentService) importEntry(ctx context.Context, raw json.RawMessage) (*domain.Document, error) {
	var entry backupEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	doc := &domain.Document{Filename: strings.TrimSpace(entry.Filename)}
	if doc.Filename == "" {
		return doc, &domain.ValidationError{Field: "filename", Reason: "missing"}
	}
	if entry.Content == nil {
		return doc, &domain.ValidationError{Field: "content", Reason: "missing"}
	}

	now := s.now()
	doc.FileType = entry.FileType
	doc.FileSize = entry.FileSize
	if doc.FileSize == 0 {
		doc.FileSize = int64(len(*entry.Content))
	}
	doc.Content = *entry.Content
	doc.ContentHash = HashContent(doc.Content)
	doc.UploadDate = entry.UploadDate
	if doc.UploadDate.IsZero() {
		doc.UploadDate = now
	}
	doc.LastModified = now
	doc.Tags = normaliseTags(entry.Tags)
	doc.Description = entry.Description

	// Vectors are not part of a backup, so the flag cannot be trusted.
	doc.EmbeddingsGenerated = false

	if err := s.docStore.SaveDocument(ctx, doc); err != nil {
		return doc, err
	}
	return doc, nil
}

// fileType returns the upload's base MIME type, derived from the extension
// when the upload has none.
func fileType(upload *domain.Upload) string {
	mimeType := upload.MIMEType
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	mimeType = strings.TrimSpace(mimeType)
	if mimeType != "" && mimeType != "application/octet-stream" {
		return mimeType
	}
	if t, ok := mimeByExtension[upload.Extension()]; ok {
		return t
	}
	return "text/plain"
}

func normaliseTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
