package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) (*Store, func()) {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "docchat-test-*")
	require.NoError(t, err)

	store, err := NewStore(tempDir)
	require.NoError(t, err)
	require.NotNil(t, store)

	cleanup := func() {
		assert.NoError(t, store.Close())
		assert.NoError(t, os.RemoveAll(tempDir))
	}

	return store, cleanup
}

// createTestDocument saves a document and returns it with its assigned ID.
func createTestDocument(t *testing.T, store *Store, filename, hash string) *domain.Document {
	t.Helper()
	doc := &domain.Document{
		Filename:    filename,
		FileType:    "text/plain",
		FileSize:    12,
		Content:     "content of " + filename,
		ContentHash: hash,
		UploadDate:  time.Now().UTC().Truncate(time.Second),
		Tags:        []string{},
	}
	require.NoError(t, store.DocumentStore().SaveDocument(context.Background(), doc))
	require.NotZero(t, doc.ID)
	return doc
}

func createTestChunk(t *testing.T, store *Store, docID int64, index int, hash string) *domain.EmbeddingChunk {
	t.Helper()
	chunk := &domain.EmbeddingChunk{
		DocumentID:       docID,
		DocumentFilename: "doc.txt",
		ChunkIndex:       index,
		Text:             "chunk " + hash,
		ChunkHash:        hash,
		Vector:           []float32{0.1, 0.2, 0.3},
	}
	require.NoError(t, store.EmbeddingStore().SaveEmbedding(context.Background(), chunk))
	return chunk
}

// ==================== Store Creation and Initialization Tests ====================

func TestNewStore_ErrorHandling(t *testing.T) {
	_, err := NewStore("/invalid\x00path")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "creating data directory")
}

func TestNewStore_Success(t *testing.T) {
	tempDir := t.TempDir()

	store, err := NewStore(tempDir)
	require.NoError(t, err)
	defer store.Close()

	dbPath := filepath.Join(tempDir, DatabaseFile)
	assert.Equal(t, dbPath, store.Path())
	assert.FileExists(t, dbPath)
	assert.NoError(t, store.db.Ping())
}

func TestNewStore_DirectoryCreation(t *testing.T) {
	nestedDir := filepath.Join(t.TempDir(), "nested", "path", "to", "db")
	store, err := NewStore(nestedDir)
	require.NoError(t, err)
	defer store.Close()

	assert.DirExists(t, nestedDir)
}

func TestNewStore_Migrations(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	var count int
	err := store.db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	for _, table := range []string{"documents", "embeddings"} {
		var exists int
		err := store.db.QueryRow(
			"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&exists)
		require.NoError(t, err)
		assert.Equal(t, 1, exists, "table %s should exist", table)
	}
}

func TestNewStore_ReopenSkipsAppliedMigrations(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir)
	require.NoError(t, err)
	createTestDocument(t, store, "keep.txt", "h1")
	require.NoError(t, store.Close())

	store, err = NewStore(dir)
	require.NoError(t, err)
	defer store.Close()

	docs, err := store.DocumentStore().ListDocuments(context.Background())
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestNewStore_ForeignKeysEnabled(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	var fkEnabled int
	require.NoError(t, store.db.QueryRow("PRAGMA foreign_keys").Scan(&fkEnabled))
	assert.Equal(t, 1, fkEnabled)
}

func TestStore_Close(t *testing.T) {
	store, _ := setupTestStore(t)

	assert.NoError(t, store.Close())
	assert.Error(t, store.db.Ping())
}

// ==================== DocumentStore Tests ====================

func TestDocumentStore_SaveAssignsIncreasingIDs(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	a := createTestDocument(t, store, "a.txt", "ha")
	b := createTestDocument(t, store, "b.txt", "hb")

	assert.Greater(t, b.ID, a.ID)
}

func TestDocumentStore_SaveAndGet(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	modified := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	doc := &domain.Document{
		Filename:     "report.md",
		FileType:     "text/markdown",
		FileSize:     42,
		Content:      "# Report",
		ContentHash:  "abc",
		UploadDate:   time.Date(2024, 3, 2, 8, 0, 0, 0, time.UTC),
		LastModified: modified,
		Tags:         []string{"work", "q1"},
		Description:  "quarterly",
	}
	require.NoError(t, store.DocumentStore().SaveDocument(ctx, doc))

	got, err := store.DocumentStore().GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "report.md", got.Filename)
	assert.Equal(t, "text/markdown", got.FileType)
	assert.Equal(t, int64(42), got.FileSize)
	assert.Equal(t, "# Report", got.Content)
	assert.Equal(t, []string{"work", "q1"}, got.Tags)
	assert.Equal(t, "quarterly", got.Description)
	assert.True(t, modified.Equal(got.LastModified))
	assert.False(t, got.EmbeddingsGenerated)
}

func TestDocumentStore_Update(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	doc := createTestDocument(t, store, "a.txt", "h1")
	doc.Filename = "renamed.txt"
	doc.EmbeddingsGenerated = true
	require.NoError(t, store.DocumentStore().SaveDocument(ctx, doc))

	got, err := store.DocumentStore().GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed.txt", got.Filename)
	assert.True(t, got.EmbeddingsGenerated)
}

func TestDocumentStore_UpdateMissing(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	err := store.DocumentStore().SaveDocument(context.Background(), &domain.Document{ID: 999, Filename: "x", ContentHash: "x"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentStore_GetNotFound(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	_, err := store.DocumentStore().GetDocument(context.Background(), 12345)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentStore_FindByContentHash(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	doc := createTestDocument(t, store, "a.txt", "same")

	got, err := store.DocumentStore().FindByContentHash(ctx, "same")
	require.NoError(t, err)
	assert.Equal(t, doc.ID, got.ID)

	_, err = store.DocumentStore().FindByContentHash(ctx, "other")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentStore_ListNewestFirst(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	older := &domain.Document{Filename: "old.txt", ContentHash: "1", UploadDate: time.Now().Add(-time.Hour).UTC()}
	newer := &domain.Document{Filename: "new.txt", ContentHash: "2", UploadDate: time.Now().UTC()}
	require.NoError(t, store.DocumentStore().SaveDocument(ctx, older))
	require.NoError(t, store.DocumentStore().SaveDocument(ctx, newer))

	docs, err := store.DocumentStore().ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "new.txt", docs[0].Filename)
	assert.Equal(t, "old.txt", docs[1].Filename)
}

func TestDocumentStore_DeleteCascadesEmbeddings(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	keep := createTestDocument(t, store, "keep.txt", "k")
	drop := createTestDocument(t, store, "drop.txt", "d")
	createTestChunk(t, store, keep.ID, 0, "k0")
	createTestChunk(t, store, drop.ID, 0, "d0")
	createTestChunk(t, store, drop.ID, 1, "d1")

	require.NoError(t, store.DocumentStore().DeleteDocument(ctx, drop.ID))

	_, err := store.DocumentStore().GetDocument(ctx, drop.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	chunks, err := store.EmbeddingStore().ListEmbeddings(ctx, nil)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, keep.ID, chunks[0].DocumentID)
}

func TestDocumentStore_DeleteMissingIsNoop(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	assert.NoError(t, store.DocumentStore().DeleteDocument(context.Background(), 77))
}

func TestDocumentStore_ClearAll(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	doc := createTestDocument(t, store, "a.txt", "a")
	createTestChunk(t, store, doc.ID, 0, "a0")

	require.NoError(t, store.DocumentStore().ClearAll(ctx))

	docs, err := store.DocumentStore().ListDocuments(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs)

	count, _, err := store.EmbeddingStore().CountEmbeddings(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

// ==================== EmbeddingStore Tests ====================

func TestEmbeddingStore_SaveAndGetByHash(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	doc := createTestDocument(t, store, "a.txt", "a")
	chunk := createTestChunk(t, store, doc.ID, 2, "hash-2")
	assert.NotZero(t, chunk.ID)

	got, err := store.EmbeddingStore().GetEmbeddingByHash(ctx, "hash-2")
	require.NoError(t, err)
	assert.Equal(t, doc.ID, got.DocumentID)
	assert.Equal(t, 2, got.ChunkIndex)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, got.Vector)

	_, err = store.EmbeddingStore().GetEmbeddingByHash(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEmbeddingStore_DuplicateHashWithinDocumentKeepsFirst(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	doc := createTestDocument(t, store, "first.txt", "f")
	original := createTestChunk(t, store, doc.ID, 0, "shared")

	dup := &domain.EmbeddingChunk{
		DocumentID: doc.ID,
		ChunkIndex: 5,
		Text:       "chunk shared",
		ChunkHash:  "shared",
		Vector:     []float32{9, 9, 9},
	}
	require.NoError(t, store.EmbeddingStore().SaveEmbedding(ctx, dup))

	assert.Equal(t, original.ID, dup.ID)
	assert.Equal(t, 0, dup.ChunkIndex)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, dup.Vector)

	count, _, err := store.EmbeddingStore().CountEmbeddings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestEmbeddingStore_SharedHashAcrossDocuments(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	first := createTestDocument(t, store, "first.txt", "f")
	second := createTestDocument(t, store, "second.txt", "s")
	original := createTestChunk(t, store, first.ID, 0, "shared")
	copied := createTestChunk(t, store, second.ID, 3, "shared")

	assert.NotEqual(t, original.ID, copied.ID)
	assert.Equal(t, second.ID, copied.DocumentID)

	got, err := store.EmbeddingStore().GetEmbeddingByHash(ctx, "shared")
	require.NoError(t, err)
	assert.Equal(t, original.ID, got.ID, "lookup returns the oldest record")

	owned, err := store.EmbeddingStore().ListEmbeddings(ctx, []int64{second.ID})
	require.NoError(t, err)
	require.Len(t, owned, 1)
	assert.Equal(t, 3, owned[0].ChunkIndex)

	// Deleting the first owner leaves the second document's record in place
	require.NoError(t, store.DocumentStore().DeleteDocument(ctx, first.ID))
	got, err = store.EmbeddingStore().GetEmbeddingByHash(ctx, "shared")
	require.NoError(t, err)
	assert.Equal(t, copied.ID, got.ID)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, got.Vector)
}

func TestEmbeddingStore_ListFiltersByDocument(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	a := createTestDocument(t, store, "a.txt", "a")
	b := createTestDocument(t, store, "b.txt", "b")
	createTestChunk(t, store, a.ID, 1, "a1")
	createTestChunk(t, store, a.ID, 0, "a0")
	createTestChunk(t, store, b.ID, 0, "b0")

	chunks, err := store.EmbeddingStore().ListEmbeddings(ctx, []int64{a.ID})
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, 0, chunks[0].ChunkIndex)
	assert.Equal(t, 1, chunks[1].ChunkIndex)

	all, err := store.EmbeddingStore().ListEmbeddings(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestEmbeddingStore_DeleteDocumentEmbeddings(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	doc := createTestDocument(t, store, "a.txt", "a")
	createTestChunk(t, store, doc.ID, 0, "a0")

	require.NoError(t, store.EmbeddingStore().DeleteDocumentEmbeddings(ctx, doc.ID))

	chunks, err := store.EmbeddingStore().ListEmbeddings(ctx, []int64{doc.ID})
	require.NoError(t, err)
	assert.Empty(t, chunks)

	// The document itself survives.
	_, err = store.DocumentStore().GetDocument(ctx, doc.ID)
	assert.NoError(t, err)
}

func TestEmbeddingStore_ClearResetsFlags(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	doc := createTestDocument(t, store, "a.txt", "a")
	doc.EmbeddingsGenerated = true
	require.NoError(t, store.DocumentStore().SaveDocument(ctx, doc))
	createTestChunk(t, store, doc.ID, 0, "a0")

	require.NoError(t, store.EmbeddingStore().ClearEmbeddings(ctx))

	got, err := store.DocumentStore().GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.False(t, got.EmbeddingsGenerated)

	count, size, err := store.EmbeddingStore().CountEmbeddings(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Zero(t, size)
}

func TestEmbeddingStore_CountEmbeddings(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	doc := createTestDocument(t, store, "a.txt", "a")
	createTestChunk(t, store, doc.ID, 0, "a0")
	createTestChunk(t, store, doc.ID, 1, "a1")

	count, size, err := store.EmbeddingStore().CountEmbeddings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, int64(24), size)
}

func TestFloat32Conversion(t *testing.T) {
	in := []float32{1.5, -2.25, 0}
	assert.Equal(t, in, bytesToFloat32Slice(float32SliceToBytes(in)))
	assert.Nil(t, float32SliceToBytes(nil))
	assert.Nil(t, bytesToFloat32Slice(nil))
}
