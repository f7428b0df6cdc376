package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/docchat/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// DatabaseFile is the name of the database file inside the data directory.
const DatabaseFile = "documents.db"

// Store is a unified SQLite-based storage that provides access to
// the document and embedding stores through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.docchat/data/documents.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".docchat", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, DatabaseFile)

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// DocumentStore returns a DocumentStore interface backed by this store.
func (s *Store) DocumentStore() driven.DocumentStore {
	return &documentStore{store: s}
}

// EmbeddingStore returns an EmbeddingStore interface backed by this store.
func (s *Store) EmbeddingStore() driven.EmbeddingStore {
	return &embeddingStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort and run migrations
	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning migration %s: %w", name, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Document Store ====================

// documentStore implements driven.DocumentStore.
type documentStore struct {
	store *Store
}

var _ driven.DocumentStore = (*documentStore)(nil)

const documentColumns = `id, filename, file_type, file_size, content, content_hash,
	upload_date, last_modified, embeddings_generated, tags, description`

// SaveDocument inserts a new document or updates an existing one.
func (s *documentStore) SaveDocument(ctx context.Context, doc *domain.Document) error {
	tags := doc.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("marshalling tags: %w", err)
	}

	if doc.UploadDate.IsZero() {
		doc.UploadDate = time.Now().UTC()
	}

	if doc.ID == 0 {
		res, err := s.store.db.ExecContext(ctx, `
			INSERT INTO documents (filename, file_type, file_size, content, content_hash,
				upload_date, last_modified, embeddings_generated, tags, description)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, doc.Filename, doc.FileType, doc.FileSize, doc.Content, doc.ContentHash,
			doc.UploadDate, nullTime(doc.LastModified), doc.EmbeddingsGenerated,
			string(tagsJSON), doc.Description)
		if err != nil {
			return fmt.Errorf("saving document: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("reading document id: %w", err)
		}
		doc.ID = id
		return nil
	}

	res, err := s.store.db.ExecContext(ctx, `
		UPDATE documents SET
			filename = ?, file_type = ?, file_size = ?, content = ?, content_hash = ?,
			upload_date = ?, last_modified = ?, embeddings_generated = ?, tags = ?, description = ?
		WHERE id = ?
	`, doc.Filename, doc.FileType, doc.FileSize, doc.Content, doc.ContentHash,
		doc.UploadDate, nullTime(doc.LastModified), doc.EmbeddingsGenerated,
		string(tagsJSON), doc.Description, doc.ID)
	if err != nil {
		return fmt.Errorf("updating document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetDocument retrieves a document by ID.
func (s *documentStore) GetDocument(ctx context.Context, id int64) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx,
		"SELECT "+documentColumns+" FROM documents WHERE id = ?", id)
	return scanDocument(row)
}

// FindByContentHash returns the oldest document with the given hash.
func (s *documentStore) FindByContentHash(ctx context.Context, hash string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx,
		"SELECT "+documentColumns+" FROM documents WHERE content_hash = ? ORDER BY id LIMIT 1", hash)
	return scanDocument(row)
}

// ListDocuments returns all documents, newest upload first.
func (s *documentStore) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	rows, err := s.store.db.QueryContext(ctx,
		"SELECT "+documentColumns+" FROM documents ORDER BY upload_date DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

// DeleteDocument removes a document; its embeddings go with it.
func (s *documentStore) DeleteDocument(ctx context.Context, id int64) error {
	return s.store.withTx(ctx, "deleting document", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM embeddings WHERE document_id = ?", id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
		return err
	})
}

// ClearAll removes every document and embedding.
func (s *documentStore) ClearAll(ctx context.Context) error {
	return s.store.withTx(ctx, "clearing documents", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM embeddings"); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, "DELETE FROM documents")
		return err
	})
}

// ==================== Embedding Store ====================

// embeddingStore implements driven.EmbeddingStore.
type embeddingStore struct {
	store *Store
}

var _ driven.EmbeddingStore = (*embeddingStore)(nil)

const embeddingColumns = `id, document_id, document_filename, chunk_index, text, chunk_hash, vector, created_at`

// SaveEmbedding stores a chunk; an existing chunk of the same document with
// the same hash wins.
func (s *embeddingStore) SaveEmbedding(ctx context.Context, chunk *domain.EmbeddingChunk) error {
	if chunk.CreatedAt.IsZero() {
		chunk.CreatedAt = time.Now().UTC()
	}

	res, err := s.store.db.ExecContext(ctx, `
		INSERT INTO embeddings (document_id, document_filename, chunk_index, text, chunk_hash, vector, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(document_id, chunk_hash) DO NOTHING
	`, chunk.DocumentID, chunk.DocumentFilename, chunk.ChunkIndex, chunk.Text,
		chunk.ChunkHash, float32SliceToBytes(chunk.Vector), chunk.CreatedAt)
	if err != nil {
		return fmt.Errorf("saving embedding: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		row := s.store.db.QueryRowContext(ctx,
			"SELECT "+embeddingColumns+" FROM embeddings WHERE document_id = ? AND chunk_hash = ?",
			chunk.DocumentID, chunk.ChunkHash)
		existing, err := scanEmbedding(row)
		if err != nil {
			return fmt.Errorf("loading existing embedding: %w", err)
		}
		*chunk = *existing
		return nil
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading embedding id: %w", err)
	}
	chunk.ID = id
	return nil
}

// GetEmbeddingByHash returns the oldest chunk with the given hash.
func (s *embeddingStore) GetEmbeddingByHash(ctx context.Context, hash string) (*domain.EmbeddingChunk, error) {
	row := s.store.db.QueryRowContext(ctx,
		"SELECT "+embeddingColumns+" FROM embeddings WHERE chunk_hash = ? ORDER BY id LIMIT 1", hash)
	return scanEmbedding(row)
}

// ListEmbeddings returns chunks ordered by document and chunk index.
func (s *embeddingStore) ListEmbeddings(ctx context.Context, documentIDs []int64) ([]domain.EmbeddingChunk, error) {
	query := "SELECT " + embeddingColumns + " FROM embeddings"
	args := make([]any, 0, len(documentIDs))
	if len(documentIDs) > 0 {
		placeholders := make([]string, len(documentIDs))
		for i, id := range documentIDs {
			placeholders[i] = "?"
			args = append(args, id)
		}
		query += " WHERE document_id IN (" + strings.Join(placeholders, ",") + ")"
	}
	query += " ORDER BY document_id, chunk_index"

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying embeddings: %w", err)
	}
	defer rows.Close()

	var chunks []domain.EmbeddingChunk
	for rows.Next() {
		chunk, err := scanEmbedding(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, *chunk)
	}
	return chunks, rows.Err()
}

// DeleteDocumentEmbeddings removes all chunks of a document.
func (s *embeddingStore) DeleteDocumentEmbeddings(ctx context.Context, documentID int64) error {
	if _, err := s.store.db.ExecContext(ctx, "DELETE FROM embeddings WHERE document_id = ?", documentID); err != nil {
		return fmt.Errorf("deleting embeddings: %w", err)
	}
	return nil
}

// ClearEmbeddings removes every chunk and resets the generated flags.
func (s *embeddingStore) ClearEmbeddings(ctx context.Context) error {
	return s.store.withTx(ctx, "clearing embeddings", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM embeddings"); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, "UPDATE documents SET embeddings_generated = 0")
		return err
	})
}

// CountEmbeddings returns the number of chunks and their total vector bytes.
func (s *embeddingStore) CountEmbeddings(ctx context.Context) (int, int64, error) {
	var count int
	var size int64
	row := s.store.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(LENGTH(vector)), 0) FROM embeddings")
	if err := row.Scan(&count, &size); err != nil {
		return 0, 0, fmt.Errorf("counting embeddings: %w", err)
	}
	return count, size, nil
}

// ==================== Helper Functions ====================

// withTx runs fn in a transaction, wrapping failures in a StorageError.
func (s *Store) withTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &domain.StorageError{Op: op, Err: err}
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return &domain.StorageError{Op: op, Err: err}
	}
	if err := tx.Commit(); err != nil {
		return &domain.StorageError{Op: op, Err: err}
	}
	return nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanDocument scans a single document row.
func scanDocument(row scanner) (*domain.Document, error) {
	var doc domain.Document
	var lastModified sql.NullTime
	var tagsJSON string

	if err := row.Scan(&doc.ID, &doc.Filename, &doc.FileType, &doc.FileSize, &doc.Content,
		&doc.ContentHash, &doc.UploadDate, &lastModified, &doc.EmbeddingsGenerated,
		&tagsJSON, &doc.Description); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}

	if lastModified.Valid {
		doc.LastModified = lastModified.Time
	}
	if tagsJSON != "" {
		if err := json.Unmarshal([]byte(tagsJSON), &doc.Tags); err != nil {
			return nil, fmt.Errorf("unmarshaling tags: %w", err)
		}
	}
	return &doc, nil
}

// scanEmbedding scans a single embedding row.
func scanEmbedding(row scanner) (*domain.EmbeddingChunk, error) {
	var chunk domain.EmbeddingChunk
	var vector []byte

	if err := row.Scan(&chunk.ID, &chunk.DocumentID, &chunk.DocumentFilename, &chunk.ChunkIndex,
		&chunk.Text, &chunk.ChunkHash, &vector, &chunk.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning embedding: %w", err)
	}
	chunk.Vector = bytesToFloat32Slice(vector)
	return &chunk, nil
}

// nullTime maps the zero time to NULL.
func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
